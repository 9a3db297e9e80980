package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/versoproject/verso/core/verrors"
)

// CreateSinger inserts a singer with a unique name.
func (s *Store) CreateSinger(ctx context.Context, name string) (*Singer, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, verrors.NewValidation("name", "singer name is required")
	}

	singer := &Singer{
		ID:        uuid.NewString(),
		Name:      name,
		CreatedAt: time.Now().UTC(),
	}
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO singers (id, name, created_at) VALUES (?, ?, ?)",
		singer.ID, singer.Name, timestamp(singer.CreatedAt))
	if isUniqueViolation(err) {
		return nil, verrors.Wrapf(verrors.ErrAlreadyExists, "singer %q", name)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create singer: %w", err)
	}
	s.InvalidateCaches()
	return singer, nil
}

// GetSinger loads one singer by ID.
func (s *Store) GetSinger(ctx context.Context, id string) (*Singer, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT id, name, created_at FROM singers WHERE id = ?", id)

	var singer Singer
	var created string
	err := row.Scan(&singer.ID, &singer.Name, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, verrors.NewNotFound("singer", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan singer: %w", err)
	}
	singer.CreatedAt = parseTimestamp(created)
	return &singer, nil
}

// ListSingers returns all singers sorted by name.
func (s *Store) ListSingers(ctx context.Context) ([]Singer, error) {
	if singers, ok := s.singerLists.Get(""); ok {
		return singers, nil
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, name, created_at FROM singers ORDER BY name COLLATE NOCASE")
	if err != nil {
		return nil, fmt.Errorf("failed to list singers: %w", err)
	}
	defer rows.Close()

	var singers []Singer
	for rows.Next() {
		var singer Singer
		var created string
		if err := rows.Scan(&singer.ID, &singer.Name, &created); err != nil {
			return nil, fmt.Errorf("failed to scan singer: %w", err)
		}
		singer.CreatedAt = parseTimestamp(created)
		singers = append(singers, singer)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list singers: %w", err)
	}

	s.singerLists.Set("", singers)
	return singers, nil
}

// RenameSinger changes a singer's name.
func (s *Store) RenameSinger(ctx context.Context, id, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return verrors.NewValidation("name", "singer name is required")
	}

	res, err := s.db.ExecContext(ctx,
		"UPDATE singers SET name = ? WHERE id = ?", name, id)
	if isUniqueViolation(err) {
		return verrors.Wrapf(verrors.ErrAlreadyExists, "singer %q", name)
	}
	if err != nil {
		return fmt.Errorf("failed to rename singer: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return verrors.NewNotFound("singer", id)
	}
	s.InvalidateCaches()
	return nil
}

// DeleteSinger removes a singer; session entries keep their song but lose
// the singer reference.
func (s *Store) DeleteSinger(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM singers WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete singer: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return verrors.NewNotFound("singer", id)
	}
	s.InvalidateCaches()
	return nil
}
