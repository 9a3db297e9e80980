package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/versoproject/verso/core/pitch"
	"github.com/versoproject/verso/core/verrors"
)

// CreatePitch inserts a pitch. The name must parse as a pitch ("C", "Bb",
// "F#m"); it is stored in canonical spelling with its semitone offset.
func (s *Store) CreatePitch(ctx context.Context, name string) (*Pitch, error) {
	parsed, err := pitch.Parse(name)
	if err != nil {
		return nil, verrors.NewValidation("name", err.Error())
	}

	p := &Pitch{
		ID:        uuid.NewString(),
		Name:      parsed.String(),
		Semitone:  parsed.Semitone(),
		CreatedAt: time.Now().UTC(),
	}
	_, err = s.db.ExecContext(ctx,
		"INSERT INTO pitches (id, name, semitone, created_at) VALUES (?, ?, ?, ?)",
		p.ID, p.Name, p.Semitone, timestamp(p.CreatedAt))
	if isUniqueViolation(err) {
		return nil, verrors.Wrapf(verrors.ErrAlreadyExists, "pitch %q", p.Name)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create pitch: %w", err)
	}
	s.InvalidateCaches()
	return p, nil
}

// GetPitch loads one pitch by ID.
func (s *Store) GetPitch(ctx context.Context, id string) (*Pitch, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT id, name, semitone, created_at FROM pitches WHERE id = ?", id)

	var p Pitch
	var created string
	err := row.Scan(&p.ID, &p.Name, &p.Semitone, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, verrors.NewNotFound("pitch", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan pitch: %w", err)
	}
	p.CreatedAt = parseTimestamp(created)
	return &p, nil
}

// ListPitches returns all pitches ordered by semitone, then name, so the
// picker reads chromatically.
func (s *Store) ListPitches(ctx context.Context) ([]Pitch, error) {
	if pitches, ok := s.pitchLists.Get(""); ok {
		return pitches, nil
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, name, semitone, created_at FROM pitches ORDER BY semitone, name")
	if err != nil {
		return nil, fmt.Errorf("failed to list pitches: %w", err)
	}
	defer rows.Close()

	var pitches []Pitch
	for rows.Next() {
		var p Pitch
		var created string
		if err := rows.Scan(&p.ID, &p.Name, &p.Semitone, &created); err != nil {
			return nil, fmt.Errorf("failed to scan pitch: %w", err)
		}
		p.CreatedAt = parseTimestamp(created)
		pitches = append(pitches, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list pitches: %w", err)
	}

	s.pitchLists.Set("", pitches)
	return pitches, nil
}

// DeletePitch removes a pitch; session entries keep their song but lose
// the pitch reference.
func (s *Store) DeletePitch(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM pitches WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete pitch: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return verrors.NewNotFound("pitch", id)
	}
	s.InvalidateCaches()
	return nil
}
