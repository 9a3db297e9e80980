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

// validateTemplate checks the shape shared by create and update.
func validateTemplate(t *Template) error {
	t.Name = strings.TrimSpace(t.Name)
	if t.Name == "" {
		return verrors.NewValidation("name", "template name is required")
	}
	if t.ReferenceIndex < 0 || t.ReferenceIndex >= len(t.Slides) {
		return verrors.NewValidation("reference_index",
			fmt.Sprintf("reference index %d outside %d slides", t.ReferenceIndex, len(t.Slides)))
	}
	return nil
}

// CreateTemplate inserts a template with its slides in one transaction.
// Slide positions are assigned from slice order.
func (s *Store) CreateTemplate(ctx context.Context, t *Template) error {
	if err := validateTemplate(t); err != nil {
		return err
	}
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		"INSERT INTO templates (id, name, reference_index, created_at) VALUES (?, ?, ?, ?)",
		t.ID, t.Name, t.ReferenceIndex, timestamp(t.CreatedAt)); err != nil {
		return fmt.Errorf("failed to create template: %w", err)
	}
	if err := insertTemplateSlides(ctx, tx, t); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit template: %w", err)
	}
	s.InvalidateCaches()
	return nil
}

// UpdateTemplate rewrites a template and replaces all its slides.
func (s *Store) UpdateTemplate(ctx context.Context, t *Template) error {
	if t.ID == "" {
		return verrors.NewValidation("id", "template id is required")
	}
	if err := validateTemplate(t); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		"UPDATE templates SET name = ?, reference_index = ? WHERE id = ?",
		t.Name, t.ReferenceIndex, t.ID)
	if err != nil {
		return fmt.Errorf("failed to update template: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return verrors.NewNotFound("template", t.ID)
	}
	if _, err := tx.ExecContext(ctx,
		"DELETE FROM template_slides WHERE template_id = ?", t.ID); err != nil {
		return fmt.Errorf("failed to clear template slides: %w", err)
	}
	if err := insertTemplateSlides(ctx, tx, t); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit template: %w", err)
	}
	s.InvalidateCaches()
	return nil
}

// insertTemplateSlides writes t.Slides with positions from slice order.
func insertTemplateSlides(ctx context.Context, tx *sql.Tx, t *Template) error {
	for i := range t.Slides {
		t.Slides[i].Position = i
		sl := t.Slides[i]
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO template_slides (template_id, position, kind, heading, body, background, foreground)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			t.ID, sl.Position, sl.Kind, sl.Heading, sl.Body, sl.Background, sl.Foreground); err != nil {
			return fmt.Errorf("failed to insert template slide %d: %w", i, err)
		}
	}
	return nil
}

// GetTemplate loads one template with its slides in position order.
func (s *Store) GetTemplate(ctx context.Context, id string) (*Template, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT id, name, reference_index, created_at FROM templates WHERE id = ?", id)

	var t Template
	var created string
	err := row.Scan(&t.ID, &t.Name, &t.ReferenceIndex, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, verrors.NewNotFound("template", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan template: %w", err)
	}
	t.CreatedAt = parseTimestamp(created)

	rows, err := s.db.QueryContext(ctx,
		`SELECT position, kind, heading, body, background, foreground
		 FROM template_slides WHERE template_id = ? ORDER BY position`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load template slides: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var sl TemplateSlide
		if err := rows.Scan(&sl.Position, &sl.Kind, &sl.Heading, &sl.Body,
			&sl.Background, &sl.Foreground); err != nil {
			return nil, fmt.Errorf("failed to scan template slide: %w", err)
		}
		t.Slides = append(t.Slides, sl)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to load template slides: %w", err)
	}
	return &t, nil
}

// ListTemplates returns all templates sorted by name, without their slides.
func (s *Store) ListTemplates(ctx context.Context) ([]Template, error) {
	if templates, ok := s.templateLists.Get(""); ok {
		return templates, nil
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, name, reference_index, created_at FROM templates ORDER BY name COLLATE NOCASE")
	if err != nil {
		return nil, fmt.Errorf("failed to list templates: %w", err)
	}
	defer rows.Close()

	var templates []Template
	for rows.Next() {
		var t Template
		var created string
		if err := rows.Scan(&t.ID, &t.Name, &t.ReferenceIndex, &created); err != nil {
			return nil, fmt.Errorf("failed to scan template: %w", err)
		}
		t.CreatedAt = parseTimestamp(created)
		templates = append(templates, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list templates: %w", err)
	}

	s.templateLists.Set("", templates)
	return templates, nil
}

// DeleteTemplate removes a template and its slides; sessions that used it
// fall back to plain content-only decks.
func (s *Store) DeleteTemplate(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM templates WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete template: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return verrors.NewNotFound("template", id)
	}
	s.InvalidateCaches()
	return nil
}
