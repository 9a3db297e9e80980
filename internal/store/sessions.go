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

// validateSession checks the shape shared by create and update.
func validateSession(sess *Session) error {
	sess.Name = strings.TrimSpace(sess.Name)
	if sess.Name == "" {
		return verrors.NewValidation("name", "session name is required")
	}
	for i, entry := range sess.Songs {
		if entry.SongID == "" {
			return verrors.NewValidation("songs",
				fmt.Sprintf("entry %d has no song", i))
		}
	}
	return nil
}

// CreateSession inserts a session with its setlist in one transaction.
// Entry positions are assigned from slice order.
func (s *Store) CreateSession(ctx context.Context, sess *Session) error {
	if err := validateSession(sess); err != nil {
		return err
	}
	if sess.ID == "" {
		sess.ID = uuid.NewString()
	}
	if sess.CreatedAt.IsZero() {
		sess.CreatedAt = time.Now().UTC()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		"INSERT INTO sessions (id, name, held_on, template_id, created_at) VALUES (?, ?, ?, ?, ?)",
		sess.ID, sess.Name, sess.HeldOn, nullable(sess.TemplateID), timestamp(sess.CreatedAt)); err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	if err := insertSessionSongs(ctx, tx, sess); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit session: %w", err)
	}
	s.InvalidateCaches()
	return nil
}

// UpdateSession rewrites a session and replaces its whole setlist.
func (s *Store) UpdateSession(ctx context.Context, sess *Session) error {
	if sess.ID == "" {
		return verrors.NewValidation("id", "session id is required")
	}
	if err := validateSession(sess); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		"UPDATE sessions SET name = ?, held_on = ?, template_id = ? WHERE id = ?",
		sess.Name, sess.HeldOn, nullable(sess.TemplateID), sess.ID)
	if err != nil {
		return fmt.Errorf("failed to update session: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return verrors.NewNotFound("session", sess.ID)
	}
	if _, err := tx.ExecContext(ctx,
		"DELETE FROM session_songs WHERE session_id = ?", sess.ID); err != nil {
		return fmt.Errorf("failed to clear session songs: %w", err)
	}
	if err := insertSessionSongs(ctx, tx, sess); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit session: %w", err)
	}
	s.InvalidateCaches()
	return nil
}

// insertSessionSongs writes sess.Songs with positions from slice order.
func insertSessionSongs(ctx context.Context, tx *sql.Tx, sess *Session) error {
	for i := range sess.Songs {
		sess.Songs[i].Position = i
		entry := sess.Songs[i]
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO session_songs (session_id, position, song_id, singer_id, pitch_id)
			 VALUES (?, ?, ?, ?, ?)`,
			sess.ID, entry.Position, entry.SongID,
			nullable(entry.SingerID), nullable(entry.PitchID)); err != nil {
			return fmt.Errorf("failed to insert session song %d: %w", i, err)
		}
	}
	return nil
}

// GetSession loads one session with its setlist in order, resolving song,
// singer, and pitch names for display.
func (s *Store) GetSession(ctx context.Context, id string) (*Session, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT id, name, held_on, template_id, created_at FROM sessions WHERE id = ?", id)

	var sess Session
	var templateID sql.NullString
	var created string
	err := row.Scan(&sess.ID, &sess.Name, &sess.HeldOn, &templateID, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, verrors.NewNotFound("session", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan session: %w", err)
	}
	sess.TemplateID = templateID.String
	sess.CreatedAt = parseTimestamp(created)

	rows, err := s.db.QueryContext(ctx,
		`SELECT ss.position, ss.song_id, ss.singer_id, ss.pitch_id,
		        so.name, COALESCE(si.name, ''), COALESCE(pi.name, '')
		 FROM session_songs ss
		 JOIN songs so ON so.id = ss.song_id
		 LEFT JOIN singers si ON si.id = ss.singer_id
		 LEFT JOIN pitches pi ON pi.id = ss.pitch_id
		 WHERE ss.session_id = ?
		 ORDER BY ss.position`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load session songs: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var entry SessionSong
		var singerID, pitchID sql.NullString
		if err := rows.Scan(&entry.Position, &entry.SongID, &singerID, &pitchID,
			&entry.SongName, &entry.SingerName, &entry.PitchName); err != nil {
			return nil, fmt.Errorf("failed to scan session song: %w", err)
		}
		entry.SingerID = singerID.String
		entry.PitchID = pitchID.String
		sess.Songs = append(sess.Songs, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to load session songs: %w", err)
	}
	return &sess, nil
}

// ListSessions returns all sessions sorted newest first, without setlists.
func (s *Store) ListSessions(ctx context.Context) ([]Session, error) {
	if sessions, ok := s.sessionLists.Get(""); ok {
		return sessions, nil
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, held_on, template_id, created_at
		 FROM sessions ORDER BY held_on DESC, created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []Session
	for rows.Next() {
		var sess Session
		var templateID sql.NullString
		var created string
		if err := rows.Scan(&sess.ID, &sess.Name, &sess.HeldOn, &templateID, &created); err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		sess.TemplateID = templateID.String
		sess.CreatedAt = parseTimestamp(created)
		sessions = append(sessions, sess)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}

	s.sessionLists.Set("", sessions)
	return sessions, nil
}

// DeleteSession removes a session and its setlist.
func (s *Store) DeleteSession(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM sessions WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return verrors.NewNotFound("session", id)
	}
	s.InvalidateCaches()
	return nil
}
