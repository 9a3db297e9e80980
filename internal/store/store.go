// Package store persists the song library in a single SQLite database:
// songs, singers, pitches, slide templates, and sessions. It supports both
// the pure Go driver (modernc.org/sqlite, the default) and the CGO driver
// (mattn/go-sqlite3, behind the cgo_sqlite build tag); use Open rather than
// sql.Open so the right driver is selected.
//
// List queries are cached for a short TTL; every mutation invalidates all
// cached lists so readers never see stale results. Timestamps are stored as
// RFC 3339 UTC strings and IDs are UUIDs.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/versoproject/verso/internal/cache"
)

// listCacheTTL is how long cached list queries stay fresh.
const listCacheTTL = time.Minute

// schemaStatements is the idempotent schema, applied on every Open.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS songs (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		lyrics TEXT NOT NULL DEFAULT '',
		meaning TEXT NOT NULL DEFAULT '',
		language TEXT NOT NULL DEFAULT '',
		digest TEXT NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_songs_digest ON songs(digest)`,
	`CREATE TABLE IF NOT EXISTS singers (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL UNIQUE,
		created_at TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS pitches (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL UNIQUE,
		semitone INTEGER NOT NULL,
		created_at TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS templates (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		reference_index INTEGER NOT NULL,
		created_at TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS template_slides (
		template_id TEXT NOT NULL REFERENCES templates(id) ON DELETE CASCADE,
		position INTEGER NOT NULL,
		kind TEXT NOT NULL DEFAULT '',
		heading TEXT NOT NULL DEFAULT '',
		body TEXT NOT NULL DEFAULT '',
		background TEXT NOT NULL DEFAULT '',
		foreground TEXT NOT NULL DEFAULT '',
		PRIMARY KEY (template_id, position)
	)`,
	`CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		held_on TEXT NOT NULL DEFAULT '',
		template_id TEXT REFERENCES templates(id) ON DELETE SET NULL,
		created_at TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS session_songs (
		session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
		position INTEGER NOT NULL,
		song_id TEXT NOT NULL REFERENCES songs(id) ON DELETE CASCADE,
		singer_id TEXT REFERENCES singers(id) ON DELETE SET NULL,
		pitch_id TEXT REFERENCES pitches(id) ON DELETE SET NULL,
		PRIMARY KEY (session_id, position)
	)`,
}

// Store provides access to the song library database.
type Store struct {
	db *sql.DB

	songLists     *cache.TTLCache[string, []Song]
	singerLists   *cache.TTLCache[string, []Singer]
	pitchLists    *cache.TTLCache[string, []Pitch]
	templateLists *cache.TTLCache[string, []Template]
	sessionLists  *cache.TTLCache[string, []Session]
}

// Open opens (creating if needed) the library database at path and applies
// the schema.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("database path is required")
	}

	db, err := sql.Open(driverName, filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// Pragmas via Exec so they work identically on both drivers.
	for _, pragma := range []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", pragma, err)
		}
	}

	s := &Store{
		db:            db,
		songLists:     cache.New[string, []Song](listCacheTTL),
		singerLists:   cache.New[string, []Singer](listCacheTTL),
		pitchLists:    cache.New[string, []Pitch](listCacheTTL),
		templateLists: cache.New[string, []Template](listCacheTTL),
		sessionLists:  cache.New[string, []Session](listCacheTTL),
	}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// initSchema applies the schema statements one by one.
func (s *Store) initSchema() error {
	for _, stmt := range schemaStatements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return nil
}

// Close closes the database handle.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// DB exposes the underlying handle for maintenance tooling (backups).
func (s *Store) DB() *sql.DB {
	return s.db
}

// InvalidateCaches drops every cached list query. Mutations call this;
// bulk operations that bypass the store API (restore) should call it too.
func (s *Store) InvalidateCaches() {
	s.songLists.Invalidate()
	s.singerLists.Invalidate()
	s.pitchLists.Invalidate()
	s.templateLists.Invalidate()
	s.sessionLists.Invalidate()
}

// Stats reports record counts and the distinct song languages.
func (s *Store) Stats(ctx context.Context) (*Stats, error) {
	stats := &Stats{Driver: GetDriverInfo()}

	counts := []struct {
		table string
		dst   *int
	}{
		{"songs", &stats.Songs},
		{"singers", &stats.Singers},
		{"pitches", &stats.Pitches},
		{"templates", &stats.Templates},
		{"sessions", &stats.Sessions},
	}
	for _, c := range counts {
		row := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+c.table)
		if err := row.Scan(c.dst); err != nil {
			return nil, fmt.Errorf("failed to count %s: %w", c.table, err)
		}
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT DISTINCT language FROM songs WHERE language != '' ORDER BY language")
	if err != nil {
		return nil, fmt.Errorf("failed to list languages: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var lang string
		if err := rows.Scan(&lang); err != nil {
			return nil, fmt.Errorf("failed to scan language: %w", err)
		}
		stats.Languages = append(stats.Languages, lang)
	}
	return stats, rows.Err()
}

// timestamp formats a time for storage.
func timestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// parseTimestamp reads a stored timestamp, zero time on malformed input.
func parseTimestamp(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t.UTC()
}

// nullable maps empty strings to NULL for optional foreign keys.
func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// isUniqueViolation detects duplicate-key failures. Both drivers surface
// the SQLite error text, which is the only portable signal across them.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
