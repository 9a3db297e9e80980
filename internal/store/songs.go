package store

import (
	"context"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/zeebo/blake3"

	"github.com/versoproject/verso/core/verrors"
)

// SongDigest returns the content digest used for import deduplication:
// BLAKE3 over the trimmed name and the verbatim lyrics, NUL-separated so
// "ab"+"c" and "a"+"bc" cannot collide.
func SongDigest(name, lyrics string) string {
	h := blake3.Sum256([]byte(strings.TrimSpace(name) + "\x00" + lyrics))
	return hex.EncodeToString(h[:])
}

// SongFilter narrows ListSongs. Zero value lists everything.
type SongFilter struct {
	// Search matches a case-insensitive substring of the song name.
	Search string
	// Language keeps only songs in the given language.
	Language string
}

func (f SongFilter) cacheKey() string {
	return f.Search + "\x00" + f.Language
}

// CreateSong inserts a song. The ID is generated when empty and the digest
// is always recomputed from the name and lyrics.
func (s *Store) CreateSong(ctx context.Context, song *Song) error {
	song.Name = strings.TrimSpace(song.Name)
	if song.Name == "" {
		return verrors.NewValidation("name", "song name is required")
	}
	if song.ID == "" {
		song.ID = uuid.NewString()
	}
	song.Digest = SongDigest(song.Name, song.Lyrics)

	now := time.Now().UTC()
	if song.CreatedAt.IsZero() {
		song.CreatedAt = now
	}
	song.UpdatedAt = now

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO songs (id, name, lyrics, meaning, language, digest, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		song.ID, song.Name, song.Lyrics, song.Meaning, song.Language, song.Digest,
		timestamp(song.CreatedAt), timestamp(song.UpdatedAt))
	if isUniqueViolation(err) {
		return verrors.Wrapf(verrors.ErrAlreadyExists, "song %q already in the library", song.Name)
	}
	if err != nil {
		return fmt.Errorf("failed to create song: %w", err)
	}
	s.InvalidateCaches()
	return nil
}

// GetSong loads one song by ID.
func (s *Store) GetSong(ctx context.Context, id string) (*Song, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, lyrics, meaning, language, digest, created_at, updated_at
		 FROM songs WHERE id = ?`, id)
	return scanSong(row, id)
}

// GetSongByDigest loads the song with the given content digest, if any.
// Importers use this to skip files already in the library.
func (s *Store) GetSongByDigest(ctx context.Context, digest string) (*Song, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, lyrics, meaning, language, digest, created_at, updated_at
		 FROM songs WHERE digest = ?`, digest)
	return scanSong(row, digest)
}

// ListSongs returns songs matching the filter, sorted by name. Results are
// cached per filter until the next mutation.
func (s *Store) ListSongs(ctx context.Context, filter SongFilter) ([]Song, error) {
	if songs, ok := s.songLists.Get(filter.cacheKey()); ok {
		return songs, nil
	}

	query := `SELECT id, name, lyrics, meaning, language, digest, created_at, updated_at
		 FROM songs`
	var conds []string
	var args []any
	if filter.Search != "" {
		conds = append(conds, "name LIKE ? COLLATE NOCASE")
		args = append(args, "%"+filter.Search+"%")
	}
	if filter.Language != "" {
		conds = append(conds, "language = ?")
		args = append(args, filter.Language)
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY name COLLATE NOCASE"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list songs: %w", err)
	}
	defer rows.Close()

	var songs []Song
	for rows.Next() {
		var song Song
		var created, updated string
		if err := rows.Scan(&song.ID, &song.Name, &song.Lyrics, &song.Meaning,
			&song.Language, &song.Digest, &created, &updated); err != nil {
			return nil, fmt.Errorf("failed to scan song: %w", err)
		}
		song.CreatedAt = parseTimestamp(created)
		song.UpdatedAt = parseTimestamp(updated)
		songs = append(songs, song)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list songs: %w", err)
	}

	s.songLists.Set(filter.cacheKey(), songs)
	return songs, nil
}

// UpdateSong rewrites a song's editable fields and refreshes its digest.
func (s *Store) UpdateSong(ctx context.Context, song *Song) error {
	song.Name = strings.TrimSpace(song.Name)
	if song.ID == "" {
		return verrors.NewValidation("id", "song id is required")
	}
	if song.Name == "" {
		return verrors.NewValidation("name", "song name is required")
	}
	song.Digest = SongDigest(song.Name, song.Lyrics)
	song.UpdatedAt = time.Now().UTC()

	res, err := s.db.ExecContext(ctx,
		`UPDATE songs SET name = ?, lyrics = ?, meaning = ?, language = ?, digest = ?, updated_at = ?
		 WHERE id = ?`,
		song.Name, song.Lyrics, song.Meaning, song.Language, song.Digest,
		timestamp(song.UpdatedAt), song.ID)
	if isUniqueViolation(err) {
		return verrors.Wrapf(verrors.ErrAlreadyExists, "another song has the same content")
	}
	if err != nil {
		return fmt.Errorf("failed to update song: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return verrors.NewNotFound("song", song.ID)
	}
	s.InvalidateCaches()
	return nil
}

// DeleteSong removes a song; session entries referencing it are removed by
// the schema's cascade.
func (s *Store) DeleteSong(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM songs WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete song: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return verrors.NewNotFound("song", id)
	}
	s.InvalidateCaches()
	return nil
}

// scanSong reads one song row, translating no-rows into a not-found error
// naming ref (the ID or digest that was looked up).
func scanSong(row *sql.Row, ref string) (*Song, error) {
	var song Song
	var created, updated string
	err := row.Scan(&song.ID, &song.Name, &song.Lyrics, &song.Meaning,
		&song.Language, &song.Digest, &created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, verrors.NewNotFound("song", ref)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan song: %w", err)
	}
	song.CreatedAt = parseTimestamp(created)
	song.UpdatedAt = parseTimestamp(updated)
	return &song, nil
}
