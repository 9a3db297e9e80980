package archive

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/versoproject/verso/internal/store"
)

// ManifestVersion identifies the backup layout.
const ManifestVersion = "1"

// Entry names inside a backup archive.
const (
	manifestFile  = "manifest.json"
	songsFile     = "songs.json"
	singersFile   = "singers.json"
	pitchesFile   = "pitches.json"
	templatesFile = "templates.json"
	sessionsFile  = "sessions.json"
)

// Manifest describes a backup archive.
type Manifest struct {
	Version   string         `json:"version"`
	CreatedAt string         `json:"created_at"`
	Counts    map[string]int `json:"counts"`
}

// backupContents is everything a backup carries besides the manifest.
type backupContents struct {
	Songs     []store.Song
	Singers   []store.Singer
	Pitches   []store.Pitch
	Templates []store.Template
	Sessions  []store.Session
}

// Backup writes the whole library to a compressed tar archive at path.
// The extension picks the compression: .tar.xz for xz, anything else gzip.
func Backup(ctx context.Context, st *store.Store, path string) (*Manifest, error) {
	contents, err := loadLibrary(ctx, st)
	if err != nil {
		return nil, err
	}

	manifest := &Manifest{
		Version:   ManifestVersion,
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
		Counts: map[string]int{
			"songs":     len(contents.Songs),
			"singers":   len(contents.Singers),
			"pitches":   len(contents.Pitches),
			"templates": len(contents.Templates),
			"sessions":  len(contents.Sessions),
		},
	}

	w, err := NewWriter(path)
	if err != nil {
		return nil, err
	}

	files := []struct {
		name string
		data any
	}{
		{manifestFile, manifest},
		{songsFile, contents.Songs},
		{singersFile, contents.Singers},
		{pitchesFile, contents.Pitches},
		{templatesFile, contents.Templates},
		{sessionsFile, contents.Sessions},
	}
	for _, f := range files {
		data, err := json.MarshalIndent(f.data, "", "  ")
		if err != nil {
			w.Close()
			return nil, fmt.Errorf("failed to encode %s: %w", f.name, err)
		}
		if err := w.WriteFile(f.name, data); err != nil {
			w.Close()
			return nil, err
		}
	}

	if err := w.Close(); err != nil {
		return nil, err
	}
	return manifest, nil
}

// loadLibrary reads every entity table. Sessions and templates come back
// with their child rows resolved.
func loadLibrary(ctx context.Context, st *store.Store) (*backupContents, error) {
	var c backupContents
	var err error

	if c.Songs, err = st.ListSongs(ctx, store.SongFilter{}); err != nil {
		return nil, fmt.Errorf("failed to list songs: %w", err)
	}
	if c.Singers, err = st.ListSingers(ctx); err != nil {
		return nil, fmt.Errorf("failed to list singers: %w", err)
	}
	if c.Pitches, err = st.ListPitches(ctx); err != nil {
		return nil, fmt.Errorf("failed to list pitches: %w", err)
	}
	if c.Templates, err = st.ListTemplates(ctx); err != nil {
		return nil, fmt.Errorf("failed to list templates: %w", err)
	}
	if c.Sessions, err = st.ListSessions(ctx); err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	return &c, nil
}

// ReadManifest returns the manifest of the backup at path.
func ReadManifest(path string) (*Manifest, error) {
	data, err := ReadFile(path, manifestFile)
	if err != nil {
		return nil, err
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to decode manifest: %w", err)
	}
	if m.Version != ManifestVersion {
		return nil, fmt.Errorf("unsupported backup version %q", m.Version)
	}
	return &m, nil
}

// Restore loads a backup archive into the store. Entities are inserted in
// dependency order with their original IDs so session references survive;
// records whose ID or unique name already exists are skipped and counted.
// Every restore ends by dropping the store's query caches.
func Restore(ctx context.Context, st *store.Store, path string) (*Manifest, error) {
	manifest, err := ReadManifest(path)
	if err != nil {
		return nil, err
	}

	var contents backupContents
	entries := []struct {
		name string
		dst  any
	}{
		{songsFile, &contents.Songs},
		{singersFile, &contents.Singers},
		{pitchesFile, &contents.Pitches},
		{templatesFile, &contents.Templates},
		{sessionsFile, &contents.Sessions},
	}
	for _, e := range entries {
		data, err := ReadFile(path, e.name)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal(data, e.dst); err != nil {
			return nil, fmt.Errorf("failed to decode %s: %w", e.name, err)
		}
	}

	restored := make(map[string]int)

	for i := range contents.Songs {
		song := contents.Songs[i]
		if existing, err := st.GetSong(ctx, song.ID); err == nil && existing != nil {
			continue
		}
		if err := st.CreateSong(ctx, &song); err == nil {
			restored["songs"]++
		}
	}

	// Singers and pitches mint fresh IDs through the store API, which
	// would orphan session references. Insert them directly instead.
	db := st.DB()
	for _, singer := range contents.Singers {
		_, err := db.ExecContext(ctx,
			"INSERT OR IGNORE INTO singers (id, name, created_at) VALUES (?, ?, ?)",
			singer.ID, singer.Name, singer.CreatedAt.UTC().Format(time.RFC3339))
		if err != nil {
			return nil, fmt.Errorf("failed to restore singer %q: %w", singer.Name, err)
		}
		restored["singers"]++
	}
	for _, pitch := range contents.Pitches {
		_, err := db.ExecContext(ctx,
			"INSERT OR IGNORE INTO pitches (id, name, semitone, created_at) VALUES (?, ?, ?, ?)",
			pitch.ID, pitch.Name, pitch.Semitone, pitch.CreatedAt.UTC().Format(time.RFC3339))
		if err != nil {
			return nil, fmt.Errorf("failed to restore pitch %q: %w", pitch.Name, err)
		}
		restored["pitches"]++
	}

	for i := range contents.Templates {
		t := contents.Templates[i]
		if existing, err := st.GetTemplate(ctx, t.ID); err == nil && existing != nil {
			continue
		}
		if err := st.CreateTemplate(ctx, &t); err == nil {
			restored["templates"]++
		}
	}
	for i := range contents.Sessions {
		sess := contents.Sessions[i]
		if existing, err := st.GetSession(ctx, sess.ID); err == nil && existing != nil {
			continue
		}
		if err := st.CreateSession(ctx, &sess); err == nil {
			restored["sessions"]++
		}
	}

	st.InvalidateCaches()
	manifest.Counts = restored
	return manifest, nil
}
