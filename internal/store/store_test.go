package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/versoproject/verso/core/verrors"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "verso.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpenRejectsEmptyPath(t *testing.T) {
	if _, err := Open("   "); err == nil {
		t.Error("Open with blank path succeeded, want error")
	}
}

func TestOpenIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "verso.db")

	s1, err := Open(path)
	if err != nil {
		t.Fatalf("first Open failed: %v", err)
	}
	if err := s1.CreateSong(context.Background(), &Song{Name: "Kept"}); err != nil {
		t.Fatalf("CreateSong failed: %v", err)
	}
	s1.Close()

	// Reopening applies the schema again and keeps existing rows.
	s2, err := Open(path)
	if err != nil {
		t.Fatalf("second Open failed: %v", err)
	}
	defer s2.Close()
	songs, err := s2.ListSongs(context.Background(), SongFilter{})
	if err != nil {
		t.Fatalf("ListSongs failed: %v", err)
	}
	if len(songs) != 1 || songs[0].Name != "Kept" {
		t.Errorf("got %d songs after reopen, want the one created before", len(songs))
	}
}

func TestSongCRUD(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	song := &Song{Name: "  Morning Light ", Lyrics: "L1\nL2", Meaning: "about dawn", Language: "en"}
	if err := s.CreateSong(ctx, song); err != nil {
		t.Fatalf("CreateSong failed: %v", err)
	}
	if song.ID == "" {
		t.Fatal("CreateSong left ID empty")
	}
	if song.Name != "Morning Light" {
		t.Errorf("got name %q, want trimmed", song.Name)
	}
	if song.Digest != SongDigest("Morning Light", "L1\nL2") {
		t.Errorf("got digest %q, want content digest", song.Digest)
	}
	if song.CreatedAt.IsZero() || song.UpdatedAt.IsZero() {
		t.Error("CreateSong left timestamps zero")
	}

	got, err := s.GetSong(ctx, song.ID)
	if err != nil {
		t.Fatalf("GetSong failed: %v", err)
	}
	if got.Name != "Morning Light" || got.Lyrics != "L1\nL2" || got.Language != "en" {
		t.Errorf("GetSong returned %+v", got)
	}

	got.Lyrics = "L1\nL2\nL3"
	if err := s.UpdateSong(ctx, got); err != nil {
		t.Fatalf("UpdateSong failed: %v", err)
	}
	again, err := s.GetSong(ctx, song.ID)
	if err != nil {
		t.Fatalf("GetSong after update failed: %v", err)
	}
	if again.Lyrics != "L1\nL2\nL3" {
		t.Errorf("got lyrics %q after update", again.Lyrics)
	}
	if again.Digest == song.Digest {
		t.Error("digest unchanged after lyrics update")
	}

	if err := s.DeleteSong(ctx, song.ID); err != nil {
		t.Fatalf("DeleteSong failed: %v", err)
	}
	if _, err := s.GetSong(ctx, song.ID); !verrors.Is(err, verrors.ErrNotFound) {
		t.Errorf("GetSong after delete: got %v, want not-found", err)
	}
}

func TestSongNotFoundAndValidation(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, err := s.GetSong(ctx, "missing"); !verrors.Is(err, verrors.ErrNotFound) {
		t.Errorf("GetSong: got %v, want not-found", err)
	}
	if err := s.DeleteSong(ctx, "missing"); !verrors.Is(err, verrors.ErrNotFound) {
		t.Errorf("DeleteSong: got %v, want not-found", err)
	}
	if err := s.UpdateSong(ctx, &Song{ID: "missing", Name: "X"}); !verrors.Is(err, verrors.ErrNotFound) {
		t.Errorf("UpdateSong: got %v, want not-found", err)
	}
	if err := s.CreateSong(ctx, &Song{Name: "   "}); !verrors.Is(err, verrors.ErrInvalidInput) {
		t.Errorf("CreateSong blank name: got %v, want validation error", err)
	}
}

func TestSongDigestDeduplication(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	song := &Song{Name: "Refrain", Lyrics: "r1\nr2"}
	if err := s.CreateSong(ctx, song); err != nil {
		t.Fatalf("CreateSong failed: %v", err)
	}

	dup := &Song{Name: "Refrain", Lyrics: "r1\nr2"}
	if err := s.CreateSong(ctx, dup); !verrors.Is(err, verrors.ErrAlreadyExists) {
		t.Errorf("duplicate CreateSong: got %v, want already-exists", err)
	}

	found, err := s.GetSongByDigest(ctx, SongDigest("Refrain", "r1\nr2"))
	if err != nil {
		t.Fatalf("GetSongByDigest failed: %v", err)
	}
	if found.ID != song.ID {
		t.Errorf("GetSongByDigest returned %q, want %q", found.ID, song.ID)
	}
	if _, err := s.GetSongByDigest(ctx, "no-such-digest"); !verrors.Is(err, verrors.ErrNotFound) {
		t.Errorf("GetSongByDigest miss: got %v, want not-found", err)
	}
}

func TestListSongsFilters(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	seed := []Song{
		{Name: "Amazing Grace", Language: "en", Lyrics: "a"},
		{Name: "Be Thou My Vision", Language: "en", Lyrics: "b"},
		{Name: "Santo", Language: "es", Lyrics: "c"},
	}
	for i := range seed {
		if err := s.CreateSong(ctx, &seed[i]); err != nil {
			t.Fatalf("CreateSong failed: %v", err)
		}
	}

	tests := []struct {
		name   string
		filter SongFilter
		want   []string
	}{
		{"all sorted", SongFilter{}, []string{"Amazing Grace", "Be Thou My Vision", "Santo"}},
		{"search", SongFilter{Search: "grace"}, []string{"Amazing Grace"}},
		{"language", SongFilter{Language: "es"}, []string{"Santo"}},
		{"search and language", SongFilter{Search: "o", Language: "en"}, []string{"Be Thou My Vision"}},
		{"no match", SongFilter{Search: "zzz"}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			songs, err := s.ListSongs(ctx, tt.filter)
			if err != nil {
				t.Fatalf("ListSongs failed: %v", err)
			}
			var names []string
			for _, song := range songs {
				names = append(names, song.Name)
			}
			if len(names) != len(tt.want) {
				t.Fatalf("got %v, want %v", names, tt.want)
			}
			for i := range names {
				if names[i] != tt.want[i] {
					t.Errorf("got %v, want %v", names, tt.want)
					break
				}
			}
		})
	}
}

func TestListSongsCacheInvalidation(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.CreateSong(ctx, &Song{Name: "First", Lyrics: "x"}); err != nil {
		t.Fatalf("CreateSong failed: %v", err)
	}
	if _, err := s.ListSongs(ctx, SongFilter{}); err != nil {
		t.Fatalf("ListSongs failed: %v", err)
	}
	if s.songLists.Len() == 0 {
		t.Fatal("list query was not cached")
	}

	if err := s.CreateSong(ctx, &Song{Name: "Second", Lyrics: "y"}); err != nil {
		t.Fatalf("CreateSong failed: %v", err)
	}
	songs, err := s.ListSongs(ctx, SongFilter{})
	if err != nil {
		t.Fatalf("ListSongs failed: %v", err)
	}
	if len(songs) != 2 {
		t.Errorf("got %d songs after second create, want 2 (stale cache?)", len(songs))
	}
}

func TestSingers(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	singer, err := s.CreateSinger(ctx, "Asha")
	if err != nil {
		t.Fatalf("CreateSinger failed: %v", err)
	}
	if _, err := s.CreateSinger(ctx, "Asha"); !verrors.Is(err, verrors.ErrAlreadyExists) {
		t.Errorf("duplicate CreateSinger: got %v, want already-exists", err)
	}
	if _, err := s.CreateSinger(ctx, " "); !verrors.Is(err, verrors.ErrInvalidInput) {
		t.Errorf("blank CreateSinger: got %v, want validation error", err)
	}

	got, err := s.GetSinger(ctx, singer.ID)
	if err != nil || got.Name != "Asha" {
		t.Fatalf("GetSinger = %+v, %v", got, err)
	}

	if err := s.RenameSinger(ctx, singer.ID, "Asha K"); err != nil {
		t.Fatalf("RenameSinger failed: %v", err)
	}
	singers, err := s.ListSingers(ctx)
	if err != nil {
		t.Fatalf("ListSingers failed: %v", err)
	}
	if len(singers) != 1 || singers[0].Name != "Asha K" {
		t.Errorf("ListSingers = %+v", singers)
	}

	if err := s.DeleteSinger(ctx, singer.ID); err != nil {
		t.Fatalf("DeleteSinger failed: %v", err)
	}
	if err := s.DeleteSinger(ctx, singer.ID); !verrors.Is(err, verrors.ErrNotFound) {
		t.Errorf("second DeleteSinger: got %v, want not-found", err)
	}
}

func TestPitches(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	p, err := s.CreatePitch(ctx, "c#m")
	if err != nil {
		t.Fatalf("CreatePitch failed: %v", err)
	}
	if p.Name != "C#m" {
		t.Errorf("got name %q, want canonical %q", p.Name, "C#m")
	}
	if p.Semitone != 1 {
		t.Errorf("got semitone %d, want 1", p.Semitone)
	}

	if _, err := s.CreatePitch(ctx, "C#m"); !verrors.Is(err, verrors.ErrAlreadyExists) {
		t.Errorf("duplicate CreatePitch: got %v, want already-exists", err)
	}
	if _, err := s.CreatePitch(ctx, "H7"); !verrors.Is(err, verrors.ErrInvalidInput) {
		t.Errorf("invalid CreatePitch: got %v, want validation error", err)
	}

	if _, err := s.CreatePitch(ctx, "G"); err != nil {
		t.Fatalf("CreatePitch failed: %v", err)
	}
	pitches, err := s.ListPitches(ctx)
	if err != nil {
		t.Fatalf("ListPitches failed: %v", err)
	}
	// Chromatic order: C#m (1) before G (7).
	if len(pitches) != 2 || pitches[0].Name != "C#m" || pitches[1].Name != "G" {
		t.Errorf("ListPitches = %+v", pitches)
	}

	if err := s.DeletePitch(ctx, p.ID); err != nil {
		t.Fatalf("DeletePitch failed: %v", err)
	}
}

func TestTemplates(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	template := &Template{
		Name:           "Sunday",
		ReferenceIndex: 1,
		Slides: []TemplateSlide{
			{Kind: "title", Heading: "Welcome", Background: "#000080"},
			{Kind: "reference", Background: "#000000", Foreground: "#ffffff"},
			{Kind: "closing", Heading: "Goodnight"},
		},
	}
	if err := s.CreateTemplate(ctx, template); err != nil {
		t.Fatalf("CreateTemplate failed: %v", err)
	}

	got, err := s.GetTemplate(ctx, template.ID)
	if err != nil {
		t.Fatalf("GetTemplate failed: %v", err)
	}
	if got.Name != "Sunday" || got.ReferenceIndex != 1 {
		t.Errorf("GetTemplate = %+v", got)
	}
	if len(got.Slides) != 3 {
		t.Fatalf("got %d slides, want 3", len(got.Slides))
	}
	for i, sl := range got.Slides {
		if sl.Position != i {
			t.Errorf("slide %d: got position %d", i, sl.Position)
		}
	}
	if got.Slides[0].Heading != "Welcome" || got.Slides[2].Heading != "Goodnight" {
		t.Errorf("slides out of order: %+v", got.Slides)
	}

	got.Name = "Sunday Evening"
	got.Slides = got.Slides[:2]
	got.ReferenceIndex = 1
	if err := s.UpdateTemplate(ctx, got); err != nil {
		t.Fatalf("UpdateTemplate failed: %v", err)
	}
	again, err := s.GetTemplate(ctx, template.ID)
	if err != nil {
		t.Fatalf("GetTemplate after update failed: %v", err)
	}
	if again.Name != "Sunday Evening" || len(again.Slides) != 2 {
		t.Errorf("update not applied: %+v", again)
	}

	if err := s.DeleteTemplate(ctx, template.ID); err != nil {
		t.Fatalf("DeleteTemplate failed: %v", err)
	}
	if _, err := s.GetTemplate(ctx, template.ID); !verrors.Is(err, verrors.ErrNotFound) {
		t.Errorf("GetTemplate after delete: got %v, want not-found", err)
	}
}

func TestTemplateValidation(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	tests := []struct {
		name     string
		template Template
	}{
		{"blank name", Template{Slides: []TemplateSlide{{}, {}}, ReferenceIndex: 0}},
		{"reference past end", Template{Name: "T", Slides: []TemplateSlide{{}, {}}, ReferenceIndex: 2}},
		{"negative reference", Template{Name: "T", Slides: []TemplateSlide{{}, {}}, ReferenceIndex: -1}},
		{"no slides", Template{Name: "T", ReferenceIndex: 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tpl := tt.template
			if err := s.CreateTemplate(ctx, &tpl); !verrors.Is(err, verrors.ErrInvalidInput) {
				t.Errorf("CreateTemplate: got %v, want validation error", err)
			}
		})
	}
}

func TestSessions(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	song1 := &Song{Name: "Opening", Lyrics: "a"}
	song2 := &Song{Name: "Closing", Lyrics: "b"}
	for _, song := range []*Song{song1, song2} {
		if err := s.CreateSong(ctx, song); err != nil {
			t.Fatalf("CreateSong failed: %v", err)
		}
	}
	singer, err := s.CreateSinger(ctx, "Asha")
	if err != nil {
		t.Fatalf("CreateSinger failed: %v", err)
	}
	key, err := s.CreatePitch(ctx, "G")
	if err != nil {
		t.Fatalf("CreatePitch failed: %v", err)
	}
	template := &Template{
		Name:           "Plain",
		ReferenceIndex: 0,
		Slides:         []TemplateSlide{{Kind: "reference"}, {Kind: "closing"}},
	}
	if err := s.CreateTemplate(ctx, template); err != nil {
		t.Fatalf("CreateTemplate failed: %v", err)
	}

	sess := &Session{
		Name:       "Evening Sing",
		HeldOn:     "2026-08-21",
		TemplateID: template.ID,
		Songs: []SessionSong{
			{SongID: song1.ID, SingerID: singer.ID, PitchID: key.ID},
			{SongID: song2.ID},
		},
	}
	if err := s.CreateSession(ctx, sess); err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}

	got, err := s.GetSession(ctx, sess.ID)
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	if got.Name != "Evening Sing" || got.TemplateID != template.ID {
		t.Errorf("GetSession = %+v", got)
	}
	if len(got.Songs) != 2 {
		t.Fatalf("got %d entries, want 2", len(got.Songs))
	}
	first := got.Songs[0]
	if first.SongName != "Opening" || first.SingerName != "Asha" || first.PitchName != "G" {
		t.Errorf("entry names not resolved: %+v", first)
	}
	second := got.Songs[1]
	if second.SongName != "Closing" || second.SingerName != "" || second.PitchName != "" {
		t.Errorf("optional references leaked: %+v", second)
	}

	// Reorder and shrink the setlist.
	got.Songs = []SessionSong{{SongID: song2.ID, SingerID: singer.ID}}
	if err := s.UpdateSession(ctx, got); err != nil {
		t.Fatalf("UpdateSession failed: %v", err)
	}
	again, err := s.GetSession(ctx, sess.ID)
	if err != nil {
		t.Fatalf("GetSession after update failed: %v", err)
	}
	if len(again.Songs) != 1 || again.Songs[0].SongName != "Closing" {
		t.Errorf("setlist not replaced: %+v", again.Songs)
	}

	if err := s.DeleteSession(ctx, sess.ID); err != nil {
		t.Fatalf("DeleteSession failed: %v", err)
	}
	if _, err := s.GetSession(ctx, sess.ID); !verrors.Is(err, verrors.ErrNotFound) {
		t.Errorf("GetSession after delete: got %v, want not-found", err)
	}
}

func TestSessionReferencesFollowDeletes(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	song := &Song{Name: "Kept", Lyrics: "a"}
	gone := &Song{Name: "Gone", Lyrics: "b"}
	for _, sg := range []*Song{song, gone} {
		if err := s.CreateSong(ctx, sg); err != nil {
			t.Fatalf("CreateSong failed: %v", err)
		}
	}
	singer, err := s.CreateSinger(ctx, "Ben")
	if err != nil {
		t.Fatalf("CreateSinger failed: %v", err)
	}

	sess := &Session{
		Name: "Setlist",
		Songs: []SessionSong{
			{SongID: song.ID, SingerID: singer.ID},
			{SongID: gone.ID},
		},
	}
	if err := s.CreateSession(ctx, sess); err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}

	// Deleting a song drops its session entries.
	if err := s.DeleteSong(ctx, gone.ID); err != nil {
		t.Fatalf("DeleteSong failed: %v", err)
	}
	got, err := s.GetSession(ctx, sess.ID)
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	if len(got.Songs) != 1 || got.Songs[0].SongID != song.ID {
		t.Errorf("entries after song delete: %+v", got.Songs)
	}

	// Deleting a singer clears the reference but keeps the entry.
	if err := s.DeleteSinger(ctx, singer.ID); err != nil {
		t.Fatalf("DeleteSinger failed: %v", err)
	}
	got, err = s.GetSession(ctx, sess.ID)
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	if len(got.Songs) != 1 {
		t.Fatalf("entries after singer delete: %+v", got.Songs)
	}
	if got.Songs[0].SingerID != "" || got.Songs[0].SingerName != "" {
		t.Errorf("singer reference survived delete: %+v", got.Songs[0])
	}
}

func TestStats(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.CreateSong(ctx, &Song{Name: "One", Language: "en", Lyrics: "a"}); err != nil {
		t.Fatalf("CreateSong failed: %v", err)
	}
	if err := s.CreateSong(ctx, &Song{Name: "Dos", Language: "es", Lyrics: "b"}); err != nil {
		t.Fatalf("CreateSong failed: %v", err)
	}
	if _, err := s.CreateSinger(ctx, "Asha"); err != nil {
		t.Fatalf("CreateSinger failed: %v", err)
	}

	stats, err := s.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats.Songs != 2 || stats.Singers != 1 || stats.Pitches != 0 {
		t.Errorf("Stats = %+v", stats)
	}
	if len(stats.Languages) != 2 || stats.Languages[0] != "en" || stats.Languages[1] != "es" {
		t.Errorf("Languages = %v", stats.Languages)
	}
	if stats.Driver.DriverName == "" {
		t.Error("Stats missing driver info")
	}
}
