package songimport

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/versoproject/verso/internal/store"
)

const openLyricsFixture = `<?xml version="1.0" encoding="UTF-8"?>
<song xmlns="http://openlyrics.info/namespace/2009/song" version="0.8">
  <properties>
    <titles>
      <title>Morning Light</title>
    </titles>
  </properties>
  <lyrics>
    <verse name="v1" lang="en">
      <lines>The sun climbs slowly<br/>over the hill</lines>
    </verse>
    <verse name="v2" lang="en">
      <lines>Shadows are fading<br/>the air is still</lines>
    </verse>
    <verse name="v1" lang="de">
      <lines>Die Sonne steigt langsam<br/>über den Hügel</lines>
    </verse>
    <verse name="v2" lang="de">
      <lines>Schatten verblassen<br/>die Luft ist still</lines>
    </verse>
  </lyrics>
</song>`

func writeFixture(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}
	return path
}

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "verso.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

func TestDetect(t *testing.T) {
	openLyrics := writeFixture(t, "song.xml", openLyricsFixture)
	plain := writeFixture(t, "song.txt", "some lyrics\n")
	otherXML := writeFixture(t, "other.xml", "<?xml version=\"1.0\"?><catalog/>")
	unknown := writeFixture(t, "notes.md", "# notes\n")

	tests := []struct {
		path string
		want Format
	}{
		{openLyrics, FormatOpenLyrics},
		{plain, FormatText},
		{otherXML, FormatUnknown},
		{unknown, FormatUnknown},
	}
	for _, tt := range tests {
		got, err := Detect(tt.path)
		if err != nil {
			t.Fatalf("Detect(%s) error = %v", tt.path, err)
		}
		if got != tt.want {
			t.Errorf("Detect(%s) = %v, want %v", filepath.Base(tt.path), got, tt.want)
		}
	}
}

func TestParseOpenLyrics(t *testing.T) {
	song, err := parseOpenLyrics([]byte(openLyricsFixture))
	if err != nil {
		t.Fatalf("parseOpenLyrics error = %v", err)
	}

	if song.Name != "Morning Light" {
		t.Errorf("Name = %q, want Morning Light", song.Name)
	}
	if song.Language != "en" {
		t.Errorf("Language = %q, want en", song.Language)
	}

	wantLyrics := "The sun climbs slowly\nover the hill\n\nShadows are fading\nthe air is still"
	if song.Lyrics != wantLyrics {
		t.Errorf("Lyrics = %q, want %q", song.Lyrics, wantLyrics)
	}
	wantMeaning := "Die Sonne steigt langsam\nüber den Hügel\n\nSchatten verblassen\ndie Luft ist still"
	if song.Meaning != wantMeaning {
		t.Errorf("Meaning = %q, want %q", song.Meaning, wantMeaning)
	}
}

func TestParseOpenLyricsPartialTranslation(t *testing.T) {
	const partialSong = `<?xml version="1.0"?>
<song xmlns="http://openlyrics.info/namespace/2009/song">
  <properties><titles><title>Partial</title></titles></properties>
  <lyrics>
    <verse name="v1" lang="en"><lines>first verse</lines></verse>
    <verse name="v2" lang="en"><lines>second verse</lines></verse>
    <verse name="v3" lang="en"><lines>third verse</lines></verse>
    %s
  </lyrics>
</song>`

	tests := []struct {
		name        string
		translated  string
		wantMeaning string
	}{
		{
			name:        "prefix translated",
			translated:  `<verse name="v1" lang="hi"><lines>पहला पद</lines></verse>`,
			wantMeaning: "पहला पद",
		},
		{
			// A translation for v2 alone must not shift onto v1: the
			// meaning pairs with lyrics by position, so it stays empty.
			name:        "gap at the start",
			translated:  `<verse name="v2" lang="hi"><lines>दूसरा पद</lines></verse>`,
			wantMeaning: "",
		},
		{
			// v1 and v3 translated: the meaning stops before the v2 gap
			// so v3's translation never lands on verse two.
			name:        "gap in the middle",
			translated:  `<verse name="v1" lang="hi"><lines>पहला पद</lines></verse><verse name="v3" lang="hi"><lines>तीसरा पद</lines></verse>`,
			wantMeaning: "पहला पद",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			song, err := parseOpenLyrics([]byte(fmt.Sprintf(partialSong, tt.translated)))
			if err != nil {
				t.Fatalf("parseOpenLyrics error = %v", err)
			}
			if song.Lyrics != "first verse\n\nsecond verse\n\nthird verse" {
				t.Errorf("Lyrics = %q", song.Lyrics)
			}
			if song.Meaning != tt.wantMeaning {
				t.Errorf("Meaning = %q, want %q", song.Meaning, tt.wantMeaning)
			}
		})
	}
}

func TestParseOpenLyricsErrors(t *testing.T) {
	cases := map[string]string{
		"not xml":    "not xml at all <",
		"no title":   `<song xmlns="x"><lyrics><verse name="v1"><lines>hi</lines></verse></lyrics></song>`,
		"no verses":  `<song xmlns="x"><properties><titles><title>Empty</title></titles></properties><lyrics/></song>`,
		"empty text": `<song xmlns="x"><properties><titles><title>Blank</title></titles></properties><lyrics><verse name="v1"><lines>   </lines></verse></lyrics></song>`,
	}
	for name, fixture := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := parseOpenLyrics([]byte(fixture)); err == nil {
				t.Error("parseOpenLyrics succeeded, want error")
			}
		})
	}
}

func TestParseText(t *testing.T) {
	const fixture = `# Title: Evening Song
# Language: hi_IN

धीरे धीरे गाओ
सब मिल कर गाओ

रात आ गई है
दीप जला दो

meaning:
Sing slowly, slowly
everyone sing together

The night has come
light the lamps`

	path := writeFixture(t, "evening.txt", fixture)
	song, format, err := Parse(path)
	if err != nil {
		t.Fatalf("Parse error = %v", err)
	}
	if format != FormatText {
		t.Errorf("format = %v, want %v", format, FormatText)
	}
	if song.Name != "Evening Song" {
		t.Errorf("Name = %q", song.Name)
	}
	if song.Language != "hi-IN" {
		t.Errorf("Language = %q, want hi-IN (normalized)", song.Language)
	}
	if song.Lyrics != "धीरे धीरे गाओ\nसब मिल कर गाओ\n\nरात आ गई है\nदीप जला दो" {
		t.Errorf("Lyrics = %q", song.Lyrics)
	}
	if song.Meaning != "Sing slowly, slowly\neveryone sing together\n\nThe night has come\nlight the lamps" {
		t.Errorf("Meaning = %q", song.Meaning)
	}
}

func TestParseTextFallsBackToFilename(t *testing.T) {
	path := writeFixture(t, "Simple Song.txt", "just one line of lyrics\n")
	song, _, err := Parse(path)
	if err != nil {
		t.Fatalf("Parse error = %v", err)
	}
	if song.Name != "Simple Song" {
		t.Errorf("Name = %q, want filename-derived Simple Song", song.Name)
	}
}

func TestParseTextEmptyFails(t *testing.T) {
	path := writeFixture(t, "empty.txt", "# Title: Nothing\n\n")
	if _, _, err := Parse(path); err == nil {
		t.Error("Parse of lyric-less file succeeded, want error")
	}
}

func TestImportFileDeduplicates(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	path := writeFixture(t, "song.xml", openLyricsFixture)

	first := ImportFile(ctx, st, path)
	if first.Status != StatusImported {
		t.Fatalf("first import status = %q (%s), want imported", first.Status, first.Reason)
	}

	second := ImportFile(ctx, st, path)
	if second.Status != StatusSkipped {
		t.Errorf("re-import status = %q, want skipped", second.Status)
	}

	songs, err := st.ListSongs(ctx, store.SongFilter{})
	if err != nil {
		t.Fatalf("ListSongs failed: %v", err)
	}
	if len(songs) != 1 {
		t.Errorf("library has %d songs after duplicate import, want 1", len(songs))
	}
}

func TestImportDir(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	dir := t.TempDir()
	files := map[string]string{
		"a-song.xml": openLyricsFixture,
		"b-song.txt": "# Title: Plain One\n\nline one\nline two\n",
		"notes.md":   "not a song\n",
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
			t.Fatalf("writing %s: %v", name, err)
		}
	}

	reports, err := ImportDir(ctx, st, dir)
	if err != nil {
		t.Fatalf("ImportDir error = %v", err)
	}
	if len(reports) != 3 {
		t.Fatalf("got %d reports, want 3", len(reports))
	}

	byStatus := map[string]int{}
	for _, r := range reports {
		byStatus[r.Status]++
	}
	if byStatus[StatusImported] != 2 || byStatus[StatusSkipped] != 1 {
		t.Errorf("statuses = %v, want 2 imported and 1 skipped", byStatus)
	}
}

func TestNormalizeLanguage(t *testing.T) {
	tests := []struct{ in, want string }{
		{"en", "en"},
		{"EN_us", "en-US"},
		{"hi_IN", "hi-IN"},
		{"", ""},
		{"  de  ", "de"},
		{"not-a-real-tag-x!", "not-a-real-tag-x!"},
	}
	for _, tt := range tests {
		if got := normalizeLanguage(tt.in); got != tt.want {
			t.Errorf("normalizeLanguage(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
