// Package songimport ingests songs into the library from external files.
// Two formats are supported: OpenLyrics XML and plain text. Every import
// is deduplicated by content digest, so re-importing the same file reports
// a skip instead of creating a second copy.
package songimport

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/text/language"

	"github.com/versoproject/verso/core/verrors"
	"github.com/versoproject/verso/internal/logging"
	"github.com/versoproject/verso/internal/store"
)

// Format identifies an import format.
type Format string

// Supported formats.
const (
	FormatOpenLyrics Format = "openlyrics"
	FormatText       Format = "text"
	FormatUnknown    Format = "unknown"
)

// ParsedSong is the outcome of parsing one file, before any store write.
type ParsedSong struct {
	Name     string
	Lyrics   string
	Meaning  string
	Language string
}

// Status values for import reports.
const (
	StatusImported = "imported"
	StatusSkipped  = "skipped"
	StatusFailed   = "failed"
)

// Report describes what happened to one file during an import.
type Report struct {
	Path   string `json:"path"`
	Format string `json:"format"`
	Song   string `json:"song,omitempty"`
	Status string `json:"status"`
	Reason string `json:"reason,omitempty"`
}

// Detect sniffs the format of a file from its extension and, for XML, a
// scan of the leading content. Unknown files are reported, not errors.
func Detect(path string) (Format, error) {
	info, err := os.Stat(path)
	if err != nil {
		return FormatUnknown, fmt.Errorf("cannot stat %s: %w", path, err)
	}
	if info.IsDir() {
		return FormatUnknown, nil
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".xml":
		head, err := readHead(path, 4096)
		if err != nil {
			return FormatUnknown, err
		}
		if strings.Contains(string(head), "<song") {
			return FormatOpenLyrics, nil
		}
		return FormatUnknown, nil
	case ".txt", ".text":
		return FormatText, nil
	default:
		return FormatUnknown, nil
	}
}

// readHead returns up to n leading bytes of a file.
func readHead(path string, n int) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("cannot open %s: %w", path, err)
	}
	defer f.Close()

	buf := make([]byte, n)
	read, err := f.Read(buf)
	if read == 0 && err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}
	return buf[:read], nil
}

// Parse reads and parses one file in the detected format.
func Parse(path string) (*ParsedSong, Format, error) {
	format, err := Detect(path)
	if err != nil {
		return nil, FormatUnknown, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, format, fmt.Errorf("cannot read %s: %w", path, err)
	}

	switch format {
	case FormatOpenLyrics:
		song, err := parseOpenLyrics(data)
		return song, format, err
	case FormatText:
		song, err := parseText(path, data)
		return song, format, err
	default:
		return nil, FormatUnknown,
			verrors.Wrapf(verrors.ErrUnsupported, "no importer recognizes %s", filepath.Base(path))
	}
}

// normalizeLanguage canonicalizes a language tag ("EN_us" → "en-US").
// Unparseable tags pass through trimmed rather than failing the import.
func normalizeLanguage(raw string) string {
	raw = strings.TrimSpace(strings.ReplaceAll(raw, "_", "-"))
	if raw == "" {
		return ""
	}
	tag, err := language.Parse(raw)
	if err != nil {
		return raw
	}
	return tag.String()
}

// ImportFile parses one file and writes the song into the store. A song
// whose digest already exists is skipped.
func ImportFile(ctx context.Context, st *store.Store, path string) Report {
	report := Report{Path: path}

	parsed, format, err := Parse(path)
	report.Format = string(format)
	if err != nil {
		report.Status = StatusFailed
		report.Reason = err.Error()
		logging.ImportError(string(format), path, err)
		return report
	}
	report.Song = parsed.Name

	digest := store.SongDigest(parsed.Name, parsed.Lyrics)
	if existing, err := st.GetSongByDigest(ctx, digest); err == nil && existing != nil {
		report.Status = StatusSkipped
		report.Reason = fmt.Sprintf("already in library as %q", existing.Name)
		return report
	}

	song := &store.Song{
		Name:     parsed.Name,
		Lyrics:   parsed.Lyrics,
		Meaning:  parsed.Meaning,
		Language: parsed.Language,
	}
	if err := st.CreateSong(ctx, song); err != nil {
		report.Status = StatusFailed
		report.Reason = err.Error()
		logging.ImportError(string(format), path, err)
		return report
	}

	report.Status = StatusImported
	return report
}

// ImportDir imports every recognizable file directly under dir, in name
// order. Unknown files are reported as skipped so the operator sees the
// full picture.
func ImportDir(ctx context.Context, st *store.Store, dir string) ([]Report, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot read directory %s: %w", dir, err)
	}

	var names []string
	for _, entry := range entries {
		if !entry.IsDir() {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)

	var reports []Report
	imported, skipped := 0, 0
	for _, name := range names {
		path := filepath.Join(dir, name)
		format, err := Detect(path)
		if err != nil {
			reports = append(reports, Report{Path: path, Status: StatusFailed, Reason: err.Error()})
			continue
		}
		if format == FormatUnknown {
			reports = append(reports, Report{
				Path:   path,
				Format: string(FormatUnknown),
				Status: StatusSkipped,
				Reason: "unrecognized format",
			})
			skipped++
			continue
		}
		report := ImportFile(ctx, st, path)
		switch report.Status {
		case StatusImported:
			imported++
		case StatusSkipped:
			skipped++
		}
		reports = append(reports, report)
	}

	logging.ImportEvent("directory", dir, imported, skipped)
	return reports, nil
}
