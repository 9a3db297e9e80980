package songimport

import (
	"path/filepath"
	"strings"

	"github.com/versoproject/verso/core/songtext"
	"github.com/versoproject/verso/core/verrors"
)

// Plain-text header and section markers. A file looks like:
//
//	# Title: Amazing Grace
//	# Language: en
//
//	verse one lines...
//
//	meaning:
//	translated verse one...
//
// Headers and the meaning separator are optional; a bare file of verses
// imports under its filename.
const meaningMarker = "meaning:"

// parseText converts a plain lyrics file into a ParsedSong.
func parseText(path string, data []byte) (*ParsedSong, error) {
	body := songtext.Normalize(string(data))

	song := &ParsedSong{}
	var lines []string
	for _, line := range strings.Split(body, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "#") {
			key, value, ok := splitHeader(trimmed)
			if !ok {
				continue
			}
			switch key {
			case "title":
				song.Name = value
			case "language":
				song.Language = normalizeLanguage(value)
			}
			continue
		}
		lines = append(lines, line)
	}

	content := strings.TrimSpace(strings.Join(lines, "\n"))
	if idx := findMeaningMarker(content); idx >= 0 {
		song.Meaning = strings.TrimSpace(content[idx+len(meaningMarker):])
		content = strings.TrimSpace(content[:idx])
	}
	song.Lyrics = content

	if song.Name == "" {
		base := filepath.Base(path)
		song.Name = strings.TrimSpace(strings.TrimSuffix(base, filepath.Ext(base)))
	}
	if song.Name == "" {
		return nil, verrors.NewParse("text", path, "cannot determine song name")
	}
	if song.Lyrics == "" {
		return nil, verrors.NewParse("text", path, "file has no lyrics")
	}
	return song, nil
}

// splitHeader parses "# Key: value" into a lowercase key and value.
func splitHeader(line string) (key, value string, ok bool) {
	line = strings.TrimSpace(strings.TrimPrefix(line, "#"))
	key, value, found := strings.Cut(line, ":")
	if !found {
		return "", "", false
	}
	return strings.ToLower(strings.TrimSpace(key)), strings.TrimSpace(value), true
}

// findMeaningMarker locates a line consisting solely of the meaning
// marker, returning its byte offset or -1.
func findMeaningMarker(content string) int {
	offset := 0
	for _, line := range strings.Split(content, "\n") {
		if strings.EqualFold(strings.TrimSpace(line), meaningMarker) {
			return offset + strings.Index(line, strings.TrimSpace(line))
		}
		offset += len(line) + 1
	}
	return -1
}
