// Package songtext provides tokenization helpers for lyric and translation
// text. Lyrics follow a plain convention: single line breaks separate lines,
// a blank line separates verses. Translations follow the same verse
// convention but may additionally carry inline markup such as <br> tags,
// which must be treated as line breaks without ever being corrupted.
package songtext

import (
	"regexp"
	"strings"
)

// breakTagRE matches inline break markup: <br>, <br/>, <br /> in any case.
var breakTagRE = regexp.MustCompile(`(?i)<br\s*/?>`)

// Normalize converts CRLF and lone CR line endings to LF.
func Normalize(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\r", "\n")
}

// isBlank reports whether a line contains no visible content.
func isBlank(line string) bool {
	return strings.TrimSpace(line) == ""
}

// Lines returns the non-blank lines of s in order. Line text is kept
// verbatim; blank lines (including whitespace-only ones) are discarded.
func Lines(s string) []string {
	var lines []string
	for _, line := range strings.Split(Normalize(s), "\n") {
		if !isBlank(line) {
			lines = append(lines, line)
		}
	}
	return lines
}

// Verses splits s into verse blocks separated by blank lines. Each verse is
// its consecutive non-blank lines rejoined with single LFs. A run of several
// blank lines counts as one separator; leading and trailing blank lines are
// ignored.
func Verses(s string) []string {
	var verses []string
	var current []string
	for _, line := range strings.Split(Normalize(s), "\n") {
		if isBlank(line) {
			if len(current) > 0 {
				verses = append(verses, strings.Join(current, "\n"))
				current = nil
			}
			continue
		}
		current = append(current, line)
	}
	if len(current) > 0 {
		verses = append(verses, strings.Join(current, "\n"))
	}
	return verses
}

// splitBreaks tokenizes s into alternating text runs and break markers,
// where a break marker is a literal LF or an inline <br>-style tag. It
// returns the text segments and the markers that separated them, with
// len(segments) == len(breaks)+1. Empty segments are preserved so that
// interleaving segments and breaks reproduces s byte-for-byte.
func splitBreaks(s string) (segments, breaks []string) {
	s = Normalize(s)
	for {
		nl := strings.IndexByte(s, '\n')
		tag := breakTagRE.FindStringIndex(s)

		// Pick whichever break comes first.
		start, end := -1, -1
		if nl >= 0 {
			start, end = nl, nl+1
		}
		if tag != nil && (start < 0 || tag[0] < start) {
			start, end = tag[0], tag[1]
		}
		if start < 0 {
			segments = append(segments, s)
			return segments, breaks
		}

		segments = append(segments, s[:start])
		breaks = append(breaks, s[start:end])
		s = s[end:]
	}
}

// CountLines reports how many display lines s occupies once literal line
// breaks and inline break markup are honored. Trailing blank segments do not
// count, so "a<br>b<br>" is two lines. Non-break markup never creates lines.
func CountLines(s string) int {
	segments, _ := splitBreaks(s)
	n := len(segments)
	for n > 0 && isBlank(segments[n-1]) {
		n--
	}
	return n
}

// TruncateLines cuts s down to at most max display lines. The cut happens at
// a break marker, never inside one and never inside surrounding markup, and
// everything retained is emitted byte-for-byte: segments keep their inline
// tags and the original break markers between them survive. Text under the
// cap is returned unchanged.
func TruncateLines(s string, max int) string {
	if max <= 0 {
		return ""
	}
	s = Normalize(s)
	if CountLines(s) <= max {
		return s
	}
	segments, breaks := splitBreaks(s)

	var b strings.Builder
	b.WriteString(segments[0])
	for i := 1; i < max && i < len(segments); i++ {
		b.WriteString(breaks[i-1])
		b.WriteString(segments[i])
	}
	return b.String()
}
