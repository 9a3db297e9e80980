// Package pitch parses and manipulates musical pitch names as used for a
// singer's key: a note letter, an optional accidental, an optional minor
// marker, and an optional octave digit ("C", "Bb", "F#m", "A4", "C#m3").
package pitch

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

// Pitch represents a parsed pitch name.
type Pitch struct {
	// Note is the note letter, "A" through "G".
	Note string `json:"note"`

	// Accidental is "#", "b", or empty for a natural note.
	Accidental string `json:"accidental,omitempty"`

	// Minor marks a minor key ("Am", "C#m").
	Minor bool `json:"minor,omitempty"`

	// Octave is the scientific octave digit, 0 when unspecified.
	Octave int `json:"octave,omitempty"`
}

// pitchGrammar is the participle grammar for pitch names.
// Examples: "C", "C#", "Db", "Am", "F#m", "A4", "C#m3"
//
//nolint:govet // participle grammar tags are not standard struct tags
type pitchGrammar struct {
	Note       string  `parser:"@Note"`
	Accidental *string `parser:"@Accidental?"`
	Minor      *string `parser:"@Minor?"`
	Octave     *int    `parser:"@Octave?"`
}

// pitchLexer defines the lexer for pitch names. Only octaves 1-9 can be
// written; octave 0 is indistinguishable from "no octave" downstream.
var pitchLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Note", Pattern: `[A-G]`},
	{Name: "Accidental", Pattern: `[#b]`},
	{Name: "Minor", Pattern: `m`},
	{Name: "Octave", Pattern: `[1-9]`},
	{Name: "Whitespace", Pattern: `\s+`},
})

// pitchParser is the participle parser for pitch names.
var pitchParser = participle.MustBuild[pitchGrammar](
	participle.Lexer(pitchLexer),
	participle.Elide("Whitespace"),
)

// noteSemitones maps natural notes to semitone offsets from C.
var noteSemitones = map[string]int{
	"C": 0, "D": 2, "E": 4, "F": 5, "G": 7, "A": 9, "B": 11,
}

// sharpSpellings gives the preferred spelling for each pitch class, sharps
// over flats, used when a transposition lands between natural notes.
var sharpSpellings = [12]struct{ note, accidental string }{
	{"C", ""}, {"C", "#"}, {"D", ""}, {"D", "#"}, {"E", ""}, {"F", ""},
	{"F", "#"}, {"G", ""}, {"G", "#"}, {"A", ""}, {"A", "#"}, {"B", ""},
}

// Parse parses a pitch name string. The note letter is case-insensitive and
// Unicode accidentals (♯, ♭) are accepted alongside their ASCII forms.
// Supported formats:
//   - "C" (natural major)
//   - "C#" / "Db" (accidental)
//   - "Am" / "F#m" (minor)
//   - "A4" / "C#m3" (with octave)
func Parse(s string) (*Pitch, error) {
	normalized := normalize(s)
	if normalized == "" {
		return nil, fmt.Errorf("empty pitch string")
	}

	parsed, err := pitchParser.ParseString("", normalized)
	if err != nil {
		return nil, fmt.Errorf("invalid pitch format: %q: %w", s, err)
	}

	p := &Pitch{Note: parsed.Note}
	if parsed.Accidental != nil {
		p.Accidental = *parsed.Accidental
	}
	if parsed.Minor != nil {
		p.Minor = true
	}
	if parsed.Octave != nil {
		p.Octave = *parsed.Octave
	}
	return p, nil
}

// normalize maps Unicode accidentals to ASCII and upcases the note letter.
func normalize(s string) string {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, "♯", "#")
	s = strings.ReplaceAll(s, "♭", "b")
	if s == "" {
		return s
	}
	r, size := utf8.DecodeRuneInString(s)
	return strings.ToUpper(string(r)) + s[size:]
}

// Semitone returns the pitch class as a semitone offset from C, 0-11.
// Enharmonic spellings agree: Db and C# are both 1, Cb is 11.
func (p *Pitch) Semitone() int {
	s := noteSemitones[p.Note]
	switch p.Accidental {
	case "#":
		s++
	case "b":
		s--
	}
	return ((s % 12) + 12) % 12
}

// Transpose returns a new pitch the given number of semitones away,
// negative for down. The result uses sharp spellings; minor quality is
// kept and the octave, when present, follows the pitch across the C
// boundary.
func (p *Pitch) Transpose(semitones int) *Pitch {
	shifted := p.Semitone() + semitones
	class := ((shifted % 12) + 12) % 12

	spelling := sharpSpellings[class]
	out := &Pitch{
		Note:       spelling.note,
		Accidental: spelling.accidental,
		Minor:      p.Minor,
	}
	if p.Octave > 0 {
		out.Octave = p.Octave + (shifted-class)/12
	}
	return out
}

// Interval returns the number of semitones from a up to b, 0-11.
func Interval(a, b *Pitch) int {
	d := b.Semitone() - a.Semitone()
	return ((d % 12) + 12) % 12
}

// String returns the pitch name in the same spelling it carries: note,
// accidental, minor marker, octave.
func (p *Pitch) String() string {
	var sb strings.Builder
	sb.WriteString(p.Note)
	sb.WriteString(p.Accidental)
	if p.Minor {
		sb.WriteString("m")
	}
	if p.Octave > 0 {
		sb.WriteString(strconv.Itoa(p.Octave))
	}
	return sb.String()
}
