package songtext

import (
	"strings"
	"testing"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"lf only", "a\nb", "a\nb"},
		{"crlf", "a\r\nb", "a\nb"},
		{"lone cr", "a\rb", "a\nb"},
		{"mixed", "a\r\nb\rc\nd", "a\nb\nc\nd"},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Normalize(tt.in); got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestLines(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{"simple", "l1\nl2\nl3", []string{"l1", "l2", "l3"}},
		{"skips blank lines", "l1\n\nl2", []string{"l1", "l2"}},
		{"whitespace-only line is blank", "l1\n   \nl2", []string{"l1", "l2"}},
		{"keeps interior spacing", "  l1  \nl2", []string{"  l1  ", "l2"}},
		{"crlf input", "l1\r\nl2", []string{"l1", "l2"}},
		{"empty", "", nil},
		{"only blanks", "\n \n\t\n", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Lines(tt.in)
			if len(got) != len(tt.want) {
				t.Fatalf("Lines(%q) = %v, want %v", tt.in, got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("Lines(%q)[%d] = %q, want %q", tt.in, i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestVerses(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{"single verse", "l1\nl2", []string{"l1\nl2"}},
		{"two verses", "a1\na2\n\nb1\nb2", []string{"a1\na2", "b1\nb2"}},
		{"blank line with spaces splits", "a1\n  \nb1", []string{"a1", "b1"}},
		{"multiple blank lines collapse", "a1\n\n\n\nb1", []string{"a1", "b1"}},
		{"leading and trailing blanks ignored", "\n\na1\n\nb1\n\n", []string{"a1", "b1"}},
		{"empty", "", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Verses(tt.in)
			if len(got) != len(tt.want) {
				t.Fatalf("Verses(%q) = %v, want %v", tt.in, got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("Verses(%q)[%d] = %q, want %q", tt.in, i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestCountLines(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want int
	}{
		{"empty", "", 0},
		{"one line", "hello", 1},
		{"newlines", "a\nb\nc", 3},
		{"br tags", "a<br>b<br/>c<br />d", 4},
		{"mixed breaks", "a\nb<br>c", 3},
		{"uppercase br", "a<BR>b", 2},
		{"trailing break ignored", "a<br>b<br>", 2},
		{"trailing newline ignored", "a\nb\n", 2},
		{"non-break markup is not a line", "<i>a</i> b", 1},
		{"markup spanning lines", "<i>a\nb</i>", 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CountLines(tt.in); got != tt.want {
				t.Errorf("CountLines(%q) = %d, want %d", tt.in, got, tt.want)
			}
		})
	}
}

func TestTruncateLines(t *testing.T) {
	tests := []struct {
		name string
		in   string
		max  int
		want string
	}{
		{"under cap unchanged", "a\nb", 4, "a\nb"},
		{"at cap unchanged", "a\nb\nc\nd", 4, "a\nb\nc\nd"},
		{"cuts literal breaks", "a\nb\nc\nd\ne", 4, "a\nb\nc\nd"},
		{"cuts br markup", "a<br>b<br>c<br>d<br>e", 4, "a<br>b<br>c<br>d"},
		{"mixed break styles preserved", "a\nb<br/>c\nd<br />e", 4, "a\nb<br/>c\nd"},
		{"markup inside kept segments survives", "<i>a\nb</i>\nc\nd\ne", 4, "<i>a\nb</i>\nc\nd"},
		{"zero max", "a\nb", 0, ""},
		{"single long line untouched", "only line, no breaks", 4, "only line, no breaks"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := TruncateLines(tt.in, tt.max); got != tt.want {
				t.Errorf("TruncateLines(%q, %d) = %q, want %q", tt.in, tt.max, got, tt.want)
			}
		})
	}
}

func TestTruncateLinesKeepsOriginalMarkers(t *testing.T) {
	in := "one<br />two<br>three\nfour\nfive"
	got := TruncateLines(in, 4)
	want := "one<br />two<br>three\nfour"
	if got != want {
		t.Fatalf("TruncateLines = %q, want %q", got, want)
	}
	// The retained prefix must be a byte-for-byte prefix of the input.
	if !strings.HasPrefix(in, got) {
		t.Errorf("truncated text %q is not a prefix of input %q", got, in)
	}
}

func TestCountAfterTruncateNeverExceedsMax(t *testing.T) {
	inputs := []string{
		"a\nb\nc\nd\ne\nf",
		"a<br>b<br>c<br>d<br>e",
		"a<br/>b\nc<br />d\ne\nf",
		"one line",
		"",
		"x<br>y<br>",
	}
	for _, in := range inputs {
		got := TruncateLines(in, 4)
		if n := CountLines(got); n > 4 {
			t.Errorf("CountLines(TruncateLines(%q, 4)) = %d, want <= 4", in, n)
		}
	}
}
