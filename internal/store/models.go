package store

import "time"

// Song is a library song record. Lyrics and Meaning follow the plain verse
// convention: single line breaks between lines, a blank line between verses.
type Song struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Lyrics    string    `json:"lyrics,omitempty"`
	Meaning   string    `json:"meaning,omitempty"`
	Language  string    `json:"language,omitempty"`
	Digest    string    `json:"digest,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Singer is a named performer that session entries can reference.
type Singer struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// Pitch is a named key (e.g. "C#m") with its semitone offset from C.
type Pitch struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Semitone  int       `json:"semitone"`
	CreatedAt time.Time `json:"created_at"`
}

// TemplateSlide is one decorative slide definition within a template.
type TemplateSlide struct {
	Position   int    `json:"position"`
	Kind       string `json:"kind"`
	Heading    string `json:"heading,omitempty"`
	Body       string `json:"body,omitempty"`
	Background string `json:"background,omitempty"`
	Foreground string `json:"foreground,omitempty"`
}

// Template is an ordered list of decorative slides. The slide at
// ReferenceIndex styles generated song slides; slides before it open a
// presentation and slides after it close one.
type Template struct {
	ID             string          `json:"id"`
	Name           string          `json:"name"`
	ReferenceIndex int             `json:"reference_index"`
	Slides         []TemplateSlide `json:"slides,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
}

// SessionSong is one setlist entry: a song with an optional singer and
// pitch. The *Name fields are resolved from the referenced records when a
// session is loaded.
type SessionSong struct {
	Position   int    `json:"position"`
	SongID     string `json:"song_id"`
	SingerID   string `json:"singer_id,omitempty"`
	PitchID    string `json:"pitch_id,omitempty"`
	SongName   string `json:"song_name,omitempty"`
	SingerName string `json:"singer_name,omitempty"`
	PitchName  string `json:"pitch_name,omitempty"`
}

// Session is an ordered setlist presented as one deck.
type Session struct {
	ID         string        `json:"id"`
	Name       string        `json:"name"`
	HeldOn     string        `json:"held_on,omitempty"`
	TemplateID string        `json:"template_id,omitempty"`
	Songs      []SessionSong `json:"songs,omitempty"`
	CreatedAt  time.Time     `json:"created_at"`
}

// Stats summarizes the library contents.
type Stats struct {
	Songs     int        `json:"songs"`
	Singers   int        `json:"singers"`
	Pitches   int        `json:"pitches"`
	Templates int        `json:"templates"`
	Sessions  int        `json:"sessions"`
	Languages []string   `json:"languages,omitempty"`
	Driver    DriverInfo `json:"driver"`
}
