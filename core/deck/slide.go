package deck

// SlideType distinguishes song content from decorative template slides.
type SlideType string

// Slide type constants.
const (
	// SlideSong carries lyric content for a specific song.
	SlideSong SlideType = "song"
	// SlideStatic renders a template slide verbatim and carries no song text.
	SlideStatic SlideType = "static"
)

// Song is the textual input for deck composition. Lyrics and Meaning follow
// the library convention: single line breaks separate lines, a blank line
// separates verses. An empty Lyrics string means the song has no usable
// lyrics and composes to a single placeholder slide.
type Song struct {
	Name    string `json:"name"`
	Lyrics  string `json:"lyrics,omitempty"`
	Meaning string `json:"meaning,omitempty"`
}

// SessionEntry is one setlist position: a song plus the presentation context
// it will be sung in.
type SessionEntry struct {
	Song       Song   `json:"song"`
	SingerName string `json:"singer_name,omitempty"`
	Pitch      string `json:"pitch,omitempty"`
}

// Template describes the decorative frame around song content. Slides is an
// ordered list of slide definitions whose element type the composer never
// inspects; ReferenceIndex names the slide whose content styling the
// renderer reuses for every generated song slide. Slides before the
// reference are the intro, slides after it the outro.
type Template[T any] struct {
	Slides         []T `json:"slides"`
	ReferenceIndex int `json:"reference_index"`
}

// multiSlide reports whether the template actually frames a deck: at least
// two slides and a reference index inside the list. Anything else degrades
// to a content-only deck.
func (t *Template[T]) multiSlide() bool {
	return t != nil && len(t.Slides) >= 2 &&
		t.ReferenceIndex >= 0 && t.ReferenceIndex < len(t.Slides)
}

// Slide is one renderable entry of a presentation deck. The deck builders
// fill Index contiguously from zero and the annotator fills the Next fields;
// zero values mean "not present" throughout.
type Slide[T any] struct {
	// Index is the slide's position in the final deck.
	Index int `json:"index"`

	// Type is SlideSong for lyric content, SlideStatic for template slides.
	Type SlideType `json:"slide_type"`

	// Content is the lyric text for this slide, empty on static slides.
	Content string `json:"content,omitempty"`

	// Translation is the meaning text paired with this slide's verse, when
	// one exists. It may carry inline markup and is capped at four display
	// lines.
	Translation string `json:"translation,omitempty"`

	// SongName identifies the song a content slide belongs to. Static
	// slides belong to the frame, not a song, and leave it empty.
	SongName string `json:"song_name,omitempty"`

	// SongSlideNumber and SongSlideCount place a content slide within its
	// own song's run: number k of count N, both 1-based.
	SongSlideNumber int `json:"song_slide_number,omitempty"`
	SongSlideCount  int `json:"song_slide_count,omitempty"`

	// TemplateSlide is the decorative definition to render verbatim, set
	// only on static slides. The composer treats it as an opaque payload.
	TemplateSlide *T `json:"template_slide,omitempty"`

	// SingerName and Pitch are session context, constant across all content
	// slides of one setlist entry.
	SingerName string `json:"singer_name,omitempty"`
	Pitch      string `json:"pitch,omitempty"`

	// SessionSongIndex and TotalSongs place the song within its session,
	// 1-based; only set on content slides composed in session mode.
	SessionSongIndex int `json:"session_song_index,omitempty"`
	TotalSongs       int `json:"total_songs,omitempty"`

	// Next* describe what follows this slide, for the renderer's coming-up
	// hint. All empty on the last slide and on any slide followed by a
	// static slide. NextIsContinuation is true when the next slide simply
	// continues the same song.
	NextSongName       string `json:"next_song_name,omitempty"`
	NextSingerName     string `json:"next_singer_name,omitempty"`
	NextPitch          string `json:"next_pitch,omitempty"`
	NextIsContinuation bool   `json:"next_is_continuation,omitempty"`
}
