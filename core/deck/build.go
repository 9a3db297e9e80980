package deck

// Build composes the full deck for a single song: template intro slides,
// the song's content slides, then template outro slides. Slides before the
// template's reference index become the intro and slides after it become
// the outro; the reference slide itself is a placeholder and is never
// emitted. A template with fewer than two slides, or with its reference
// index out of range, contributes nothing.
//
// Slide indexes are assigned 0..len-1 across the finished deck and the
// result is annotated with next-slide context before being returned.
func Build[T any](song Song, template Template[T]) []Slide[T] {
	var slides []Slide[T]
	slides = appendStatic(slides, template, 0, template.ReferenceIndex)
	slides = append(slides, SplitSong[T](song)...)
	slides = appendStatic(slides, template, template.ReferenceIndex+1, len(template.Slides))
	return Annotate(reindex(slides))
}

// BuildSession composes the deck for an ordered list of songs presented in
// one sitting. The template intro and outro appear once, bracketing the
// whole session rather than each song. Content slides are stamped with
// their entry's singer and pitch and with their song's position in the
// session; static slides carry none of that context.
func BuildSession[T any](entries []SessionEntry, template Template[T]) []Slide[T] {
	var slides []Slide[T]
	slides = appendStatic(slides, template, 0, template.ReferenceIndex)
	for i, entry := range entries {
		for _, s := range SplitSong[T](entry.Song) {
			s.SingerName = entry.SingerName
			s.Pitch = entry.Pitch
			s.SessionSongIndex = i + 1
			s.TotalSongs = len(entries)
			slides = append(slides, s)
		}
	}
	slides = appendStatic(slides, template, template.ReferenceIndex+1, len(template.Slides))
	return Annotate(reindex(slides))
}

// appendStatic appends template slides [from, to) as static slides. Each
// deck slide gets a pointer to its own copy of the template payload, so a
// built deck never aliases the caller's template.
func appendStatic[T any](slides []Slide[T], t Template[T], from, to int) []Slide[T] {
	if !t.multiSlide() {
		return slides
	}
	for i := from; i < to; i++ {
		ts := t.Slides[i]
		slides = append(slides, Slide[T]{
			Type:          SlideStatic,
			TemplateSlide: &ts,
		})
	}
	return slides
}

// reindex assigns deck positions 0..len-1 in order.
func reindex[T any](slides []Slide[T]) []Slide[T] {
	for i := range slides {
		slides[i].Index = i
	}
	return slides
}
