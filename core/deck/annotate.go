package deck

import "slices"

// Annotate fills in the next-slide preview on every slide of a deck: when
// a slide's successor is a song slide, the slide learns what is coming up
// so the player can hint at it. Slides followed by a static slide, and the
// last slide, carry no preview.
//
// A successor that continues the song already on screen sets only the song
// name and the continuation flag; singer and pitch are unchanged so they
// are not repeated. A successor that starts a different song (or the same
// song programmed again later in the session) is a genuine transition and
// carries the upcoming singer and pitch too. Two slides count as the same
// song only when both their song name and their session position agree.
//
// The pass clears before it sets, so annotating an already annotated deck
// is a no-op. The input is left untouched; the annotated deck comes back
// on a fresh slice. The builders run it on every deck they return; callers
// that rearrange slides afterwards can run it again themselves.
func Annotate[T any](slides []Slide[T]) []Slide[T] {
	out := slices.Clone(slides)
	for i := range out {
		out[i].NextSongName = ""
		out[i].NextSingerName = ""
		out[i].NextPitch = ""
		out[i].NextIsContinuation = false

		if i+1 >= len(out) {
			continue
		}
		next := out[i+1]
		if next.Type != SlideSong {
			continue
		}

		if out[i].Type == SlideSong &&
			out[i].SongName == next.SongName &&
			out[i].SessionSongIndex == next.SessionSongIndex {
			out[i].NextSongName = next.SongName
			out[i].NextIsContinuation = true
			continue
		}

		out[i].NextSongName = next.SongName
		out[i].NextSingerName = next.SingerName
		out[i].NextPitch = next.Pitch
	}
	return out
}
