// Package deck composes presentation decks: ordered slide sequences built
// from song lyrics, an optional decorative template, and session context.
// Every function in this package is a pure function of its inputs; the full
// deck is recomputed on each call and nothing is cached or mutated.
package deck

import (
	"strings"

	"github.com/versoproject/verso/core/songtext"
)

const (
	// maxSlideLines is the largest number of lyric lines shown on one slide
	// before a song without verse breaks is chunked.
	maxSlideLines = 10

	// maxTranslationLines caps how many display lines of translation are
	// attached to a slide.
	maxTranslationLines = 4

	// missingLyricsText is shown when a song has no usable lyrics. The
	// splitter never returns an empty deck, so the player always has
	// something to project.
	missingLyricsText = "Song lyrics not available. Please re-import this song."
)

// SplitSong turns one song's lyrics and translation into its ordered run of
// content slides. Slides come back numbered 1..N within the song with the
// run length stamped on each; deck-level indexes are left for the builders.
//
// Splitting follows the song's own structure first: a short song (at most
// ten lines) stays on a single slide, a long song with blank-line verse
// breaks gets one slide per verse exactly as the author broke it, and a
// long song without verse breaks is chunked ten lines at a time. The
// translation pairs with lyrics by verse position and is capped at four
// display lines per slide.
func SplitSong[T any](song Song) []Slide[T] {
	// Only truly absent lyrics get the placeholder. Whitespace-only lyrics
	// are a degenerate short song and fall through to the single-slide case.
	if song.Lyrics == "" {
		return numberSlides([]Slide[T]{{
			Type:     SlideSong,
			Content:  missingLyricsText,
			SongName: song.Name,
		}})
	}

	allLines := songtext.Lines(song.Lyrics)

	verses := songtext.Verses(song.Lyrics)
	translations := songtext.Verses(song.Meaning)

	var slides []Slide[T]
	switch {
	case len(allLines) <= maxSlideLines:
		// Short songs ignore verse breaks and fit on one slide.
		slides = append(slides, Slide[T]{
			Type:        SlideSong,
			Content:     strings.Join(allLines, "\n"),
			Translation: translationAt(translations, 0),
			SongName:    song.Name,
		})

	case len(verses) > 1:
		// Author verse breaks are authoritative: one slide per verse, even
		// when a verse runs long.
		for i, verse := range verses {
			slides = append(slides, Slide[T]{
				Type:        SlideSong,
				Content:     verse,
				Translation: translationAt(translations, i),
				SongName:    song.Name,
			})
		}

	default:
		// No verse structure to honor: chunk mechanically. The translation
		// belongs to the song as a whole, so it rides on the first chunk
		// only rather than repeating on every slide.
		for start := 0; start < len(allLines); start += maxSlideLines {
			end := start + maxSlideLines
			if end > len(allLines) {
				end = len(allLines)
			}
			s := Slide[T]{
				Type:     SlideSong,
				Content:  strings.Join(allLines[start:end], "\n"),
				SongName: song.Name,
			}
			if start == 0 {
				s.Translation = translationAt(translations, 0)
			}
			slides = append(slides, s)
		}
	}

	return numberSlides(slides)
}

// translationAt returns the capped translation verse at index i, or "" when
// the translation has no verse in that position. Lyrics and translation
// pair strictly by position; unpaired verses on either side are dropped.
func translationAt(translations []string, i int) string {
	if i < 0 || i >= len(translations) {
		return ""
	}
	return songtext.TruncateLines(translations[i], maxTranslationLines)
}

// numberSlides stamps SongSlideNumber 1..N and SongSlideCount N across a
// song's run of content slides, in emission order.
func numberSlides[T any](slides []Slide[T]) []Slide[T] {
	for i := range slides {
		slides[i].SongSlideNumber = i + 1
		slides[i].SongSlideCount = len(slides)
	}
	return slides
}
