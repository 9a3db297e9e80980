// Package present assembles renderable decks from library records: it
// loads songs, templates, and sessions from the store and runs them
// through the deck composer. The store's template slides ride along as the
// deck's opaque template payload.
package present

import (
	"context"

	"github.com/versoproject/verso/core/deck"
	"github.com/versoproject/verso/internal/logging"
	"github.com/versoproject/verso/internal/store"
)

// Slide is a deck slide carrying stored template slides as payload.
type Slide = deck.Slide[store.TemplateSlide]

// deckTemplate adapts a stored template for the composer. A nil template
// becomes the zero value, which composes a content-only deck.
func deckTemplate(t *store.Template) deck.Template[store.TemplateSlide] {
	if t == nil {
		return deck.Template[store.TemplateSlide]{}
	}
	return deck.Template[store.TemplateSlide]{
		Slides:         t.Slides,
		ReferenceIndex: t.ReferenceIndex,
	}
}

// deckSong adapts a stored song for the composer.
func deckSong(s *store.Song) deck.Song {
	return deck.Song{
		Name:    s.Name,
		Lyrics:  s.Lyrics,
		Meaning: s.Meaning,
	}
}

// loadTemplate fetches a template by ID, or nil when the ID is empty.
func loadTemplate(ctx context.Context, st *store.Store, templateID string) (*store.Template, error) {
	if templateID == "" {
		return nil, nil
	}
	return st.GetTemplate(ctx, templateID)
}

// SongDeck composes the full deck for one song, decorated by the template
// when templateID is set.
func SongDeck(ctx context.Context, st *store.Store, songID, templateID string) ([]Slide, error) {
	song, err := st.GetSong(ctx, songID)
	if err != nil {
		return nil, err
	}
	template, err := loadTemplate(ctx, st, templateID)
	if err != nil {
		return nil, err
	}

	slides := deck.Build(deckSong(song), deckTemplate(template))
	logging.PresentationEvent("deck_built", len(slides), "song", song.Name)
	return slides, nil
}

// SessionDeck composes the deck for a whole session. The session's own
// template is used unless templateID overrides it; either may be empty for
// a content-only deck.
func SessionDeck(ctx context.Context, st *store.Store, sessionID, templateID string) ([]Slide, error) {
	sess, err := st.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if templateID == "" {
		templateID = sess.TemplateID
	}
	template, err := loadTemplate(ctx, st, templateID)
	if err != nil {
		return nil, err
	}

	entries := make([]deck.SessionEntry, 0, len(sess.Songs))
	for _, entry := range sess.Songs {
		song, err := st.GetSong(ctx, entry.SongID)
		if err != nil {
			return nil, err
		}
		entries = append(entries, deck.SessionEntry{
			Song:       deckSong(song),
			SingerName: entry.SingerName,
			Pitch:      entry.PitchName,
		})
	}

	slides := deck.BuildSession(entries, deckTemplate(template))
	logging.PresentationEvent("deck_built", len(slides), "session", sess.Name)
	return slides, nil
}
