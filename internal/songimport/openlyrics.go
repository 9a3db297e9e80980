package songimport

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/antchfx/xmlquery"
	"github.com/antchfx/xpath"

	"github.com/versoproject/verso/core/verrors"
)

// Precompiled queries against the OpenLyrics document shape. xmlquery
// matches on local element names, so the OpenLyrics default namespace
// needs no prefix mapping.
var (
	titleExpr = xpath.MustCompile("//song/properties/titles/title")
	verseExpr = xpath.MustCompile("//song/lyrics/verse")
	linesExpr = xpath.MustCompile("./lines")
)

// olVerse is one <verse> with its text already flattened to LF lines.
type olVerse struct {
	name string
	lang string
	text string
}

// parseOpenLyrics converts an OpenLyrics XML document into a ParsedSong.
// Verses in the document's first language become the lyrics; verses in a
// second language become the meaning, aligned by verse name.
func parseOpenLyrics(data []byte) (*ParsedSong, error) {
	doc, err := xmlquery.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, verrors.NewParse("openlyrics", "", fmt.Sprintf("malformed XML: %v", err))
	}

	titleNode := xmlquery.QuerySelector(doc, titleExpr)
	if titleNode == nil {
		return nil, verrors.NewParse("openlyrics", "", "song has no title")
	}
	title := strings.TrimSpace(titleNode.InnerText())
	if title == "" {
		return nil, verrors.NewParse("openlyrics", "", "song title is empty")
	}

	verseNodes := xmlquery.QuerySelectorAll(doc, verseExpr)
	if len(verseNodes) == 0 {
		return nil, verrors.NewParse("openlyrics", "", "song has no verses")
	}

	var verses []olVerse
	for _, node := range verseNodes {
		verses = append(verses, olVerse{
			name: node.SelectAttr("name"),
			lang: normalizeLanguage(node.SelectAttr("lang")),
			text: verseText(node),
		})
	}

	// The first verse's language is the song's language; every verse in a
	// different language is treated as translation material.
	primaryLang := verses[0].lang

	var lyricsVerses []string
	translations := make(map[string]string)
	for _, v := range verses {
		if v.text == "" {
			continue
		}
		if v.lang == primaryLang {
			lyricsVerses = append(lyricsVerses, v.text)
		} else if _, seen := translations[v.name]; !seen {
			translations[v.name] = v.text
		}
	}
	if len(lyricsVerses) == 0 {
		return nil, verrors.NewParse("openlyrics", "", "song has no verse text")
	}

	// Meaning verses follow the primary verse order so verse i of the
	// lyrics pairs with verse i of the meaning downstream. Pairing is by
	// position, and a blank-line-joined string cannot encode a gap, so the
	// meaning stops at the first primary verse without a translation:
	// shifting later translations onto earlier verses would be worse than
	// dropping them.
	var meaningVerses []string
	for _, v := range verses {
		if v.lang != primaryLang || v.text == "" {
			continue
		}
		translated, ok := translations[v.name]
		if !ok {
			break
		}
		meaningVerses = append(meaningVerses, translated)
	}

	return &ParsedSong{
		Name:     title,
		Lyrics:   strings.Join(lyricsVerses, "\n\n"),
		Meaning:  strings.Join(meaningVerses, "\n\n"),
		Language: primaryLang,
	}, nil
}

// verseText flattens a <verse> into LF-separated lines: each <lines>
// block contributes its text with <br/> elements as line breaks, and
// consecutive <lines> blocks are joined by single LFs too.
func verseText(verse *xmlquery.Node) string {
	var blocks []string
	for _, lines := range xmlquery.QuerySelectorAll(verse, linesExpr) {
		var b strings.Builder
		flattenLines(lines, &b)
		if text := tidyLines(b.String()); text != "" {
			blocks = append(blocks, text)
		}
	}
	return strings.Join(blocks, "\n")
}

// flattenLines walks a <lines> subtree appending text content, turning
// <br/> into LF and skipping chord markup.
func flattenLines(node *xmlquery.Node, b *strings.Builder) {
	for child := node.FirstChild; child != nil; child = child.NextSibling {
		switch child.Type {
		case xmlquery.TextNode, xmlquery.CharDataNode:
			b.WriteString(child.Data)
		case xmlquery.ElementNode:
			switch child.Data {
			case "br":
				b.WriteString("\n")
			case "chord":
				// Chords decorate lines, they are not lyric text.
			default:
				flattenLines(child, b)
			}
		}
	}
}

// tidyLines trims each line and drops blank ones, preserving order.
func tidyLines(s string) string {
	var lines []string
	for _, line := range strings.Split(s, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			lines = append(lines, trimmed)
		}
	}
	return strings.Join(lines, "\n")
}
