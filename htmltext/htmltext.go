// Package htmltext turns rich-text post bodies into plain text for email previews.
package htmltext

import (
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
)

// Text returns the visible text of an HTML fragment with whitespace collapsed.
// Plain text input is returned with whitespace collapsed.
func Text(fragment string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return collapse(fragment)
	}
	doc.Find("script, style, noscript, iframe").Remove()

	// Block elements would otherwise run their text together.
	doc.Find("p, br, li, h1, h2, h3, h4, h5, h6, div, blockquote, tr").Each(func(_ int, s *goquery.Selection) {
		s.AppendHtml(" ")
	})
	return collapse(doc.Text())
}

// Excerpt returns at most maxRunes runes of the fragment's text, cut at a word
// boundary and ending in an ellipsis when truncated.
func Excerpt(fragment string, maxRunes int) string {
	text := Text(fragment)
	if maxRunes <= 0 || utf8.RuneCountInString(text) <= maxRunes {
		return text
	}

	runes := []rune(text)
	cut := string(runes[:maxRunes])
	if i := strings.LastIndexByte(cut, ' '); i > len(cut)/2 {
		cut = cut[:i]
	}
	return strings.TrimRight(cut, " ,.;:") + "…"
}

// FirstImage returns the src of the first image in the fragment, if any.
func FirstImage(fragment string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return ""
	}
	src, _ := doc.Find("img[src]").First().Attr("src")
	return strings.TrimSpace(src)
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
