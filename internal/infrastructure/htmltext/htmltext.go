// Package htmltext turns AI-authored HTML fragments into plain text for email bodies.
package htmltext

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const blockTags = "p, div, li, h1, h2, h3, h4, h5, h6, br, tr, blockquote"

// Plain strips markup from fragment, keeping paragraph breaks. Input without markup is
// returned with whitespace normalised.
func Plain(fragment string) string {
	if !strings.ContainsAny(fragment, "<&") {
		return normalise(fragment)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader("<body>" + fragment + "</body>"))
	if err != nil {
		return normalise(fragment)
	}
	body := doc.Find("body")
	body.Find("script, style").Remove()
	body.Find(blockTags).Each(func(_ int, s *goquery.Selection) {
		s.AppendHtml("\n")
	})
	return normalise(body.Text())
}

// Truncate shortens text to at most limit runes on a word boundary, adding an ellipsis.
func Truncate(text string, limit int) string {
	runes := []rune(text)
	if limit <= 0 || len(runes) <= limit {
		return text
	}
	cut := string(runes[:limit])
	if idx := strings.LastIndex(cut, " "); idx > limit/2 {
		cut = cut[:idx]
	}
	return strings.TrimRight(cut, " ,.;:") + "..."
}

func normalise(text string) string {
	lines := strings.Split(text, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		if line = strings.Join(strings.Fields(line), " "); line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}
