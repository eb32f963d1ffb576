package domain

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var nonSlugRun = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify lowercases title, folds accented letters to ASCII, replaces every run of
// non-alphanumeric characters with a single hyphen and trims leading/trailing hyphens.
// Slugify(Slugify(x)) == Slugify(x).
func Slugify(title string) string {
	folded, _, err := transform.String(transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC), title)
	if err != nil {
		folded = title
	}
	slug := nonSlugRun.ReplaceAllString(strings.ToLower(folded), "-")
	return strings.Trim(slug, "-")
}
