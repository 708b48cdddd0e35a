package normalize

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// asciiPunctuation is the set removed from descriptions before matching.
const asciiPunctuation = "!\"#$%&'()*+,-./:;<=>?@[\\]^_`{|}~"

// Transformers carry state, so each call builds its own chain.
func stripAccents(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// CleanDescription prepares a description for fuzzy matching: lowercase,
// accents stripped, ASCII punctuation removed and whitespace collapsed.
func CleanDescription(s string) string {
	s = stripAccents(strings.ToLower(s))
	s = strings.Map(func(r rune) rune {
		if strings.ContainsRune(asciiPunctuation, r) {
			return -1
		}
		return r
	}, s)
	return strings.Join(strings.Fields(s), " ")
}

// Lower trims and lowercases s. Used for every category, subcategory and
// description stored in a table.
func Lower(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
