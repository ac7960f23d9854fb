package geo

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// FoldName lowercases, strips diacritics and collapses whitespace so that
// "São  Bernardo" and "sao bernardo" compare equal.
func FoldName(s string) string {
	// Chained transformers carry state; build one per call.
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return strings.Join(strings.Fields(strings.ToLower(out)), " ")
}

// FoldRegion normalizes a state/region code.
func FoldRegion(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}
