package rues

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// deaccent decomposes characters and drops combining marks, turning
// "Número" into "Numero".
var deaccent = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// normalizeLabel turns a displayed field label into a stable record key:
// lowercase, diacritics stripped, punctuation dropped, whitespace runs
// collapsed to single underscores.
func normalizeLabel(label string) string {
	stripped, _, err := transform.String(deaccent, label)
	if err != nil {
		stripped = label
	}

	var b strings.Builder
	for _, r := range strings.ToLower(stripped) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		case unicode.IsSpace(r) || r == '_' || r == '-':
			b.WriteRune(' ')
		}
	}

	return strings.Join(strings.Fields(b.String()), "_")
}
