// Package slug turns free text into URL-safe identifiers.
package slug

import (
	"strings"
	"unicode"
)

// Make lowercases letters and digits and collapses every other run of
// characters into a single hyphen. Leading and trailing hyphens are dropped.
func Make(s string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.TrimSpace(s) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(unicode.ToLower(r))
			dash = false
		case !dash && b.Len() > 0:
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
