// Package normalize canonicalizes quiz answers so comparisons ignore accents, case and surrounding whitespace.
package normalize

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// String decomposes s (NFD), drops combining marks, lower-cases and trims it.
// "Água" and " agua " both become "agua".
func String(s string) string {
	// A Transformer holds state, so each call builds its own chain.
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)))
	out, _, err := transform.String(t, s)
	if err != nil {
		// Only reachable on invalid UTF-8; fall back to the raw input.
		out = s
	}
	return strings.TrimSpace(strings.ToLower(out))
}

// Equal reports whether a and b are the same answer once normalized.
func Equal(a, b string) bool {
	return String(a) == String(b)
}
