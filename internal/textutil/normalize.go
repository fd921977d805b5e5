// Package textutil canonicalizes free-text product names into
// comparable keys.
package textutil

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Normalize canonicalizes a raw product name: unicode decomposition,
// lowercase, every character outside [a-z], space, and hyphen replaced
// with a space, runs of whitespace collapsed, and the result trimmed.
// Total and idempotent: Normalize(Normalize(s)) == Normalize(s).
func Normalize(raw string) string {
	decomposed := norm.NFKD.String(raw)

	var b strings.Builder
	b.Grow(len(decomposed))
	lastWasSpace := true
	for _, r := range decomposed {
		if unicode.Is(unicode.Mn, r) {
			// Combining marks left over from decomposition; dropping
			// them keeps "café" and "cafe" on the same key.
			continue
		}
		r = unicode.ToLower(r)
		if (r >= 'a' && r <= 'z') || r == '-' {
			b.WriteRune(r)
			lastWasSpace = false
			continue
		}
		if !lastWasSpace {
			b.WriteByte(' ')
			lastWasSpace = true
		}
	}

	return strings.TrimRight(b.String(), " ")
}
