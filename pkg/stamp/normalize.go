package stamp

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// NormalizeName canonicalizes a store name for matching. Two names a human
// would read as the same store must normalize identically even when they
// differ in surrounding/internal whitespace, half-width vs full-width
// characters, or parenthesis style.
//
// Applied in order: trim, NFKC compatibility folding (collapses full-width
// and half-width variants), removal of all remaining whitespace, and
// unification of both parenthesis forms. Deterministic and total.
func NormalizeName(name string) string {
	s := norm.NFKC.String(strings.TrimSpace(name))

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if unicode.IsSpace(r) {
			continue
		}
		switch r {
		case '（':
			r = '('
		case '）':
			r = ')'
		}
		b.WriteRune(r)
	}
	return b.String()
}
