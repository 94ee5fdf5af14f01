// Package similarity scores how close two post titles are.
package similarity

import (
	"strings"
	"unicode"
)

// Normalize lowercases s, drops everything that is neither a word character
// nor whitespace and collapses whitespace runs into single spaces.
func Normalize(s string) string {
	var b strings.Builder
	b.Grow(len(s))

	pendingSpace := false
	for _, r := range strings.ToLower(s) {
		switch {
		case unicode.IsSpace(r):
			pendingSpace = true
		case isWordRune(r):
			if pendingSpace && b.Len() > 0 {
				b.WriteByte(' ')
			}
			pendingSpace = false
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Ratio returns 2*M/T for the normalized titles, where M is the size of all
// matching blocks and T the combined length. Equal normalized titles score 1.
//
// The block search is greedy and order dependent, so Ratio(a, b) and
// Ratio(b, a) can differ slightly on adversarial inputs.
func Ratio(a, b string) float64 {
	na, nb := Normalize(a), Normalize(b)
	if na == nb {
		return 1.0
	}
	return newMatcher([]rune(na), []rune(nb)).ratio()
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsNumber(r)
}
