package similarity

import (
	"strings"
	"unicode"
)

const minKeywordLen = 3

var stopWords = map[string]struct{}{
	"the": {}, "a": {}, "an": {}, "and": {}, "or": {}, "but": {}, "in": {}, "on": {}, "at": {},
	"to": {}, "for": {}, "of": {}, "with": {}, "by": {}, "is": {}, "are": {}, "was": {},
	"were": {}, "be": {}, "been": {}, "being": {}, "have": {}, "has": {}, "had": {}, "do": {},
	"does": {}, "did": {}, "will": {}, "would": {}, "could": {}, "should": {}, "may": {},
	"might": {}, "must": {}, "can": {}, "this": {}, "that": {}, "these": {}, "those": {},
	"how": {}, "what": {}, "when": {}, "where": {}, "why": {}, "who": {}, "2024": {}, "2025": {},
}

// Set is a set of keywords.
type Set map[string]struct{}

// Keywords extracts the significant words of a title: whole words made only
// of ASCII letters, at least three long, lowercased, minus stop words.
// Only English titles produce keywords; other scripts yield an empty set.
func Keywords(title string) Set {
	words := strings.FieldsFunc(strings.ToLower(title), func(r rune) bool {
		return !isWordRune(r)
	})

	set := make(Set, len(words))
	for _, w := range words {
		if len(w) < minKeywordLen || !isASCIILetters(w) {
			continue
		}
		if _, stop := stopWords[w]; stop {
			continue
		}
		set[w] = struct{}{}
	}
	return set
}

// Overlap is the Jaccard ratio |a∩b| / |a∪b|; two empty sets score 0.
func Overlap(a, b Set) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	shared := 0
	for w := range a {
		if _, ok := b[w]; ok {
			shared++
		}
	}
	union := len(a) + len(b) - shared
	return float64(shared) / float64(union)
}

// IsStopWord reports whether w is ignored by Keywords.
func IsStopWord(w string) bool {
	_, ok := stopWords[strings.ToLower(w)]
	return ok
}

func isASCIILetters(w string) bool {
	for _, r := range w {
		if r > unicode.MaxASCII || !unicode.IsLetter(r) {
			return false
		}
	}
	return true
}
