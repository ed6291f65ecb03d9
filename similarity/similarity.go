// Package similarity implements the lexical duplicate signal: Jaccard
// similarity over token sets.
package similarity

import (
	"strings"
	"unicode"
)

// minTokenLength drops short tokens ("a", "of", "AI" fragments, stray
// punctuation) that add noise to the set comparison.
const minTokenLength = 3

// Score returns the Jaccard index of the token sets of a and b, in [0, 1].
// Both inputs are lowercased and split on non-word boundaries; tokens
// shorter than three characters are discarded. When either surviving set
// is empty the result is 0 by policy: a string with no usable tokens can
// never be a lexical duplicate.
func Score(a, b string) float64 {
	setA := Tokenize(a)
	setB := Tokenize(b)

	if len(setA) == 0 || len(setB) == 0 {
		return 0
	}

	intersection := 0
	for token := range setA {
		if setB[token] {
			intersection++
		}
	}

	union := len(setA) + len(setB) - intersection
	return float64(intersection) / float64(union)
}

// Tokenize lowercases s, splits it on non-word characters, and returns the
// set of tokens at least three characters long.
func Tokenize(s string) map[string]bool {
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_'
	})

	set := make(map[string]bool, len(fields))
	for _, token := range fields {
		if len(token) >= minTokenLength {
			set[token] = true
		}
	}
	return set
}
