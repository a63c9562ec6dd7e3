// Package similarity scores how close two normalized strings are.
package similarity

import (
	"github.com/texttheater/golang-levenshtein/levenshtein"
)

// Ratio returns a similarity score in [0, 100]. Identical non-empty strings
// score 100. If either string is empty the score is 0 — including when both
// are empty, so blank fields can never match each other.
//
// The score is the classic edit ratio (insert/delete cost 1, substitute
// cost 2): (lenA + lenB - distance) / (lenA + lenB), scaled to 100. It is
// symmetric in its arguments.
func Ratio(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return 100
	}
	return levenshtein.RatioForStrings([]rune(a), []rune(b), levenshtein.DefaultOptions) * 100
}
