// Package normalize canonicalizes the free-text fields of a transaction
// record before any equality or similarity comparison.
package normalize

import (
	"regexp"
	"strings"
)

var (
	noisePattern      = regexp.MustCompile(`[^\p{L}\p{N}_\s]+`)
	whitespacePattern = regexp.MustCompile(`\s+`)
)

// Text lowercases the input, strips every character outside letters, digits
// and underscore (stripped, not replaced: "A-B-C" becomes "abc"), collapses
// whitespace runs to a single space and trims. Empty or blank input yields
// "". The function is idempotent.
func Text(raw string) string {
	if raw == "" {
		return ""
	}
	s := strings.ToLower(strings.TrimSpace(raw))
	s = noisePattern.ReplaceAllString(s, "")
	s = whitespacePattern.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// Reference canonicalizes a transaction reference.
func Reference(raw string) string { return Text(raw) }

// Payee canonicalizes a counterparty name.
func Payee(raw string) string { return Text(raw) }
