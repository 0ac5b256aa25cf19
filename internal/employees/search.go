package employees

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// searchKey folds s for employee search: accents are stripped, case is
// lowered and name separators become single spaces, so "Anna-Marie
// Dvořáková" and "anna marie dvorakova" fold to the same key.
func searchKey(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	folded = strings.ToLower(folded)
	folded = strings.Map(func(r rune) rune {
		if r == '-' || r == '_' || unicode.IsSpace(r) {
			return ' '
		}
		return r
	}, folded)
	return strings.Join(strings.Fields(folded), " ")
}

// matchesSearch reports whether the folded query occurs in the employee's
// name or department, or the raw query in the email address.
func matchesSearch(key, lowerQuery, name, email, department string) bool {
	return strings.Contains(searchKey(name), key) ||
		strings.Contains(strings.ToLower(email), lowerQuery) ||
		strings.Contains(searchKey(department), key)
}
