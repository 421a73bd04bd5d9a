package source

import "strings"

// MatchesTitle reports whether query appears (case-insensitive) in title.
// An empty query matches everything.
func MatchesTitle(title, query string) bool {
	query = strings.TrimSpace(query)
	if query == "" {
		return true
	}
	return strings.Contains(strings.ToLower(title), strings.ToLower(query))
}
