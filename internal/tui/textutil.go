package tui

import "strings"

// maxSearchLen caps what the search box sends to the API.
const maxSearchLen = 256

// truncateEnd shortens s to at most limit characters, appending an
// ellipsis if truncation occurs.
func truncateEnd(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	if limit <= 1 {
		return "…"
	}
	return string(r[:limit-1]) + "…"
}

// truncateMiddle shortens s to at most limit characters, keeping both ends
// around a single ellipsis. Document links carry meaning at both ends.
func truncateMiddle(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	r := []rune(s)
	n := len(r)
	if n <= limit {
		return s
	}
	if limit <= 1 {
		return "…"
	}
	keep := limit - 1
	left := keep / 2
	right := keep - left
	if left <= 0 {
		return "…" + string(r[n-right:])
	}
	return string(r[:left]) + "…" + string(r[n-right:])
}

// sanitizeSearchInput collapses whitespace and caps the length of a search
// query. Leading and trailing spaces are kept off the wire.
func sanitizeSearchInput(input string) string {
	input = strings.Join(strings.Fields(input), " ")
	if r := []rune(input); len(r) > maxSearchLen {
		input = strings.TrimSpace(string(r[:maxSearchLen]))
	}
	return input
}
