package util

import (
	"strings"
	"unicode/utf8"
)

// Truncate shortens s to at most max runes, appending "..." when cut.
// max <= 0 returns s unchanged.
func Truncate(s string, max int) string {
	if max <= 0 || utf8.RuneCountInString(s) <= max {
		return s
	}
	if max <= 3 {
		return string([]rune(s)[:max])
	}
	return string([]rune(s)[:max-3]) + "..."
}

// OneLine collapses all whitespace runs (newlines included) to single spaces.
func OneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Snippet is OneLine followed by Truncate.
func Snippet(s string, max int) string {
	return Truncate(OneLine(s), max)
}
