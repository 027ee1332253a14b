package helpers

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

var openingFence = regexp.MustCompile("(?i)^```(?:json)?")

// StripCodeFence unwraps a model reply that starts with a fenced code block:
// the opening fence (optionally tagged json) is removed along with trailing
// backticks and surrounding whitespace. Other input is returned unchanged.
func StripCodeFence(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = openingFence.ReplaceAllString(s, "")
	return strings.TrimSpace(strings.TrimRight(s, "`"))
}

// TruncateRunes caps s at n runes.
func TruncateRunes(s string, n int) string {
	if n < 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}

// CollapseWhitespace trims s and replaces every run of whitespace with a single space.
func CollapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
