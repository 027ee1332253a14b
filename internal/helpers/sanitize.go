package helpers

import (
	"html"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

var (
	strictPolicyOnce sync.Once
	strictPolicy     *bluemonday.Policy
)

// StrictHTMLPolicy returns a singleton bluemonday policy that strips every HTML
// element and attribute.
func StrictHTMLPolicy() *bluemonday.Policy {
	strictPolicyOnce.Do(func() {
		strictPolicy = bluemonday.StrictPolicy()
	})
	return strictPolicy
}

// SanitizeHTMLStrict removes every HTML tag from s while stripping leading and
// trailing whitespace.
func SanitizeHTMLStrict(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	return strings.TrimSpace(StrictHTMLPolicy().Sanitize(s))
}

// PlainText turns user supplied text that may contain markup into plain text
// with entities decoded and runs of whitespace collapsed.
func PlainText(s string) string {
	return CollapseWhitespace(html.UnescapeString(SanitizeHTMLStrict(s)))
}
