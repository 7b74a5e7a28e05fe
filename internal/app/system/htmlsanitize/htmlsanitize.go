// Package htmlsanitize strips markup from free-text fields submitted by
// participants before they are stored. Registration data is rendered by
// other surfaces (badges, exported lists, email), so nothing that looks
// like HTML is kept.
package htmlsanitize

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var strict = bluemonday.StrictPolicy()

// PlainText removes every tag and returns the visible text, trimmed.
// Entities produced by the policy are unescaped again, so "AT&T" survives
// a round trip unchanged.
func PlainText(s string) string {
	if s == "" {
		return ""
	}
	return strings.TrimSpace(html.UnescapeString(strict.Sanitize(s)))
}
