// Package htmlsanitize cleans user-supplied free text before it is stored.
//
// Two flavours are offered:
//   - Sanitize keeps a safe subset of formatting markup (course, assignment
//     and note descriptions, which the SPA renders as rich text).
//   - PlainText strips every tag and returns readable text (feedback,
//     remarks, resource titles).
package htmlsanitize

import (
	"html"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

var (
	richOnce   sync.Once
	richPolicy *bluemonday.Policy

	strictOnce   sync.Once
	strictPolicy *bluemonday.Policy
)

func rich() *bluemonday.Policy {
	richOnce.Do(func() {
		p := bluemonday.UGCPolicy()
		p.AllowAttrs("class").OnElements("table", "tr", "td", "th", "code", "pre")
		p.AllowElements("u", "s", "mark")
		richPolicy = p
	})
	return richPolicy
}

func strict() *bluemonday.Policy {
	strictOnce.Do(func() {
		strictPolicy = bluemonday.StrictPolicy()
	})
	return strictPolicy
}

// Sanitize removes scripts, event handlers, unsafe URLs and unknown elements
// while keeping basic formatting.
func Sanitize(s string) string {
	if s == "" {
		return ""
	}
	return strings.TrimSpace(rich().Sanitize(s))
}

// PlainText strips all markup and returns unescaped text.
func PlainText(s string) string {
	if s == "" {
		return ""
	}
	return strings.TrimSpace(html.UnescapeString(strict().Sanitize(s)))
}

// IsPlainText reports whether s contains no tag-like content.
func IsPlainText(s string) bool {
	return !strings.Contains(s, "<") || !strings.Contains(s, ">")
}
