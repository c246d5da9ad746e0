package discovery

import (
	"html"
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// MaxTextLen bounds the body kept per fetched item.
const MaxTextLen = 500

var (
	strictPolicy = bluemonday.StrictPolicy()
	reSpaces     = regexp.MustCompile(`\s+`)
)

// CleanHTML strips all markup from s, unescapes entities and collapses
// whitespace.
func CleanHTML(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	s = strictPolicy.Sanitize(s)
	// feeds double-encode entities often enough
	for i := 0; i < 3; i++ {
		u := html.UnescapeString(s)
		if u == s {
			break
		}
		s = u
	}
	return strings.TrimSpace(reSpaces.ReplaceAllString(s, " "))
}

// Truncate cuts s to at most n runes.
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if len(s) <= n {
		return s
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
