// Package sanitize cleans free text supplied by operators before it is stored.
package sanitize

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	htmlTagRegex    = regexp.MustCompile(`<[^>]*>`)
	whitespaceRegex = regexp.MustCompile(`\s+`)
)

// StripHTML removes HTML tags, including tags hidden behind common entities.
func StripHTML(s string) string {
	result := htmlTagRegex.ReplaceAllString(s, "")
	result = strings.NewReplacer(
		"&lt;", "<",
		"&gt;", ">",
		"&amp;", "&",
		"&quot;", "\"",
		"&#39;", "'",
	).Replace(result)
	result = htmlTagRegex.ReplaceAllString(result, "")
	return strings.TrimSpace(result)
}

// Text strips HTML, collapses runs of whitespace and truncates the result to
// maxRunes runes. maxRunes <= 0 disables truncation.
func Text(s string, maxRunes int) string {
	result := whitespaceRegex.ReplaceAllString(StripHTML(s), " ")
	if maxRunes <= 0 || utf8.RuneCountInString(result) <= maxRunes {
		return result
	}
	return strings.TrimSpace(string([]rune(result)[:maxRunes]))
}

// TextPtr is Text for optional fields. Empty results become nil.
func TextPtr(s *string, maxRunes int) *string {
	if s == nil {
		return nil
	}
	result := Text(*s, maxRunes)
	if result == "" {
		return nil
	}
	return &result
}
