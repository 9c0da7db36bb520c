package textutil

import (
	"regexp"
	"strings"
)

var whitespaceRegex = regexp.MustCompile(`\s+`)

// NormalizeName lowercases and strips all whitespace so that markup
// text can be compared against keywords regardless of how the portal
// happens to break lines inside a cell.
func NormalizeName(name string) string {
	name = strings.ToLower(name)
	name = strings.Trim(name, " \n\t")
	name = whitespaceRegex.ReplaceAllString(name, "")
	return name
}

// MatchAny reports whether the normalized text contains any of the
// given keywords. Keywords are normalized too, so callers can pass
// human-readable phrases like "hours conducted".
func MatchAny(text string, keywords []string) bool {
	text = NormalizeName(text)
	for _, k := range keywords {
		if strings.Contains(text, NormalizeName(k)) {
			return true
		}
	}
	return false
}
