package academia

import (
	"strconv"
	"strings"

	"sdash-backend/lib/textutil"

	"github.com/PuerkitoBio/goquery"
)

// The portal renders everything through Zoho Creator widgets, so the
// markup around the interesting table differs per deployment. Every
// extractor therefore finds its table through a cascade: a specific
// match first, progressively looser fallbacks after.

// AccessDenied reports whether the page is the portal's permission
// error instead of actual content.
func AccessDenied(doc *goquery.Document) bool {
	text := strings.ToLower(doc.Text())
	return strings.Contains(text, "not accessible") ||
		strings.Contains(text, "not allowed to access")
}

// tableWithKeywords returns the first table whose text contains any
// of the keywords, compared whitespace and case insensitively.
func tableWithKeywords(doc *goquery.Document, keywords []string) *goquery.Selection {
	var found *goquery.Selection
	doc.Find("table").EachWithBreak(func(_ int, table *goquery.Selection) bool {
		if textutil.MatchAny(table.Text(), keywords) {
			found = table
			return false
		}
		return true
	})
	return found
}

// tableInKeywordDiv looks for a table nested inside a div whose class
// mentions "table" and whose text matches the keywords.
func tableInKeywordDiv(doc *goquery.Document, keywords []string) *goquery.Selection {
	var found *goquery.Selection
	doc.Find("div").EachWithBreak(func(_ int, div *goquery.Selection) bool {
		class, _ := div.Attr("class")
		if !strings.Contains(strings.ToLower(class), "table") {
			return true
		}
		if !textutil.MatchAny(div.Text(), keywords) {
			return true
		}
		inner := div.Find("table").First()
		if inner.Length() == 0 {
			return true
		}
		found = inner
		return false
	})
	return found
}

// tableWithMinRows returns the first table with more than `min` rows,
// the usual "anything with data" last resort.
func tableWithMinRows(doc *goquery.Document, min int) *goquery.Selection {
	var found *goquery.Selection
	doc.Find("table").EachWithBreak(func(_ int, table *goquery.Selection) bool {
		if table.Find("tr").Length() > min {
			found = table
			return false
		}
		return true
	})
	return found
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

// atoiDigits parses strictly digit strings, anything else counts as 0
// so malformed cells never poison an aggregate.
func atoiDigits(s string) int {
	if !isDigits(s) {
		return 0
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}

func cellText(cell *goquery.Selection) string {
	return strings.TrimSpace(cell.Text())
}

// collapseSpaces joins a title cell's text fragments with single
// spaces, cell text often carries the portal's layout newlines.
func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
