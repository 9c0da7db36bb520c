package htmlutil

import (
	"bytes"
	"regexp"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

func GetText(node *html.Node) string {
	var buffer bytes.Buffer
	getTextRecursive(node, &buffer)
	return buffer.String()
}

func getTextRecursive(node *html.Node, buffer *bytes.Buffer) {
	if node == nil {
		return
	}
	if node.Type == html.TextNode {
		buffer.WriteString(node.Data)
		return
	}
	child := node.FirstChild
	for child != nil {
		getTextRecursive(child, buffer)
		child = child.NextSibling
	}
}

var innerWhitespace = regexp.MustCompile(`\s\s+`)

func removeNonPrintable(s string) string {
	newStr := strings.Builder{}
	for _, c := range s {
		if unicode.IsPrint(c) {
			newStr.WriteRune(c)
		}
	}
	return newStr.String()
}

// CleanText collapses the portal's erratic cell whitespace (nbsp
// runs, stray newlines from <br> soup) into single spaces.
func CleanText(s string) string {
	s = strings.ReplaceAll(s, " ", " ")
	s = removeNonPrintable(s)
	s = strings.Trim(s, " \t\n")
	return innerWhitespace.ReplaceAllString(s, " ")
}

// CellTexts returns the cleaned text of every <td> and <th> in a row.
func CellTexts(row *goquery.Selection) []string {
	var out []string
	row.Find("td, th").Each(func(_ int, cell *goquery.Selection) {
		out = append(out, CleanText(cell.Text()))
	})
	return out
}

// TextAfterBreak returns the text that appears after the first <br>
// inside the node, or "" if there is no <br>. Zoho widgets love to
// stack a label and a value in one cell separated only by a break.
func TextAfterBreak(node *html.Node) string {
	var buffer bytes.Buffer
	seenBreak := false

	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n == nil {
			return
		}
		if n.Type == html.ElementNode && n.Data == "br" {
			seenBreak = true
		}
		if n.Type == html.TextNode && seenBreak {
			buffer.WriteString(n.Data)
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(node)

	return buffer.String()
}
