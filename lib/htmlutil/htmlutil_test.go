package htmlutil

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/require"
)

func TestCleanText(t *testing.T) {
	require.Equal(t, "FT-II 13.50", CleanText("FT-II \n\t 13.50"))
	require.Equal(t, "a b", CleanText("  a    b  "))
	require.Equal(t, "", CleanText(" \n\t "))
}

func TestCellTexts(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(
		`<table><tr><td> one </td><th>two</th><td>th   ree</td></tr></table>`,
	))
	require.NoError(t, err)

	row := doc.Find("tr").First()
	require.Equal(t, []string{"one", "two", "th ree"}, CellTexts(row))
}

func TestTextAfterBreak(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(
		`<font><strong>FT-II/15.00</strong><br>13.50</font>`,
	))
	require.NoError(t, err)

	font := doc.Find("font").First()
	require.Equal(t, "13.50", strings.TrimSpace(TextAfterBreak(font.Nodes[0])))

	noBreak, err := goquery.NewDocumentFromReader(strings.NewReader(`<font>just text</font>`))
	require.NoError(t, err)
	require.Equal(t, "", TextAfterBreak(noBreak.Find("font").Nodes[0]))
}
