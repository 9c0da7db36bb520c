package academia

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// The academic planner page lays all six months of the semester out
// side by side in one table: each month owns a block of five columns
// (date, day name, event, day order, separator) and the header row
// carries month labels like "Jul '25".

var monthHeaderRegex = regexp.MustCompile(`^([A-Za-z]{3})\s*'?(\d{2})$`)

var monthNumbers = map[string]int{
	"Jan": 1, "Feb": 2, "Mar": 3, "Apr": 4, "May": 5, "Jun": 6,
	"Jul": 7, "Aug": 8, "Sep": 9, "Oct": 10, "Nov": 11, "Dec": 12,
}

type calendarMonth struct {
	name  string
	month int
	year  int
}

// ExtractCalendar parses the academic planner page into one entry
// per (month, day) cell that holds a valid date.
func ExtractCalendar(ctx context.Context, html string) ([]CalendarEntry, error) {
	ctx, span := tracer.Start(ctx, "ExtractCalendar")
	defer span.End()

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to parse calendar html")
		return nil, err
	}

	table, months := findCalendarTable(doc)
	if table == nil {
		span.SetStatus(codes.Error, "no table with month headers found")
		return nil, fmt.Errorf("calendar table not found")
	}
	span.SetAttributes(attribute.Int("months", len(months)))

	var entries []CalendarEntry

	rows := table.Find("tr")
	headerIdx := headerRowIndex(rows)

	rows.Each(func(rowIdx int, row *goquery.Selection) {
		if rowIdx <= headerIdx {
			return
		}

		var cells []string
		row.Find("td, th").Each(func(_ int, cell *goquery.Selection) {
			cells = append(cells, cellText(cell))
		})

		// months appear left to right, five columns each
		for monthIdx, m := range months {
			dayCol := monthIdx * 5
			doCol := dayCol + 3
			if doCol >= len(cells) {
				continue
			}

			dt := cells[dayCol]
			if !isDigits(dt) {
				continue
			}
			day := atoiDigits(dt)
			if day < 1 || day > 31 {
				continue
			}

			entries = append(entries, CalendarEntry{
				Date:      fmt.Sprintf("%02d/%02d/%d", day, m.month, m.year),
				DayNumber: dt,
				DayName:   cells[dayCol+1],
				Content:   cells[dayCol+2],
				DayOrder:  formatDayOrder(cells[doCol]),
				Month:     m.month,
				MonthName: m.name,
				Year:      m.year,
				Source:    fmt.Sprintf("table_row_%d_month_%s_day_%d", rowIdx, m.name, day),
			})
		}
	})

	span.SetAttributes(attribute.Int("entries", len(entries)))
	return entries, nil
}

// findCalendarTable picks the first table whose header row contains
// at least two month labels, and returns the months in column order.
func findCalendarTable(doc *goquery.Document) (*goquery.Selection, []calendarMonth) {
	var foundTable *goquery.Selection
	var foundMonths []calendarMonth

	doc.Find("table").EachWithBreak(func(_ int, table *goquery.Selection) bool {
		months := parseMonthHeaders(table)
		if len(months) < 2 {
			return true
		}
		foundTable = table
		foundMonths = months
		return false
	})

	return foundTable, foundMonths
}

func parseMonthHeaders(table *goquery.Selection) []calendarMonth {
	var months []calendarMonth

	table.Find("tr").EachWithBreak(func(_ int, row *goquery.Selection) bool {
		months = months[:0]
		row.Find("td, th").Each(func(_ int, cell *goquery.Selection) {
			m := monthHeaderRegex.FindStringSubmatch(cellText(cell))
			if m == nil {
				return
			}
			num, ok := monthNumbers[m[1]]
			if !ok {
				return
			}
			months = append(months, calendarMonth{
				name:  m[1],
				month: num,
				year:  2000 + atoiDigits(m[2]),
			})
		})
		return len(months) < 2
	})

	if len(months) < 2 {
		return nil
	}
	return months
}

func headerRowIndex(rows *goquery.Selection) int {
	idx := 0
	rows.EachWithBreak(func(i int, row *goquery.Selection) bool {
		matched := false
		row.Find("td, th").EachWithBreak(func(_ int, cell *goquery.Selection) bool {
			if monthHeaderRegex.MatchString(cellText(cell)) {
				matched = true
				return false
			}
			return true
		})
		if matched {
			idx = i
			return false
		}
		return true
	})
	return idx
}

// day orders only run 1 through 5, everything else renders as "-"
func formatDayOrder(do string) string {
	if isDigits(do) {
		n := atoiDigits(do)
		if n >= 1 && n <= 5 {
			return fmt.Sprintf("DO %s", do)
		}
	}
	return "-"
}
