package academia

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"sdash-backend/lib/timezone"

	"github.com/PuerkitoBio/goquery"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// The timetable page only lists which course sits in which slot
// code. The actual week layout is fixed per batch: five day orders
// of ten periods each, laid out in the templates below. Mapping the
// scraped slot codes onto a template produces the full timetable.

// TimeSlots are the ten daily periods as the frontend displays them.
var TimeSlots = []string{
	"08:00-08:50",
	"08:50-09:40",
	"09:45-10:35",
	"10:40-11:30",
	"11:35-12:25",
	"12:30-01:20",
	"01:25-02:15",
	"02:20-03:10",
	"03:10-04:00",
	"04:00-04:50",
}

// batch period templates, one row per day order. "/X" marks an
// alternate-week slot and is stripped before course lookup.
var batch1Periods = [][]string{
	{"A", "A/X", "F/X", "F", "G", "P6", "P7", "P8", "P9", "P10"},
	{"P11", "P12/X", "P13/X", "P14", "P15", "B", "B", "G", "G", "A"},
	{"C", "C/X", "A/X", "D", "B", "P26", "P27", "P28", "P29", "P30"},
	{"P31", "P32/X", "P33/X", "P34", "P35", "D", "D", "B", "E", "C"},
	{"E", "E/X", "C/X", "F", "D", "P46", "P47", "P48", "P49", "P50"},
}

var batch2Periods = [][]string{
	{"P1", "P2/X", "P3/X", "P4", "P5", "A", "A", "F", "F", "G"},
	{"B", "B/X", "G/X", "G", "A", "P16", "P17", "P18", "P19", "P20"},
	{"P21", "P22/X", "P23/X", "P24", "P25", "C", "C", "A", "D", "B"},
	{"D", "D/X", "B/X", "E", "C", "P36", "P37", "P38", "P39", "P40"},
	{"P41", "P42/X", "P43/X", "P44", "P45", "E", "E", "C", "F", "D"},
}

var batchKeywords = []string{"batch", "group", "section"}

var batchPatterns = []*regexp.Regexp{
	regexp.MustCompile(`batch\s*(\d+)`),
	regexp.MustCompile(`group\s*([a-z0-9]+)`),
	regexp.MustCompile(`section\s*([a-z0-9]+)`),
	regexp.MustCompile(`batch\s*([a-z0-9]+)`),
}

var timetableKeywords = []string{"course", "subject", "slot", "theory", "practical"}

var slotCodeRegex = regexp.MustCompile(`^[A-Z0-9]+$`)
var looseSlotRegex = regexp.MustCompile(`\b([A-Z]\d*[A-Z]?\d*)\b`)
var slotRangeNumRegex = regexp.MustCompile(`\d+`)

// ExtractBatchNumber finds the student's batch in the info tables
// above the course table. Returns "" when nothing matches.
func ExtractBatchNumber(ctx context.Context, html string) string {
	ctx, span := tracer.Start(ctx, "ExtractBatchNumber")
	defer span.End()

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		span.RecordError(err)
		return ""
	}

	batch := ""
	doc.Find("table").EachWithBreak(func(_ int, table *goquery.Selection) bool {
		text := strings.ToLower(table.Text())
		matched := false
		for _, kw := range batchKeywords {
			if strings.Contains(text, kw) {
				matched = true
				break
			}
		}
		if !matched {
			return true
		}

		table.Find("td, th").EachWithBreak(func(_ int, cell *goquery.Selection) bool {
			lower := strings.ToLower(cellText(cell))
			for _, pattern := range batchPatterns {
				if m := pattern.FindStringSubmatch(lower); m != nil {
					batch = m[1]
					return false
				}
			}
			return true
		})
		if batch != "" {
			return false
		}

		// any lone small number in a batch-flavored table will do
		table.Find("td, th").EachWithBreak(func(_ int, cell *goquery.Selection) bool {
			text := cellText(cell)
			if isDigits(text) {
				n := atoiDigits(text)
				if n >= 1 && n <= 10 {
					batch = text
					return false
				}
			}
			return true
		})
		return batch == ""
	})

	span.SetAttributes(attribute.String("batch", batch))
	return batch
}

// ExtractTimetable returns the scraped course/slot rows plus the
// detected batch number.
func ExtractTimetable(ctx context.Context, html string) ([]TimetableCourse, string, error) {
	ctx, span := tracer.Start(ctx, "ExtractTimetable")
	defer span.End()

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to parse timetable html")
		return nil, "", err
	}

	batch := ExtractBatchNumber(ctx, html)

	var courses []TimetableCourse

	table := findCourseTable(doc)
	if table != nil {
		courses = extractCoursesFromTable(table)
	} else {
		// last resort, walk every table until one yields courses
		doc.Find("table").EachWithBreak(func(_ int, t *goquery.Selection) bool {
			if t.Find("tr").Length() <= 1 {
				return true
			}
			courses = extractCoursesFromTable(t)
			return len(courses) == 0
		})
	}

	for i := range courses {
		courses[i].BatchNumber = batch
	}

	span.SetAttributes(
		attribute.Int("courses", len(courses)),
		attribute.String("batch", batch),
	)
	return courses, batch, nil
}

func findCourseTable(doc *goquery.Document) *goquery.Selection {
	if t := doc.Find("table.course_tbl").First(); t.Length() > 0 {
		return t
	}

	var found *goquery.Selection
	doc.Find("table").EachWithBreak(func(_ int, table *goquery.Selection) bool {
		if table.Find("tr").Length() <= 1 {
			return true
		}
		text := strings.ToLower(table.Text())
		for _, kw := range timetableKeywords {
			if strings.Contains(text, kw) {
				found = table
				return false
			}
		}
		return true
	})
	if found != nil {
		return found
	}

	// course tables are wide, anything with a 6+ cell row qualifies
	doc.Find("table").EachWithBreak(func(_ int, table *goquery.Selection) bool {
		if table.Find("tr").Length() <= 1 {
			return true
		}
		table.Find("tr").EachWithBreak(func(_ int, row *goquery.Selection) bool {
			if row.Find("td, th").Length() >= 6 {
				found = table
				return false
			}
			return true
		})
		return found == nil
	})
	return found
}

func extractCoursesFromTable(table *goquery.Selection) []TimetableCourse {
	var courses []TimetableCourse

	table.Find("tr").Each(func(i int, row *goquery.Selection) {
		cells := row.Find("td, th")
		if cells.Length() < 3 {
			return
		}

		var cellTexts []string
		cells.Each(func(_ int, cell *goquery.Selection) {
			cellTexts = append(cellTexts, cellText(cell))
		})

		title, slot := "", ""

		// fixed layout: title third, slot ninth
		if len(cellTexts) >= 9 {
			title = cellTexts[2]
			slot = cellTexts[8]
		}

		// sniff cells by shape when the fixed positions miss
		if title == "" || slot == "" {
			for _, text := range cellTexts {
				if title == "" && len(text) > 10 && !isDigits(text) && !slotCodeRegex.MatchString(text) {
					title = text
				} else if slot == "" && slotCodeRegex.MatchString(text) && len(text) <= 5 {
					slot = text
				}
			}
		}

		// loosest pass over the row's combined text
		if title == "" || slot == "" {
			if title == "" {
				for _, text := range cellTexts {
					if len(text) > 15 && strings.Contains(text, " ") && !isDigits(text) {
						title = text
						break
					}
				}
			}
			if slot == "" {
				joined := strings.Join(cellTexts, " ")
				if m := looseSlotRegex.FindStringSubmatch(joined); m != nil {
					slot = m[1]
				}
			}
		}

		if title == "" || slot == "" || len(title) <= 3 {
			return
		}

		courses = append(courses, TimetableCourse{
			RowNumber:   i,
			CourseTitle: title,
			Slot:        slot,
			AllCells:    cellTexts,
		})
	})

	return courses
}

// ExpandSlotMapping turns scraped course rows into a slot code to
// course title lookup, expanding lab ranges like "P3-P4-" into their
// individual period codes.
func ExpandSlotMapping(courses []TimetableCourse) map[string]string {
	mapping := map[string]string{}

	for _, course := range courses {
		slot := strings.TrimSpace(course.Slot)
		title := strings.TrimSpace(course.CourseTitle)

		if strings.HasPrefix(slot, "P") && strings.Contains(slot, "-") {
			slot = strings.TrimSuffix(slot, "-")
			parts := strings.Split(slot, "-")
			if len(parts) == 2 {
				start := slotRangeNumRegex.FindString(parts[0])
				end := slotRangeNumRegex.FindString(parts[1])
				if start != "" && end != "" {
					for n := atoiDigits(start); n <= atoiDigits(end); n++ {
						mapping[fmt.Sprintf("P%d", n)] = title
					}
					continue
				}
			}
			mapping[slot] = title
			continue
		}

		mapping[slot] = title
	}

	return mapping
}

// SlotType classifies a period code: P/L prefixed codes are lab
// periods, single letters A through G are theory.
func SlotType(slotCode string) string {
	if strings.HasPrefix(slotCode, "P") || strings.HasPrefix(slotCode, "L") {
		return "Lab"
	}
	switch slotCode {
	case "A", "B", "C", "D", "E", "F", "G":
		return "Theory"
	}
	return "Other"
}

// MapSlotToCourse resolves a period template code against the slot
// mapping, stripping the alternate-week suffix first. Unmapped slots
// are free periods and resolve to "".
func MapSlotToCourse(slotCode string, mapping map[string]string) string {
	slotCode = strings.TrimSpace(slotCode)
	if slotCode == "" {
		return ""
	}

	if strings.Contains(slotCode, "/X") {
		base := strings.TrimSpace(strings.ReplaceAll(slotCode, "/X", ""))
		return mapping[base]
	}

	return mapping[slotCode]
}

// EmptyTimetable is what a student with no timetable assignment gets
// back, the frontend keys off the batch name.
func EmptyTimetable(batch string) Timetable {
	return Timetable{
		Metadata: TimetableMetadata{
			GeneratedAt:  timezone.Now().Format(time.RFC3339),
			Source:       "SRM Academia Portal",
			AcademicYear: academicYear,
			Format:       "Day Order (DO) Timetable",
			BatchNumber:  batch,
			BatchName:    "No Timetable Available",
		},
		TimeSlots:   []string{},
		SlotMapping: map[string]string{},
		Timetable:   map[string]DayOrder{},
	}
}

// BuildDayOrderTimetable projects the slot mapping onto the batch's
// period template. Unknown batch numbers fall back to Batch 2, which
// is what most sections run on.
func BuildDayOrderTimetable(mapping map[string]string, batch string) Timetable {
	now := timezone.Now()

	periods := batch2Periods
	batchName := "Batch 2 (Default)"
	switch batch {
	case "1":
		periods = batch1Periods
		batchName = "Batch 1"
	case "2":
		batchName = "Batch 2"
	}

	days := map[string]DayOrder{}
	for dayIdx, dayPeriods := range periods {
		day := DayOrder{
			DayNumber: dayIdx + 1,
			TimeSlots: map[string]SlotDetail{},
		}
		for slotIdx, period := range dayPeriods {
			if slotIdx >= len(TimeSlots) {
				break
			}
			day.TimeSlots[TimeSlots[slotIdx]] = SlotDetail{
				SlotCode:    period,
				CourseTitle: MapSlotToCourse(period, mapping),
				SlotType:    SlotType(period),
				IsAlternate: strings.Contains(period, "/X"),
			}
		}
		days[fmt.Sprintf("DO %d", dayIdx+1)] = day
	}

	return Timetable{
		Metadata: TimetableMetadata{
			GeneratedAt:  now.Format(time.RFC3339),
			Source:       "SRM Academia Portal",
			AcademicYear: academicYear,
			Format:       "Day Order (DO) Timetable",
			BatchNumber:  batch,
			BatchName:    batchName,
		},
		TimeSlots:   TimeSlots,
		SlotMapping: mapping,
		Timetable:   days,
	}
}
