package academia

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"sdash-backend/lib/timezone"

	"github.com/PuerkitoBio/goquery"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var attendanceKeywords = []string{
	"attendance", "hours conducted", "absent", "theory", "lab", "subject", "course",
}

var semesterRegex = regexp.MustCompile(`semester\s*:?\s*(\d)`)
var singleDigitRegex = regexp.MustCompile(`(\d)`)

// ExtractAttendance pulls per-course attendance rows out of the
// attendance page. An access-denied page yields zero entries rather
// than an error, the portal serves it with a 200 like everything
// else.
func ExtractAttendance(ctx context.Context, html string) ([]AttendanceEntry, error) {
	ctx, span := tracer.Start(ctx, "ExtractAttendance")
	defer span.End()

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to parse attendance html")
		return nil, err
	}

	if AccessDenied(doc) {
		span.SetStatus(codes.Error, "access denied to attendance page")
		return nil, nil
	}

	table := tableWithKeywords(doc, attendanceKeywords)
	if table == nil {
		table = tableInKeywordDiv(doc, attendanceKeywords[:5])
	}
	if table == nil {
		table = tableWithMinRows(doc, 1)
	}
	if table == nil {
		span.SetStatus(codes.Error, "no attendance table found")
		return nil, nil
	}

	var entries []AttendanceEntry

	table.Find("tr").Each(func(i int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() < 9 {
			return
		}
		if len(strings.TrimSpace(row.Text())) < 10 {
			return
		}

		courseTitle := cellText(cells.Eq(1))
		if courseTitle == "" || courseTitle == "Course Title" {
			return
		}

		conducted := cellText(cells.Eq(6))
		absent := cellText(cells.Eq(7))

		entries = append(entries, AttendanceEntry{
			RowNumber:            i,
			SubjectCode:          cellText(cells.Eq(0)),
			CourseTitle:          courseTitle,
			Category:             cellText(cells.Eq(2)),
			FacultyName:          cellText(cells.Eq(3)),
			Slot:                 cellText(cells.Eq(4)),
			Room:                 cellText(cells.Eq(5)),
			HoursConducted:       conducted,
			HoursAbsent:          absent,
			Attendance:           cellText(cells.Eq(8)),
			AttendancePercentage: AttendancePercentage(conducted, absent),
		})
	})

	span.SetAttributes(attribute.Int("entries", len(entries)))
	return entries, nil
}

// AttendancePercentage recomputes attendance from the raw hour cells
// instead of trusting the portal's own column. Non-numeric input is
// reported as "N/A", zero conducted hours as "0%".
func AttendancePercentage(conducted, absent string) string {
	c, err := strconv.Atoi(strings.TrimSpace(conducted))
	if err != nil {
		return "N/A"
	}
	a, err := strconv.Atoi(strings.TrimSpace(absent))
	if err != nil {
		return "N/A"
	}

	if c == 0 {
		return "0%"
	}
	return fmt.Sprintf("%.1f%%", float64(c-a)/float64(c)*100)
}

// ExtractSemester digs the semester number out of the student info
// block on the attendance page. The label and its value sit in
// adjacent cells of the second table, with two progressively looser
// fallbacks after that. Defaults to 1 when nothing matches.
func ExtractSemester(ctx context.Context, html string) int {
	ctx, span := tracer.Start(ctx, "ExtractSemester")
	defer span.End()

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		span.RecordError(err)
		return 1
	}

	tables := doc.Find("table")

	if tables.Length() >= 2 {
		second := tables.Eq(1)

		found := 0
		second.Find("tr").EachWithBreak(func(_ int, row *goquery.Selection) bool {
			cells := row.Find("td, th")
			cells.EachWithBreak(func(j int, cell *goquery.Selection) bool {
				text := cellText(cell)
				if !strings.Contains(strings.ToLower(text), "semester") || !strings.Contains(text, ":") {
					return true
				}
				if j+1 >= cells.Length() {
					return true
				}
				m := singleDigitRegex.FindStringSubmatch(cellText(cells.Eq(j + 1)))
				if m == nil {
					return true
				}
				n, _ := strconv.Atoi(m[1])
				if n < 1 || n > 8 {
					return true
				}
				found = n
				return false
			})
			return found == 0
		})
		if found != 0 {
			span.SetAttributes(attribute.Int("semester", found))
			return found
		}

		if n := semesterFromText(second.Text()); n != 0 {
			span.SetAttributes(attribute.Int("semester", n))
			return n
		}
	}

	result := 1
	tables.EachWithBreak(func(_ int, table *goquery.Selection) bool {
		if n := semesterFromText(table.Text()); n != 0 {
			result = n
			return false
		}
		return true
	})

	span.SetAttributes(attribute.Int("semester", result))
	return result
}

func semesterFromText(text string) int {
	m := semesterRegex.FindStringSubmatch(strings.ToLower(text))
	if m == nil {
		return 0
	}
	n, _ := strconv.Atoi(m[1])
	if n < 1 || n > 8 {
		return 0
	}
	return n
}

// BuildAttendanceReport wraps raw entries with the summary and
// category grouping the frontend renders directly.
func BuildAttendanceReport(entries []AttendanceEntry, semester int) AttendanceReport {
	now := timezone.Now()

	summary := AttendanceSummary{
		TotalSubjects: len(entries),
	}
	groups := AttendanceGroups{
		Theory: []AttendanceEntry{},
		Lab:    []AttendanceEntry{},
		Other:  []AttendanceEntry{},
	}

	for _, e := range entries {
		summary.TotalHoursConducted += atoiDigits(e.HoursConducted)
		summary.TotalHoursAbsent += atoiDigits(e.HoursAbsent)

		switch strings.ToLower(e.Category) {
		case "theory":
			groups.Theory = append(groups.Theory, e)
		case "lab":
			groups.Lab = append(groups.Lab, e)
		default:
			groups.Other = append(groups.Other, e)
		}
	}
	summary.TheorySubjects = len(groups.Theory)
	summary.LabSubjects = len(groups.Lab)
	summary.OtherSubjects = len(groups.Other)
	summary.OverallAttendancePercentage = AttendancePercentage(
		strconv.Itoa(summary.TotalHoursConducted),
		strconv.Itoa(summary.TotalHoursAbsent),
	)

	if entries == nil {
		entries = []AttendanceEntry{}
	}

	return AttendanceReport{
		Metadata: AttendanceMetadata{
			GeneratedAt:  now.Format(time.RFC3339),
			Source:       "SRM Academia Portal",
			AcademicYear: academicYear,
			Semester:     semester,
			Institution:  institution,
			College:      college,
			ScrapedAt:    now.Format("2006-01-02 15:04:05"),
		},
		Summary:     summary,
		Subjects:    groups,
		AllSubjects: entries,
	}
}
