package academia

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"sdash-backend/lib/htmlutil"
	"sdash-backend/lib/timezone"

	"github.com/PuerkitoBio/goquery"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// Marks live on the attendance page too, in per-course rows whose
// third cell holds a nested table of assessment chips. Older layouts
// flatten the chips into plain text, so text-pattern fallbacks come
// after the structural parse.

var courseCodeRegex = regexp.MustCompile(`(\d{2}[A-Z]{3}\d{3}[A-Z])`)

var courseTitleTableKeywords = []string{
	"Course Title", "Attn %", "Hours Conducted", "Hours Absent", "Faculty Name",
}

// patterns tried in order against the assessment cell's flattened
// text, e.g. "FT-II/15.00 13.50"
var assessmentPatterns = []*regexp.Regexp{
	regexp.MustCompile(`([A-Z]+-[IVX]+)/(\d+\.?\d*)\s+(\d+\.?\d*)`),
	regexp.MustCompile(`([A-Z]+-[IVX]+)/(\d+\.?\d*)\n(\d+\.?\d*)`),
	regexp.MustCompile(`([A-Z]+-[IVX]+)/(\d+\.?\d*).*?(\d+\.?\d*)`),
}

// looser last-resort patterns that only capture name and total, the
// obtained marks get located by proximity afterwards
var fallbackPatterns = []*regexp.Regexp{
	regexp.MustCompile(`([A-Z]{2,}-[IVX]+)/(\d+\.?\d*)`),
	regexp.MustCompile(`(\w+)/(\d+\.?\d*)`),
}

var assessmentCellMarkers = []string{"FT-", "FP-", "LLJ-", "/15.00", "/10.00"}

// ExtractCourseTitles maps course codes to their full titles using
// the attendance table, which is the only place on the page that
// carries both. First occurrence wins, re-registered courses repeat
// their code with a junk title.
func ExtractCourseTitles(ctx context.Context, html string) map[string]string {
	ctx, span := tracer.Start(ctx, "ExtractCourseTitles")
	defer span.End()

	titles := map[string]string{}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		span.RecordError(err)
		return titles
	}

	var table *goquery.Selection
	doc.Find("table").EachWithBreak(func(_ int, t *goquery.Selection) bool {
		text := t.Text()
		for _, kw := range courseTitleTableKeywords {
			if strings.Contains(text, kw) {
				table = t
				return false
			}
		}
		return true
	})
	if table == nil {
		return titles
	}

	table.Find("tr").Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() < 3 {
			return
		}
		if strings.Contains(cellText(cells.Eq(0)), "Course Code") {
			return
		}

		m := courseCodeRegex.FindStringSubmatch(cellText(cells.Eq(0)))
		if m == nil {
			return
		}
		code := m[1]

		title := collapseSpaces(cellText(cells.Eq(1)))
		if title == "" {
			return
		}
		if _, exists := titles[code]; !exists {
			titles[code] = title
		}
	})

	span.SetAttributes(attribute.Int("titles", len(titles)))
	return titles
}

// ExtractMarks pulls internal assessment marks for every course row
// it can recognize. Courses whose assessment cell yields nothing are
// dropped entirely.
func ExtractMarks(ctx context.Context, html string, courseTitles map[string]string) ([]MarksEntry, error) {
	ctx, span := tracer.Start(ctx, "ExtractMarks")
	defer span.End()

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to parse marks html")
		return nil, err
	}

	if AccessDenied(doc) {
		span.SetStatus(codes.Error, "access denied to marks page")
		return nil, nil
	}

	var entries []MarksEntry

	doc.Find("table").Each(func(_ int, table *goquery.Selection) {
		table.Find("tr").Each(func(i int, row *goquery.Selection) {
			if i == 0 {
				return
			}
			cells := row.Find("td")
			if cells.Length() < 2 {
				return
			}

			assessmentsCell := findAssessmentsCell(cells)
			if assessmentsCell == nil {
				return
			}

			m := courseCodeRegex.FindStringSubmatch(cellText(cells.Eq(0)))
			if m == nil {
				return
			}
			code := m[1]

			subjectType := cellText(cells.Eq(1))
			title, ok := courseTitles[code]
			if !ok {
				title = "Unknown Course Title"
			}

			assessments := parseAssessments(assessmentsCell)
			if len(assessments) == 0 {
				return
			}

			entries = append(entries, MarksEntry{
				CourseCode:       code,
				CourseTitle:      title,
				SubjectType:      subjectType,
				Assessments:      assessments,
				TotalAssessments: len(assessments),
			})
		})
	})

	span.SetAttributes(attribute.Int("courses", len(entries)))
	return entries, nil
}

// findAssessmentsCell picks the cell holding the assessment chips.
// Standard layout puts them third, otherwise any cell carrying a
// known marker string qualifies.
func findAssessmentsCell(cells *goquery.Selection) *goquery.Selection {
	if cells.Length() >= 3 {
		return cells.Eq(2)
	}

	var found *goquery.Selection
	cells.EachWithBreak(func(_ int, cell *goquery.Selection) bool {
		text := cellText(cell)
		for _, marker := range assessmentCellMarkers {
			if strings.Contains(text, marker) {
				found = cell
				return false
			}
		}
		return true
	})
	return found
}

func parseAssessments(cell *goquery.Selection) []Assessment {
	// structural parse of the nested chip table first
	if nested := cell.Find("table").First(); nested.Length() > 0 {
		if assessments := parseNestedAssessments(nested); len(assessments) > 0 {
			return assessments
		}
	}

	text := cellText(cell)

	for _, pattern := range assessmentPatterns {
		matches := pattern.FindAllStringSubmatch(text, -1)
		if len(matches) == 0 {
			continue
		}
		var assessments []Assessment
		for _, m := range matches {
			assessments = append(assessments, newAssessment(m[1], m[2], m[3]))
		}
		return assessments
	}

	for _, pattern := range fallbackPatterns {
		matches := pattern.FindAllStringSubmatch(text, -1)
		if len(matches) == 0 {
			continue
		}
		var assessments []Assessment
		for _, m := range matches {
			name, total := m[1], m[2]
			// obtained marks follow the name/total pair somewhere in
			// the same cell
			proximity, err := regexp.Compile(
				regexp.QuoteMeta(name) + "/" + regexp.QuoteMeta(total) + `.*?(\d+\.?\d*)`,
			)
			if err != nil {
				continue
			}
			obtained := proximity.FindStringSubmatch(text)
			if obtained == nil {
				continue
			}
			assessments = append(assessments, newAssessment(name, total, obtained[1]))
		}
		if len(assessments) > 0 {
			return assessments
		}
	}

	return nil
}

// parseNestedAssessments handles the current layout: each chip is a
// <font> holding "<strong>FT-II/15.00</strong><br>13.50".
func parseNestedAssessments(nested *goquery.Selection) []Assessment {
	var assessments []Assessment

	nested.Find("td").Each(func(_ int, cell *goquery.Selection) {
		font := cell.Find("font").First()
		if font.Length() == 0 {
			return
		}
		strong := font.Find("strong").First()
		if strong.Length() == 0 {
			return
		}

		info := cellText(strong)
		name, total, ok := strings.Cut(info, "/")
		if !ok {
			return
		}

		obtained := ""
		for _, node := range font.Nodes {
			obtained = strings.TrimSpace(htmlutil.TextAfterBreak(node))
			if obtained != "" {
				break
			}
		}
		if obtained == "" {
			return
		}

		assessments = append(assessments, newAssessment(
			strings.TrimSpace(name),
			strings.TrimSpace(total),
			obtained,
		))
	})

	return assessments
}

func newAssessment(name, total, obtained string) Assessment {
	return Assessment{
		AssessmentName: name,
		TotalMarks:     format2dp(total),
		MarksObtained:  format2dp(obtained),
		Percentage:     MarksPercentage(obtained, total),
	}
}

// format2dp normalizes a numeric string to two decimals, leaving
// unparseable input untouched.
func format2dp(s string) string {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return s
	}
	return strconv.FormatFloat(f, 'f', 2, 64)
}

// MarksPercentage renders obtained/total as a two-decimal percent,
// "0.00%" when the total is zero and "N/A" when either side fails to
// parse.
func MarksPercentage(obtained, total string) string {
	o, err := strconv.ParseFloat(obtained, 64)
	if err != nil {
		return "N/A"
	}
	t, err := strconv.ParseFloat(total, 64)
	if err != nil {
		return "N/A"
	}
	if t > 0 {
		return fmt.Sprintf("%.2f%%", o/t*100)
	}
	return "0.00%"
}

// BuildMarksReport wraps course mark entries with summary counts and
// subject-type grouping.
func BuildMarksReport(entries []MarksEntry) MarksReport {
	now := timezone.Now()

	summary := MarksSummary{
		TotalCourses: len(entries),
	}
	groups := MarksGroups{
		Theory: []MarksEntry{},
		Lab:    []MarksEntry{},
		Other:  []MarksEntry{},
	}

	for _, e := range entries {
		summary.TotalAssessments += e.TotalAssessments

		switch strings.ToLower(e.SubjectType) {
		case "theory":
			groups.Theory = append(groups.Theory, e)
		case "lab":
			groups.Lab = append(groups.Lab, e)
		default:
			groups.Other = append(groups.Other, e)
		}
	}
	summary.TheoryCourses = len(groups.Theory)
	summary.LabCourses = len(groups.Lab)
	summary.OtherCourses = len(groups.Other)

	if entries == nil {
		entries = []MarksEntry{}
	}

	return MarksReport{
		Metadata: MarksMetadata{
			GeneratedAt:  now.Format(time.RFC3339),
			Source:       "SRM Academia Portal - Internal Marks",
			AcademicYear: academicYear,
			Institution:  institution,
			College:      college,
			ScrapedAt:    now.Format("2006-01-02 15:04:05"),
		},
		Summary:    summary,
		Courses:    groups,
		AllCourses: entries,
	}
}
