package academia

import (
	"context"
	"testing"

	"sdash-backend/lib/telemetry"

	"github.com/stretchr/testify/require"
)

const marksFixture = `
<html><body>
<table>
	<tr><td>Course Code</td><td>Course Type</td><td>Assessments</td></tr>
	<tr>
		<td>21CSC201J Regular</td>
		<td>Theory</td>
		<td>
			<table>
				<tr>
					<td><font color="blue"><strong>FT-II/15.00</strong><br>13.50</font></td>
					<td><font color="blue"><strong>FT-I/10.00</strong><br>9</font></td>
				</tr>
			</table>
		</td>
	</tr>
	<tr>
		<td>21CSC202J Regular</td>
		<td>Lab</td>
		<td>CLA-I/20.00 18.00</td>
	</tr>
</table>
</body></html>`

func TestExtractMarks(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:academia")
	defer cleanup()

	titles := map[string]string{
		"21CSC201J": "Data Structures and Algorithms",
	}

	entries, err := ExtractMarks(context.Background(), marksFixture, titles)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	theory := entries[0]
	require.Equal(t, "21CSC201J", theory.CourseCode)
	require.Equal(t, "Data Structures and Algorithms", theory.CourseTitle)
	require.Equal(t, "Theory", theory.SubjectType)
	require.Equal(t, 2, theory.TotalAssessments)

	require.Equal(t, "FT-II", theory.Assessments[0].AssessmentName)
	require.Equal(t, "15.00", theory.Assessments[0].TotalMarks)
	require.Equal(t, "13.50", theory.Assessments[0].MarksObtained)
	require.Equal(t, "90.00%", theory.Assessments[0].Percentage)

	// obtained marks get normalized to two decimals
	require.Equal(t, "9.00", theory.Assessments[1].MarksObtained)

	// rows without a nested table fall back to text pattern matching,
	// and unknown codes get a placeholder title
	lab := entries[1]
	require.Equal(t, "21CSC202J", lab.CourseCode)
	require.Equal(t, "Unknown Course Title", lab.CourseTitle)
	require.Equal(t, 1, lab.TotalAssessments)
	require.Equal(t, "CLA-I", lab.Assessments[0].AssessmentName)
	require.Equal(t, "18.00", lab.Assessments[0].MarksObtained)
	require.Equal(t, "90.00%", lab.Assessments[0].Percentage)
}

const sparseMarksFixture = `
<html><body>
<table>
	<tr><td>Course Code</td><td>Course Type</td><td>Assessments</td></tr>
	<tr>
		<td>18CSC205JRegular</td>
		<td>Theory</td>
		<td>FT-III/50.00 42.00</td>
	</tr>
	<tr>
		<td>21PDH201T Regular</td>
		<td>Other</td>
		<td></td>
	</tr>
</table>
</body></html>`

func TestExtractMarksSkipsCoursesWithoutAssessments(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:academia")
	defer cleanup()

	entries, err := ExtractMarks(context.Background(), sparseMarksFixture, nil)
	require.NoError(t, err)

	// the assessment-less course drops out without failing the page
	require.Len(t, entries, 1)

	// the portal sometimes glues the "Regular" suffix straight onto
	// the code
	require.Equal(t, "18CSC205J", entries[0].CourseCode)
	require.Equal(t, "FT-III", entries[0].Assessments[0].AssessmentName)
	require.Equal(t, "42.00", entries[0].Assessments[0].MarksObtained)
}

func TestExtractMarksAccessDenied(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:academia")
	defer cleanup()

	entries, err := ExtractMarks(
		context.Background(),
		`<html><body>This page is not accessible</body></html>`,
		nil,
	)
	require.NoError(t, err)
	require.Empty(t, entries)
}

const courseTitlesFixture = `
<html><body>
<table>
	<tr>
		<td>Course Code</td><td>Course Title</td><td>Category</td><td>Faculty Name</td>
		<td>Slot</td><td>Room</td><td>Hours Conducted</td><td>Hours Absent</td><td>Attn %</td>
	</tr>
	<tr>
		<td>21CSC201J Regular</td><td>Data   Structures
		and Algorithms</td><td>Theory</td><td>x</td><td>x</td><td>x</td><td>1</td><td>0</td><td>100</td>
	</tr>
	<tr>
		<td>21CSC201J Regular</td><td>Duplicate Junk Title</td><td>Theory</td><td>x</td><td>x</td><td>x</td><td>1</td><td>0</td><td>100</td>
	</tr>
</table>
</body></html>`

func TestExtractCourseTitles(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:academia")
	defer cleanup()

	titles := ExtractCourseTitles(context.Background(), courseTitlesFixture)
	require.Len(t, titles, 1)
	// whitespace collapsed, first occurrence wins
	require.Equal(t, "Data Structures and Algorithms", titles["21CSC201J"])
}

func TestMarksPercentage(t *testing.T) {
	require.Equal(t, "90.00%", MarksPercentage("13.50", "15.00"))
	require.Equal(t, "100.00%", MarksPercentage("10", "10"))
	require.Equal(t, "0.00%", MarksPercentage("0", "0"))
	require.Equal(t, "N/A", MarksPercentage("abs", "15.00"))
	require.Equal(t, "N/A", MarksPercentage("13.50", ""))
}

func TestBuildMarksReport(t *testing.T) {
	entries := []MarksEntry{
		{SubjectType: "Theory", TotalAssessments: 2},
		{SubjectType: "Lab", TotalAssessments: 1},
	}

	report := BuildMarksReport(entries)

	require.Equal(t, 2, report.Summary.TotalCourses)
	require.Equal(t, 1, report.Summary.TheoryCourses)
	require.Equal(t, 1, report.Summary.LabCourses)
	require.Equal(t, 0, report.Summary.OtherCourses)
	require.Equal(t, 3, report.Summary.TotalAssessments)
	require.Len(t, report.AllCourses, 2)
}
