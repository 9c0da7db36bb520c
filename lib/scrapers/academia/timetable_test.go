package academia

import (
	"context"
	"testing"

	"sdash-backend/lib/telemetry"

	"github.com/stretchr/testify/require"
)

const timetableFixture = `
<html><body>
<table>
	<tr><td>Batch:</td><td>1</td></tr>
</table>
<table class="course_tbl">
	<tr>
		<td>1</td><td>21CSC201J</td><td>Data Structures and Algorithms</td><td>4</td><td>C</td>
		<td>Regular</td><td>2</td><td>Dr. Kumar</td><td>A</td><td>TP101</td>
	</tr>
	<tr>
		<td>2</td><td>21CSC202J</td><td>Data Structures Laboratory</td><td>2</td><td>P</td>
		<td>Regular</td><td>2</td><td>Dr. Priya</td><td>P6-P7-</td><td>LAB2</td>
	</tr>
</table>
</body></html>`

func TestExtractTimetable(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:academia")
	defer cleanup()

	courses, batch, err := ExtractTimetable(context.Background(), timetableFixture)
	require.NoError(t, err)
	require.Equal(t, "1", batch)
	require.Len(t, courses, 2)

	require.Equal(t, "Data Structures and Algorithms", courses[0].CourseTitle)
	require.Equal(t, "A", courses[0].Slot)
	require.Equal(t, "1", courses[0].BatchNumber)

	require.Equal(t, "P6-P7-", courses[1].Slot)
}

func TestExpandSlotMapping(t *testing.T) {
	courses := []TimetableCourse{
		{CourseTitle: "Data Structures and Algorithms", Slot: "A"},
		{CourseTitle: "Data Structures Laboratory", Slot: "P6-P7-"},
	}

	mapping := ExpandSlotMapping(courses)

	require.Equal(t, "Data Structures and Algorithms", mapping["A"])
	require.Equal(t, "Data Structures Laboratory", mapping["P6"])
	require.Equal(t, "Data Structures Laboratory", mapping["P7"])
	require.NotContains(t, mapping, "P6-P7")
}

func TestSlotType(t *testing.T) {
	require.Equal(t, "Theory", SlotType("A"))
	require.Equal(t, "Theory", SlotType("G"))
	require.Equal(t, "Lab", SlotType("P12"))
	require.Equal(t, "Lab", SlotType("L3"))
	// alternate-week theory slots keep their raw code and land in Other
	require.Equal(t, "Other", SlotType("A/X"))
	require.Equal(t, "Other", SlotType("X"))
}

func TestMapSlotToCourse(t *testing.T) {
	mapping := map[string]string{
		"A":  "Data Structures and Algorithms",
		"P6": "Data Structures Laboratory",
	}

	require.Equal(t, "Data Structures and Algorithms", MapSlotToCourse("A", mapping))
	require.Equal(t, "Data Structures and Algorithms", MapSlotToCourse("A/X", mapping))
	require.Equal(t, "Data Structures Laboratory", MapSlotToCourse("P6", mapping))
	require.Equal(t, "", MapSlotToCourse("B", mapping))
	require.Equal(t, "", MapSlotToCourse("", mapping))
}

func TestBuildDayOrderTimetable(t *testing.T) {
	mapping := map[string]string{
		"A":  "Data Structures and Algorithms",
		"P6": "Data Structures Laboratory",
	}

	tt := BuildDayOrderTimetable(mapping, "1")

	require.Equal(t, "Batch 1", tt.Metadata.BatchName)
	require.Len(t, tt.Timetable, 5)
	require.Len(t, tt.TimeSlots, 10)

	do1 := tt.Timetable["DO 1"]
	require.Equal(t, 1, do1.DayNumber)
	require.Len(t, do1.TimeSlots, 10)

	// batch 1 DO 1 opens with theory slot A
	first := do1.TimeSlots["08:00-08:50"]
	require.Equal(t, "A", first.SlotCode)
	require.Equal(t, "Data Structures and Algorithms", first.CourseTitle)
	require.Equal(t, "Theory", first.SlotType)
	require.False(t, first.IsAlternate)

	// second period is the alternate-week A slot
	second := do1.TimeSlots["08:50-09:40"]
	require.Equal(t, "A/X", second.SlotCode)
	require.Equal(t, "Data Structures and Algorithms", second.CourseTitle)
	require.True(t, second.IsAlternate)

	// P6 lab lands in the sixth period of batch 1 DO 1
	lab := do1.TimeSlots["12:30-01:20"]
	require.Equal(t, "P6", lab.SlotCode)
	require.Equal(t, "Data Structures Laboratory", lab.CourseTitle)
	require.Equal(t, "Lab", lab.SlotType)
}

func TestBuildDayOrderTimetableDefaultsToBatch2(t *testing.T) {
	tt := BuildDayOrderTimetable(map[string]string{}, "")

	require.Equal(t, "Batch 2 (Default)", tt.Metadata.BatchName)
	// batch 2 DO 1 opens with lab period P1
	require.Equal(t, "P1", tt.Timetable["DO 1"].TimeSlots["08:00-08:50"].SlotCode)
}

func TestExtractBatchNumberMissing(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:academia")
	defer cleanup()

	batch := ExtractBatchNumber(context.Background(), `<html><body><table><tr><td>no info</td></tr></table></body></html>`)
	require.Equal(t, "", batch)
}
