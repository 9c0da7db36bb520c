package academia

import (
	"context"
	"testing"

	"sdash-backend/lib/telemetry"

	"github.com/stretchr/testify/require"
)

const calendarFixture = `
<html><body>
<table><tr><td>Some unrelated widget</td></tr></table>
<table>
	<tr>
		<th>Jul '25</th><th></th><th></th><th></th><th></th>
		<th>Aug '25</th><th></th><th></th><th></th><th></th>
	</tr>
	<tr>
		<td>1</td><td>Tue</td><td>Commencement of Classes</td><td>1</td><td></td>
		<td>1</td><td>Fri</td><td></td><td>4</td><td></td>
	</tr>
	<tr>
		<td>2</td><td>Wed</td><td></td><td>2</td><td></td>
		<td>2</td><td>Sat</td><td>Holiday</td><td>-</td><td></td>
	</tr>
	<tr>
		<td>32</td><td>???</td><td>bogus day</td><td>1</td><td></td>
		<td></td><td></td><td></td><td></td><td></td>
	</tr>
</table>
</body></html>`

func TestExtractCalendar(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:academia")
	defer cleanup()

	entries, err := ExtractCalendar(context.Background(), calendarFixture)
	require.NoError(t, err)
	require.Len(t, entries, 4)

	first := entries[0]
	require.Equal(t, "01/07/2025", first.Date)
	require.Equal(t, "Tue", first.DayName)
	require.Equal(t, "Commencement of Classes", first.Content)
	require.Equal(t, "DO 1", first.DayOrder)
	require.Equal(t, 7, first.Month)
	require.Equal(t, "Jul", first.MonthName)
	require.Equal(t, 2025, first.Year)

	second := entries[1]
	require.Equal(t, "01/08/2025", second.Date)
	require.Equal(t, "Fri", second.DayName)
	require.Equal(t, "DO 4", second.DayOrder)

	// holidays carry "-" instead of a day order
	require.Equal(t, "02/08/2025", entries[3].Date)
	require.Equal(t, "-", entries[3].DayOrder)
}

func TestExtractCalendarIdempotent(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:academia")
	defer cleanup()

	first, err := ExtractCalendar(context.Background(), calendarFixture)
	require.NoError(t, err)
	second, err := ExtractCalendar(context.Background(), calendarFixture)
	require.NoError(t, err)
	require.Equal(t, first, second)
}

func TestExtractCalendarNoTable(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:academia")
	defer cleanup()

	_, err := ExtractCalendar(context.Background(), `<html><body><p>nothing here</p></body></html>`)
	require.Error(t, err)
}

func TestFormatDayOrder(t *testing.T) {
	require.Equal(t, "DO 3", formatDayOrder("3"))
	require.Equal(t, "-", formatDayOrder("6"))
	require.Equal(t, "-", formatDayOrder("-"))
	require.Equal(t, "-", formatDayOrder(""))
	require.Equal(t, "-", formatDayOrder("holiday"))
}
