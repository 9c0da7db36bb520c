package browser

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestHasLoginMarkers(t *testing.T) {
	require.True(t, hasLoginMarkers("Login - SRM", "<html></html>"))
	require.True(t, hasLoginMarkers("", `<html><iframe id="signinFrame"></iframe></html>`))
	require.False(t, hasLoginMarkers("My Attendance", "<html><table></table></html>"))

	// only the head of the document is sniffed, content pages that
	// merely mention the marker deep inside still count as logged in
	buried := strings.Repeat("x", 6000) + "signinFrame"
	require.False(t, hasLoginMarkers("Dashboard", buried))
}

func TestSettleDelay(t *testing.T) {
	// the planner renders as slowly as the timetable, both need the
	// long settle on top of the table-readiness poll
	require.Equal(t, 2*time.Second, AreaCalendar.settleDelay())
	require.Equal(t, 2*time.Second, AreaTimetable.settleDelay())
	require.Equal(t, time.Second, AreaAttendance.settleDelay())
	require.Equal(t, time.Second, AreaMarks.settleDelay())
}

func TestBounceError(t *testing.T) {
	require.ErrorIs(t, bounceError(TrustJustAuthenticated), LoginFailed)
	require.ErrorIs(t, bounceError(TrustUnverified), SessionExpired)
}

func TestPagePaths(t *testing.T) {
	require.Equal(t, "/#Page:Academic_Planner_2025_26_ODD", AreaCalendar.pagePath())
	// attendance and marks live on the same portal page
	require.Equal(t, AreaAttendance.pagePath(), AreaMarks.pagePath())
	require.Equal(t, "/#Page:My_Time_Table_2023_24", AreaTimetable.pagePath())
	require.Equal(t, "/#Page:Dashboard", ContentArea("unknown").pagePath())
}
