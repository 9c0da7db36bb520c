package academia

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"sdash-backend/lib/browser"
	"sdash-backend/lib/contentcache"
	scrape "sdash-backend/lib/scrapers/academia"
	"sdash-backend/lib/timezone"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// fetchCalendar serves the academic planner, cache first. The cached
// payload is the marshaled entry list, so it goes back out verbatim.
func (s Service) fetchCalendar(ctx context.Context, sess BrowserSession, trust browser.TrustLevel, email string, forceRefresh bool) Result {
	ctx, span := tracer.Start(ctx, "fetchCalendar")
	defer span.End()

	if !forceRefresh {
		if r, ok := s.cachedResult(ctx, email, "calendar"); ok {
			return r
		}
	}

	html, err := sess.FetchPage(ctx, browser.AreaCalendar, trust)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "calendar page fetch failed")
		return s.fetchFailure(ctx, email, "calendar", forceRefresh, err)
	}

	entries, err := scrape.ExtractCalendar(ctx, html)
	if err != nil {
		// no recognizable planner table. an empty planner is a
		// legitimate portal state, not a failure
		slog.WarnContext(ctx, "no calendar table found", "email", email, "err", err)
		entries = nil
	}
	if len(entries) == 0 {
		return Result{Success: true, Data: []scrape.CalendarEntry{}, Type: "calendar"}
	}

	s.cacheReport(ctx, email, "calendar", entries, len(entries))

	return Result{
		Success:   true,
		Data:      entries,
		Type:      "calendar",
		Count:     len(entries),
		FreshData: true,
	}
}

// fetchAttendanceAndMarks pulls both reports out of the single
// attendance page fetch.
func (s Service) fetchAttendanceAndMarks(ctx context.Context, sess BrowserSession, trust browser.TrustLevel) (Result, Result) {
	ctx, span := tracer.Start(ctx, "fetchAttendanceAndMarks")
	defer span.End()

	html, err := sess.FetchPage(ctx, browser.AreaAttendance, trust)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "attendance page fetch failed")
		return Result{Success: false, Error: err.Error(), Type: "attendance"},
			Result{Success: false, Error: err.Error(), Type: "marks"}
	}

	semester := scrape.ExtractSemester(ctx, html)

	entries, err := scrape.ExtractAttendance(ctx, html)
	var attendance Result
	if err != nil {
		span.RecordError(err)
		attendance = Result{Success: false, Error: err.Error(), Type: "attendance"}
	} else {
		attendance = Result{
			Success:  true,
			Data:     scrape.BuildAttendanceReport(entries, semester),
			Type:     "attendance",
			Count:    len(entries),
			Semester: semester,
		}
	}

	titles := scrape.ExtractCourseTitles(ctx, html)
	marksEntries, err := scrape.ExtractMarks(ctx, html, titles)
	var marks Result
	if err != nil {
		span.RecordError(err)
		marks = Result{Success: false, Error: err.Error(), Type: "marks"}
	} else {
		marks = Result{
			Success: true,
			Data:    scrape.BuildMarksReport(marksEntries),
			Type:    "marks",
			Count:   len(marksEntries),
		}
	}

	return attendance, marks
}

// fetchTimetable serves the day-order timetable, cache first like the
// calendar: slot assignments change at most once a semester.
func (s Service) fetchTimetable(ctx context.Context, sess BrowserSession, trust browser.TrustLevel, email string, forceRefresh bool) Result {
	ctx, span := tracer.Start(ctx, "fetchTimetable")
	defer span.End()

	if !forceRefresh {
		if r, ok := s.cachedResult(ctx, email, "timetable"); ok {
			return r
		}
	}

	html, err := sess.FetchPage(ctx, browser.AreaTimetable, trust)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "timetable page fetch failed")
		return s.fetchFailure(ctx, email, "timetable", forceRefresh, err)
	}

	courses, batch, err := scrape.ExtractTimetable(ctx, html)
	if err != nil {
		span.RecordError(err)
		slog.WarnContext(ctx, "timetable extraction failed", "email", email, "err", err)
		courses = nil
	}
	if len(courses) == 0 {
		return Result{Success: true, Data: scrape.EmptyTimetable(batch), Type: "timetable"}
	}

	mapping := scrape.ExpandSlotMapping(courses)
	table := scrape.BuildDayOrderTimetable(mapping, batch)

	s.cacheReport(ctx, email, "timetable", table, len(courses))

	return Result{
		Success:   true,
		Data:      table,
		Type:      "timetable",
		Count:     len(courses),
		FreshData: true,
	}
}

// cachedResult serves a fresh cache entry when one exists.
func (s Service) cachedResult(ctx context.Context, email, area string) (Result, bool) {
	entry, err := s.cache.Get(ctx, email, area)
	if err != nil {
		if err != contentcache.ErrNotFound && err != contentcache.ErrExpired {
			slog.WarnContext(ctx, "cache lookup failed", "area", area, "err", err)
		}
		return Result{}, false
	}

	slog.InfoContext(ctx, "serving cached content", "area", area, "age", entry.Age())
	return Result{
		Success:        true,
		Data:           json.RawMessage(entry.Payload),
		Type:           area,
		Count:          entry.Count,
		Cached:         true,
		CacheTimestamp: cacheTimestamp(entry),
	}, true
}

// fetchFailure turns a page fetch error into a per-area result,
// substituting whatever cache entry exists, however stale, before
// giving up. Force-refresh requests asked for fresh data and never
// get the stale fallback.
func (s Service) fetchFailure(ctx context.Context, email, area string, forceRefresh bool, err error) Result {
	if !forceRefresh {
		entry, staleErr := s.cache.GetStale(ctx, email, area)
		if staleErr == nil {
			slog.WarnContext(ctx, "scrape failed, serving stale cache", "area", area, "err", err)
			return Result{
				Success:        true,
				Data:           json.RawMessage(entry.Payload),
				Type:           area,
				Count:          entry.Count,
				Cached:         true,
				Stale:          true,
				Fallback:       true,
				CacheTimestamp: cacheTimestamp(entry),
			}
		}
	}
	return Result{Success: false, Error: err.Error(), Type: area}
}

func (s Service) cacheReport(ctx context.Context, email, area string, report any, count int) {
	ctx, span := tracer.Start(ctx, "cacheReport")
	defer span.End()
	span.SetAttributes(attribute.String("area", area))

	payload, err := json.Marshal(report)
	if err == nil {
		err = s.cache.Set(ctx, email, area, payload, count)
	}
	if err != nil {
		span.RecordError(err)
		slog.WarnContext(ctx, "failed to cache scraped content", "area", area, "err", err)
	}
}

func cacheTimestamp(entry contentcache.Entry) string {
	return time.Unix(entry.WrittenAt, 0).In(timezone.Location).Format(time.RFC3339)
}
