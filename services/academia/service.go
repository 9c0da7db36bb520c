package academia

import (
	"context"
	"fmt"
	"log/slog"

	"sdash-backend/lib/browser"
	"sdash-backend/lib/contentcache"
	"sdash-backend/lib/sessionstore"
	"sdash-backend/lib/timezone"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("sdash.services.academia")

var ErrLoginFailed = fmt.Errorf("Invalid credentials")
var ErrReauthenticate = fmt.Errorf("Session expired. Please re-authenticate with your password.")

// BrowserSession is the slice of browser.Session the service drives.
// An interface so tests can swap in a canned portal.
type BrowserSession interface {
	Login(ctx context.Context, username, password string) error
	FetchPage(ctx context.Context, area browser.ContentArea, trust browser.TrustLevel) (string, error)
	ProbeSession(ctx context.Context) bool
	Close()
}

type Options struct {
	BaseUrl     string
	Headless    bool
	ProfileRoot string
	DumpDir     string
}

// Service orchestrates one browser session per request across the
// four content areas, backed by the session marker store and the
// content cache.
type Service struct {
	store sessionstore.Store
	cache contentcache.Cache
	opts  Options

	newSession func(ctx context.Context, identity string) (BrowserSession, error)
}

func NewService(store sessionstore.Store, cache contentcache.Cache, opts Options) Service {
	s := Service{store: store, cache: cache, opts: opts}
	s.newSession = func(ctx context.Context, identity string) (BrowserSession, error) {
		return browser.NewSession(ctx, browser.Options{
			BaseUrl:     opts.BaseUrl,
			Identity:    identity,
			Headless:    opts.Headless,
			ProfileRoot: opts.ProfileRoot,
			DumpDir:     opts.DumpDir,
		})
	}
	return s
}

// resolveSession opens a browser for `email` and decides how it will
// authenticate: reuse of a stored session, a fresh login, or neither.
// On error the browser is already closed.
func (s Service) resolveSession(ctx context.Context, email, password string) (BrowserSession, browser.TrustLevel, error) {
	ctx, span := tracer.Start(ctx, "resolveSession")
	defer span.End()
	span.SetAttributes(attribute.String("email", email))

	sess, err := s.newSession(ctx, email)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to start browser")
		return nil, browser.TrustUnverified, err
	}

	if s.store.IsValid(ctx, email, sess) {
		slog.InfoContext(ctx, "reusing stored session", "email", email)
		return sess, browser.TrustUnverified, nil
	}

	if password == "" {
		sess.Close()
		return nil, browser.TrustUnverified, ErrReauthenticate
	}

	err = sess.Login(ctx, email, password)
	if err != nil {
		sess.Close()
		span.RecordError(err)
		span.SetStatus(codes.Error, "login rejected")
		return nil, browser.TrustUnverified, ErrLoginFailed
	}

	err = s.store.Save(ctx, email)
	if err != nil {
		// the scrape can still proceed, the next request just logs
		// in again
		slog.WarnContext(ctx, "failed to save session marker", "email", email, "err", err)
	}

	return sess, browser.TrustJustAuthenticated, nil
}

// ValidateCredentials performs a full login and, on success, records
// a session marker so subsequent requests can skip the password.
func (s Service) ValidateCredentials(ctx context.Context, email, password string) Result {
	ctx, span := tracer.Start(ctx, "ValidateCredentials")
	defer span.End()
	span.SetAttributes(attribute.String("email", email))

	sess, err := s.newSession(ctx, email)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to start browser")
		return Result{Success: false, Error: fmt.Sprintf("Validation error: %s", err)}
	}
	defer sess.Close()

	err = sess.Login(ctx, email, password)
	if err != nil {
		span.SetStatus(codes.Error, "login rejected")
		return Result{Success: false, Error: "Invalid credentials"}
	}

	err = s.store.Save(ctx, email)
	if err != nil {
		slog.WarnContext(ctx, "failed to save session marker", "email", email, "err", err)
	}

	return Result{
		Success:        true,
		Message:        "Credentials validated successfully",
		Email:          email,
		SessionCreated: true,
	}
}

// GetAllData fetches every content area over a single browser
// session. A password is optional when a stored session is still
// alive.
func (s Service) GetAllData(ctx context.Context, email, password string, forceRefresh bool) Result {
	ctx, span := tracer.Start(ctx, "GetAllData")
	defer span.End()

	sess, trust, err := s.resolveSession(ctx, email, password)
	if err != nil {
		return sessionFailure(err)
	}
	defer sess.Close()

	results := map[string]Result{}
	results["calendar"] = s.fetchCalendar(ctx, sess, trust, email, forceRefresh)
	attendance, marks := s.fetchAttendanceAndMarks(ctx, sess, trust)
	results["attendance"] = attendance
	results["marks"] = marks
	results["timetable"] = s.fetchTimetable(ctx, sess, trust, email, forceRefresh)

	return s.compositeResult(ctx, results, Metadata{
		Source:       "SRM Academia Portal - Unified Data",
		Email:        email,
		ForceRefresh: forceRefresh,
	}, "All data types failed. Success rate: %s")
}

// GetStaticData fetches the cacheable areas, calendar and timetable.
func (s Service) GetStaticData(ctx context.Context, email, password string, forceRefresh bool) Result {
	ctx, span := tracer.Start(ctx, "GetStaticData")
	defer span.End()

	sess, trust, err := s.resolveSession(ctx, email, password)
	if err != nil {
		return sessionFailure(err)
	}
	defer sess.Close()

	results := map[string]Result{}
	results["calendar"] = s.fetchCalendar(ctx, sess, trust, email, forceRefresh)
	results["timetable"] = s.fetchTimetable(ctx, sess, trust, email, forceRefresh)

	return s.compositeResult(ctx, results, Metadata{
		Type:         "static_data",
		Source:       "SRM Academia Portal - Static Data (Calendar + Timetable)",
		Email:        email,
		ForceRefresh: forceRefresh,
	}, "All static data types failed. Success rate: %s")
}

// GetDynamicData fetches attendance and marks, which share a portal
// page and are never cached.
func (s Service) GetDynamicData(ctx context.Context, email, password string) Result {
	ctx, span := tracer.Start(ctx, "GetDynamicData")
	defer span.End()

	sess, trust, err := s.resolveSession(ctx, email, password)
	if err != nil {
		return sessionFailure(err)
	}
	defer sess.Close()

	results := map[string]Result{}
	attendance, marks := s.fetchAttendanceAndMarks(ctx, sess, trust)
	results["attendance"] = attendance
	results["marks"] = marks

	return s.compositeResult(ctx, results, Metadata{
		Type:   "dynamic_data",
		Source: "SRM Academia Portal - Dynamic Data (Attendance + Marks)",
		Email:  email,
	}, "All dynamic data types failed. Success rate: %s")
}

func (s Service) GetCalendar(ctx context.Context, email, password string, forceRefresh bool) Result {
	ctx, span := tracer.Start(ctx, "GetCalendar")
	defer span.End()

	sess, trust, err := s.resolveSession(ctx, email, password)
	if err != nil {
		return singleAreaFailure(err)
	}
	defer sess.Close()

	return s.fetchCalendar(ctx, sess, trust, email, forceRefresh)
}

func (s Service) GetTimetable(ctx context.Context, email, password string, forceRefresh bool) Result {
	ctx, span := tracer.Start(ctx, "GetTimetable")
	defer span.End()

	sess, trust, err := s.resolveSession(ctx, email, password)
	if err != nil {
		return singleAreaFailure(err)
	}
	defer sess.Close()

	return s.fetchTimetable(ctx, sess, trust, email, forceRefresh)
}

func (s Service) GetAttendance(ctx context.Context, email, password string) Result {
	ctx, span := tracer.Start(ctx, "GetAttendance")
	defer span.End()

	sess, trust, err := s.resolveSession(ctx, email, password)
	if err != nil {
		return singleAreaFailure(err)
	}
	defer sess.Close()

	attendance, _ := s.fetchAttendanceAndMarks(ctx, sess, trust)
	return attendance
}

func (s Service) GetMarks(ctx context.Context, email, password string) Result {
	ctx, span := tracer.Start(ctx, "GetMarks")
	defer span.End()

	sess, trust, err := s.resolveSession(ctx, email, password)
	if err != nil {
		return singleAreaFailure(err)
	}
	defer sess.Close()

	_, marks := s.fetchAttendanceAndMarks(ctx, sess, trust)
	return marks
}

func (s Service) compositeResult(ctx context.Context, results map[string]Result, meta Metadata, failureFormat string) Result {
	successful := 0
	for _, r := range results {
		if r.Success {
			successful++
		}
	}
	total := len(results)
	successRate := fmt.Sprintf("%.1f%%", float64(successful)/float64(total)*100)

	meta.GeneratedAt = timezone.Now().Format("2006-01-02T15:04:05")
	meta.TotalDataTypes = total
	meta.SuccessfulDataTypes = successful
	meta.SuccessRate = successRate

	slog.InfoContext(ctx, "composite scrape finished",
		"email", meta.Email,
		"successful", successful,
		"total", total,
	)

	out := Result{
		Success:  successful > 0,
		Data:     results,
		Metadata: &meta,
	}
	if successful == 0 {
		out.Error = fmt.Sprintf(failureFormat, successRate)
	}
	return out
}

// sessionFailure maps resolveSession errors to the composite error
// contract: login_failed and session_expired are distinct signals.
func sessionFailure(err error) Result {
	switch err {
	case ErrLoginFailed:
		return Result{Success: false, Error: "login_failed", Message: "Invalid credentials"}
	case ErrReauthenticate:
		return Result{Success: false, Error: "session_expired", Message: ErrReauthenticate.Error()}
	}
	return Result{Success: false, Error: err.Error()}
}

func singleAreaFailure(err error) Result {
	if err == ErrLoginFailed {
		return Result{Success: false, Error: "Login failed"}
	}
	return Result{Success: false, Error: err.Error()}
}

// Do dispatches one inbound request. Credential requirements differ
// per action: composite actions can ride a stored session, single
// area actions and validation always need the password.
func (s Service) Do(ctx context.Context, req Request) Result {
	ctx, span := tracer.Start(ctx, "Do")
	defer span.End()
	span.SetAttributes(
		attribute.String("action", req.Action),
		attribute.String("email", req.Email),
	)

	switch req.Action {
	case "validate_credentials":
		if req.Email == "" || req.Password == "" {
			return Result{Success: false, Error: "Email and password required"}
		}
		return s.ValidateCredentials(ctx, req.Email, req.Password)

	case "get_all_data":
		if req.Email == "" {
			return Result{Success: false, Error: "Email is required"}
		}
		return s.GetAllData(ctx, req.Email, req.Password, req.ForceRefresh)

	case "get_static_data":
		if req.Email == "" {
			return Result{Success: false, Error: "Email is required"}
		}
		return s.GetStaticData(ctx, req.Email, req.Password, req.ForceRefresh)

	case "get_dynamic_data":
		if req.Email == "" {
			return Result{Success: false, Error: "Email is required"}
		}
		return s.GetDynamicData(ctx, req.Email, req.Password)

	case "get_calendar_data":
		if req.Email == "" || req.Password == "" {
			return Result{Success: false, Error: "Email and password required"}
		}
		return s.GetCalendar(ctx, req.Email, req.Password, req.ForceRefresh)

	case "get_timetable_data":
		if req.Email == "" || req.Password == "" {
			return Result{Success: false, Error: "Email and password required"}
		}
		return s.GetTimetable(ctx, req.Email, req.Password, req.ForceRefresh)

	case "get_attendance_data":
		if req.Email == "" || req.Password == "" {
			return Result{Success: false, Error: "Email and password required"}
		}
		return s.GetAttendance(ctx, req.Email, req.Password)

	case "get_marks_data":
		if req.Email == "" || req.Password == "" {
			return Result{Success: false, Error: "Email and password required"}
		}
		return s.GetMarks(ctx, req.Email, req.Password)
	}

	return Result{Success: false, Error: fmt.Sprintf("Unknown action: %s", req.Action)}
}
