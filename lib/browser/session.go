package browser

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"sdash-backend/lib/pagedump"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/chromedp"
	"github.com/mazen160/go-random"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("sdash.lib.browser")

var LoginFailed = fmt.Errorf("Login failed. Please check your credentials.")
var SessionExpired = fmt.Errorf("Session expired. Please re-authenticate with your password.")

// TrustLevel says how much the caller already knows about the chrome
// profile behind a session.
type TrustLevel int

const (
	// TrustUnverified means nothing is known about the profile's
	// cookies, so a login page in a fetched document means the
	// stored session died.
	TrustUnverified TrustLevel = iota
	// TrustJustAuthenticated means Login succeeded on this very
	// session, so a login page showing up afterwards is a hard
	// login failure rather than expiry.
	TrustJustAuthenticated
)

// ContentArea identifies one scrapeable page of the portal.
// Attendance and marks live on the same page.
type ContentArea string

const (
	AreaCalendar   ContentArea = "calendar"
	AreaAttendance ContentArea = "attendance"
	AreaMarks      ContentArea = "marks"
	AreaTimetable  ContentArea = "timetable"
)

func (a ContentArea) pagePath() string {
	switch a {
	case AreaCalendar:
		return "/#Page:Academic_Planner_2025_26_ODD"
	case AreaAttendance, AreaMarks:
		return "/#Page:My_Attendance"
	case AreaTimetable:
		return "/#Page:My_Time_Table_2023_24"
	}
	return "/#Page:Dashboard"
}

type Options struct {
	// portal origin, defaults to https://academia.srmist.edu.in
	BaseUrl string
	// normalized login the chrome profile belongs to
	Identity string
	Headless bool
	// directory per-run chrome profiles are created under,
	// defaults to "chrome_sessions"
	ProfileRoot string
	// when set, every fetched page's HTML is dumped here for
	// extractor debugging
	DumpDir string
}

// Session drives one headless chrome instance against the portal.
// Not safe for concurrent use, the underlying tab is shared state.
type Session struct {
	opts        Options
	profileDir  string
	browser     context.Context
	cancel      context.CancelFunc
	allocCancel context.CancelFunc
	dump        pagedump.Output
}

func NewSession(ctx context.Context, opts Options) (*Session, error) {
	ctx, span := tracer.Start(ctx, "NewSession")
	defer span.End()

	if opts.BaseUrl == "" {
		opts.BaseUrl = "https://academia.srmist.edu.in"
	}
	if opts.ProfileRoot == "" {
		opts.ProfileRoot = "chrome_sessions"
	}

	// the random suffix keeps concurrent runs for the same identity
	// from fighting over chrome's profile lock
	suffix, err := random.String(8)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to generate profile suffix")
		return nil, err
	}
	hash := md5.Sum([]byte(opts.Identity))
	profileDir := filepath.Join(
		opts.ProfileRoot,
		fmt.Sprintf("%s_%s", hex.EncodeToString(hash[:])[:16], suffix),
	)
	err = os.MkdirAll(profileDir, 0o755)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to create profile directory")
		return nil, err
	}

	allocOpts := append(
		chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", opts.Headless),
		chromedp.UserDataDir(profileDir),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.NoSandbox,
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("blink-settings", "imagesEnabled=false"),
		chromedp.DisableGPU,
	)
	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, allocOpts...)
	browser, cancel := chromedp.NewContext(allocCtx)

	// spawn chrome eagerly so a broken install fails here instead of
	// halfway through a login
	err = chromedp.Run(browser)
	if err != nil {
		cancel()
		allocCancel()
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to start chrome")
		return nil, err
	}

	var dump pagedump.Output
	if opts.DumpDir != "" {
		dump, err = pagedump.New(opts.DumpDir)
		if err != nil {
			slog.WarnContext(ctx, "failed to create page dump directory", "dir", opts.DumpDir, "err", err)
		}
	}

	slog.InfoContext(ctx, "started chrome", "profile", profileDir, "headless", opts.Headless)

	return &Session{
		opts:        opts,
		profileDir:  profileDir,
		browser:     browser,
		cancel:      cancel,
		allocCancel: allocCancel,
		dump:        dump,
	}, nil
}

var loginFrameSelectors = []string{
	`iframe#signinFrame`,
	`iframe[name="signinFrame"]`,
	`iframe`,
}

func (s *Session) findLoginFrame(ctx context.Context) (*cdp.Node, error) {
	for _, sel := range loginFrameSelectors {
		attempt, cancel := context.WithTimeout(ctx, time.Second*5)
		var nodes []*cdp.Node
		err := chromedp.Run(attempt, chromedp.Nodes(sel, &nodes, chromedp.ByQuery))
		cancel()
		if err != nil || len(nodes) == 0 {
			slog.DebugContext(ctx, "login iframe selector missed", "selector", sel)
			continue
		}
		return nodes[0], nil
	}
	return nil, fmt.Errorf("could not find login iframe")
}

// Login performs the portal's two-step iframe login. The username
// goes in first, "Next" reveals the password field in place, then
// the same button submits.
func (s *Session) Login(ctx context.Context, username, password string) error {
	ctx, span := tracer.Start(ctx, "Login")
	defer span.End()
	span.SetAttributes(attribute.String("username", username))

	timed, cancel := context.WithTimeout(s.browser, time.Second*60)
	defer cancel()

	err := chromedp.Run(timed,
		chromedp.Navigate(s.opts.BaseUrl+"/"),
		chromedp.Sleep(time.Second),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to load portal landing page")
		return err
	}

	frame, err := s.findLoginFrame(timed)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "no login iframe")
		return LoginFailed
	}

	err = chromedp.Run(timed,
		chromedp.WaitVisible("#login_id", chromedp.ByQuery, chromedp.FromNode(frame)),
		chromedp.SendKeys("#login_id", username, chromedp.ByQuery, chromedp.FromNode(frame)),
		chromedp.Click("#nextbtn", chromedp.ByQuery, chromedp.FromNode(frame)),
		chromedp.Sleep(time.Second*2),
		chromedp.WaitVisible("#password", chromedp.ByQuery, chromedp.FromNode(frame)),
		chromedp.SendKeys("#password", password, chromedp.ByQuery, chromedp.FromNode(frame)),
		chromedp.Click("#nextbtn", chromedp.ByQuery, chromedp.FromNode(frame)),
		chromedp.Sleep(time.Second*2),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "login form interaction failed")
		return LoginFailed
	}

	if !s.confirmLogin(timed) {
		span.SetStatus(codes.Error, "portal did not accept credentials")
		return LoginFailed
	}

	slog.InfoContext(ctx, "login succeeded", "username", username)
	return nil
}

// confirmLogin polls for up to 5s until the portal lands somewhere
// that looks authenticated.
func (s *Session) confirmLogin(ctx context.Context) bool {
	deadline := time.Now().Add(time.Second * 5)
	for {
		snap, err := s.snapshot(ctx)
		if err == nil &&
			!hasLoginMarkers(snap.Title, snap.HTML) &&
			(strings.Contains(snap.Title, "Dashboard") || strings.Contains(snap.URL, "academia")) {
			return true
		}
		if time.Now().After(deadline) {
			return false
		}
		select {
		case <-ctx.Done():
			return false
		case <-time.After(time.Millisecond * 500):
		}
	}
}

// FetchPage navigates to the area's page and returns its full HTML.
// Returns SessionExpired (or LoginFailed for freshly authenticated
// sessions) when the portal bounces to the login screen instead.
func (s *Session) FetchPage(ctx context.Context, area ContentArea, trust TrustLevel) (string, error) {
	ctx, span := tracer.Start(ctx, "FetchPage")
	defer span.End()
	span.SetAttributes(
		attribute.String("area", string(area)),
		attribute.Int("trust", int(trust)),
	)

	timed, cancel := context.WithTimeout(s.browser, time.Second*45)
	defer cancel()

	err := chromedp.Run(timed,
		chromedp.Navigate(s.opts.BaseUrl+area.pagePath()),
		chromedp.Sleep(time.Millisecond*500),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "navigation failed")
		return "", err
	}

	// a bounce to the login page shows up immediately, catch it
	// before burning the readiness timeout on a page with no table
	snap, err := s.snapshot(timed)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to snapshot page")
		return "", err
	}
	if hasLoginMarkers(snap.Title, snap.HTML) {
		span.SetStatus(codes.Error, "portal bounced to login")
		return "", bounceError(trust)
	}

	// every area renders its table well after document load, the
	// planner and timetable widgets worst of all
	err = s.waitForTable(timed)
	if err != nil {
		slog.WarnContext(ctx, "content table never settled, extracting anyway", "area", string(area), "err", err)
	}
	chromedp.Run(timed, chromedp.Sleep(area.settleDelay()))

	snap, err = s.snapshot(timed)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to snapshot page")
		return "", err
	}
	s.dump.Write(string(area)+".html", snap.HTML)

	// a slow redirect can still land on the login page after the
	// readiness wait
	if hasLoginMarkers(snap.Title, snap.HTML) {
		span.SetStatus(codes.Error, "portal bounced to login")
		return "", bounceError(trust)
	}

	return snap.HTML, nil
}

// bounceError maps a login-page bounce to the right sentinel: a
// freshly authenticated session being bounced means the credentials
// were bad, anything else means the stored session died.
func bounceError(trust TrustLevel) error {
	if trust == TrustJustAuthenticated {
		return LoginFailed
	}
	return SessionExpired
}

// settleDelay is the extra pause after an area's table first
// appears. The planner and timetable widgets keep reflowing rows for
// a while after the first one renders.
func (a ContentArea) settleDelay() time.Duration {
	switch a {
	case AreaCalendar, AreaTimetable:
		return time.Second * 2
	}
	return time.Second
}

func (s *Session) waitForTable(ctx context.Context) error {
	deadline := time.Now().Add(time.Second * 15)
	for time.Now().Before(deadline) {
		var rows int
		err := chromedp.Run(ctx, chromedp.Evaluate(
			`document.querySelectorAll("table tr").length`, &rows,
		))
		if err != nil {
			return err
		}
		if rows > 1 {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Millisecond * 500):
		}
	}
	return fmt.Errorf("timed out waiting for table rows")
}

// ProbeSession checks whether the profile's cookies still grant
// access to the dashboard. Used as the liveness half of session
// marker validation.
func (s *Session) ProbeSession(ctx context.Context) bool {
	ctx, span := tracer.Start(ctx, "ProbeSession")
	defer span.End()

	timed, cancel := context.WithTimeout(s.browser, time.Second*10)
	defer cancel()

	err := chromedp.Run(timed,
		chromedp.Navigate(s.opts.BaseUrl+"/#Page:Dashboard"),
		chromedp.Sleep(time.Second*3),
	)
	if err != nil {
		span.RecordError(err)
		return false
	}

	snap, err := s.snapshot(timed)
	if err != nil {
		span.RecordError(err)
		return false
	}
	alive := !hasLoginMarkers(snap.Title, snap.HTML)
	slog.DebugContext(ctx, "probed stored session", "alive", alive)
	return alive
}

type pageSnapshot struct {
	Title string
	URL   string
	HTML  string
}

func (s *Session) snapshot(ctx context.Context) (pageSnapshot, error) {
	var snap pageSnapshot
	err := chromedp.Run(ctx,
		chromedp.Title(&snap.Title),
		chromedp.Location(&snap.URL),
		chromedp.OuterHTML("html", &snap.HTML, chromedp.ByQuery),
	)
	return snap, err
}

// hasLoginMarkers only sniffs the head of the document, login pages
// are tiny and the marker iframe always appears early.
func hasLoginMarkers(title, html string) bool {
	if strings.Contains(title, "Login") {
		return true
	}
	head := html
	if len(head) > 5000 {
		head = head[:5000]
	}
	return strings.Contains(head, "signinFrame")
}
