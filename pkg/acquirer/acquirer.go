// Package acquirer drives a browser through a challenge page and harvests the
// user agent and cookies that let a plain HTTP client through afterwards.
package acquirer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jmylchreest/clearance/internal/logger"
	"github.com/jmylchreest/clearance/pkg/browser"
	"github.com/jmylchreest/clearance/pkg/challenge"
	"github.com/jmylchreest/clearance/pkg/cookies"
)

// MaxAttempts bounds how many settle-and-check rounds run per acquisition.
const MaxAttempts = 10

// ErrChallengeUnresolved is returned when the challenge marker is still on the
// page after MaxAttempts.
var ErrChallengeUnresolved = errors.New("challenge unresolved")

// Result is a credential harvested from a cleared page.
type Result struct {
	UserAgent    string
	CookieHeader string
}

// Acquirer owns at most one browser session, started on first use and kept
// open across acquisitions until Close. It is not safe for concurrent use.
type Acquirer struct {
	launcher browser.Launcher
	jar      *cookies.Jar
	session  browser.Session
	launches int
}

// New returns an Acquirer that launches browsers with launcher and stores
// harvested cookies in jar.
func New(launcher browser.Launcher, jar *cookies.Jar) *Acquirer {
	return &Acquirer{launcher: launcher, jar: jar}
}

// Acquire opens url in a fresh page and waits for the challenge to clear.
// Each attempt waits up to timeout for either the network to go idle after a
// navigation or the marker to leave the DOM, whichever happens first.
func (a *Acquirer) Acquire(ctx context.Context, url string, timeout time.Duration) (Result, error) {
	session, err := a.ensureSession(ctx)
	if err != nil {
		return Result{}, err
	}

	page, err := session.NewPage(ctx)
	if err != nil {
		return Result{}, err
	}
	defer func() {
		if err := page.Close(); err != nil {
			logger.Debug("closing page failed", "url", url, "error", err)
		}
	}()

	if err := page.Navigate(ctx, url); err != nil {
		return Result{}, err
	}

	if err := a.awaitClearance(ctx, page, url, timeout); err != nil {
		return Result{}, err
	}

	return a.harvest(ctx, page, url)
}

func (a *Acquirer) awaitClearance(ctx context.Context, page browser.Page, url string, timeout time.Duration) error {
	var lastErr error
	for attempt := 1; attempt <= MaxAttempts; attempt++ {
		signal, waitErr := settle(ctx, page, timeout)
		if err := ctx.Err(); err != nil {
			return err
		}

		content, err := page.Content(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			// A navigation can tear down the document mid-read.
			logger.DebugContext(ctx, "reading challenge page failed", "url", url, "attempt", attempt, "error", err)
			lastErr = err
			continue
		}

		if !challenge.IsChallenge(content) {
			logger.DebugContext(ctx, "challenge cleared", "url", url, "attempt", attempt, "signal", signal)
			return nil
		}
		logger.DebugContext(ctx, "challenge still present",
			"url", url,
			"attempt", attempt,
			"signal", signal,
			"wait_error", waitErr)
	}

	if lastErr != nil {
		return fmt.Errorf("%w: %s after %d attempts: %w", ErrChallengeUnresolved, url, MaxAttempts, lastErr)
	}
	return fmt.Errorf("%w: %s after %d attempts", ErrChallengeUnresolved, url, MaxAttempts)
}

type waitOutcome struct {
	signal string
	err    error
}

// settle races the two resolution signals. The first to succeed cancels the
// other. When both fail the joined error is returned and the caller still
// checks the page content.
func settle(ctx context.Context, page browser.Page, timeout time.Duration) (string, error) {
	raceCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	outcomes := make(chan waitOutcome, 2)
	go func() {
		outcomes <- waitOutcome{"network_idle", page.WaitNetworkIdle(raceCtx, timeout)}
	}()
	go func() {
		outcomes <- waitOutcome{"marker_gone", page.WaitMarkerGone(raceCtx, challenge.Marker, timeout)}
	}()

	var (
		winner string
		errs   []error
	)
	for range 2 {
		o := <-outcomes
		if o.err == nil && winner == "" {
			winner = o.signal
			cancel()
			continue
		}
		if winner == "" {
			errs = append(errs, fmt.Errorf("%s: %w", o.signal, o.err))
		}
	}
	if winner != "" {
		return winner, nil
	}
	return "none", errors.Join(errs...)
}

func (a *Acquirer) harvest(ctx context.Context, page browser.Page, url string) (Result, error) {
	browserCookies, err := page.Cookies(ctx)
	if err != nil {
		return Result{}, err
	}
	absorbed := a.jar.Absorb(browserCookies, url)

	ua, err := page.UserAgent(ctx)
	if err != nil {
		return Result{}, err
	}

	header := a.jar.HeaderFor(url)
	logger.DebugContext(ctx, "credential harvested",
		"url", url,
		"cookies", absorbed,
		"harvested", len(browserCookies))

	return Result{UserAgent: ua, CookieHeader: header}, nil
}

func (a *Acquirer) ensureSession(ctx context.Context) (browser.Session, error) {
	if a.session != nil {
		return a.session, nil
	}
	session, err := a.launcher.Launch(ctx)
	if err != nil {
		return nil, err
	}
	a.session = session
	a.launches++
	logger.DebugContext(ctx, "browser session started", "launches", a.launches)
	return session, nil
}

// Close shuts down the browser session if one is running. A later Acquire
// launches a new one.
func (a *Acquirer) Close() error {
	if a.session == nil {
		return nil
	}
	session := a.session
	a.session = nil
	if err := session.Close(); err != nil {
		return fmt.Errorf("closing browser session: %w", err)
	}
	return nil
}

// Launches reports how many browser sessions have been launched.
func (a *Acquirer) Launches() int {
	return a.launches
}
