// Package browsertest provides an in-memory browser.Launcher for tests. Pages
// serve a challenge document until a configured attempt, then a cleared one.
package browsertest

import (
	"context"
	"errors"
	"net/url"
	"sync"
	"time"

	"github.com/chromedp/cdproto/network"

	"github.com/jmylchreest/clearance/pkg/browser"
)

const (
	// ChallengeBody is served while the challenge is unresolved.
	ChallengeBody = `<html><body><script>window._cf_chl_opt={cType:'managed'};</script></body></html>`
	// ClearedBody is served once the challenge resolves.
	ClearedBody = `<html><body><h1>Welcome</h1></body></html>`
	// DefaultUserAgent is reported by pages when Launcher.UserAgent is empty.
	DefaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64) browsertest/1.0"
)

// Launcher counts launches and hands out stub sessions.
type Launcher struct {
	// ClearOnAttempt is the content read on which the marker disappears.
	// Zero means never.
	ClearOnAttempt int
	// IdleOnAttempt is the attempt from which the network idle wait
	// succeeds. Zero means it always times out.
	IdleOnAttempt int
	// BlockMarker makes the marker wait block until its context ends.
	BlockMarker bool
	// Cookies overrides the harvested cookies. When nil each page returns a
	// cf_clearance cookie scoped to the navigated host with a leading dot.
	Cookies   []*network.Cookie
	UserAgent string
	LaunchErr error
	// NavigateErr, when set, fails every navigation.
	NavigateErr error

	mu       sync.Mutex
	launches int
	sessions []*Session
}

func (l *Launcher) Launch(ctx context.Context) (browser.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.launches++
	if l.LaunchErr != nil {
		return nil, l.LaunchErr
	}
	s := &Session{launcher: l}
	l.sessions = append(l.sessions, s)
	return s, nil
}

// Launches reports how many times Launch was called.
func (l *Launcher) Launches() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.launches
}

// Sessions returns every session launched so far.
func (l *Launcher) Sessions() []*Session {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]*Session(nil), l.sessions...)
}

// OpenSessions counts sessions that have not been closed.
func (l *Launcher) OpenSessions() int {
	n := 0
	for _, s := range l.Sessions() {
		if !s.Closed() {
			n++
		}
	}
	return n
}

// Session is a stub browser.Session.
type Session struct {
	launcher *Launcher

	mu     sync.Mutex
	closed bool
	pages  []*Page
}

func (s *Session) NewPage(ctx context.Context) (browser.Page, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, errors.New("session closed")
	}
	p := &Page{launcher: s.launcher}
	s.pages = append(s.pages, p)
	return p, nil
}

func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Pages returns every page opened on the session.
func (s *Session) Pages() []*Page {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*Page(nil), s.pages...)
}

// Page is a stub browser.Page. Each Content call counts as one attempt.
type Page struct {
	launcher *Launcher

	mu       sync.Mutex
	url            string
	attempts       int
	closed         bool
	markerReleased int
}

func (p *Page) Navigate(ctx context.Context, rawURL string) error {
	if p.launcher.NavigateErr != nil {
		return p.launcher.NavigateErr
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.url = rawURL
	return nil
}

func (p *Page) WaitNetworkIdle(ctx context.Context, timeout time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.mu.Lock()
	next := p.attempts + 1
	p.mu.Unlock()
	if at := p.launcher.IdleOnAttempt; at > 0 && next >= at {
		return nil
	}
	return browser.ErrWaitTimeout
}

func (p *Page) WaitMarkerGone(ctx context.Context, marker string, timeout time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if p.launcher.BlockMarker {
		<-ctx.Done()
		p.mu.Lock()
		p.markerReleased++
		p.mu.Unlock()
		return ctx.Err()
	}
	p.mu.Lock()
	next := p.attempts + 1
	p.mu.Unlock()
	if p.clearsOn(next) {
		return nil
	}
	return browser.ErrWaitTimeout
}

func (p *Page) Content(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.attempts++
	if p.clearsOn(p.attempts) {
		return ClearedBody, nil
	}
	return ChallengeBody, nil
}

func (p *Page) clearsOn(attempt int) bool {
	at := p.launcher.ClearOnAttempt
	return at > 0 && attempt >= at
}

func (p *Page) Cookies(ctx context.Context) ([]*network.Cookie, error) {
	if p.launcher.Cookies != nil {
		return p.launcher.Cookies, nil
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	u, err := url.Parse(p.url)
	if err != nil {
		return nil, err
	}
	return []*network.Cookie{{
		Name:    "cf_clearance",
		Value:   "stub-token",
		Domain:  "." + u.Hostname(),
		Path:    "/",
		Expires: -1,
		Session: true,
	}}, nil
}

func (p *Page) UserAgent(ctx context.Context) (string, error) {
	if p.launcher.UserAgent != "" {
		return p.launcher.UserAgent, nil
	}
	return DefaultUserAgent, nil
}

func (p *Page) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

// Attempts reports how many times Content was read.
func (p *Page) Attempts() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.attempts
}

func (p *Page) Closed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

// MarkerReleased counts blocked marker waits that ended through cancellation.
func (p *Page) MarkerReleased() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.markerReleased
}

// URL returns the last navigated URL.
func (p *Page) URL() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.url
}
