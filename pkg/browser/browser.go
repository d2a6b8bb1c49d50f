// Package browser defines the narrow browser-automation capability used to
// pass a challenge page, and a chromedp implementation of it.
package browser

import (
	"context"
	"errors"
	"time"

	"github.com/chromedp/cdproto/network"
)

// Launcher starts browser sessions.
type Launcher interface {
	Launch(ctx context.Context) (Session, error)
}

// Session is one running browser process.
type Session interface {
	// NewPage opens a blank tab.
	NewPage(ctx context.Context) (Page, error)

	// Close shuts the browser down. It is safe to call more than once.
	Close() error
}

// Page is a single tab.
type Page interface {
	Navigate(ctx context.Context, url string) error

	// WaitNetworkIdle blocks until the page's network settles after a
	// navigation, or timeout elapses.
	WaitNetworkIdle(ctx context.Context, timeout time.Duration) error

	// WaitMarkerGone blocks until the rendered body no longer contains
	// marker, or timeout elapses.
	WaitMarkerGone(ctx context.Context, marker string, timeout time.Duration) error

	// Content returns the current serialized document.
	Content(ctx context.Context) (string, error)

	// Cookies returns the cookies visible to the current page.
	Cookies(ctx context.Context) ([]*network.Cookie, error)

	// UserAgent returns navigator.userAgent as seen by page scripts.
	UserAgent(ctx context.Context) (string, error)

	Close() error
}

var (
	// ErrLaunch wraps browser start failures.
	ErrLaunch = errors.New("browser launch failed")
	// ErrWaitTimeout is returned by the Wait methods when their timeout elapses.
	ErrWaitTimeout = errors.New("browser wait timed out")
)
