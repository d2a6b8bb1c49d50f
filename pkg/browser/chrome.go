package browser

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"

	"github.com/jmylchreest/clearance/internal/logger"
)

// Page.lifecycleEvent names.
const (
	lifecycleInit       = "init"
	lifecycleAlmostIdle = "networkAlmostIdle"
)

const (
	markerPollInterval = 100 * time.Millisecond
	markerRetryBackoff = 100 * time.Millisecond
	launchTimeout      = 30 * time.Second
)

// Chrome launches local Chrome/Chromium processes through chromedp.
type Chrome struct {
	config Config
}

// NewChrome returns a launcher for cfg. An empty ExecPath is resolved with
// FindChromePath at launch time.
func NewChrome(cfg Config) *Chrome {
	return &Chrome{config: cfg}
}

// Launch starts a browser process. ctx bounds startup only; the returned
// session lives until Close.
func (c *Chrome) Launch(ctx context.Context) (Session, error) {
	cfg := c.config
	if cfg.ExecPath == "" {
		cfg.ExecPath = FindChromePath()
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), allocatorOptions(cfg)...)
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(func(format string, args ...any) {
			logger.Debug("chromedp", "msg", fmt.Sprintf(format, args...))
		}),
	)

	started := make(chan error, 1)
	go func() {
		// Running no actions allocates the browser and its first tab.
		started <- chromedp.Run(browserCtx)
	}()

	startup := time.NewTimer(launchTimeout)
	defer startup.Stop()

	var err error
	select {
	case err = <-started:
	case <-ctx.Done():
		err = ctx.Err()
	case <-startup.C:
		err = fmt.Errorf("no response after %s", launchTimeout)
	}
	if err != nil {
		cancelBrowser()
		cancelAlloc()
		return nil, fmt.Errorf("%w: %w", ErrLaunch, err)
	}

	logger.Debug("browser launched",
		"headless", cfg.Headless,
		"exec_path", cfg.ExecPath,
		"display", cfg.Display)

	return &chromeSession{
		config:        cfg,
		browserCtx:    browserCtx,
		cancelBrowser: cancelBrowser,
		cancelAlloc:   cancelAlloc,
	}, nil
}

type chromeSession struct {
	config        Config
	browserCtx    context.Context
	cancelBrowser context.CancelFunc
	cancelAlloc   context.CancelFunc

	mu     sync.Mutex
	closed bool
}

func (s *chromeSession) NewPage(ctx context.Context) (Page, error) {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return nil, errors.New("browser session is closed")
	}

	tabCtx, cancelTab := chromedp.NewContext(s.browserCtx)
	p := &chromePage{ctx: tabCtx, cancel: cancelTab}

	actions := []chromedp.Action{
		page.Enable(),
		page.SetLifecycleEventsEnabled(true),
		network.Enable(),
	}
	if s.config.Stealth {
		actions = append(actions, injectStealth())
	}
	actions = append(actions, chromedp.ActionFunc(func(ctx context.Context) error {
		tree, err := page.GetFrameTree().Do(ctx)
		if err != nil {
			return err
		}
		p.frameID = tree.Frame.ID
		return nil
	}))

	if err := p.run(ctx, actions...); err != nil {
		_ = p.Close()
		return nil, fmt.Errorf("opening page: %w", err)
	}
	return p, nil
}

func (s *chromeSession) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	err := chromedp.Cancel(s.browserCtx)
	s.cancelBrowser()
	s.cancelAlloc()
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("closing browser: %w", err)
	}
	logger.Debug("browser closed")
	return nil
}

type chromePage struct {
	ctx     context.Context
	cancel  context.CancelFunc
	frameID cdp.FrameID
	once    sync.Once
}

// run executes actions on the tab, aborting early if ctx is cancelled.
func (p *chromePage) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithCancel(p.ctx)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	err := chromedp.Run(runCtx, actions...)
	if err != nil && ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

func (p *chromePage) Navigate(ctx context.Context, url string) error {
	if err := p.run(ctx, chromedp.Navigate(url)); err != nil {
		return fmt.Errorf("navigating to %s: %w", url, err)
	}
	return nil
}

// WaitNetworkIdle waits for the next navigation of the main frame to reach
// networkAlmostIdle (at most two connections in flight for 500ms).
func (p *chromePage) WaitNetworkIdle(ctx context.Context, timeout time.Duration) error {
	listenCtx, cancel := context.WithCancel(p.ctx)
	defer cancel()

	idle := make(chan struct{})
	var once sync.Once
	navigating := false
	chromedp.ListenTarget(listenCtx, func(ev any) {
		e, ok := ev.(*page.EventLifecycleEvent)
		if !ok || e.FrameID != p.frameID {
			return
		}
		switch e.Name {
		case lifecycleInit:
			navigating = true
		case lifecycleAlmostIdle:
			if navigating {
				once.Do(func() { close(idle) })
			}
		}
	})

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-idle:
		return nil
	case <-timer.C:
		return fmt.Errorf("%w: network idle after %s", ErrWaitTimeout, timeout)
	case <-ctx.Done():
		return ctx.Err()
	case <-p.ctx.Done():
		return p.ctx.Err()
	}
}

// WaitMarkerGone polls the body until it stops containing marker. Polls
// interrupted by a navigation are restarted until timeout.
func (p *chromePage) WaitMarkerGone(ctx context.Context, marker string, timeout time.Duration) error {
	expr := markerGoneExpression(marker)
	deadline := time.Now().Add(timeout)

	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return fmt.Errorf("%w: marker still present after %s", ErrWaitTimeout, timeout)
		}

		err := p.run(ctx, chromedp.Poll(expr, nil,
			chromedp.WithPollingTimeout(remaining),
			chromedp.WithPollingInterval(markerPollInterval),
		))
		switch {
		case err == nil:
			return nil
		case errors.Is(err, chromedp.ErrPollingTimeout):
			return fmt.Errorf("%w: marker still present after %s", ErrWaitTimeout, timeout)
		case ctx.Err() != nil:
			return ctx.Err()
		case p.ctx.Err() != nil:
			return p.ctx.Err()
		}

		// Execution context destroyed by a navigation; poll the new document.
		logger.Debug("marker poll interrupted", "error", err)
		select {
		case <-time.After(markerRetryBackoff):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (p *chromePage) Content(ctx context.Context) (string, error) {
	var html string
	if err := p.run(ctx, chromedp.Evaluate(contentExpression, &html)); err != nil {
		return "", fmt.Errorf("reading page content: %w", err)
	}
	return html, nil
}

func (p *chromePage) Cookies(ctx context.Context) ([]*network.Cookie, error) {
	var cookies []*network.Cookie
	err := p.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		var err error
		cookies, err = network.GetCookies().Do(ctx)
		return err
	}))
	if err != nil {
		return nil, fmt.Errorf("reading cookies: %w", err)
	}
	return cookies, nil
}

func (p *chromePage) UserAgent(ctx context.Context) (string, error) {
	var ua string
	if err := p.run(ctx, chromedp.Evaluate("navigator.userAgent", &ua)); err != nil {
		return "", fmt.Errorf("reading user agent: %w", err)
	}
	return ua, nil
}

// Close closes the tab. Safe to call more than once.
func (p *chromePage) Close() error {
	p.once.Do(p.cancel)
	return nil
}
