// Package clearance is an HTTP client for sites behind a JavaScript challenge.
//
// Unprotected URLs are fetched directly. When a response carries the
// challenge marker, a real browser loads the page until the challenge
// clears, and the browser's user agent and cookies are cached for that URL
// and replayed on a plain HTTP request.
package clearance

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jmylchreest/clearance/internal/logger"
	"github.com/jmylchreest/clearance/pkg/acquirer"
	"github.com/jmylchreest/clearance/pkg/browser"
	"github.com/jmylchreest/clearance/pkg/challenge"
	"github.com/jmylchreest/clearance/pkg/cookies"
	"github.com/jmylchreest/clearance/pkg/credential"
	"github.com/jmylchreest/clearance/pkg/fetcher"
)

// Exported errors, re-exported from the packages that produce them.
var (
	// ErrChallengeUnresolved is returned when the browser could not clear the
	// challenge within the attempt budget.
	ErrChallengeUnresolved = acquirer.ErrChallengeUnresolved

	// ErrNetwork wraps transport failures of the plain HTTP fetch.
	ErrNetwork = fetcher.ErrNetwork
)

// maxStaleRetries is how many times a request starts over after a
// credentialed replay still shows the challenge.
const maxStaleRetries = 1

// Request is the shape of an outgoing request.
type Request = fetcher.Request

// Response is a fetched page.
type Response = fetcher.Response

// Client fetches URLs, passing challenges with a browser when needed. A
// Client serves one caller at a time.
type Client struct {
	config   Config
	fetcher  fetcher.Fetcher
	launcher browser.Launcher
	store    *credential.Store
	jar      *cookies.Jar
	acquirer *acquirer.Acquirer
}

// New creates a Client. No browser is started until a challenge is seen.
func New(cfg Config, opts ...Option) (*Client, error) {
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	c := &Client{config: cfg}
	for _, opt := range opts {
		opt(c)
	}

	if c.fetcher == nil {
		c.fetcher = fetcher.NewStatic(fetcher.StaticConfig{
			UserAgent:   cfg.UserAgent,
			MaxBodySize: cfg.MaxBodySize,
		})
	}
	if c.launcher == nil {
		c.launcher = browser.NewChrome(cfg.browserConfig())
	}
	if c.store == nil {
		c.store = credential.NewStore()
	}
	if c.jar == nil {
		jar, err := cookies.New()
		if err != nil {
			return nil, fmt.Errorf("failed to create cookie jar: %w", err)
		}
		c.jar = jar
	}
	c.acquirer = acquirer.New(c.launcher, c.jar)

	if cfg.WaitForNetworkIdle {
		logger.Debug("wait_for_network_idle is set but has no effect")
	}
	logger.Debug("client created",
		"fetcher", c.fetcher.Type(),
		"headless", cfg.Headless,
		"timeout", cfg.Timeout)

	return c, nil
}

// Request fetches url. A cached credential for url is applied when present.
// Otherwise the URL is fetched directly and, if the response is a challenge,
// a credential is acquired with the browser and the request replayed with
// it. A cached credential whose replay still shows the challenge is dropped
// and the request starts over once.
//
// The User-Agent and Cookie headers of opts are replaced on every replay.
// opts.Headers itself is never modified.
func (c *Client) Request(ctx context.Context, url string, opts Request) (Response, error) {
	log := logger.With("request_id", uuid.NewString(), "url", url)

	for retry := 0; ; retry++ {
		cred, ok := c.store.Lookup(url)
		if !ok {
			resp, err := c.fetcher.Fetch(ctx, url, opts.Clone())
			if err != nil {
				return resp, err
			}
			if !challenge.IsChallenge(resp.Content) {
				log.Debug("direct fetch complete", "status", resp.StatusCode)
				return resp, nil
			}

			log.Debug("challenge detected", "status", resp.StatusCode)
			start := time.Now()
			res, err := c.acquirer.Acquire(ctx, url, c.config.Timeout)
			if err != nil {
				return Response{}, err
			}
			cred = credential.Credential{
				URL:          url,
				Options:      opts.Clone(),
				CookieHeader: res.CookieHeader,
				UserAgent:    res.UserAgent,
				AcquiredAt:   time.Now(),
			}
			c.store.Insert(cred)
			log.Debug("credential acquired", "duration", time.Since(start))
		}

		resp, err := c.fetcher.Fetch(ctx, url, opts.WithCredentials(cred.UserAgent, cred.CookieHeader))
		if err != nil {
			return resp, err
		}
		if !challenge.IsChallenge(resp.Content) {
			log.Debug("credentialed fetch complete", "status", resp.StatusCode)
			return resp, nil
		}

		c.store.Remove(url)
		if retry >= maxStaleRetries {
			log.Warn("challenge persists with a fresh credential", "status", resp.StatusCode)
			return resp, nil
		}
		log.Debug("cached credential is stale, starting over")
	}
}

// ProxyOptions are the inputs to Proxy.
type ProxyOptions struct {
	Query   Query
	Headers map[string]string
}

// Proxy requests BuildURL(url, opts.Query) with opts.Headers and returns the
// body. The browser session is closed before Proxy returns, whatever the
// outcome; the client stays usable and relaunches on demand.
func (c *Client) Proxy(ctx context.Context, url string, opts ProxyOptions) (string, error) {
	defer func() {
		if cerr := c.Close(); cerr != nil {
			logger.WarnContext(ctx, "closing client after proxy failed", "error", cerr)
		}
	}()

	resp, err := c.Request(ctx, BuildURL(url, opts.Query), Request{Headers: opts.Headers})
	if err != nil {
		return "", err
	}
	return resp.Content, nil
}

// Close shuts down the browser session, if any. It is safe to call more
// than once.
func (c *Client) Close() error {
	return errors.Join(c.acquirer.Close(), c.fetcher.Close())
}

// Credentials reports how many URLs currently have a cached credential.
func (c *Client) Credentials() int {
	return c.store.Len()
}
