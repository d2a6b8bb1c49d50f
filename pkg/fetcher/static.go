package fetcher

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gocolly/colly/v2"

	"github.com/jmylchreest/clearance/internal/logger"
)

// StaticConfig holds configuration for the static fetcher.
type StaticConfig struct {
	UserAgent   string
	Timeout     time.Duration
	MaxBodySize int // 0 keeps colly's default
}

// DefaultStaticConfig returns sensible defaults.
func DefaultStaticConfig() StaticConfig {
	return StaticConfig{
		UserAgent: DefaultUserAgent,
		Timeout:   30 * time.Second,
	}
}

// DefaultUserAgent is sent on the direct fetch when the caller sets none.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// StaticFetcher uses Colly for plain HTTP fetching.
// It implements the Fetcher interface.
type StaticFetcher struct {
	config StaticConfig
}

// NewStatic creates a new static fetcher.
func NewStatic(cfg StaticConfig) *StaticFetcher {
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultStaticConfig().UserAgent
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultStaticConfig().Timeout
	}
	return &StaticFetcher{config: cfg}
}

// Fetch performs one request. Non-2xx responses are returned, not treated as
// errors: challenge pages are usually served with 403 or 503.
func (f *StaticFetcher) Fetch(ctx context.Context, targetURL string, req Request) (Response, error) {
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	result := Response{
		URL:       targetURL,
		FetchedAt: time.Now(),
	}

	// A fresh collector per request keeps colly's visited set and cookie
	// jar out of the picture; cookies travel only in the Cookie header.
	c := colly.NewCollector(
		colly.UserAgent(f.config.UserAgent),
		colly.AllowURLRevisit(),
		colly.StdlibContext(ctx),
	)
	c.ParseHTTPErrorResponse = true
	c.DisableCookies()
	c.SetRequestTimeout(f.config.Timeout)
	if f.config.MaxBodySize != 0 {
		c.MaxBodySize = f.config.MaxBodySize
	}

	hdr := http.Header{}
	for k, v := range req.Headers {
		hdr.Set(k, v)
	}

	var fetchErr error

	c.OnResponse(func(r *colly.Response) {
		result.StatusCode = r.StatusCode
		result.Content = string(r.Body)
		if r.Headers != nil {
			result.Headers = r.Headers.Clone()
		}
		logger.Debug("static fetch response received",
			"url", targetURL,
			"status", r.StatusCode,
			"size", humanize.Bytes(uint64(len(r.Body))))
	})

	c.OnError(func(r *colly.Response, err error) {
		if r != nil {
			result.StatusCode = r.StatusCode
		}
		fetchErr = err
	})

	var body io.Reader
	if req.Body != "" {
		body = strings.NewReader(req.Body)
	}

	logger.Debug("static fetch", "method", method, "url", targetURL, "headers", len(hdr))
	if err := c.Request(method, targetURL, body, nil, hdr); err != nil {
		return result, fmt.Errorf("%w: %s %s: %w", ErrNetwork, method, targetURL, err)
	}
	if fetchErr != nil {
		return result, fmt.Errorf("%w: %s %s: %w", ErrNetwork, method, targetURL, fetchErr)
	}

	return result, nil
}

// Close releases resources.
func (f *StaticFetcher) Close() error {
	return nil
}

// Type returns the fetcher type.
func (f *StaticFetcher) Type() string {
	return "static"
}
