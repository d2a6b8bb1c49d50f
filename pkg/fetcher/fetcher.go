// Package fetcher defines the plain HTTP fetch capability used for both the
// direct request and the credentialed replay.
package fetcher

import (
	"context"
	"errors"
	"maps"
	"net/http"
	"strings"
	"time"
)

// Fetcher performs a single HTTP request and returns the response as text.
type Fetcher interface {
	// Fetch issues req against url.
	Fetch(ctx context.Context, url string, req Request) (Response, error)

	// Close releases any resources.
	Close() error

	// Type returns a string identifying the fetcher type (e.g., "static").
	Type() string
}

// Request describes the shape of an outgoing request. It is retained on a
// cached credential so a later replay reuses the same method and headers.
type Request struct {
	Method  string            // Defaults to GET
	Headers map[string]string // Passed through; User-Agent and Cookie may be overwritten
	Body    string
}

// Response is what a fetch returns.
type Response struct {
	URL        string
	Content    string
	StatusCode int
	Headers    http.Header
	FetchedAt  time.Time
}

// ErrNetwork wraps transport-level failures. Check with
// errors.Is(err, fetcher.ErrNetwork).
var ErrNetwork = errors.New("network error")

// Clone returns a deep copy of r so callers' header maps are never mutated.
func (r Request) Clone() Request {
	out := r
	out.Headers = maps.Clone(r.Headers)
	if out.Headers == nil {
		out.Headers = make(map[string]string)
	}
	return out
}

// WithCredentials returns a copy of r whose User-Agent and Cookie headers are
// replaced, whatever casing the caller used for them.
func (r Request) WithCredentials(userAgent, cookieHeader string) Request {
	out := r.Clone()
	SetHeader(out.Headers, "User-Agent", userAgent)
	SetHeader(out.Headers, "Cookie", cookieHeader)
	return out
}

// SetHeader sets key in h after dropping any case-insensitive duplicates.
func SetHeader(h map[string]string, key, value string) {
	for k := range h {
		if strings.EqualFold(k, key) {
			delete(h, k)
		}
	}
	h[key] = value
}

// Header returns the value of key in h, matched case-insensitively.
func Header(h map[string]string, key string) string {
	for k, v := range h {
		if strings.EqualFold(k, key) {
			return v
		}
	}
	return ""
}
