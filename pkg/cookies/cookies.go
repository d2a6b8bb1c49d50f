// Package cookies moves cookies harvested from a browser session into an
// HTTP cookie jar and renders the Cookie header a plain client must send.
package cookies

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/chromedp/cdproto/network"
	"golang.org/x/net/publicsuffix"

	"github.com/jmylchreest/clearance/internal/logger"
)

// DefaultLifetime is applied to cookies the browser reports without a
// positive expiry (session cookies). The value is a placeholder of roughly
// 2.7 hours, not derived from any site behaviour.
const DefaultLifetime = 9999 * time.Second

var (
	// ErrInvalidCookie is returned by ToRecord for cookies that cannot be stored.
	ErrInvalidCookie = errors.New("invalid cookie")
	// ErrCookieAbsorption marks a cookie skipped during Absorb. It is only
	// ever logged.
	ErrCookieAbsorption = errors.New("cookie absorption failed")
)

// Record is a browser cookie normalised for the jar.
type Record struct {
	Name     string
	Value    string
	Domain   string // Never has a leading dot
	Path     string
	Expires  time.Time
	HTTPOnly bool
	Secure   bool
	SameSite http.SameSite
}

// ToRecord converts a cookie reported by the browser. now anchors the
// default expiry.
func ToRecord(c *network.Cookie, now time.Time) (Record, error) {
	if c == nil || c.Name == "" {
		return Record{}, fmt.Errorf("%w: missing name", ErrInvalidCookie)
	}
	domain := strings.TrimPrefix(c.Domain, ".")
	if domain == "" {
		return Record{}, fmt.Errorf("%w: %s has no domain", ErrInvalidCookie, c.Name)
	}

	expires := now.Add(DefaultLifetime)
	if c.Expires > 0 {
		expires = time.UnixMilli(int64(c.Expires * 1000))
	}

	return Record{
		Name:     c.Name,
		Value:    c.Value,
		Domain:   domain,
		Path:     c.Path,
		Expires:  expires,
		HTTPOnly: c.HTTPOnly,
		Secure:   c.Secure,
		SameSite: sameSite(c.SameSite),
	}, nil
}

func sameSite(s network.CookieSameSite) http.SameSite {
	switch s {
	case network.CookieSameSiteStrict:
		return http.SameSiteStrictMode
	case network.CookieSameSiteLax:
		return http.SameSiteLaxMode
	case network.CookieSameSiteNone:
		return http.SameSiteNoneMode
	default:
		return http.SameSiteDefaultMode
	}
}

// HTTPCookie returns r in net/http form.
func (r Record) HTTPCookie() *http.Cookie {
	return &http.Cookie{
		Name:     r.Name,
		Value:    r.Value,
		Domain:   r.Domain,
		Path:     r.Path,
		Expires:  r.Expires,
		HttpOnly: r.HTTPOnly,
		Secure:   r.Secure,
		SameSite: r.SameSite,
	}
}

// Jar wraps an http.CookieJar with browser-cookie import and header
// serialisation. Like the credential store it is process-local and is not
// persisted.
type Jar struct {
	jar http.CookieJar
	now func() time.Time
}

// New returns a Jar backed by net/http/cookiejar with the public suffix list.
func New() (*Jar, error) {
	j, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("create cookie jar: %w", err)
	}
	return Wrap(j), nil
}

// Wrap adapts an existing jar.
func Wrap(j http.CookieJar) *Jar {
	return &Jar{jar: j, now: time.Now}
}

// Absorb stores cookies scoped to forURL and returns how many were kept.
// A cookie that cannot be converted, or whose domain does not cover the URL
// host, is logged and skipped; the rest of the batch is still stored.
func (j *Jar) Absorb(cookies []*network.Cookie, forURL string) int {
	u, err := url.Parse(forURL)
	if err != nil || u.Host == "" {
		logger.Warn("cookie absorption skipped: bad url", "url", forURL, "error", err)
		return 0
	}
	host := u.Hostname()
	now := j.now()

	kept := make([]*http.Cookie, 0, len(cookies))
	for _, c := range cookies {
		rec, err := ToRecord(c, now)
		if err != nil {
			logger.Warn("skipping browser cookie",
				"url", forURL,
				"error", fmt.Errorf("%w: %w", ErrCookieAbsorption, err))
			continue
		}
		if !domainMatch(host, rec.Domain) {
			logger.Warn("skipping browser cookie",
				"url", forURL,
				"cookie", rec.Name,
				"domain", rec.Domain,
				"error", fmt.Errorf("%w: domain %q does not cover %q", ErrCookieAbsorption, rec.Domain, host))
			continue
		}
		kept = append(kept, rec.HTTPCookie())
	}

	if len(kept) > 0 {
		j.jar.SetCookies(u, kept)
	}
	logger.Debug("absorbed browser cookies", "url", forURL, "offered", len(cookies), "kept", len(kept))
	return len(kept)
}

// HeaderFor returns the jar's cookies for rawURL as "name=value; name=value".
// Order is the jar's; it is stable within one call.
func (j *Jar) HeaderFor(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	cs := j.jar.Cookies(u)
	parts := make([]string, 0, len(cs))
	for _, c := range cs {
		parts = append(parts, c.Name+"="+c.Value)
	}
	return strings.Join(parts, "; ")
}

// domainMatch implements RFC 6265 §5.1.3 domain matching.
func domainMatch(host, domain string) bool {
	host = strings.ToLower(host)
	domain = strings.ToLower(domain)
	if host == domain {
		return true
	}
	if net.ParseIP(host) != nil {
		return false
	}
	return strings.HasSuffix(host, "."+domain)
}
