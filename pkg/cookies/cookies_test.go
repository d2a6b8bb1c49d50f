package cookies

import (
	"bytes"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/chromedp/cdproto/network"

	"github.com/jmylchreest/clearance/internal/logger"
)

func newJar(t *testing.T) *Jar {
	t.Helper()
	j, err := New()
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return j
}

// --- ToRecord Tests ---

func TestToRecord_StripsLeadingDot(t *testing.T) {
	rec, err := ToRecord(&network.Cookie{Name: "cf_clearance", Value: "v", Domain: ".example.com", Path: "/"}, time.Now())
	if err != nil {
		t.Fatalf("ToRecord() error = %v", err)
	}
	if rec.Domain != "example.com" {
		t.Errorf("expected domain example.com, got %q", rec.Domain)
	}
}

func TestToRecord_DefaultExpiry(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	for _, expires := range []float64{0, -1} {
		rec, err := ToRecord(&network.Cookie{Name: "a", Domain: "example.com", Expires: expires, Session: true}, now)
		if err != nil {
			t.Fatalf("ToRecord() error = %v", err)
		}
		if want := now.Add(9999 * time.Second); !rec.Expires.Equal(want) {
			t.Errorf("expires=%v: expected %v, got %v", expires, want, rec.Expires)
		}
	}
}

func TestToRecord_NumericExpiry(t *testing.T) {
	rec, err := ToRecord(&network.Cookie{Name: "a", Domain: "example.com", Expires: 1800000000.5}, time.Now())
	if err != nil {
		t.Fatalf("ToRecord() error = %v", err)
	}
	if want := time.UnixMilli(1800000000500); !rec.Expires.Equal(want) {
		t.Errorf("expected %v, got %v", want, rec.Expires)
	}
}

func TestToRecord_FlagsCarriedThrough(t *testing.T) {
	rec, err := ToRecord(&network.Cookie{
		Name:     "a",
		Domain:   "example.com",
		HTTPOnly: true,
		Secure:   true,
		SameSite: network.CookieSameSiteLax,
	}, time.Now())
	if err != nil {
		t.Fatalf("ToRecord() error = %v", err)
	}
	if !rec.HTTPOnly || !rec.Secure || rec.SameSite != http.SameSiteLaxMode {
		t.Errorf("flags not carried through: %+v", rec)
	}
}

func TestToRecord_Invalid(t *testing.T) {
	cases := []*network.Cookie{
		nil,
		{Name: "", Domain: "example.com"},
		{Name: "a", Domain: ""},
		{Name: "a", Domain: "."},
	}
	for i, c := range cases {
		if _, err := ToRecord(c, time.Now()); !errors.Is(err, ErrInvalidCookie) {
			t.Errorf("case %d: expected ErrInvalidCookie, got %v", i, err)
		}
	}
}

// --- Jar Tests ---

func TestJar_DotDomainRetrievableUnderHost(t *testing.T) {
	j := newJar(t)

	n := j.Absorb([]*network.Cookie{
		{Name: "cf_clearance", Value: "token", Domain: ".example.com", Path: "/"},
	}, "https://example.com/page")

	if n != 1 {
		t.Fatalf("expected 1 cookie absorbed, got %d", n)
	}
	if got := j.HeaderFor("https://example.com/"); got != "cf_clearance=token" {
		t.Errorf("expected cookie under host example.com, got %q", got)
	}
	if got := j.HeaderFor("https://www.example.com/other"); got != "cf_clearance=token" {
		t.Errorf("expected cookie under subdomain, got %q", got)
	}
}

func TestJar_HeaderFormat(t *testing.T) {
	j := newJar(t)
	j.Absorb([]*network.Cookie{
		{Name: "a", Value: "1", Domain: "example.com", Path: "/"},
		{Name: "b", Value: "2", Domain: "example.com", Path: "/"},
	}, "https://example.com/")

	got := j.HeaderFor("https://example.com/")
	if got != "a=1; b=2" && got != "b=2; a=1" {
		t.Errorf("unexpected header %q", got)
	}
}

func TestJar_SkipsMalformedAndKeepsRest(t *testing.T) {
	buf := &bytes.Buffer{}
	_ = logger.Init(logger.Options{Output: buf})
	defer func() { _ = logger.Init(logger.Options{}) }()

	j := newJar(t)
	n := j.Absorb([]*network.Cookie{
		{Name: "foreign", Value: "x", Domain: ".other.test", Path: "/"},
		{Name: "", Value: "noname", Domain: "example.com"},
		{Name: "good", Value: "y", Domain: "example.com", Path: "/"},
	}, "https://example.com/")

	if n != 1 {
		t.Errorf("expected 1 cookie kept, got %d", n)
	}
	if got := j.HeaderFor("https://example.com/"); got != "good=y" {
		t.Errorf("expected only good cookie, got %q", got)
	}
	if !strings.Contains(buf.String(), "skipping browser cookie") {
		t.Errorf("expected skipped cookies to be logged, got %q", buf.String())
	}
}

func TestJar_BadURL(t *testing.T) {
	j := newJar(t)
	if n := j.Absorb([]*network.Cookie{{Name: "a", Domain: "example.com"}}, "::not a url"); n != 0 {
		t.Errorf("expected nothing absorbed, got %d", n)
	}
	if got := j.HeaderFor("::not a url"); got != "" {
		t.Errorf("expected empty header, got %q", got)
	}
}

func TestJar_PathScoping(t *testing.T) {
	j := newJar(t)
	j.Absorb([]*network.Cookie{
		{Name: "scoped", Value: "1", Domain: "example.com", Path: "/app"},
	}, "https://example.com/app/page")

	if got := j.HeaderFor("https://example.com/app/x"); got != "scoped=1" {
		t.Errorf("expected scoped cookie under /app, got %q", got)
	}
	if got := j.HeaderFor("https://example.com/"); got != "" {
		t.Errorf("expected no cookie outside /app, got %q", got)
	}
}

func TestDomainMatch(t *testing.T) {
	tests := []struct {
		host, domain string
		want         bool
	}{
		{"example.com", "example.com", true},
		{"www.example.com", "example.com", true},
		{"EXAMPLE.com", "example.COM", true},
		{"badexample.com", "example.com", false},
		{"example.com", "www.example.com", false},
		{"127.0.0.1", "127.0.0.1", true},
		{"127.0.0.1", "0.0.1", false},
	}
	for _, tt := range tests {
		if got := domainMatch(tt.host, tt.domain); got != tt.want {
			t.Errorf("domainMatch(%q, %q) = %v, expected %v", tt.host, tt.domain, got, tt.want)
		}
	}
}
