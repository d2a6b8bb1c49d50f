package fetcher

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

// --- StaticFetcher Tests ---

func TestNewStatic_Defaults(t *testing.T) {
	f := NewStatic(StaticConfig{})
	if f.config.UserAgent != DefaultUserAgent {
		t.Errorf("expected default user agent, got %q", f.config.UserAgent)
	}
	if f.config.Timeout != DefaultStaticConfig().Timeout {
		t.Errorf("expected default timeout, got %v", f.config.Timeout)
	}
	if f.Type() != "static" {
		t.Errorf("expected type static, got %q", f.Type())
	}
}

func TestStaticFetcher_Fetch_ReturnsBodyAndStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Test", "yes")
		w.WriteHeader(http.StatusOK)
		_, _ = io.WriteString(w, "<html>hello</html>")
	}))
	defer srv.Close()

	resp, err := NewStatic(StaticConfig{}).Fetch(context.Background(), srv.URL, Request{})
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if resp.Content != "<html>hello</html>" {
		t.Errorf("expected body unchanged, got %q", resp.Content)
	}
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200, got %d", resp.StatusCode)
	}
	if resp.Headers.Get("X-Test") != "yes" {
		t.Errorf("expected X-Test header, got %v", resp.Headers)
	}
}

func TestStaticFetcher_Fetch_ErrorStatusIsNotAnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = io.WriteString(w, "<script>window._cf_chl_opt={}</script>")
	}))
	defer srv.Close()

	resp, err := NewStatic(StaticConfig{}).Fetch(context.Background(), srv.URL, Request{})
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("expected 403, got %d", resp.StatusCode)
	}
	if resp.Content == "" {
		t.Error("expected challenge body to be returned")
	}
}

func TestStaticFetcher_Fetch_SendsHeadersAndMethod(t *testing.T) {
	var gotUA, gotCookie, gotMethod, gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotCookie = r.Header.Get("Cookie")
		gotMethod = r.Method
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
	}))
	defer srv.Close()

	req := Request{
		Method:  http.MethodPost,
		Headers: map[string]string{"User-Agent": "agent/1.0", "Cookie": "cf_clearance=abc; a=b"},
		Body:    "payload",
	}
	if _, err := NewStatic(StaticConfig{}).Fetch(context.Background(), srv.URL, req); err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}

	if gotUA != "agent/1.0" {
		t.Errorf("expected caller user agent, got %q", gotUA)
	}
	if gotCookie != "cf_clearance=abc; a=b" {
		t.Errorf("expected cookie header forwarded verbatim, got %q", gotCookie)
	}
	if gotMethod != http.MethodPost {
		t.Errorf("expected POST, got %q", gotMethod)
	}
	if gotBody != "payload" {
		t.Errorf("expected body forwarded, got %q", gotBody)
	}
}

func TestStaticFetcher_Fetch_DefaultUserAgent(t *testing.T) {
	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
	}))
	defer srv.Close()

	if _, err := NewStatic(StaticConfig{UserAgent: "fallback/2"}).Fetch(context.Background(), srv.URL, Request{}); err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if gotUA != "fallback/2" {
		t.Errorf("expected configured user agent, got %q", gotUA)
	}
}

func TestStaticFetcher_Fetch_SameURLTwice(t *testing.T) {
	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
	}))
	defer srv.Close()

	f := NewStatic(StaticConfig{})
	for i := 0; i < 2; i++ {
		if _, err := f.Fetch(context.Background(), srv.URL, Request{}); err != nil {
			t.Fatalf("Fetch() #%d error = %v", i+1, err)
		}
	}
	if hits != 2 {
		t.Errorf("expected 2 hits, got %d", hits)
	}
}

func TestStaticFetcher_Fetch_NetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	target := srv.URL
	srv.Close()

	_, err := NewStatic(StaticConfig{}).Fetch(context.Background(), target, Request{})
	if err == nil {
		t.Fatal("expected error for closed server")
	}
	if !errors.Is(err, ErrNetwork) {
		t.Errorf("expected ErrNetwork, got %v", err)
	}
}

// --- Request Tests ---

func TestRequest_WithCredentials_DoesNotMutateCaller(t *testing.T) {
	orig := Request{Headers: map[string]string{"user-agent": "mine", "Accept": "text/html"}}

	out := orig.WithCredentials("browser-ua", "a=1")

	if orig.Headers["user-agent"] != "mine" {
		t.Errorf("caller headers mutated: %v", orig.Headers)
	}
	if _, ok := orig.Headers["Cookie"]; ok {
		t.Error("caller headers gained a Cookie entry")
	}
	if _, ok := out.Headers["user-agent"]; ok {
		t.Error("expected lowercase user-agent to be replaced")
	}
	if out.Headers["User-Agent"] != "browser-ua" || out.Headers["Cookie"] != "a=1" {
		t.Errorf("unexpected credential headers: %v", out.Headers)
	}
	if out.Headers["Accept"] != "text/html" {
		t.Error("expected other headers to pass through")
	}
}

func TestRequest_Clone_NilHeaders(t *testing.T) {
	out := Request{}.Clone()
	if out.Headers == nil {
		t.Fatal("expected Clone to allocate headers")
	}
}

func TestHeader_CaseInsensitive(t *testing.T) {
	h := map[string]string{"cookie": "x=1"}
	if got := Header(h, "Cookie"); got != "x=1" {
		t.Errorf("expected x=1, got %q", got)
	}
	if got := Header(h, "Missing"); got != "" {
		t.Errorf("expected empty, got %q", got)
	}
}
