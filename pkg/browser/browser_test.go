package browser

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"
)

// --- FindChromePath Tests ---

func TestFindChromePath_PrefersPathEntry(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("executable bit semantics differ on windows")
	}

	dir := t.TempDir()
	bin := filepath.Join(dir, "chromium-browser")
	if err := os.WriteFile(bin, []byte("#!/bin/sh\n"), 0o755); err != nil {
		t.Fatalf("failed to write fake binary: %v", err)
	}
	t.Setenv("PATH", dir)

	if got := FindChromePath(); got != bin {
		t.Errorf("expected %q, got %q", bin, got)
	}
}

// --- Script Tests ---

func TestMarkerGoneExpression(t *testing.T) {
	got := markerGoneExpression("_cf_chl_opt")
	want := `document.body !== null && !document.body.innerHTML.includes("_cf_chl_opt")`
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestMarkerGoneExpression_QuotesMarker(t *testing.T) {
	got := markerGoneExpression(`a"b`)
	if !strings.Contains(got, `"a\"b"`) {
		t.Errorf("expected escaped marker, got %q", got)
	}
}

func TestAllocatorOptions_AddsOptionalSettings(t *testing.T) {
	base := len(allocatorOptions(Config{}))
	withPath := len(allocatorOptions(Config{ExecPath: "/usr/bin/chromium"}))
	withAll := len(allocatorOptions(Config{ExecPath: "/usr/bin/chromium", Display: ":10.0"}))

	if withPath != base+1 {
		t.Errorf("expected exec path to add one option, got %d -> %d", base, withPath)
	}
	if withAll != base+2 {
		t.Errorf("expected display to add one option, got %d -> %d", withPath, withAll)
	}
}

func TestStealthScript_HidesWebdriver(t *testing.T) {
	if !strings.Contains(stealthScript, "'webdriver'") {
		t.Error("stealth script should patch navigator.webdriver")
	}
}

// --- Chrome Integration Tests ---

const challengeFixture = `<!DOCTYPE html>
<html><head><title>Just a moment...</title></head>
<body>
<script>window._cf_chl_opt = {cType: 'managed'};</script>
<script>
setTimeout(function () {
  document.cookie = "cf_clearance=solved; path=/";
  document.body.innerHTML = "<p>welcome</p>";
}, 300);
</script>
</body></html>`

func TestChrome_PassesFixtureChallenge(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping browser test in short mode")
	}
	path := FindChromePath()
	if path == "" {
		t.Skip("no Chrome binary available")
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.WriteHeader(http.StatusForbidden)
		fmt.Fprint(w, challengeFixture)
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	session, err := NewChrome(Config{Headless: true, ExecPath: path, Stealth: true}).Launch(ctx)
	if err != nil {
		t.Skipf("browser failed to start: %v", err)
	}
	defer session.Close()

	page, err := session.NewPage(ctx)
	if err != nil {
		t.Fatalf("NewPage() error = %v", err)
	}
	defer page.Close()

	if err := page.Navigate(ctx, srv.URL); err != nil {
		t.Fatalf("Navigate() error = %v", err)
	}
	if err := page.WaitMarkerGone(ctx, "_cf_chl_opt", 5*time.Second); err != nil {
		t.Fatalf("WaitMarkerGone() error = %v", err)
	}

	html, err := page.Content(ctx)
	if err != nil {
		t.Fatalf("Content() error = %v", err)
	}
	if !strings.Contains(html, "welcome") {
		t.Errorf("expected solved content, got %q", html)
	}

	cookies, err := page.Cookies(ctx)
	if err != nil {
		t.Fatalf("Cookies() error = %v", err)
	}
	found := false
	for _, c := range cookies {
		if c.Name == "cf_clearance" && c.Value == "solved" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected cf_clearance cookie, got %d cookies", len(cookies))
	}

	ua, err := page.UserAgent(ctx)
	if err != nil || ua == "" {
		t.Errorf("expected user agent, got %q (err %v)", ua, err)
	}

	if err := page.WaitNetworkIdle(ctx, 500*time.Millisecond); !errors.Is(err, ErrWaitTimeout) {
		t.Errorf("expected ErrWaitTimeout without a navigation, got %v", err)
	}

	if err := session.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	if err := session.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
}
