package credential

import (
	"testing"

	"github.com/jmylchreest/clearance/pkg/fetcher"
)

// --- Store Tests ---

func TestStore_LookupMiss(t *testing.T) {
	s := NewStore()
	if _, ok := s.Lookup("https://example.com"); ok {
		t.Error("Lookup() should miss on empty store")
	}
}

func TestStore_InsertLookup(t *testing.T) {
	s := NewStore()
	s.Insert(Credential{
		URL:          "https://example.com/a?x=1",
		Options:      fetcher.Request{Method: "GET"},
		CookieHeader: "cf_clearance=abc",
		UserAgent:    "ua/1",
	})

	got, ok := s.Lookup("https://example.com/a?x=1")
	if !ok {
		t.Fatal("Lookup() should hit after Insert")
	}
	if got.CookieHeader != "cf_clearance=abc" || got.UserAgent != "ua/1" {
		t.Errorf("unexpected credential: %+v", got)
	}
	if s.Len() != 1 {
		t.Errorf("expected length 1, got %d", s.Len())
	}
}

func TestStore_ExactURLOnly(t *testing.T) {
	s := NewStore()
	s.Insert(Credential{URL: "https://example.com/a?x=1"})

	for _, u := range []string{
		"https://example.com/a?x=2",
		"https://example.com/a",
		"https://example.com/a?x=1&",
		"https://EXAMPLE.com/a?x=1",
	} {
		if _, ok := s.Lookup(u); ok {
			t.Errorf("Lookup(%q) should miss", u)
		}
	}
}

func TestStore_InsertReplaces(t *testing.T) {
	s := NewStore()
	s.Insert(Credential{URL: "u", UserAgent: "old"})
	s.Insert(Credential{URL: "u", UserAgent: "new"})

	got, _ := s.Lookup("u")
	if got.UserAgent != "new" {
		t.Errorf("expected replaced entry, got %q", got.UserAgent)
	}
	if s.Len() != 1 {
		t.Errorf("expected length 1, got %d", s.Len())
	}
}

func TestStore_Remove(t *testing.T) {
	s := NewStore()
	s.Insert(Credential{URL: "a"})
	s.Insert(Credential{URL: "b"})

	s.Remove("a")
	s.Remove("missing")

	if _, ok := s.Lookup("a"); ok {
		t.Error("expected a to be removed")
	}
	if _, ok := s.Lookup("b"); !ok {
		t.Error("expected b to survive")
	}
}
