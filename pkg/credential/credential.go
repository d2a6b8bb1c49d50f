// Package credential caches the browser-derived credentials that let a plain
// HTTP client pass a challenge, keyed by the exact request URL.
package credential

import (
	"time"

	"github.com/jmylchreest/clearance/pkg/fetcher"
)

// Credential is one successfully unblocked request URL.
type Credential struct {
	URL          string          // Exact request URL; the cache key
	Options      fetcher.Request // Shape of the acquiring request
	CookieHeader string          // "k=v; k=v"
	UserAgent    string          // Must be replayed verbatim with CookieHeader
	AcquiredAt   time.Time
}

// Store maps request URLs to credentials. Keys are compared byte for byte,
// so two query strings on one domain are cached independently.
//
// Store is not safe for concurrent use.
type Store struct {
	entries map[string]Credential
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{entries: make(map[string]Credential)}
}

// Lookup returns the credential cached for url.
func (s *Store) Lookup(url string) (Credential, bool) {
	c, ok := s.entries[url]
	return c, ok
}

// Insert caches c under c.URL, replacing any previous entry.
func (s *Store) Insert(c Credential) {
	s.entries[c.URL] = c
}

// Remove drops the entry for url. Removing a missing URL is a no-op.
func (s *Store) Remove(url string) {
	delete(s.entries, url)
}

// Len returns the number of cached credentials.
func (s *Store) Len() int {
	return len(s.entries)
}
