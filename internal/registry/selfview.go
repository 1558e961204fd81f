package registry

import (
	"sync"
	"time"
)

// DefaultSelfViewTTL is the minimum refresh interval when the caller
// doesn't supply one; stale values are acceptable between refreshes.
const DefaultSelfViewTTL = 5 * time.Minute

// SelfViewFetcher obtains the server's own public IP and geolocation,
// exactly the way the client agent obtains its own (internal/geoloc).
type SelfViewFetcher func() (ip, country, city, dnsLocation string, err error)

// SelfView is the process-wide, lazily refreshed view of the server's own
// network identity, used exclusively for VPN-bypass detection.
type SelfView struct {
	mu      sync.RWMutex
	fetch   SelfViewFetcher
	ttl     time.Duration
	ip      string
	country string
	city    string
	dnsLoc  string
	fetched time.Time
}

// NewSelfView creates a SelfView that refreshes via fetch no more often
// than ttl. It does not perform the first fetch; call Refresh once at
// startup (best-effort) so the server has an opinion immediately.
func NewSelfView(fetch SelfViewFetcher, ttl time.Duration) *SelfView {
	if ttl <= 0 {
		ttl = DefaultSelfViewTTL
	}
	return &SelfView{fetch: fetch, ttl: ttl}
}

// Refresh re-fetches the self-view unconditionally. Failures are
// swallowed (the prior, possibly stale, value is kept and the next
// attempt waits a full ttl): a stale self-view must never block
// classification.
func (s *SelfView) Refresh() {
	ip, c, city, dnsLoc, err := s.fetch()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fetched = time.Now()
	if err != nil {
		return
	}
	s.ip, s.country, s.city, s.dnsLoc = ip, c, city, dnsLoc
}

// refreshIfStale refreshes synchronously when the TTL has elapsed. It is
// cheap to call on every classification because the common case is a
// single RLock.
func (s *SelfView) refreshIfStale() {
	s.mu.RLock()
	stale := time.Since(s.fetched) > s.ttl
	s.mu.RUnlock()
	if stale {
		s.Refresh()
	}
}

// IP returns the current (possibly stale) self public IP.
func (s *SelfView) IP() string {
	s.refreshIfStale()
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ip
}

// Snapshot returns every field at once, used by the status API and
// dashboard server-info panel.
func (s *SelfView) Snapshot() (ip, country, city, dnsLocation string) {
	s.refreshIfStale()
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ip, s.country, s.city, s.dnsLoc
}
