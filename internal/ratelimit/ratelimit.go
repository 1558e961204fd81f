// Package ratelimit implements per-source-IP rate limiting: a map of
// token-bucket rate limiters, one per key, pruned opportunistically. It
// is not a strict sliding window: a bucket refills continuously, so
// more than perMinute requests can be accepted within one 60-second
// span when they are spread out. It generalizes
// the teacher's storage.MemoryStore locking pattern (one mutex-guarded
// map, copy-on-read) to per-IP golang.org/x/time/rate limiters instead
// of hand-rolled timestamp rings.
package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// entry pairs a limiter with the last time it was touched, so stale
// entries can be pruned without ever growing RateLimitState unbounded.
type entry struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// Limiter is a single mutex-guarded map of per-IP token-bucket rate
// limiters. It tolerates concurrent access from every API request
// handler.
type Limiter struct {
	mu         sync.Mutex
	perMinute  int
	entries    map[string]*entry
	pruneAfter time.Duration
	lastPrune  time.Time
}

// New creates a Limiter allowing perMinute requests per minute per
// source IP, with a burst equal to perMinute: N back-to-back requests
// succeed and request N+1 fails, after which one more request is
// allowed every 60/perMinute seconds.
func New(perMinute int) *Limiter {
	if perMinute <= 0 {
		perMinute = 30
	}
	return &Limiter{
		perMinute:  perMinute,
		entries:    make(map[string]*entry),
		pruneAfter: 10 * time.Minute,
	}
}

// Allow reports whether ip may make a request now, and the duration the
// caller should report back to the client as Retry-After when it may not.
func (l *Limiter) Allow(ip string) (allowed bool, retryAfter time.Duration) {
	now := time.Now()

	l.mu.Lock()
	e, ok := l.entries[ip]
	if !ok {
		e = &entry{limiter: rate.NewLimiter(rate.Limit(float64(l.perMinute)/60.0), l.perMinute)}
		l.entries[ip] = e
	}
	e.lastAccess = now
	l.pruneLocked(now)
	l.mu.Unlock()

	res := e.limiter.ReserveN(now, 1)
	if !res.OK() {
		return false, time.Minute
	}
	delay := res.DelayFrom(now)
	if delay > 0 {
		res.Cancel()
		return false, delay
	}
	return true, 0
}

// pruneLocked opportunistically evicts entries untouched for longer than
// pruneAfter. Called with l.mu held.
func (l *Limiter) pruneLocked(now time.Time) {
	if now.Sub(l.lastPrune) < l.pruneAfter {
		return
	}
	l.lastPrune = now
	for ip, e := range l.entries {
		if now.Sub(e.lastAccess) > l.pruneAfter {
			delete(l.entries, ip)
		}
	}
}
