// Package ratelimit provides a keyed token bucket limiter. The API uses it to
// keep a misbehaving client from flooding the ledger with writes.
package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// idleAfter is how long a key may go unused before its bucket is dropped.
const idleAfter = 10 * time.Minute

type entry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// KeyedRateLimiter manages per-key rate limiting.
// Each unique key gets its own independent bucket.
type KeyedRateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*entry
	limit    rate.Limit
	burst    int
	now      func() time.Time
}

// New creates a keyed limiter allowing rps sustained requests per key with
// bursts of up to burst. A non-positive rps disables limiting.
func New(rps float64, burst int) *KeyedRateLimiter {
	limit := rate.Limit(rps)
	if rps <= 0 {
		limit = rate.Inf
	}
	if burst < 1 {
		burst = 1
	}
	return &KeyedRateLimiter{
		limiters: make(map[string]*entry),
		limit:    limit,
		burst:    burst,
		now:      time.Now,
	}
}

// Allow reports whether a request for key may proceed now.
func (krl *KeyedRateLimiter) Allow(key string) bool {
	krl.mu.Lock()
	defer krl.mu.Unlock()

	now := krl.now()
	e, ok := krl.limiters[key]
	if !ok {
		krl.evictIdle(now)
		e = &entry{limiter: rate.NewLimiter(krl.limit, krl.burst)}
		krl.limiters[key] = e
	}
	e.lastSeen = now
	return e.limiter.AllowN(now, 1)
}

// Len returns the number of tracked keys.
func (krl *KeyedRateLimiter) Len() int {
	krl.mu.Lock()
	defer krl.mu.Unlock()
	return len(krl.limiters)
}

// evictIdle drops buckets unused for idleAfter. Called with mu held, only when
// a new key arrives, so steady traffic from known keys never pays for it.
func (krl *KeyedRateLimiter) evictIdle(now time.Time) {
	for k, e := range krl.limiters {
		if now.Sub(e.lastSeen) > idleAfter {
			delete(krl.limiters, k)
		}
	}
}
