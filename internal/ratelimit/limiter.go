// Package ratelimit throttles repeated actions per key with fixed-window
// token buckets.
package ratelimit

import (
	"sync"
	"time"

	"github.com/y-ui/yuictl/internal/clock"
)

// Limiter manages rate limiting for multiple keys
type Limiter struct {
	limit    int
	interval time.Duration
	clock    clock.Clock

	mu       sync.Mutex
	limiters map[string]*bucket
}

// bucket refills to limit once interval has passed since the last refill
type bucket struct {
	tokens   int
	lastFill time.Time
}

// NewLimiter allows limit actions per key in every interval. A nil clock
// uses the wall clock.
func NewLimiter(limit int, interval time.Duration, c clock.Clock) *Limiter {
	return &Limiter{
		limit:    limit,
		interval: interval,
		clock:    clock.OrReal(c),
		limiters: make(map[string]*bucket),
	}
}

// Allow takes a token for key and reports whether one was available.
func (l *Limiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	b := l.fill(key)
	if b.tokens <= 0 {
		return false
	}
	b.tokens--
	return true
}

// Wait is how long key has to wait for its next token; zero when one is
// available now.
func (l *Limiter) Wait(key string) time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()

	b := l.fill(key)
	if b.tokens > 0 {
		return 0
	}
	return l.interval - l.clock.Since(b.lastFill)
}

func (l *Limiter) fill(key string) *bucket {
	now := l.clock.Now()
	b, ok := l.limiters[key]
	if !ok {
		b = &bucket{tokens: l.limit, lastFill: now}
		l.limiters[key] = b
	}
	if now.Sub(b.lastFill) >= l.interval {
		b.tokens = l.limit
		b.lastFill = now
	}
	return b
}

// Reset clears rate limit for a specific key
func (l *Limiter) Reset(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.limiters, key)
}

// CleanupExpired removes buckets that have not refilled within maxAge and
// returns how many were removed.
func (l *Limiter) CleanupExpired(maxAge time.Duration) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock.Now()
	removed := 0
	for key, b := range l.limiters {
		if now.Sub(b.lastFill) > maxAge {
			delete(l.limiters, key)
			removed++
		}
	}
	return removed
}
