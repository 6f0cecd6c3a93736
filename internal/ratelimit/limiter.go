package ratelimit

import (
	"context"
	"strings"
	"sync"
	"time"
)

// Limiter is a sliding-window attempt counter, keyed by caller-chosen strings
// (we key auth endpoints by lower-cased email). It is process-local: in a
// multi-instance deployment the counter should move to a shared store.
type Limiter struct {
	mu       sync.Mutex
	attempts map[string][]time.Time
	max      int
	window   time.Duration
	now      func() time.Time
}

func New(max int, window time.Duration) *Limiter {
	return &Limiter{
		attempts: make(map[string][]time.Time),
		max:      max,
		window:   window,
		now:      time.Now,
	}
}

// Allow records an attempt and reports whether it is within the window limit.
func (l *Limiter) Allow(key string) bool {
	key = strings.ToLower(strings.TrimSpace(key))
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	valid := l.attempts[key][:0]
	for _, t := range l.attempts[key] {
		if now.Sub(t) < l.window {
			valid = append(valid, t)
		}
	}
	if len(valid) >= l.max {
		l.attempts[key] = valid
		return false
	}
	l.attempts[key] = append(valid, now)
	return true
}

// Forget drops the counter for a key, e.g. after a successful login.
func (l *Limiter) Forget(key string) {
	key = strings.ToLower(strings.TrimSpace(key))
	l.mu.Lock()
	delete(l.attempts, key)
	l.mu.Unlock()
}

// Run sweeps stale keys every period until ctx ends. Without it the attempts
// map grows with every distinct key ever seen.
func (l *Limiter) Run(ctx context.Context, period time.Duration) {
	if period <= 0 {
		period = l.window
	}
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.Sweep()
		}
	}
}

// Sweep removes keys with no attempts inside the window.
func (l *Limiter) Sweep() {
	now := l.now()
	l.mu.Lock()
	defer l.mu.Unlock()
	for key, ts := range l.attempts {
		live := false
		for _, t := range ts {
			if now.Sub(t) < l.window {
				live = true
				break
			}
		}
		if !live {
			delete(l.attempts, key)
		}
	}
}
