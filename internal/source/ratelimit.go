package source

import (
	"context"
	"sync"
	"time"
)

// Limiter enforces a minimum interval between requests per key
// (API key or host). In-memory; good enough for one process, which is
// all a personal store runs.
type Limiter struct {
	mu       sync.Mutex
	last     map[string]time.Time
	interval time.Duration
}

// NewLimiter creates a limiter with the given per-key minimum interval.
func NewLimiter(interval time.Duration) *Limiter {
	return &Limiter{
		last:     make(map[string]time.Time),
		interval: interval,
	}
}

// Wait blocks until key may issue its next request, or ctx ends.
// The slot is claimed before sleeping so concurrent callers on the same
// key queue up instead of stampeding.
func (l *Limiter) Wait(ctx context.Context, key string) error {
	l.mu.Lock()
	now := time.Now()
	ready := l.last[key].Add(l.interval)
	if ready.Before(now) {
		ready = now
	}
	l.last[key] = ready
	l.mu.Unlock()

	wait := time.Until(ready)
	if wait <= 0 {
		return nil
	}
	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
