// Package resilience wraps source adapters with rate limiting, circuit
// breaking and bounded retry so that a misbehaving exchange degrades a scan
// instead of stalling or failing it.
package resilience

import (
	"context"
	"sync"
	"time"

	"github.com/zhongsurehow/crossarb/internal/domain"
)

// LimitMode selects what happens when a request arrives before the
// per-source interval has elapsed.
type LimitMode int

const (
	// ModeWait queues the caller until the next slot opens.
	ModeWait LimitMode = iota
	// ModeReject fails the call immediately with a RateLimited error.
	ModeReject
)

// ParseLimitMode maps the config strings "wait" and "reject" onto a
// LimitMode, defaulting to wait.
func ParseLimitMode(s string) LimitMode {
	if s == "reject" {
		return ModeReject
	}
	return ModeWait
}

// Limiter enforces a minimum interval between requests to each source.
type Limiter struct {
	mode     LimitMode
	interval func(source string) time.Duration

	mu   sync.Mutex
	next map[domain.SourceID]time.Time
}

// NewLimiter creates a limiter. interval returns the minimum spacing for a
// source and is consulted on every acquire, so config reloads take effect
// without rebuilding the limiter.
func NewLimiter(mode LimitMode, interval func(source string) time.Duration) *Limiter {
	return &Limiter{
		mode:     mode,
		interval: interval,
		next:     make(map[domain.SourceID]time.Time),
	}
}

// Acquire blocks (wait mode) or fails (reject mode) until the source's next
// request slot. A nil error means the caller owns the slot and may issue
// the request.
func (l *Limiter) Acquire(ctx context.Context, source domain.SourceID) error {
	iv := l.interval(string(source))
	if iv <= 0 {
		return nil
	}

	now := time.Now()

	l.mu.Lock()
	next := l.next[source]
	if next.Before(now) {
		next = now
	}
	wait := next.Sub(now)
	if l.mode == ModeReject && wait > 0 {
		l.mu.Unlock()
		return domain.NewSourceError(source, domain.ErrKindRateLimited, domain.ErrRateLimited)
	}
	// Claim the slot before sleeping so concurrent callers queue behind us.
	l.next[source] = next.Add(iv)
	l.mu.Unlock()

	if wait <= 0 {
		return nil
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
