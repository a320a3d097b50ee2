package resilience

import (
	"context"
	"math/rand"
	"time"

	"github.com/zhongsurehow/crossarb/internal/domain"
)

// RetryPolicy bounds how often and how long a failed call is retried.
type RetryPolicy struct {
	MaxAttempts  int
	BaseDelay    time.Duration
	Multiplier   float64
	Jitter       bool
	MaxTotalWait time.Duration
}

// retryable reports whether err is worth another attempt. Only transient
// transport failures qualify; rate limits and malformed responses would
// fail the same way again (or make the provider angrier).
func retryable(err error) bool {
	se, ok := domain.AsSourceError(err)
	return ok && se.Transient()
}

// backoff returns the delay before attempt n (0-based, so attempt 1 is the
// first retry).
func (p RetryPolicy) backoff(attempt int) time.Duration {
	d := float64(p.BaseDelay)
	for i := 1; i < attempt; i++ {
		d *= p.Multiplier
	}
	if p.Jitter {
		// Full jitter between 50% and 100% of the computed delay.
		d = d/2 + rand.Float64()*d/2
	}
	return time.Duration(d)
}

// Do runs fn up to MaxAttempts times, sleeping between attempts, and stops
// early when the total sleep would exceed MaxTotalWait or when the error is
// not retryable.
func (p RetryPolicy) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var slept time.Duration
	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		err = fn(ctx)
		if err == nil {
			return nil
		}
		if attempt == attempts || !retryable(err) {
			return err
		}

		delay := p.backoff(attempt)
		if p.MaxTotalWait > 0 && slept+delay > p.MaxTotalWait {
			return err
		}
		slept += delay

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	return err
}
