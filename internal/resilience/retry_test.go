package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhongsurehow/crossarb/internal/domain"
)

func transientErr() error {
	return domain.NewSourceError(domain.SourceBinance, domain.ErrKindTimeout, errors.New("deadline exceeded"))
}

func TestRetryPolicyDo(t *testing.T) {
	policy := RetryPolicy{
		MaxAttempts: 3,
		BaseDelay:   time.Millisecond,
		Multiplier:  2,
	}

	t.Run("succeeds without retrying", func(t *testing.T) {
		calls := 0
		err := policy.Do(context.Background(), func(ctx context.Context) error {
			calls++
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, 1, calls)
	})

	t.Run("transient failures retried to success", func(t *testing.T) {
		calls := 0
		err := policy.Do(context.Background(), func(ctx context.Context) error {
			calls++
			if calls < 3 {
				return transientErr()
			}
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, 3, calls)
	})

	t.Run("gives up after max attempts", func(t *testing.T) {
		calls := 0
		err := policy.Do(context.Background(), func(ctx context.Context) error {
			calls++
			return transientErr()
		})
		require.Error(t, err)
		assert.Equal(t, 3, calls)
	})

	t.Run("rate limits are not retried", func(t *testing.T) {
		calls := 0
		err := policy.Do(context.Background(), func(ctx context.Context) error {
			calls++
			return domain.NewSourceError(domain.SourceOKX, domain.ErrKindRateLimited, domain.ErrRateLimited)
		})
		require.Error(t, err)
		assert.Equal(t, 1, calls)
	})

	t.Run("malformed responses are not retried", func(t *testing.T) {
		calls := 0
		err := policy.Do(context.Background(), func(ctx context.Context) error {
			calls++
			return domain.NewSourceError(domain.SourceOKX, domain.ErrKindMalformedResponse, errors.New("bad json"))
		})
		require.Error(t, err)
		assert.Equal(t, 1, calls)
	})

	t.Run("plain errors are not retried", func(t *testing.T) {
		calls := 0
		err := policy.Do(context.Background(), func(ctx context.Context) error {
			calls++
			return errors.New("boom")
		})
		require.Error(t, err)
		assert.Equal(t, 1, calls)
	})

	t.Run("total wait budget stops retrying", func(t *testing.T) {
		tight := RetryPolicy{
			MaxAttempts:  10,
			BaseDelay:    40 * time.Millisecond,
			Multiplier:   2,
			MaxTotalWait: 50 * time.Millisecond,
		}
		calls := 0
		err := tight.Do(context.Background(), func(ctx context.Context) error {
			calls++
			return transientErr()
		})
		require.Error(t, err)
		// Attempt 1 sleeps 40ms; the 80ms backoff before attempt 3 would
		// blow the 50ms budget.
		assert.Equal(t, 2, calls)
	})

	t.Run("cancellation aborts the wait", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		slow := RetryPolicy{MaxAttempts: 5, BaseDelay: time.Hour, Multiplier: 2}

		done := make(chan error, 1)
		go func() {
			done <- slow.Do(ctx, func(ctx context.Context) error {
				return transientErr()
			})
		}()
		cancel()

		select {
		case err := <-done:
			assert.ErrorIs(t, err, context.Canceled)
		case <-time.After(time.Second):
			t.Fatal("retry loop did not observe cancellation")
		}
	})

	t.Run("zero attempts still runs once", func(t *testing.T) {
		calls := 0
		err := RetryPolicy{}.Do(context.Background(), func(ctx context.Context) error {
			calls++
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, 1, calls)
	})
}

func TestBackoffGrowth(t *testing.T) {
	p := RetryPolicy{BaseDelay: 100 * time.Millisecond, Multiplier: 2}
	assert.Equal(t, 100*time.Millisecond, p.backoff(1))
	assert.Equal(t, 200*time.Millisecond, p.backoff(2))
	assert.Equal(t, 400*time.Millisecond, p.backoff(3))
}

func TestBackoffJitterBounds(t *testing.T) {
	p := RetryPolicy{BaseDelay: 100 * time.Millisecond, Multiplier: 2, Jitter: true}
	for i := 0; i < 100; i++ {
		d := p.backoff(2)
		assert.GreaterOrEqual(t, d, 100*time.Millisecond)
		assert.LessOrEqual(t, d, 200*time.Millisecond)
	}
}
