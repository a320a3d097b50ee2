package resilience

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhongsurehow/crossarb/internal/domain"
	"github.com/zhongsurehow/crossarb/internal/source"
)

type scriptedAdapter struct {
	name  domain.SourceID
	errs  []error // consumed in order; nil means success
	calls int
}

func (a *scriptedAdapter) Name() domain.SourceID { return a.name }

func (a *scriptedAdapter) Fetch(_ context.Context, symbol string) (domain.Quote, error) {
	idx := a.calls
	a.calls++
	if idx < len(a.errs) && a.errs[idx] != nil {
		return domain.Quote{}, a.errs[idx]
	}
	q, _, err := domain.NewQuote(a.name, symbol, 43000, 43010, 43005, 1200, 0, time.Now(), domain.QualityReal)
	if err != nil {
		return domain.Quote{}, err
	}
	return q, nil
}

func newTestGuard(adapters ...source.Adapter) *Guard {
	limiter := NewLimiter(ModeWait, func(string) time.Duration { return 0 })
	breaker := NewBreaker(5, time.Minute)
	retry := RetryPolicy{MaxAttempts: 3, BaseDelay: time.Millisecond, Multiplier: 2}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewGuard(limiter, breaker, retry, adapters, logger)
}

func TestGuardFetch(t *testing.T) {
	t.Run("recovers from transient failures within the attempt budget", func(t *testing.T) {
		timeout := domain.NewSourceError(domain.SourceBinance, domain.ErrKindTimeout, errors.New("i/o timeout"))
		adapter := &scriptedAdapter{name: domain.SourceBinance, errs: []error{timeout, timeout, nil}}
		g := newTestGuard(adapter)

		q, err := g.Fetch(context.Background(), domain.SourceBinance, "BTC/USDT")
		require.NoError(t, err)
		assert.Equal(t, 3, adapter.calls)
		assert.Equal(t, 43000.0, q.Bid)
		assert.Equal(t, StateClosed, g.breaker.State(domain.SourceBinance))
	})

	t.Run("rate limit errors fail without retry", func(t *testing.T) {
		limited := domain.NewSourceError(domain.SourceOKX, domain.ErrKindRateLimited, domain.ErrRateLimited)
		adapter := &scriptedAdapter{name: domain.SourceOKX, errs: []error{limited}}
		g := newTestGuard(adapter)

		_, err := g.Fetch(context.Background(), domain.SourceOKX, "BTC/USDT")
		require.Error(t, err)
		assert.Equal(t, 1, adapter.calls)
	})

	t.Run("open breaker fails fast without calling the adapter", func(t *testing.T) {
		unreachable := domain.NewSourceError(domain.SourceGate, domain.ErrKindMalformedResponse, errors.New("bad body"))
		adapter := &scriptedAdapter{name: domain.SourceGate, errs: []error{
			unreachable, unreachable, unreachable, unreachable, unreachable,
		}}
		g := newTestGuard(adapter)

		for i := 0; i < 5; i++ {
			_, err := g.Fetch(context.Background(), domain.SourceGate, "BTC/USDT")
			require.Error(t, err)
		}
		require.Equal(t, 5, adapter.calls)
		require.Equal(t, StateOpen, g.breaker.State(domain.SourceGate))

		_, err := g.Fetch(context.Background(), domain.SourceGate, "BTC/USDT")
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrBreakerOpen)
		assert.Equal(t, 5, adapter.calls)
	})

	t.Run("reject mode rejections never count against the breaker", func(t *testing.T) {
		adapter := &scriptedAdapter{name: domain.SourceKuCoin}
		limiter := NewLimiter(ModeReject, func(string) time.Duration { return time.Second })
		breaker := NewBreaker(5, time.Minute)
		logger := slog.New(slog.NewTextHandler(io.Discard, nil))
		g := NewGuard(limiter, breaker, RetryPolicy{MaxAttempts: 3, BaseDelay: time.Millisecond, Multiplier: 2}, []source.Adapter{adapter}, logger)

		var (
			wg        sync.WaitGroup
			succeeded atomic.Int32
			limited   atomic.Int32
		)
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := g.Fetch(context.Background(), domain.SourceKuCoin, "BTC/USDT")
				if err == nil {
					succeeded.Add(1)
					return
				}
				if errors.Is(err, domain.ErrRateLimited) {
					limited.Add(1)
				}
			}()
		}
		wg.Wait()

		assert.Equal(t, int32(1), succeeded.Load())
		assert.Equal(t, int32(7), limited.Load())
		assert.Equal(t, 1, adapter.calls)
		assert.Equal(t, StateClosed, g.breaker.State(domain.SourceKuCoin))
		assert.Equal(t, 0, g.Status(domain.SourceKuCoin).FailureCount)
	})

	t.Run("unknown source", func(t *testing.T) {
		g := newTestGuard()
		_, err := g.Fetch(context.Background(), domain.SourceID("nope"), "BTC/USDT")
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("sources lists every adapter", func(t *testing.T) {
		g := newTestGuard(
			&scriptedAdapter{name: domain.SourceBinance},
			&scriptedAdapter{name: domain.SourceOKX},
		)
		assert.ElementsMatch(t,
			[]domain.SourceID{domain.SourceBinance, domain.SourceOKX},
			g.Sources())
	})

	t.Run("status reflects breaker bookkeeping", func(t *testing.T) {
		boom := domain.NewSourceError(domain.SourceBybit, domain.ErrKindMalformedResponse, errors.New("boom"))
		adapter := &scriptedAdapter{name: domain.SourceBybit, errs: []error{boom}}
		g := newTestGuard(adapter)

		_, err := g.Fetch(context.Background(), domain.SourceBybit, "BTC/USDT")
		require.Error(t, err)

		st := g.Status(domain.SourceBybit)
		assert.Equal(t, 1, st.FailureCount)
		assert.Equal(t, "closed", st.BreakerState)
	})
}
