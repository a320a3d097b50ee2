package scanner

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhongsurehow/crossarb/internal/aggregator"
	"github.com/zhongsurehow/crossarb/internal/arbitrage"
	"github.com/zhongsurehow/crossarb/internal/domain"
	"github.com/zhongsurehow/crossarb/internal/quotecache"
	"github.com/zhongsurehow/crossarb/internal/resilience"
	"github.com/zhongsurehow/crossarb/internal/source"
)

type fixedAdapter struct {
	id       domain.SourceID
	bid, ask float64
}

func (a *fixedAdapter) Name() domain.SourceID { return a.id }

func (a *fixedAdapter) Fetch(_ context.Context, symbol string) (domain.Quote, error) {
	q, _, err := domain.NewQuote(a.id, symbol, a.bid, a.ask, (a.bid+a.ask)/2, 5000, 0, time.Now(), domain.QualityReal)
	return q, err
}

type stubTable struct{}

func (stubTable) ExchangeInfo(_ context.Context, src domain.SourceID) (domain.ExchangeInfo, error) {
	return domain.ExchangeInfo{
		Source: src,
		Networks: []domain.NetworkInfo{{
			Network:         "TRC20",
			DepositEnabled:  true,
			WithdrawEnabled: true,
			WithdrawFee:     1,
			ConfirmDelay:    30 * time.Second,
		}},
	}, nil
}

func newTestScanner(t *testing.T, adapters ...source.Adapter) *Scanner {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	limiter := resilience.NewLimiter(resilience.ModeWait, func(string) time.Duration { return 0 })
	breaker := resilience.NewBreaker(5, time.Minute)
	retry := resilience.RetryPolicy{MaxAttempts: 1, BaseDelay: time.Millisecond, Multiplier: 2}
	guard := resilience.NewGuard(limiter, breaker, retry, adapters, logger)

	qcache := quotecache.New(guard, time.Minute)
	agg := aggregator.New(qcache, aggregator.Config{MinRealQuotes: 2}, logger)
	enricher := arbitrage.NewEnricher(stubTable{}, logger)

	return New(agg, guard, enricher, nil, nil, nil, nil, Config{
		Symbols:      []string{"BTC/USDT"},
		Interval:     time.Minute,
		MinProfitPct: 0.1,
	}, logger)
}

func TestScanSymbol(t *testing.T) {
	t.Run("full pipeline produces ranked opportunities", func(t *testing.T) {
		s := newTestScanner(t,
			&fixedAdapter{id: domain.SourceBinance, bid: 43000, ask: 43010},
			&fixedAdapter{id: domain.SourceOKX, bid: 43500, ask: 43510},
		)

		result, err := s.ScanSymbol(context.Background(), "BTC/USDT")
		require.NoError(t, err)

		assert.Equal(t, "BTC/USDT", result.Symbol)
		assert.Equal(t, domain.QualityReal, result.Quality)
		require.NotEmpty(t, result.Opportunities)

		best := result.Opportunities[0]
		assert.Equal(t, domain.SourceBinance, best.BuySource)
		assert.Equal(t, domain.SourceOKX, best.SellSource)
		assert.True(t, best.NetworkCompatible)
		assert.Equal(t, domain.NetworkID("TRC20"), best.UnifiedNetwork)

		// Ranked best-first.
		for i := 1; i < len(result.Opportunities); i++ {
			assert.GreaterOrEqual(t,
				result.Opportunities[i-1].ProfitPct,
				result.Opportunities[i].ProfitPct)
		}

		assert.Equal(t, result.Summary.Count, len(result.Opportunities))
		assert.Equal(t, domain.SourceOKX, result.Best.BestBidSource)
		assert.False(t, result.ScannedAt.IsZero())
	})

	t.Run("no spread means an empty result, not an error", func(t *testing.T) {
		s := newTestScanner(t,
			&fixedAdapter{id: domain.SourceBinance, bid: 43000, ask: 43010},
			&fixedAdapter{id: domain.SourceOKX, bid: 43001, ask: 43011},
		)

		result, err := s.ScanSymbol(context.Background(), "BTC/USDT")
		require.NoError(t, err)
		assert.Empty(t, result.Opportunities)
		assert.Zero(t, result.Summary.Count)
	})

	t.Run("latest keeps the most recent result per symbol", func(t *testing.T) {
		s := newTestScanner(t,
			&fixedAdapter{id: domain.SourceBinance, bid: 43000, ask: 43010},
			&fixedAdapter{id: domain.SourceOKX, bid: 43500, ask: 43510},
		)

		require.Empty(t, s.Latest())

		_, err := s.ScanSymbol(context.Background(), "BTC/USDT")
		require.NoError(t, err)

		latest := s.Latest()
		require.Len(t, latest, 1)
		assert.Equal(t, "BTC/USDT", latest[0].Symbol)
	})

	t.Run("statuses cover every source", func(t *testing.T) {
		s := newTestScanner(t,
			&fixedAdapter{id: domain.SourceBinance, bid: 43000, ask: 43010},
			&fixedAdapter{id: domain.SourceOKX, bid: 43500, ask: 43510},
		)

		statuses := s.Statuses()
		require.Len(t, statuses, 2)
		for _, st := range statuses {
			assert.Equal(t, "closed", st.BreakerState)
		}
	})
}

func TestRunStopsOnCancel(t *testing.T) {
	s := newTestScanner(t,
		&fixedAdapter{id: domain.SourceBinance, bid: 43000, ask: 43010},
		&fixedAdapter{id: domain.SourceOKX, bid: 43500, ask: 43510},
	)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("scanner did not stop on cancellation")
	}
}
