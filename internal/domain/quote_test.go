package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testQuote(source SourceID, bid, ask, last float64) Quote {
	q, _, err := NewQuote(source, "BTC/USDT", bid, ask, last, 5000, 1.2, time.Now(), QualityReal)
	if err != nil {
		panic(err)
	}
	return q
}

func TestNewQuote(t *testing.T) {
	now := time.Now()

	t.Run("valid quote", func(t *testing.T) {
		q, swapped, err := NewQuote(SourceBinance, "BTC/USDT", 43000, 43010, 43005, 1200, -0.5, now, QualityReal)
		require.NoError(t, err)
		assert.False(t, swapped)
		assert.Equal(t, SourceBinance, q.Source)
		assert.Equal(t, 43000.0, q.Bid)
		assert.Equal(t, 43010.0, q.Ask)
		assert.Equal(t, 10.0, q.Spread())
	})

	t.Run("crossed book is corrected by swapping", func(t *testing.T) {
		q, swapped, err := NewQuote(SourceOKX, "BTC/USDT", 43010, 43000, 43005, 1200, 0, now, QualityReal)
		require.NoError(t, err)
		assert.True(t, swapped)
		assert.Equal(t, 43000.0, q.Bid)
		assert.Equal(t, 43010.0, q.Ask)
	})

	t.Run("non-positive prices rejected", func(t *testing.T) {
		for _, tc := range []struct {
			name           string
			bid, ask, last float64
		}{
			{"zero bid", 0, 43010, 43005},
			{"negative ask", 43000, -1, 43005},
			{"zero last", 43000, 43010, 0},
		} {
			t.Run(tc.name, func(t *testing.T) {
				_, _, err := NewQuote(SourceBinance, "BTC/USDT", tc.bid, tc.ask, tc.last, 100, 0, now, QualityReal)
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrInvalidPrice)
			})
		}
	})

	t.Run("negative volume rejected", func(t *testing.T) {
		_, _, err := NewQuote(SourceBinance, "BTC/USDT", 43000, 43010, 43005, -1, 0, now, QualityReal)
		assert.ErrorIs(t, err, ErrInvalidPrice)
	})
}

func TestQuoteAge(t *testing.T) {
	observed := time.Now().Add(-30 * time.Second)
	q, _, err := NewQuote(SourceGate, "ETH/USDT", 2600, 2601, 2600.5, 100, 0, observed, QualityReal)
	require.NoError(t, err)
	assert.InDelta(t, 30, q.Age(time.Now()).Seconds(), 1)
}

func TestQuoteSet(t *testing.T) {
	t.Run("add replaces per source", func(t *testing.T) {
		var set QuoteSet
		set.Add(testQuote(SourceBinance, 100, 101, 100.5))
		set.Add(testQuote(SourceBinance, 102, 103, 102.5))
		require.Equal(t, 1, set.Len())
		assert.Equal(t, 102.0, set.Quotes[SourceBinance].Bid)
	})

	t.Run("best across sources", func(t *testing.T) {
		set := QuoteSet{Symbol: "BTC/USDT"}
		set.Add(testQuote(SourceBinance, 43000, 43010, 43005))
		set.Add(testQuote(SourceOKX, 43020, 43030, 43025))
		set.Add(testQuote(SourceKuCoin, 42990, 43005, 43000))

		bp, ok := set.Best()
		require.True(t, ok)
		assert.Equal(t, SourceOKX, bp.BestBidSource)
		assert.Equal(t, 43020.0, bp.BestBid)
		assert.Equal(t, SourceKuCoin, bp.BestAskSource)
		assert.Equal(t, 43005.0, bp.BestAsk)
		assert.InDelta(t, -15.0, bp.Spread, 1e-9)
	})

	t.Run("best on empty set", func(t *testing.T) {
		var set QuoteSet
		_, ok := set.Best()
		assert.False(t, ok)
	})

	t.Run("deviation sums to zero", func(t *testing.T) {
		set := QuoteSet{Symbol: "BTC/USDT"}
		set.Add(testQuote(SourceBinance, 100, 101, 99))
		set.Add(testQuote(SourceOKX, 100, 101, 101))

		dev := set.Deviation()
		require.Len(t, dev, 2)
		assert.InDelta(t, -1.0, dev[SourceBinance], 1e-9)
		assert.InDelta(t, 1.0, dev[SourceOKX], 1e-9)
	})

	t.Run("deviation on empty set", func(t *testing.T) {
		var set QuoteSet
		assert.Nil(t, set.Deviation())
	})
}

func TestSourceErrorTransient(t *testing.T) {
	cases := map[SourceErrorKind]bool{
		ErrKindTimeout:           true,
		ErrKindUnreachable:       true,
		ErrKindRateLimited:       false,
		ErrKindMalformedResponse: false,
	}
	for kind, want := range cases {
		se := NewSourceError(SourceBinance, kind, nil)
		assert.Equal(t, want, se.Transient(), "kind %s", kind)
	}
}

func TestOpportunityBuckets(t *testing.T) {
	t.Run("risk level", func(t *testing.T) {
		assert.Equal(t, RiskLow, Opportunity{RiskScore: 3}.RiskLevel())
		assert.Equal(t, RiskMedium, Opportunity{RiskScore: 4.5}.RiskLevel())
		assert.Equal(t, RiskHigh, Opportunity{RiskScore: 8}.RiskLevel())
	})

	t.Run("liquidity", func(t *testing.T) {
		assert.Equal(t, LiquidityHigh, Opportunity{AvailableVolume: 5000}.Liquidity())
		assert.Equal(t, LiquidityMedium, Opportunity{AvailableVolume: 1500}.Liquidity())
		assert.Equal(t, LiquidityLow, Opportunity{AvailableVolume: 999}.Liquidity())
	})

	t.Run("executable requires rail and real data", func(t *testing.T) {
		assert.True(t, Opportunity{NetworkCompatible: true, Quality: QualityReal}.Executable())
		assert.False(t, Opportunity{NetworkCompatible: false, Quality: QualityReal}.Executable())
		assert.False(t, Opportunity{NetworkCompatible: true, Quality: QualitySynthetic}.Executable())
	})
}
