package arbitrage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhongsurehow/crossarb/internal/domain"
)

func quote(source domain.SourceID, bid, ask, volume float64) domain.Quote {
	q, _, err := domain.NewQuote(source, "BTC/USDT", bid, ask, (bid+ask)/2, volume, 0, time.Now(), domain.QualityReal)
	if err != nil {
		panic(err)
	}
	return q
}

func quoteSet(quotes ...domain.Quote) domain.QuoteSet {
	set := domain.QuoteSet{Symbol: "BTC/USDT", Quality: domain.QualityReal, FetchedAt: time.Now()}
	for _, q := range quotes {
		set.Add(q)
	}
	return set
}

func TestCompute(t *testing.T) {
	t.Run("detects spread above threshold", func(t *testing.T) {
		// Buy at binance's ask 43010, sell at okx's bid 43200.
		set := quoteSet(
			quote(domain.SourceBinance, 43000, 43010, 1200),
			quote(domain.SourceOKX, 43200, 43210, 800),
		)

		opps := Compute(set, 0.1)
		require.Len(t, opps, 1)

		opp := opps[0]
		assert.Equal(t, domain.SourceBinance, opp.BuySource)
		assert.Equal(t, domain.SourceOKX, opp.SellSource)
		assert.Equal(t, 43010.0, opp.BuyPrice)
		assert.Equal(t, 43200.0, opp.SellPrice)
		assert.InDelta(t, 190.0, opp.ProfitAbs, 1e-9)
		assert.InDelta(t, 190.0/43010.0*100, opp.ProfitPct, 1e-9)
		assert.Equal(t, 800.0, opp.AvailableVolume)
		assert.Equal(t, domain.QualityReal, opp.Quality)
		assert.NotEmpty(t, opp.ID)
	})

	t.Run("no opportunity when books overlap", func(t *testing.T) {
		set := quoteSet(
			quote(domain.SourceBinance, 43000, 43010, 1200),
			quote(domain.SourceOKX, 43005, 43015, 800),
		)
		assert.Empty(t, Compute(set, 0.1))
	})

	t.Run("threshold is strict", func(t *testing.T) {
		// Spread of exactly 0.1% must not qualify.
		set := quoteSet(
			quote(domain.SourceBinance, 99990, 100000, 100),
			quote(domain.SourceOKX, 100100, 100110, 100),
		)
		assert.Empty(t, Compute(set, 0.1))
		assert.Len(t, Compute(set, 0.09), 1)
	})

	t.Run("both directions evaluated independently", func(t *testing.T) {
		// binance ask 100 < okx bid 102 is profitable; the reverse
		// direction (okx ask 103 vs binance bid 99) is not.
		set := quoteSet(
			quote(domain.SourceBinance, 99, 100, 500),
			quote(domain.SourceOKX, 102, 103, 500),
		)
		opps := Compute(set, 0.5)
		require.Len(t, opps, 1)
		assert.Equal(t, domain.SourceBinance, opps[0].BuySource)
	})

	t.Run("never pairs a source with itself", func(t *testing.T) {
		set := quoteSet(quote(domain.SourceBinance, 43000, 43010, 1200))
		assert.Empty(t, Compute(set, 0))
	})

	t.Run("empty set yields nothing", func(t *testing.T) {
		assert.Empty(t, Compute(domain.QuoteSet{Symbol: "BTC/USDT"}, 0.1))
	})

	t.Run("synthetic quality propagates", func(t *testing.T) {
		set := quoteSet(
			quote(domain.SourceBinance, 43000, 43010, 1200),
			quote(domain.SourceOKX, 43200, 43210, 800),
		)
		set.Quality = domain.QualitySynthetic

		opps := Compute(set, 0.1)
		require.Len(t, opps, 1)
		assert.Equal(t, domain.QualitySynthetic, opps[0].Quality)
	})

	t.Run("deterministic pair ordering", func(t *testing.T) {
		set := quoteSet(
			quote(domain.SourceBinance, 100, 101, 500),
			quote(domain.SourceGate, 103, 104, 500),
			quote(domain.SourceOKX, 106, 107, 500),
		)

		first := Compute(set, 0.1)
		second := Compute(set, 0.1)
		require.Equal(t, len(first), len(second))
		for i := range first {
			assert.Equal(t, first[i].BuySource, second[i].BuySource)
			assert.Equal(t, first[i].SellSource, second[i].SellSource)
			assert.Equal(t, first[i].ProfitPct, second[i].ProfitPct)
		}
	})
}
