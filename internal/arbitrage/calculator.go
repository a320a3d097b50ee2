// Package arbitrage turns a cross-source quote set into detected, enriched
// and ranked opportunities.
package arbitrage

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/zhongsurehow/crossarb/internal/domain"
)

// Compute scans every ordered source pair in the set and emits an
// opportunity wherever selling at one source's bid beats buying at another
// source's ask by strictly more than minProfitPct. Both directions of a
// pair are evaluated independently. The result is unordered; use Rank.
func Compute(set domain.QuoteSet, minProfitPct float64) []domain.Opportunity {
	sources := set.Sources()
	sort.Slice(sources, func(i, j int) bool { return sources[i] < sources[j] })
	now := time.Now()

	var opps []domain.Opportunity
	for _, buySrc := range sources {
		for _, sellSrc := range sources {
			if buySrc == sellSrc {
				continue
			}
			buy := set.Quotes[buySrc]
			sell := set.Quotes[sellSrc]

			buyPrice := buy.Ask
			sellPrice := sell.Bid
			if buyPrice <= 0 || sellPrice <= buyPrice {
				continue
			}

			profitAbs := sellPrice - buyPrice
			profitPct := profitAbs / buyPrice * 100
			if profitPct <= minProfitPct {
				continue
			}

			opps = append(opps, domain.Opportunity{
				ID:              uuid.NewString(),
				Symbol:          set.Symbol,
				BuySource:       buySrc,
				SellSource:      sellSrc,
				BuyPrice:        buyPrice,
				SellPrice:       sellPrice,
				ProfitAbs:       profitAbs,
				ProfitPct:       profitPct,
				AvailableVolume: minVolume(buy, sell),
				Quality:         set.Quality,
				DetectedAt:      now,
			})
		}
	}
	return opps
}

// minVolume is the volume executable on both legs.
func minVolume(buy, sell domain.Quote) float64 {
	if buy.Volume24h < sell.Volume24h {
		return buy.Volume24h
	}
	return sell.Volume24h
}
