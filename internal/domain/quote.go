// Package domain contains the core domain types for the arbitrage engine:
// quotes, quote sets, opportunities, and the exchange network reference data
// used for enrichment.
package domain

import (
	"fmt"
	"time"
)

// SourceID identifies one price feed (an exchange or aggregator API).
type SourceID string

// Known price sources. Adapters register under these identifiers; anything
// else is treated as an external source with default reference data.
const (
	SourceBinance SourceID = "binance"
	SourceOKX     SourceID = "okx"
	SourceKuCoin  SourceID = "kucoin"
	SourceGate    SourceID = "gate"
	SourceBybit   SourceID = "bybit"
)

// DataQuality marks the provenance of a quote. Synthetic quotes are
// generated stand-ins used only when real data is unavailable and must never
// be presented as tradeable.
type DataQuality string

const (
	QualityReal      DataQuality = "real"
	QualitySynthetic DataQuality = "synthetic"
)

// Quote is one price observation from one source at one instant. Quotes are
// immutable once constructed; build them with NewQuote so the bid/ask
// invariant holds.
type Quote struct {
	Source       SourceID
	Symbol       string // canonical pair, e.g. "BTC/USDT"
	Bid          float64
	Ask          float64
	LastPrice    float64
	Volume24h    float64
	Change24hPct float64
	ObservedAt   time.Time
	Quality      DataQuality
}

// NewQuote validates raw ticker fields and returns a Quote. Prices must be
// positive; a crossed book (ask < bid) is corrected by swapping the two
// sides rather than rejecting the observation. Swapped is true when the
// correction was applied so the caller can log a data-quality warning.
func NewQuote(source SourceID, symbol string, bid, ask, last, volume, change float64, observedAt time.Time, quality DataQuality) (Quote, bool, error) {
	if bid <= 0 || ask <= 0 || last <= 0 {
		return Quote{}, false, fmt.Errorf("%w: %s %s bid=%v ask=%v last=%v",
			ErrInvalidPrice, source, symbol, bid, ask, last)
	}
	if volume < 0 {
		return Quote{}, false, fmt.Errorf("%w: %s %s volume=%v",
			ErrInvalidPrice, source, symbol, volume)
	}

	swapped := false
	if ask < bid {
		bid, ask = ask, bid
		swapped = true
	}

	return Quote{
		Source:       source,
		Symbol:       symbol,
		Bid:          bid,
		Ask:          ask,
		LastPrice:    last,
		Volume24h:    volume,
		Change24hPct: change,
		ObservedAt:   observedAt,
		Quality:      quality,
	}, swapped, nil
}

// Spread returns the bid-ask spread of the quote.
func (q Quote) Spread() float64 { return q.Ask - q.Bid }

// Age reports how long ago the quote was observed.
func (q Quote) Age(now time.Time) time.Duration { return now.Sub(q.ObservedAt) }

// SourceFailure records why one source produced no quote during a pass.
type SourceFailure struct {
	Source SourceID
	Err    error
}

// QuoteSet holds all quotes for one symbol across sources at one evaluation
// instant, at most one quote per source. Failures lists the sources that
// produced no quote during the pass.
type QuoteSet struct {
	Symbol    string
	Quotes    map[SourceID]Quote
	Failures  []SourceFailure
	Quality   DataQuality // synthetic when the fallback path produced the set
	FetchedAt time.Time
}

// Add inserts a quote, replacing any previous quote from the same source.
func (s *QuoteSet) Add(q Quote) {
	if s.Quotes == nil {
		s.Quotes = make(map[SourceID]Quote)
	}
	s.Quotes[q.Source] = q
}

// Len returns the number of quotes in the set.
func (s *QuoteSet) Len() int { return len(s.Quotes) }

// Sources returns the source identifiers present in the set. Order is not
// defined; callers that need determinism should sort.
func (s *QuoteSet) Sources() []SourceID {
	out := make([]SourceID, 0, len(s.Quotes))
	for id := range s.Quotes {
		out = append(out, id)
	}
	return out
}

// BestPrices is the cross-source best bid/ask projection for one symbol.
type BestPrices struct {
	Symbol        string
	BestBidSource SourceID
	BestBid       float64
	BestAskSource SourceID
	BestAsk       float64
	Spread        float64
	SpreadPct     float64
}

// Best computes the highest bid and lowest ask across the set. ok is false
// when the set is empty.
func (s *QuoteSet) Best() (BestPrices, bool) {
	if len(s.Quotes) == 0 {
		return BestPrices{}, false
	}
	var bp BestPrices
	bp.Symbol = s.Symbol
	first := true
	for id, q := range s.Quotes {
		if first || q.Bid > bp.BestBid {
			bp.BestBidSource, bp.BestBid = id, q.Bid
		}
		if first || q.Ask < bp.BestAsk {
			bp.BestAskSource, bp.BestAsk = id, q.Ask
		}
		first = false
	}
	bp.Spread = bp.BestAsk - bp.BestBid
	if bp.BestBid > 0 {
		bp.SpreadPct = bp.Spread / bp.BestBid * 100
	}
	return bp, true
}

// Deviation returns, per source, the percentage deviation of the last price
// from the cross-source mean. Used by the presentation layer's price matrix.
func (s *QuoteSet) Deviation() map[SourceID]float64 {
	if len(s.Quotes) == 0 {
		return nil
	}
	var sum float64
	for _, q := range s.Quotes {
		sum += q.LastPrice
	}
	mean := sum / float64(len(s.Quotes))
	out := make(map[SourceID]float64, len(s.Quotes))
	for id, q := range s.Quotes {
		out[id] = (q.LastPrice - mean) / mean * 100
	}
	return out
}
