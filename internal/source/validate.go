package source

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/zhongsurehow/crossarb/internal/domain"
)

// buildQuote runs constructor-time validation on parsed ticker fields. A
// crossed book is swap-corrected with a data-quality warning; invalid
// prices surface as MalformedResponse so the resilience layer does not
// retry them.
func buildQuote(logger *slog.Logger, source domain.SourceID, symbol string, bid, ask, last, volume, change float64) (domain.Quote, error) {
	q, swapped, err := domain.NewQuote(source, symbol, bid, ask, last, volume, change, time.Now(), domain.QualityReal)
	if err != nil {
		return domain.Quote{}, domain.NewSourceError(source, domain.ErrKindMalformedResponse, err)
	}
	if swapped {
		logger.Warn("crossed book corrected",
			slog.String("source", string(source)),
			slog.String("symbol", symbol),
			slog.Float64("bid", q.Bid),
			slog.Float64("ask", q.Ask),
		)
	}
	return q, nil
}

// pctFromOpen derives a 24h change percentage from an open price when the
// provider does not report one directly.
func pctFromOpen(last, open float64) float64 {
	if open <= 0 {
		return 0
	}
	return (last - open) / open * 100
}

// errEmptyTicker builds a MalformedResponse for responses with an empty
// data section.
func errEmptyTicker(source domain.SourceID, symbol string) error {
	return domain.NewSourceError(source, domain.ErrKindMalformedResponse,
		fmt.Errorf("empty ticker for %s", symbol))
}
