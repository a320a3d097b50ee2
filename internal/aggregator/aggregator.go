// Package aggregator fans a quote request out to every configured source
// and assembles the results into one QuoteSet per symbol. The pass always
// produces a usable set: sources that fail are recorded as failures, and
// when fewer than the minimum number of real quotes arrive the whole set is
// replaced with synthetic quotes.
package aggregator

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/zhongsurehow/crossarb/internal/domain"
)

// QuoteGetter serves one quote per (source, symbol), normally the quote
// cache over the resilience guard.
type QuoteGetter interface {
	Get(ctx context.Context, source domain.SourceID, symbol string) (domain.Quote, error)
}

// Config tunes one aggregation pass.
type Config struct {
	// MaxConcurrent bounds in-flight source calls.
	MaxConcurrent int64
	// FanoutDeadline is the wall-clock budget for the whole pass.
	FanoutDeadline time.Duration
	// MinRealQuotes is the smallest real quote count worth keeping; below
	// it the pass falls back to synthetic data.
	MinRealQuotes int
}

// Aggregator gathers quotes for a symbol across sources.
type Aggregator struct {
	getter QuoteGetter
	cfg    Config
	synth  *SyntheticGenerator
	logger *slog.Logger
}

// New creates an aggregator over getter.
func New(getter QuoteGetter, cfg Config, logger *slog.Logger) *Aggregator {
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = 3
	}
	if cfg.FanoutDeadline <= 0 {
		cfg.FanoutDeadline = 30 * time.Second
	}
	if cfg.MinRealQuotes <= 0 {
		cfg.MinRealQuotes = 2
	}
	return &Aggregator{
		getter: getter,
		cfg:    cfg,
		synth:  NewSyntheticGenerator(),
		logger: logger.With(slog.String("component", "aggregator")),
	}
}

// QuoteSet fetches symbol from every source concurrently and returns the
// assembled set. It never fails for lack of sources; the only error it can
// return is cancellation of the parent context.
func (a *Aggregator) QuoteSet(ctx context.Context, symbol string, sources []domain.SourceID) (domain.QuoteSet, error) {
	ctx, cancel := context.WithTimeout(ctx, a.cfg.FanoutDeadline)
	defer cancel()

	set := domain.QuoteSet{
		Symbol:    symbol,
		Quotes:    make(map[domain.SourceID]domain.Quote, len(sources)),
		Quality:   domain.QualityReal,
		FetchedAt: time.Now(),
	}

	var mu sync.Mutex
	sem := semaphore.NewWeighted(a.cfg.MaxConcurrent)
	g, gctx := errgroup.WithContext(ctx)

	for _, src := range sources {
		g.Go(func() error {
			if err := sem.Acquire(gctx, 1); err != nil {
				mu.Lock()
				set.Failures = append(set.Failures, domain.SourceFailure{Source: src, Err: err})
				mu.Unlock()
				return nil
			}
			defer sem.Release(1)

			q, err := a.getter.Get(gctx, src, symbol)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				set.Failures = append(set.Failures, domain.SourceFailure{Source: src, Err: err})
				return nil
			}
			set.Quotes[src] = q
			return nil
		})
	}

	// Workers never return errors, so Wait only reflects group teardown.
	_ = g.Wait()

	// A blown fan-out deadline leaves partial results in place; only parent
	// cancellation aborts the pass.
	if err := ctx.Err(); errors.Is(err, context.Canceled) {
		return domain.QuoteSet{}, err
	}

	if set.Len() < a.cfg.MinRealQuotes {
		a.logger.Warn("insufficient live quotes, generating synthetic set",
			slog.String("symbol", symbol),
			slog.Int("live", set.Len()),
			slog.Int("required", a.cfg.MinRealQuotes),
			slog.Int("failures", len(set.Failures)))
		return a.synth.QuoteSet(symbol, sources, set.Failures), nil
	}

	a.logger.Debug("quote set assembled",
		slog.String("symbol", symbol),
		slog.Int("quotes", set.Len()),
		slog.Int("failures", len(set.Failures)))
	return set, nil
}
