// Package scanner runs the periodic detection loop: gather quotes, compute
// and enrich opportunities, rank them, then hand the results to the
// configured sinks (Redis feed, history store, cold archive, alerts).
package scanner

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/zhongsurehow/crossarb/internal/aggregator"
	"github.com/zhongsurehow/crossarb/internal/arbitrage"
	s3blob "github.com/zhongsurehow/crossarb/internal/blob/s3"
	cacheredis "github.com/zhongsurehow/crossarb/internal/cache/redis"
	"github.com/zhongsurehow/crossarb/internal/domain"
	"github.com/zhongsurehow/crossarb/internal/notify"
	"github.com/zhongsurehow/crossarb/internal/resilience"
)

// Config tunes the scan loop.
type Config struct {
	Symbols  []string
	Interval time.Duration
	// MinProfitPct is the detection threshold passed to the calculator.
	MinProfitPct float64
	// NotifyMinProfitPct is the alert threshold. Zero disables alerts.
	NotifyMinProfitPct float64
}

// Result is one symbol's scan outcome.
type Result struct {
	Symbol        string
	Quality       domain.DataQuality
	Best          domain.BestPrices
	Deviation     map[domain.SourceID]float64
	Opportunities []domain.Opportunity
	Summary       domain.Summary
	Failures      []domain.SourceFailure
	ScannedAt     time.Time
}

// Scanner orchestrates one detection pass per symbol per interval. The bus,
// store, archiver and notifier sinks are each optional; a nil sink is
// skipped.
type Scanner struct {
	agg      *aggregator.Aggregator
	guard    *resilience.Guard
	enricher *arbitrage.Enricher
	bus      *cacheredis.OpportunityBus
	store    domain.OpportunityStore
	archiver *s3blob.Archiver
	notifier *notify.Notifier
	cfg      Config
	logger   *slog.Logger

	mu     sync.Mutex
	latest map[string]Result
}

// New creates a Scanner.
func New(
	agg *aggregator.Aggregator,
	guard *resilience.Guard,
	enricher *arbitrage.Enricher,
	bus *cacheredis.OpportunityBus,
	store domain.OpportunityStore,
	archiver *s3blob.Archiver,
	notifier *notify.Notifier,
	cfg Config,
	logger *slog.Logger,
) *Scanner {
	return &Scanner{
		agg:      agg,
		guard:    guard,
		enricher: enricher,
		bus:      bus,
		store:    store,
		archiver: archiver,
		notifier: notifier,
		cfg:      cfg,
		logger:   logger.With(slog.String("component", "scanner")),
		latest:   make(map[string]Result),
	}
}

// Run scans all symbols immediately and then on every interval tick until
// ctx is cancelled.
func (s *Scanner) Run(ctx context.Context) error {
	s.logger.InfoContext(ctx, "scanner starting",
		slog.Int("symbols", len(s.cfg.Symbols)),
		slog.Duration("interval", s.cfg.Interval),
	)

	s.scanAll(ctx)

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.scanAll(ctx)
		}
	}
}

// scanAll runs one pass over every configured symbol concurrently. Failures
// are logged per symbol and never abort the pass.
func (s *Scanner) scanAll(ctx context.Context) {
	g, gctx := errgroup.WithContext(ctx)
	for _, symbol := range s.cfg.Symbols {
		g.Go(func() error {
			if _, err := s.ScanSymbol(gctx, symbol); err != nil && gctx.Err() == nil {
				s.logger.ErrorContext(gctx, "scan failed",
					slog.String("symbol", symbol),
					slog.String("error", err.Error()),
				)
			}
			return nil
		})
	}
	_ = g.Wait()
}

// ScanSymbol runs the full pipeline for one symbol: aggregate, compute,
// enrich, rank, then fan the result out to the sinks.
func (s *Scanner) ScanSymbol(ctx context.Context, symbol string) (Result, error) {
	set, err := s.agg.QuoteSet(ctx, symbol, s.guard.Sources())
	if err != nil {
		return Result{}, err
	}

	opps := arbitrage.Compute(set, s.cfg.MinProfitPct)
	opps = s.enricher.Enrich(ctx, opps)
	opps = arbitrage.Rank(opps)

	result := Result{
		Symbol:        symbol,
		Quality:       set.Quality,
		Deviation:     set.Deviation(),
		Opportunities: opps,
		Summary:       arbitrage.Summarize(opps),
		Failures:      set.Failures,
		ScannedAt:     time.Now(),
	}
	if best, ok := set.Best(); ok {
		result.Best = best
	}

	s.logger.InfoContext(ctx, "scan complete",
		slog.String("symbol", symbol),
		slog.Int("quotes", set.Len()),
		slog.Int("opportunities", len(opps)),
		slog.String("quality", string(set.Quality)),
	)

	s.mu.Lock()
	s.latest[symbol] = result
	s.mu.Unlock()

	s.deliver(ctx, result)
	return result, nil
}

// Latest returns the most recent scan result per symbol, ordered by symbol.
func (s *Scanner) Latest() []Result {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Result, 0, len(s.latest))
	for _, result := range s.latest {
		out = append(out, result)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}

// Statuses reports every guarded source's health for the status endpoint.
func (s *Scanner) Statuses() []domain.SourceStatus {
	sources := s.guard.Sources()
	out := make([]domain.SourceStatus, 0, len(sources))
	for _, src := range sources {
		out = append(out, s.guard.Status(src))
	}
	return out
}

// deliver fans a result out to the configured sinks. Sink failures are
// logged, never propagated; a broken sink must not stop detection.
func (s *Scanner) deliver(ctx context.Context, result Result) {
	if s.bus != nil {
		sr := cacheredis.ScanResult{
			Symbol:        result.Symbol,
			Opportunities: result.Opportunities,
			Summary:       result.Summary,
			Quality:       result.Quality,
			ScannedAt:     result.ScannedAt,
		}
		if err := s.bus.Publish(ctx, sr); err != nil {
			s.logger.WarnContext(ctx, "publish failed",
				slog.String("symbol", result.Symbol),
				slog.String("error", err.Error()))
		}
	}

	if s.store != nil && len(result.Opportunities) > 0 {
		if err := s.store.InsertBatch(ctx, result.Opportunities); err != nil {
			s.logger.WarnContext(ctx, "persist failed",
				slog.String("symbol", result.Symbol),
				slog.String("error", err.Error()))
		}
	}

	if s.archiver != nil {
		if err := s.archiver.ArchiveScan(ctx, result.Symbol, result.ScannedAt, result.Opportunities); err != nil {
			s.logger.WarnContext(ctx, "archive failed",
				slog.String("symbol", result.Symbol),
				slog.String("error", err.Error()))
		}
	}

	if s.notifier != nil && s.cfg.NotifyMinProfitPct > 0 && result.Quality == domain.QualityReal {
		var alertable []domain.Opportunity
		for _, opp := range result.Opportunities {
			if opp.ProfitPct >= s.cfg.NotifyMinProfitPct {
				alertable = append(alertable, opp)
			}
		}
		if len(alertable) > 0 {
			if err := s.notifier.OpportunityAlert(ctx, result.Symbol, alertable); err != nil {
				s.logger.WarnContext(ctx, "alert failed",
					slog.String("symbol", result.Symbol),
					slog.String("error", err.Error()))
			}
		}
	}
}
