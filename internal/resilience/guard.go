package resilience

import (
	"context"
	"log/slog"

	"github.com/zhongsurehow/crossarb/internal/domain"
	"github.com/zhongsurehow/crossarb/internal/source"
)

// Guard composes the limiter, breaker and retry policy around a set of
// adapters. Callers fetch through the guard and never touch an adapter
// directly.
type Guard struct {
	limiter  *Limiter
	breaker  *Breaker
	retry    RetryPolicy
	adapters map[domain.SourceID]source.Adapter
	logger   *slog.Logger
}

// NewGuard wraps the given adapters.
func NewGuard(limiter *Limiter, breaker *Breaker, retry RetryPolicy, adapters []source.Adapter, logger *slog.Logger) *Guard {
	byName := make(map[domain.SourceID]source.Adapter, len(adapters))
	for _, a := range adapters {
		byName[a.Name()] = a
	}
	return &Guard{
		limiter:  limiter,
		breaker:  breaker,
		retry:    retry,
		adapters: byName,
		logger:   logger.With(slog.String("component", "guard")),
	}
}

// Sources lists the guarded source IDs.
func (g *Guard) Sources() []domain.SourceID {
	out := make([]domain.SourceID, 0, len(g.adapters))
	for id := range g.adapters {
		out = append(out, id)
	}
	return out
}

// Fetch retrieves a quote from one source with the full protection chain:
// rate limit, breaker admission, adapter call, bounded retry, breaker
// bookkeeping. The rate slot is acquired before the breaker is consulted,
// and a limiter rejection returns to the caller without touching the
// breaker: only errors from the adapter itself count as source failures.
func (g *Guard) Fetch(ctx context.Context, sourceID domain.SourceID, symbol string) (domain.Quote, error) {
	adapter, ok := g.adapters[sourceID]
	if !ok {
		return domain.Quote{}, domain.NewSourceError(sourceID, domain.ErrKindUnreachable, domain.ErrNotFound)
	}

	if err := g.limiter.Acquire(ctx, sourceID); err != nil {
		return domain.Quote{}, err
	}

	if err := g.breaker.Allow(sourceID); err != nil {
		return domain.Quote{}, err
	}

	var quote domain.Quote
	err := g.retry.Do(ctx, func(ctx context.Context) error {
		q, err := adapter.Fetch(ctx, symbol)
		if err != nil {
			return err
		}
		quote = q
		return nil
	})

	if err != nil {
		g.breaker.Failure(sourceID)
		g.logFailure(sourceID, symbol, err)
		return domain.Quote{}, err
	}

	g.breaker.Success(sourceID)
	return quote, nil
}

// Status reports the breaker health record for one source.
func (g *Guard) Status(sourceID domain.SourceID) domain.SourceStatus {
	return g.breaker.Status(sourceID)
}

func (g *Guard) logFailure(sourceID domain.SourceID, symbol string, err error) {
	attrs := []any{
		slog.String("source", string(sourceID)),
		slog.String("symbol", symbol),
		slog.String("error", err.Error()),
	}
	if se, ok := domain.AsSourceError(err); ok {
		attrs = append(attrs, slog.String("kind", string(se.Kind)))
		if se.RetryAfter > 0 {
			attrs = append(attrs, slog.Duration("retry_after", se.RetryAfter))
		}
	}
	g.logger.Warn("source fetch failed", attrs...)
}
