// Package exchangeinfo maintains the per-exchange reference table used by
// opportunity enrichment: supported transfer rails, trading fees, liquidity
// scores and measured ping latency.
package exchangeinfo

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/zhongsurehow/crossarb/internal/domain"
)

// LatencyProber measures round-trip latency to one exchange in
// milliseconds.
type LatencyProber interface {
	Ping(ctx context.Context, source domain.SourceID) (float64, error)
}

// usdtRails is the reference rail set for USDT transfers. Fees and delays
// are the commonly published values; exchanges rarely diverge for USDT.
var usdtRails = []domain.NetworkInfo{
	{
		Network:         "TRC20",
		DepositEnabled:  true,
		WithdrawEnabled: true,
		WithdrawFee:     1.0,
		MinWithdraw:     10.0,
		ConfirmDelay:    30 * time.Second,
		Confirmations:   6,
	},
	{
		Network:         "ERC20",
		DepositEnabled:  true,
		WithdrawEnabled: true,
		WithdrawFee:     25.0,
		MinWithdraw:     50.0,
		ConfirmDelay:    3 * time.Minute,
		Confirmations:   12,
	},
	{
		Network:         "BEP20",
		DepositEnabled:  true,
		WithdrawEnabled: true,
		WithdrawFee:     1.0,
		MinWithdraw:     10.0,
		ConfirmDelay:    15 * time.Second,
		Confirmations:   6,
	},
	{
		Network:         "POLYGON",
		DepositEnabled:  true,
		WithdrawEnabled: true,
		WithdrawFee:     1.0,
		MinWithdraw:     10.0,
		ConfirmDelay:    time.Minute,
		Confirmations:   6,
	},
}

// liquidityScores are fixed reference values per exchange.
var liquidityScores = map[domain.SourceID]float64{
	domain.SourceBinance: 0.95,
	domain.SourceOKX:     0.90,
	domain.SourceKuCoin:  0.80,
	domain.SourceGate:    0.75,
	domain.SourceBybit:   0.88,
}

const (
	defaultLiquidityScore = 0.70
	defaultMakerFee       = 0.001
	defaultTakerFee       = 0.001
)

// Provider serves ExchangeInfo records from static reference data plus a
// live latency probe, cached per source for a TTL.
type Provider struct {
	prober LatencyProber
	ttl    time.Duration
	logger *slog.Logger

	mu      sync.Mutex
	entries map[domain.SourceID]cachedInfo
}

type cachedInfo struct {
	info      domain.ExchangeInfo
	expiresAt time.Time
}

// NewProvider creates a provider. prober may be nil, in which case latency
// is reported as unknown.
func NewProvider(prober LatencyProber, ttl time.Duration, logger *slog.Logger) *Provider {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Provider{
		prober:  prober,
		ttl:     ttl,
		logger:  logger.With(slog.String("component", "exchangeinfo")),
		entries: make(map[domain.SourceID]cachedInfo),
	}
}

// ExchangeInfo returns the reference record for source, refreshing the
// latency measurement when the cached record has expired.
func (p *Provider) ExchangeInfo(ctx context.Context, source domain.SourceID) (domain.ExchangeInfo, error) {
	p.mu.Lock()
	cached, ok := p.entries[source]
	p.mu.Unlock()
	if ok && time.Now().Before(cached.expiresAt) {
		return cached.info, nil
	}

	info := domain.ExchangeInfo{
		Source:         source,
		Networks:       usdtRails,
		MakerFee:       defaultMakerFee,
		TakerFee:       defaultTakerFee,
		LiquidityScore: liquidityScores[source],
		RefreshedAt:    time.Now(),
	}
	if info.LiquidityScore == 0 {
		info.LiquidityScore = defaultLiquidityScore
	}

	if p.prober != nil {
		ms, err := p.prober.Ping(ctx, source)
		if err != nil {
			p.logger.Warn("latency probe failed",
				slog.String("source", string(source)),
				slog.String("error", err.Error()))
			ms = unreachableLatencyMs
		}
		info.PingMs = ms
	}

	p.mu.Lock()
	p.entries[source] = cachedInfo{info: info, expiresAt: time.Now().Add(p.ttl)}
	p.mu.Unlock()

	return info, nil
}

var _ domain.NetworkTable = (*Provider)(nil)
