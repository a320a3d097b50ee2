package arbitrage

import (
	"context"
	"log/slog"
	"math"
	"sort"

	"github.com/zhongsurehow/crossarb/internal/domain"
)

// Enricher decorates raw opportunities with transfer rail compatibility,
// risk scoring and execution time estimates using the exchange reference
// table.
type Enricher struct {
	table  domain.NetworkTable
	logger *slog.Logger
}

// NewEnricher creates an enricher over the given reference table.
func NewEnricher(table domain.NetworkTable, logger *slog.Logger) *Enricher {
	return &Enricher{
		table:  table,
		logger: logger.With(slog.String("component", "enricher")),
	}
}

// Enrich annotates each opportunity in place and returns the slice.
// Opportunities without a common transfer rail are flagged incompatible but
// never dropped; an operator may still move funds off-platform.
func (e *Enricher) Enrich(ctx context.Context, opps []domain.Opportunity) []domain.Opportunity {
	infos := make(map[domain.SourceID]domain.ExchangeInfo)

	for i := range opps {
		opp := &opps[i]

		buyInfo, buyOK := e.lookup(ctx, infos, opp.BuySource)
		sellInfo, sellOK := e.lookup(ctx, infos, opp.SellSource)

		if buyOK && sellOK {
			e.annotateNetworks(opp, buyInfo, sellInfo)
		}

		opp.RiskScore = riskScore(opp.ProfitPct, opp.AvailableVolume)
		opp.EstimatedTimeSeconds = estimatedTime(opp.ProfitPct, opp.RiskScore, opp.UnifiedNetwork, buyInfo)
	}
	return opps
}

func (e *Enricher) lookup(ctx context.Context, cache map[domain.SourceID]domain.ExchangeInfo, source domain.SourceID) (domain.ExchangeInfo, bool) {
	if info, ok := cache[source]; ok {
		return info, true
	}
	info, err := e.table.ExchangeInfo(ctx, source)
	if err != nil {
		e.logger.Warn("exchange info unavailable",
			slog.String("source", string(source)),
			slog.String("error", err.Error()))
		return domain.ExchangeInfo{}, false
	}
	cache[source] = info
	return info, true
}

// annotateNetworks intersects the buy side's withdraw rails with the sell
// side's deposit rails and picks the cheapest (fee first, then confirmation
// delay) common rail as the unified network.
func (e *Enricher) annotateNetworks(opp *domain.Opportunity, buyInfo, sellInfo domain.ExchangeInfo) {
	withdraw := buyInfo.WithdrawRails()
	deposit := sellInfo.DepositRails()

	opp.WithdrawNetworks = railIDs(withdraw)
	opp.DepositNetworks = railIDs(deposit)
	opp.NetworkLatencyMs = math.Max(buyInfo.PingMs, sellInfo.PingMs)

	var common []domain.NetworkID
	for id := range withdraw {
		if _, ok := deposit[id]; ok {
			common = append(common, id)
		}
	}
	if len(common) == 0 {
		opp.NetworkCompatible = false
		return
	}

	sort.Slice(common, func(i, j int) bool {
		wi, wj := withdraw[common[i]], withdraw[common[j]]
		fi := wi.WithdrawFee + deposit[common[i]].DepositFee
		fj := wj.WithdrawFee + deposit[common[j]].DepositFee
		if fi != fj {
			return fi < fj
		}
		return wi.ConfirmDelay < wj.ConfirmDelay
	})

	best := common[0]
	opp.NetworkCompatible = true
	opp.UnifiedNetwork = best
	opp.TransferFee = withdraw[best].WithdrawFee + deposit[best].DepositFee
}

func railIDs(rails map[domain.NetworkID]domain.NetworkInfo) []domain.NetworkID {
	out := make([]domain.NetworkID, 0, len(rails))
	for id := range rails {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// riskScore maps profit magnitude against executable volume onto [1,10].
// Large spreads on thin books score high; modest spreads on deep books
// score low.
func riskScore(profitPct, volume float64) float64 {
	score := 5 + (profitPct-1)*2 - volume/10000
	return math.Min(10, math.Max(1, score))
}

// estimatedTime is the execution window in seconds: a profit- and
// risk-derived buffer, extended by the unified rail's confirmation delay
// when one was selected.
func estimatedTime(profitPct, risk float64, unified domain.NetworkID, buyInfo domain.ExchangeInfo) int {
	base := int(120 - profitPct*20 + risk*10)
	if base < 30 {
		base = 30
	}
	if unified == "" {
		return base
	}
	for _, n := range buyInfo.Networks {
		if n.Network == unified {
			return base + int(n.ConfirmDelay.Seconds())
		}
	}
	return base
}
