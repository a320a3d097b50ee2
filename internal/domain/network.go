package domain

import (
	"context"
	"time"
)

// NetworkInfo describes one transfer rail supported by an exchange for the
// asset being moved.
type NetworkInfo struct {
	Network         NetworkID
	DepositEnabled  bool
	WithdrawEnabled bool
	DepositFee      float64
	WithdrawFee     float64
	MinWithdraw     float64
	// ConfirmDelay is the typical time for a transfer on this rail to be
	// credited on the receiving side.
	ConfirmDelay time.Duration
	// Confirmations is the block depth the receiving exchange waits for.
	Confirmations int
}

// ExchangeInfo is the read-mostly reference record per exchange used by the
// enrichment stage: supported rails, trading fees, liquidity and measured
// latency. Refreshed on a 5-minute TTL.
type ExchangeInfo struct {
	Source         SourceID
	Networks       []NetworkInfo
	MakerFee       float64
	TakerFee       float64
	LiquidityScore float64 // [0,1], fixed reference value per exchange
	PingMs         float64 // measured, 0 when unknown
	RefreshedAt    time.Time
}

// WithdrawRails returns the rails the exchange allows withdrawals on.
func (e ExchangeInfo) WithdrawRails() map[NetworkID]NetworkInfo {
	out := make(map[NetworkID]NetworkInfo)
	for _, n := range e.Networks {
		if n.WithdrawEnabled {
			out[n.Network] = n
		}
	}
	return out
}

// DepositRails returns the rails the exchange allows deposits on.
func (e ExchangeInfo) DepositRails() map[NetworkID]NetworkInfo {
	out := make(map[NetworkID]NetworkInfo)
	for _, n := range e.Networks {
		if n.DepositEnabled {
			out[n.Network] = n
		}
	}
	return out
}

// NetworkTable provides enrichment with per-exchange reference data. A miss
// returns ErrNotFound; the enricher then skips network annotation for the
// opportunity rather than dropping it.
type NetworkTable interface {
	ExchangeInfo(ctx context.Context, source SourceID) (ExchangeInfo, error)
}

// SourceStatus is the operator-facing health record for one source.
type SourceStatus struct {
	Source       SourceID
	BreakerState string
	FailureCount int
	LastFailure  time.Time
	PingMs       float64
}
