package domain

import (
	"context"
	"time"
)

// NetworkID names a blockchain transfer rail (e.g. "TRC20", "ERC20") used to
// move an asset between exchanges.
type NetworkID string

// RiskBucket groups opportunities for operator dashboards.
type RiskBucket string

const (
	RiskLow    RiskBucket = "low"
	RiskMedium RiskBucket = "medium"
	RiskHigh   RiskBucket = "high"
)

// LiquidityBucket groups opportunities by available volume.
type LiquidityBucket string

const (
	LiquidityHigh   LiquidityBucket = "high"
	LiquidityMedium LiquidityBucket = "medium"
	LiquidityLow    LiquidityBucket = "low"
)

// Opportunity is one directional spread: buy at BuySource's ask, sell at
// SellSource's bid. Computed fresh on every aggregation pass and never
// mutated afterwards.
type Opportunity struct {
	ID         string
	Symbol     string
	BuySource  SourceID
	SellSource SourceID

	BuyPrice  float64 // ask at the buy source
	SellPrice float64 // bid at the sell source
	ProfitAbs float64
	ProfitPct float64

	// AvailableVolume is the volume executable on both legs: the minimum of
	// the two sources' 24h volumes.
	AvailableVolume float64

	Quality    DataQuality
	DetectedAt time.Time

	// Enrichment fields, populated by the enricher.
	NetworkCompatible    bool
	UnifiedNetwork       NetworkID
	WithdrawNetworks     []NetworkID
	DepositNetworks      []NetworkID
	TransferFee          float64
	RiskScore            float64 // [1,10]
	EstimatedTimeSeconds int
	NetworkLatencyMs     float64
}

// RiskLevel maps the risk score onto the operator-facing bucket scale used
// by the original dashboard: <=3 low, <=6 medium, else high.
func (o Opportunity) RiskLevel() RiskBucket {
	switch {
	case o.RiskScore <= 3:
		return RiskLow
	case o.RiskScore <= 6:
		return RiskMedium
	default:
		return RiskHigh
	}
}

// Liquidity buckets the available volume.
func (o Opportunity) Liquidity() LiquidityBucket {
	switch {
	case o.AvailableVolume >= 5000:
		return LiquidityHigh
	case o.AvailableVolume >= 1000:
		return LiquidityMedium
	default:
		return LiquidityLow
	}
}

// Executable reports whether the opportunity can be acted on automatically:
// a common transfer rail exists and the quote data is real. Non-executable
// opportunities are still reported so an operator may act manually.
func (o Opportunity) Executable() bool {
	return o.NetworkCompatible && o.Quality == QualityReal
}

// Summary is the stateless aggregate projection over a ranked opportunity
// list consumed by the presentation layer.
type Summary struct {
	Count        int
	AvgProfitPct float64
	MaxProfitPct float64
	ByRisk       map[RiskBucket]int
	ByLiquidity  map[LiquidityBucket]int
	Synthetic    bool // true when any opportunity is backed by synthetic data
}

// OpportunityStore persists detected opportunities for later analysis.
type OpportunityStore interface {
	InsertBatch(ctx context.Context, opps []Opportunity) error
	Recent(ctx context.Context, symbol string, limit int) ([]Opportunity, error)
}
