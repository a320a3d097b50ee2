package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/zhongsurehow/crossarb/internal/domain"
)

// OpportunityStore implements domain.OpportunityStore using PostgreSQL.
type OpportunityStore struct {
	pool *pgxpool.Pool
}

// NewOpportunityStore creates a store backed by the given connection pool.
func NewOpportunityStore(pool *pgxpool.Pool) *OpportunityStore {
	return &OpportunityStore{pool: pool}
}

const oppSelectCols = `id, symbol, buy_source, sell_source,
	buy_price, sell_price, profit_abs, profit_pct, available_volume,
	quality, network_compatible, unified_network, transfer_fee,
	risk_score, estimated_time_seconds, network_latency_ms, detected_at`

// InsertBatch appends one scan pass's opportunities in a single round trip.
func (s *OpportunityStore) InsertBatch(ctx context.Context, opps []domain.Opportunity) error {
	if len(opps) == 0 {
		return nil
	}

	const query = `
		INSERT INTO opportunities (
			id, symbol, buy_source, sell_source,
			buy_price, sell_price, profit_abs, profit_pct, available_volume,
			quality, network_compatible, unified_network, transfer_fee,
			risk_score, estimated_time_seconds, network_latency_ms, detected_at
		) VALUES (
			$1, $2, $3, $4,
			$5, $6, $7, $8, $9,
			$10, $11, $12, $13,
			$14, $15, $16, $17
		)`

	batch := &pgx.Batch{}
	for _, opp := range opps {
		batch.Queue(query,
			opp.ID, opp.Symbol, string(opp.BuySource), string(opp.SellSource),
			opp.BuyPrice, opp.SellPrice, opp.ProfitAbs, opp.ProfitPct, opp.AvailableVolume,
			string(opp.Quality), opp.NetworkCompatible, string(opp.UnifiedNetwork), opp.TransferFee,
			opp.RiskScore, opp.EstimatedTimeSeconds, opp.NetworkLatencyMs, opp.DetectedAt,
		)
	}

	results := s.pool.SendBatch(ctx, batch)
	defer results.Close()

	for range opps {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("postgres: insert opportunity batch: %w", err)
		}
	}
	return nil
}

// Recent returns the most recently detected opportunities, newest first.
// An empty symbol matches all symbols.
func (s *OpportunityStore) Recent(ctx context.Context, symbol string, limit int) ([]domain.Opportunity, error) {
	query := `SELECT ` + oppSelectCols + ` FROM opportunities`
	args := []any{}

	if symbol != "" {
		query += " WHERE symbol = $1"
		args = append(args, symbol)
	}
	query += " ORDER BY detected_at DESC"
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", len(args)+1)
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list recent opportunities: %w", err)
	}
	defer rows.Close()

	var opps []domain.Opportunity
	for rows.Next() {
		var opp domain.Opportunity
		var buySource, sellSource, quality, unified string

		if err := rows.Scan(
			&opp.ID, &opp.Symbol, &buySource, &sellSource,
			&opp.BuyPrice, &opp.SellPrice, &opp.ProfitAbs, &opp.ProfitPct, &opp.AvailableVolume,
			&quality, &opp.NetworkCompatible, &unified, &opp.TransferFee,
			&opp.RiskScore, &opp.EstimatedTimeSeconds, &opp.NetworkLatencyMs, &opp.DetectedAt,
		); err != nil {
			return nil, fmt.Errorf("postgres: scan opportunity: %w", err)
		}
		opp.BuySource = domain.SourceID(buySource)
		opp.SellSource = domain.SourceID(sellSource)
		opp.Quality = domain.DataQuality(quality)
		opp.UnifiedNetwork = domain.NetworkID(unified)
		opps = append(opps, opp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterate opportunities: %w", err)
	}
	return opps, nil
}

var _ domain.OpportunityStore = (*OpportunityStore)(nil)
