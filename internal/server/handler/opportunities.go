package handler

import (
	"net/http"
	"time"

	"github.com/zhongsurehow/crossarb/internal/domain"
)

// OpportunityHandler serves the persisted opportunity history. The store is
// optional; without one the endpoint reports that persistence is disabled.
type OpportunityHandler struct {
	store domain.OpportunityStore
}

// NewOpportunityHandler creates an OpportunityHandler. store may be nil.
func NewOpportunityHandler(store domain.OpportunityStore) *OpportunityHandler {
	return &OpportunityHandler{store: store}
}

type opportunityResponse struct {
	ID              string  `json:"id"`
	Symbol          string  `json:"symbol"`
	BuySource       string  `json:"buy_source"`
	SellSource      string  `json:"sell_source"`
	BuyPrice        float64 `json:"buy_price"`
	SellPrice       float64 `json:"sell_price"`
	ProfitAbs       float64 `json:"profit_abs"`
	ProfitPct       float64 `json:"profit_pct"`
	AvailableVolume float64 `json:"available_volume"`
	Quality         string  `json:"quality"`

	NetworkCompatible    bool    `json:"network_compatible"`
	UnifiedNetwork       string  `json:"unified_network,omitempty"`
	TransferFee          float64 `json:"transfer_fee"`
	RiskScore            float64 `json:"risk_score"`
	RiskLevel            string  `json:"risk_level"`
	EstimatedTimeSeconds int     `json:"estimated_time_seconds"`
	NetworkLatencyMs     float64 `json:"network_latency_ms"`
	Executable           bool    `json:"executable"`

	DetectedAt string `json:"detected_at"`
}

type summaryResponse struct {
	Count        int            `json:"count"`
	AvgProfitPct float64        `json:"avg_profit_pct"`
	MaxProfitPct float64        `json:"max_profit_pct"`
	ByRisk       map[string]int `json:"by_risk,omitempty"`
	ByLiquidity  map[string]int `json:"by_liquidity,omitempty"`
	Synthetic    bool           `json:"synthetic"`
}

// ListRecent responds with the most recently persisted opportunities,
// newest first.
// GET /api/opportunities/recent?symbol=BTC/USDT&limit=50
func (h *OpportunityHandler) ListRecent(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		writeError(w, http.StatusServiceUnavailable, "opportunity persistence is disabled")
		return
	}

	symbol := r.URL.Query().Get("symbol")
	limit := parseLimit(r, 50, 500)

	opps, err := h.store.Recent(r.Context(), symbol, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load opportunities")
		return
	}

	out := make([]opportunityResponse, 0, len(opps))
	for _, opp := range opps {
		out = append(out, toOpportunityResponse(opp))
	}

	writeJSON(w, http.StatusOK, map[string]any{"opportunities": out})
}

func toOpportunityResponse(opp domain.Opportunity) opportunityResponse {
	return opportunityResponse{
		ID:              opp.ID,
		Symbol:          opp.Symbol,
		BuySource:       string(opp.BuySource),
		SellSource:      string(opp.SellSource),
		BuyPrice:        opp.BuyPrice,
		SellPrice:       opp.SellPrice,
		ProfitAbs:       opp.ProfitAbs,
		ProfitPct:       opp.ProfitPct,
		AvailableVolume: opp.AvailableVolume,
		Quality:         string(opp.Quality),

		NetworkCompatible:    opp.NetworkCompatible,
		UnifiedNetwork:       string(opp.UnifiedNetwork),
		TransferFee:          opp.TransferFee,
		RiskScore:            opp.RiskScore,
		RiskLevel:            string(opp.RiskLevel()),
		EstimatedTimeSeconds: opp.EstimatedTimeSeconds,
		NetworkLatencyMs:     opp.NetworkLatencyMs,
		Executable:           opp.Executable(),

		DetectedAt: opp.DetectedAt.UTC().Format(time.RFC3339),
	}
}

func toSummaryResponse(s domain.Summary) summaryResponse {
	resp := summaryResponse{
		Count:        s.Count,
		AvgProfitPct: s.AvgProfitPct,
		MaxProfitPct: s.MaxProfitPct,
		Synthetic:    s.Synthetic,
	}
	if len(s.ByRisk) > 0 {
		resp.ByRisk = make(map[string]int, len(s.ByRisk))
		for k, v := range s.ByRisk {
			resp.ByRisk[string(k)] = v
		}
	}
	if len(s.ByLiquidity) > 0 {
		resp.ByLiquidity = make(map[string]int, len(s.ByLiquidity))
		for k, v := range s.ByLiquidity {
			resp.ByLiquidity[string(k)] = v
		}
	}
	return resp
}
