package handler

import (
	"net/http"
	"time"

	"github.com/zhongsurehow/crossarb/internal/domain"
	"github.com/zhongsurehow/crossarb/internal/scanner"
)

// LatestProvider exposes the most recent scan result per symbol.
type LatestProvider interface {
	Latest() []scanner.Result
}

// ScanHandler serves the latest detection pass per symbol.
type ScanHandler struct {
	provider LatestProvider
}

// NewScanHandler creates a ScanHandler backed by the given provider.
func NewScanHandler(provider LatestProvider) *ScanHandler {
	return &ScanHandler{provider: provider}
}

type scanResponse struct {
	Symbol        string                `json:"symbol"`
	Quality       string                `json:"quality"`
	BestBid       float64               `json:"best_bid,omitempty"`
	BestBidSource string                `json:"best_bid_source,omitempty"`
	BestAsk       float64               `json:"best_ask,omitempty"`
	BestAskSource string                `json:"best_ask_source,omitempty"`
	Deviation     map[string]float64    `json:"deviation,omitempty"`
	Opportunities []opportunityResponse `json:"opportunities"`
	Summary       summaryResponse       `json:"summary"`
	Failures      []failureResponse     `json:"failures,omitempty"`
	ScannedAt     string                `json:"scanned_at"`
}

type failureResponse struct {
	Source string `json:"source"`
	Kind   string `json:"kind"`
	Error  string `json:"error"`
}

// GetLatest responds with the most recent scan result for every symbol. A
// symbol that has not completed a pass yet is absent.
// GET /api/scans/latest?symbol=BTC/USDT
func (h *ScanHandler) GetLatest(w http.ResponseWriter, r *http.Request) {
	symbol := r.URL.Query().Get("symbol")

	results := h.provider.Latest()
	out := make([]scanResponse, 0, len(results))
	for _, res := range results {
		if symbol != "" && res.Symbol != symbol {
			continue
		}
		out = append(out, toScanResponse(res))
	}

	writeJSON(w, http.StatusOK, map[string]any{"scans": out})
}

func toScanResponse(res scanner.Result) scanResponse {
	resp := scanResponse{
		Symbol:        res.Symbol,
		Quality:       string(res.Quality),
		BestBid:       res.Best.BestBid,
		BestAsk:       res.Best.BestAsk,
		BestBidSource: string(res.Best.BestBidSource),
		BestAskSource: string(res.Best.BestAskSource),
		Opportunities: make([]opportunityResponse, 0, len(res.Opportunities)),
		Summary:       toSummaryResponse(res.Summary),
		ScannedAt:     res.ScannedAt.UTC().Format(time.RFC3339),
	}
	if len(res.Deviation) > 0 {
		resp.Deviation = make(map[string]float64, len(res.Deviation))
		for src, dev := range res.Deviation {
			resp.Deviation[string(src)] = dev
		}
	}
	for _, opp := range res.Opportunities {
		resp.Opportunities = append(resp.Opportunities, toOpportunityResponse(opp))
	}
	for _, f := range res.Failures {
		fr := failureResponse{Source: string(f.Source)}
		if f.Err != nil {
			fr.Error = f.Err.Error()
			if se, ok := domain.AsSourceError(f.Err); ok {
				fr.Kind = string(se.Kind)
			}
		}
		resp.Failures = append(resp.Failures, fr)
	}
	return resp
}
