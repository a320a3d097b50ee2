package handler

import (
	"net/http"
	"time"

	"github.com/zhongsurehow/crossarb/internal/domain"
)

// StatusProvider reports the current health of every guarded quote source.
type StatusProvider interface {
	Statuses() []domain.SourceStatus
}

// SourceHandler serves per-source breaker state and measured latency.
type SourceHandler struct {
	provider StatusProvider
}

// NewSourceHandler creates a SourceHandler backed by the given provider.
func NewSourceHandler(provider StatusProvider) *SourceHandler {
	return &SourceHandler{provider: provider}
}

type sourceStatusResponse struct {
	Source       string  `json:"source"`
	BreakerState string  `json:"breaker_state"`
	FailureCount int     `json:"failure_count"`
	LastFailure  string  `json:"last_failure,omitempty"`
	PingMs       float64 `json:"ping_ms,omitempty"`
}

// GetStatuses responds with the health record of every configured source.
// GET /api/sources/status
func (h *SourceHandler) GetStatuses(w http.ResponseWriter, r *http.Request) {
	statuses := h.provider.Statuses()

	out := make([]sourceStatusResponse, 0, len(statuses))
	for _, st := range statuses {
		resp := sourceStatusResponse{
			Source:       string(st.Source),
			BreakerState: st.BreakerState,
			FailureCount: st.FailureCount,
			PingMs:       st.PingMs,
		}
		if !st.LastFailure.IsZero() {
			resp.LastFailure = st.LastFailure.UTC().Format(time.RFC3339)
		}
		out = append(out, resp)
	}

	writeJSON(w, http.StatusOK, map[string]any{"sources": out})
}
