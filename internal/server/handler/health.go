package handler

import (
	"log/slog"
	"net/http"
	"time"
)

// HealthHandler serves the health-check endpoint.
type HealthHandler struct {
	logger  *slog.Logger
	started time.Time
}

// NewHealthHandler creates a HealthHandler with the provided logger.
func NewHealthHandler(logger *slog.Logger) *HealthHandler {
	return &HealthHandler{logger: logger, started: time.Now()}
}

// HealthCheck responds with a simple JSON status indicating the engine is
// alive.
// GET /api/health
func (h *HealthHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":         "ok",
		"uptime_seconds": int(time.Since(h.started).Seconds()),
		"timestamp":      time.Now().UTC().Format(time.RFC3339),
	})
}
