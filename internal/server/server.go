// Package server exposes the engine's read-only status API: health, source
// breaker state and the latest detection results.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/zhongsurehow/crossarb/internal/server/handler"
	"github.com/zhongsurehow/crossarb/internal/server/middleware"
)

// Config holds the HTTP server configuration.
type Config struct {
	Port        int
	CORSOrigins []string
	APIKey      string // if empty, authentication is disabled
}

// Handlers aggregates the endpoint handlers the server registers.
type Handlers struct {
	Health        *handler.HealthHandler
	Sources       *handler.SourceHandler
	Scans         *handler.ScanHandler
	Opportunities *handler.OpportunityHandler
}

// Server is the read-only HTTP API over the running engine.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// New creates a Server with all routes registered. The middleware chain is
// CORS -> logging -> auth; the health check bypasses auth.
func New(cfg Config, handlers Handlers, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/health", handlers.Health.HealthCheck)

	protected := http.NewServeMux()
	protected.HandleFunc("GET /api/sources/status", handlers.Sources.GetStatuses)
	protected.HandleFunc("GET /api/scans/latest", handlers.Scans.GetLatest)
	protected.HandleFunc("GET /api/opportunities/recent", handlers.Opportunities.ListRecent)
	mux.Handle("/api/", middleware.Auth(cfg.APIKey)(protected))

	var h http.Handler = mux
	h = middleware.Logging(logger)(h)
	h = corsMiddleware(cfg.CORSOrigins)(h)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      h,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: srv,
		logger:     logger,
	}
}

// Start begins listening for HTTP requests. It blocks until the server
// encounters an error or is shut down.
func (s *Server) Start() error {
	s.logger.Info("server: starting",
		slog.String("addr", s.httpServer.Addr),
	)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server: listen: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server, waiting for in-flight requests
// to complete within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("server: shutting down")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}

// corsMiddleware returns middleware that sets CORS headers for the allowed
// origins. If no origins are specified, it defaults to allowing all origins.
func corsMiddleware(allowedOrigins []string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")

			if origin != "" {
				allowed := len(allowedOrigins) == 0 // allow all if none specified
				for _, o := range allowedOrigins {
					if strings.EqualFold(o, "*") || strings.EqualFold(o, origin) {
						allowed = true
						break
					}
				}

				if allowed {
					w.Header().Set("Access-Control-Allow-Origin", origin)
					w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
					w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-API-Key")
					w.Header().Set("Access-Control-Max-Age", "86400")
				}
			}

			// Handle preflight requests.
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
