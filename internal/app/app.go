// Package app owns the application lifecycle: it wires the dependency graph
// from configuration and runs the scan loop until shutdown.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/zhongsurehow/crossarb/internal/config"
)

// App is the root application object.
type App struct {
	cfg     *config.Config
	logger  *slog.Logger
	closers []func()
}

// New creates an App from the given configuration and logger.
func New(cfg *config.Config, logger *slog.Logger) *App {
	return &App{
		cfg:    cfg,
		logger: logger.With(slog.String("component", "app")),
	}
}

// Run wires the dependencies and blocks until ctx is cancelled. The Binance
// stream, when enabled, runs alongside the scanner; either loop exiting with
// an error brings the whole application down.
func (a *App) Run(ctx context.Context) error {
	a.logger.InfoContext(ctx, "starting engine",
		slog.Int("symbols", len(a.cfg.Symbols)),
		slog.Int("sources", len(a.cfg.Sources.Enabled)),
		slog.String("log_level", a.cfg.LogLevel),
	)

	deps, cleanup, err := Wire(ctx, a.cfg, a.logger)
	if err != nil {
		return fmt.Errorf("app: wire dependencies: %w", err)
	}
	a.closers = append(a.closers, cleanup)

	g, gctx := errgroup.WithContext(ctx)
	if deps.BinanceStream != nil {
		g.Go(func() error {
			return deps.BinanceStream.Run(gctx)
		})
	}
	g.Go(func() error {
		return deps.Scanner.Run(gctx)
	})
	if deps.Server != nil {
		g.Go(func() error {
			return deps.Server.Start()
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := deps.Server.Shutdown(shutdownCtx); err != nil {
				a.logger.Warn("server shutdown failed", slog.String("error", err.Error()))
			}
			return gctx.Err()
		})
	}

	return g.Wait()
}

// Close tears down all resources in reverse registration order. Safe to call
// multiple times.
func (a *App) Close() {
	a.logger.Info("shutting down")
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
