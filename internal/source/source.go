// Package source implements quote adapters for the supported exchanges.
// Each adapter owns its symbol formatting, request building, response
// parsing, and validation, and surfaces every failure as a typed
// *domain.SourceError.
package source

import (
	"context"

	"github.com/zhongsurehow/crossarb/internal/domain"
)

// Adapter is the uniform interface to one external price feed.
type Adapter interface {
	// Name returns the source identifier.
	Name() domain.SourceID
	// Fetch retrieves and validates one quote. Failures are always a
	// *domain.SourceError so callers can classify them.
	Fetch(ctx context.Context, symbol string) (domain.Quote, error)
}

// PingURL optionally exposes a cheap liveness endpoint used by the latency
// prober. Adapters that do not implement it are probed against their ticker
// endpoint instead.
type PingURL interface {
	PingURL() string
}
