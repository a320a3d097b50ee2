package domain

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrNotFound         = errors.New("not found")
	ErrInvalidPrice     = errors.New("invalid price data")
	ErrInvalidThreshold = errors.New("invalid threshold")
	ErrBreakerOpen      = errors.New("circuit breaker open")
	ErrRateLimited      = errors.New("rate limited")
)

// SourceErrorKind classifies why an adapter call failed. The resilience
// layer uses the kind to decide whether a retry has any value.
type SourceErrorKind string

const (
	ErrKindTimeout           SourceErrorKind = "timeout"
	ErrKindRateLimited       SourceErrorKind = "rate_limited"
	ErrKindMalformedResponse SourceErrorKind = "malformed_response"
	ErrKindUnreachable       SourceErrorKind = "unreachable"
)

// SourceError is the typed failure every adapter surfaces. Callers classify
// it by Kind rather than inspecting transport-level errors.
type SourceError struct {
	Source SourceID
	Kind   SourceErrorKind
	// RetryAfter carries the provider's backoff hint for rate-limit
	// responses; zero when the provider gave none.
	RetryAfter time.Duration
	Err        error
}

func (e *SourceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("source %s: %s: %v", e.Source, e.Kind, e.Err)
	}
	return fmt.Sprintf("source %s: %s", e.Source, e.Kind)
}

func (e *SourceError) Unwrap() error { return e.Err }

// Transient reports whether retrying the call may succeed. Rate limits are
// deliberately not transient here: the retry loop must respect the
// provider's backoff hint instead of hammering it.
func (e *SourceError) Transient() bool {
	return e.Kind == ErrKindTimeout || e.Kind == ErrKindUnreachable
}

// NewSourceError builds a SourceError wrapping err.
func NewSourceError(source SourceID, kind SourceErrorKind, err error) *SourceError {
	return &SourceError{Source: source, Kind: kind, Err: err}
}

// AsSourceError unwraps err into a *SourceError if possible.
func AsSourceError(err error) (*SourceError, bool) {
	var se *SourceError
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}
