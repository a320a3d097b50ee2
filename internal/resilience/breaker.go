package resilience

import (
	"sync"
	"time"

	"github.com/zhongsurehow/crossarb/internal/domain"
)

// BreakerState is the circuit state for one source.
type BreakerState int

const (
	StateClosed BreakerState = iota
	StateOpen
	StateHalfOpen
)

func (s BreakerState) String() string {
	switch s {
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half_open"
	default:
		return "closed"
	}
}

// Breaker is a per-source circuit breaker. After failureThreshold
// consecutive failures the circuit opens and calls fail fast; after
// recoveryTimeout a single probe is allowed through, and its outcome
// decides between closing the circuit and re-opening it.
type Breaker struct {
	failureThreshold int
	recoveryTimeout  time.Duration

	mu      sync.Mutex
	sources map[domain.SourceID]*breakerEntry
}

type breakerEntry struct {
	mu          sync.Mutex
	state       BreakerState
	failures    int
	lastFailure time.Time
	openedAt    time.Time
}

// NewBreaker creates a breaker shared by all sources; each source gets its
// own circuit and its own lock.
func NewBreaker(failureThreshold int, recoveryTimeout time.Duration) *Breaker {
	return &Breaker{
		failureThreshold: failureThreshold,
		recoveryTimeout:  recoveryTimeout,
		sources:          make(map[domain.SourceID]*breakerEntry),
	}
}

func (b *Breaker) entry(source domain.SourceID) *breakerEntry {
	b.mu.Lock()
	defer b.mu.Unlock()
	e, ok := b.sources[source]
	if !ok {
		e = &breakerEntry{}
		b.sources[source] = e
	}
	return e
}

// Allow reports whether a call to source may proceed. When the recovery
// timeout has elapsed on an open circuit it transitions to half-open and
// admits exactly this caller as the probe.
func (b *Breaker) Allow(source domain.SourceID) error {
	e := b.entry(source)
	e.mu.Lock()
	defer e.mu.Unlock()

	switch e.state {
	case StateClosed:
		return nil
	case StateHalfOpen:
		// A probe is already in flight.
		return domain.NewSourceError(source, domain.ErrKindUnreachable, domain.ErrBreakerOpen)
	default: // StateOpen
		if time.Since(e.openedAt) >= b.recoveryTimeout {
			e.state = StateHalfOpen
			return nil
		}
		return domain.NewSourceError(source, domain.ErrKindUnreachable, domain.ErrBreakerOpen)
	}
}

// Success records a successful call, closing the circuit and resetting the
// failure count.
func (b *Breaker) Success(source domain.SourceID) {
	e := b.entry(source)
	e.mu.Lock()
	defer e.mu.Unlock()
	e.state = StateClosed
	e.failures = 0
}

// Failure records a failed call. A half-open probe failure re-opens the
// circuit immediately; in the closed state the circuit opens once the
// consecutive failure count reaches the threshold.
func (b *Breaker) Failure(source domain.SourceID) {
	e := b.entry(source)
	e.mu.Lock()
	defer e.mu.Unlock()

	e.failures++
	e.lastFailure = time.Now()

	if e.state == StateHalfOpen || e.failures >= b.failureThreshold {
		e.state = StateOpen
		e.openedAt = time.Now()
	}
}

// State returns the current circuit state for source.
func (b *Breaker) State(source domain.SourceID) BreakerState {
	e := b.entry(source)
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Status reports the health record for source.
func (b *Breaker) Status(source domain.SourceID) domain.SourceStatus {
	e := b.entry(source)
	e.mu.Lock()
	defer e.mu.Unlock()
	return domain.SourceStatus{
		Source:       source,
		BreakerState: e.state.String(),
		FailureCount: e.failures,
		LastFailure:  e.lastFailure,
	}
}
