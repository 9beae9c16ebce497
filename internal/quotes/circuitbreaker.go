package quotes

import (
	"sync"
	"time"

	"github.com/Rajchodisetti/dailyquote/internal/observ"
)

// BreakerState represents the circuit breaker state
type BreakerState string

const (
	CircuitClosed   BreakerState = "closed"    // Normal operation
	CircuitOpen     BreakerState = "open"      // Failing, reject requests
	CircuitHalfOpen BreakerState = "half-open" // One trial request allowed
)

// CircuitBreakerState is the per-source snapshot exposed to callers.
type CircuitBreakerState struct {
	Failures        int          `json:"failures"`
	LastFailureTime time.Time    `json:"last_failure_time"`
	State           BreakerState `json:"state"`
}

// CircuitBreaker tracks consecutive failures per source and short-circuits
// sources that reached the threshold until the reset timeout passes.
type CircuitBreaker struct {
	mu           sync.Mutex
	states       map[Source]*breakerEntry
	threshold    int
	resetTimeout time.Duration
	now          func() time.Time
}

type breakerEntry struct {
	failures    int
	lastFailure time.Time
	state       BreakerState
	trialSince  time.Time // when the half-open trial was granted
}

// NewCircuitBreaker creates a closed breaker for every source.
func NewCircuitBreaker(sources []Source, cfg CircuitBreakerConfig, now func() time.Time) *CircuitBreaker {
	if now == nil {
		now = time.Now
	}
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.ResetTimeoutSeconds <= 0 {
		cfg.ResetTimeoutSeconds = 60
	}
	cb := &CircuitBreaker{
		states:       make(map[Source]*breakerEntry, len(sources)),
		threshold:    cfg.FailureThreshold,
		resetTimeout: cfg.resetTimeout(),
		now:          now,
	}
	for _, src := range sources {
		cb.states[src] = &breakerEntry{state: CircuitClosed}
	}
	return cb
}

// IsOpen reports whether calls to source must be rejected. Querying an open
// circuit whose reset timeout has elapsed moves it to half-open and grants
// exactly one trial; further queries stay open until that trial is recorded.
func (cb *CircuitBreaker) IsOpen(source Source) bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	e, ok := cb.states[source]
	if !ok {
		return false
	}
	now := cb.now()

	switch e.state {
	case CircuitOpen:
		if now.Sub(e.lastFailure) < cb.resetTimeout {
			return true
		}
		e.state = CircuitHalfOpen
		e.trialSince = now
		observ.Log("circuit_breaker_half_open", map[string]any{
			"source":   string(source),
			"failures": e.failures,
		})
		return false
	case CircuitHalfOpen:
		// A trial that never reported back is re-granted after another timeout.
		if now.Sub(e.trialSince) >= cb.resetTimeout {
			e.trialSince = now
			return false
		}
		return true
	default:
		return false
	}
}

// Allows reports whether IsOpen would currently let a call through, without
// transitioning state.
func (cb *CircuitBreaker) Allows(source Source) bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	e, ok := cb.states[source]
	if !ok {
		return true
	}
	now := cb.now()
	switch e.state {
	case CircuitOpen:
		return now.Sub(e.lastFailure) >= cb.resetTimeout
	case CircuitHalfOpen:
		return now.Sub(e.trialSince) >= cb.resetTimeout
	default:
		return true
	}
}

// RecordSuccess closes the circuit and clears the failure count.
func (cb *CircuitBreaker) RecordSuccess(source Source) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	e, ok := cb.states[source]
	if !ok {
		return
	}
	if e.state != CircuitClosed {
		observ.Log("circuit_breaker_closed", map[string]any{
			"source": string(source),
			"from":   string(e.state),
		})
	}
	e.state = CircuitClosed
	e.failures = 0
}

// RecordFailure counts a failure and opens the circuit at the threshold.
// A failed half-open trial reopens immediately and restarts the timer.
func (cb *CircuitBreaker) RecordFailure(source Source) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	e, ok := cb.states[source]
	if !ok {
		return
	}
	e.failures++
	e.lastFailure = cb.now()

	if e.state == CircuitOpen {
		return
	}
	if e.state == CircuitHalfOpen || e.failures >= cb.threshold {
		e.state = CircuitOpen
		observ.IncCounter("circuit_breaker_opened_total", map[string]string{"source": string(source)})
		observ.Log("circuit_breaker_opened", map[string]any{
			"source":     string(source),
			"failures":   e.failures,
			"next_probe": e.lastFailure.Add(cb.resetTimeout).Format(time.RFC3339),
		})
	}
}

// State returns the snapshot for source.
func (cb *CircuitBreaker) State(source Source) (CircuitBreakerState, bool) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	e, ok := cb.states[source]
	if !ok {
		return CircuitBreakerState{}, false
	}
	return CircuitBreakerState{Failures: e.failures, LastFailureTime: e.lastFailure, State: e.state}, true
}

// Snapshot returns copies of every source's state.
func (cb *CircuitBreaker) Snapshot() map[Source]CircuitBreakerState {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	out := make(map[Source]CircuitBreakerState, len(cb.states))
	for src, e := range cb.states {
		out[src] = CircuitBreakerState{Failures: e.failures, LastFailureTime: e.lastFailure, State: e.state}
	}
	return out
}
