package quotes

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBreaker(clock *fakeClock) *CircuitBreaker {
	return NewCircuitBreaker([]Source{SourceQuotable}, CircuitBreakerConfig{FailureThreshold: 5, ResetTimeoutSeconds: 60}, clock.Now)
}

func TestCircuitBreakerOpensAtThreshold(t *testing.T) {
	clock := newFakeClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	cb := newTestBreaker(clock)

	for i := 0; i < 4; i++ {
		cb.RecordFailure(SourceQuotable)
		require.False(t, cb.IsOpen(SourceQuotable), "failure %d", i+1)
	}
	cb.RecordFailure(SourceQuotable)
	assert.True(t, cb.IsOpen(SourceQuotable))

	st, _ := cb.State(SourceQuotable)
	assert.Equal(t, CircuitOpen, st.State)
	assert.Equal(t, 5, st.Failures)
}

func TestCircuitBreakerHalfOpenSingleTrial(t *testing.T) {
	clock := newFakeClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	cb := newTestBreaker(clock)
	for i := 0; i < 5; i++ {
		cb.RecordFailure(SourceQuotable)
	}

	clock.Advance(59 * time.Second)
	assert.True(t, cb.IsOpen(SourceQuotable))
	assert.False(t, cb.Allows(SourceQuotable))

	clock.Advance(2 * time.Second)
	assert.True(t, cb.Allows(SourceQuotable))
	assert.False(t, cb.IsOpen(SourceQuotable), "first query after timeout grants a trial")

	st, _ := cb.State(SourceQuotable)
	assert.Equal(t, CircuitHalfOpen, st.State)
	assert.True(t, cb.IsOpen(SourceQuotable), "only one trial while half-open")
	assert.False(t, cb.Allows(SourceQuotable))
}

func TestCircuitBreakerHalfOpenFailureReopens(t *testing.T) {
	clock := newFakeClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	cb := newTestBreaker(clock)
	for i := 0; i < 5; i++ {
		cb.RecordFailure(SourceQuotable)
	}
	clock.Advance(61 * time.Second)
	require.False(t, cb.IsOpen(SourceQuotable))

	cb.RecordFailure(SourceQuotable)
	st, _ := cb.State(SourceQuotable)
	assert.Equal(t, CircuitOpen, st.State)
	assert.True(t, cb.IsOpen(SourceQuotable))

	clock.Advance(30 * time.Second)
	assert.True(t, cb.IsOpen(SourceQuotable), "timer restarts from the failed trial")
}

func TestCircuitBreakerSuccessCloses(t *testing.T) {
	clock := newFakeClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	cb := newTestBreaker(clock)
	for i := 0; i < 5; i++ {
		cb.RecordFailure(SourceQuotable)
	}
	clock.Advance(61 * time.Second)
	require.False(t, cb.IsOpen(SourceQuotable))

	cb.RecordSuccess(SourceQuotable)
	st, _ := cb.State(SourceQuotable)
	assert.Equal(t, CircuitClosed, st.State)
	assert.Equal(t, 0, st.Failures)
	assert.False(t, cb.IsOpen(SourceQuotable))
}

func TestCircuitBreakerStalledTrialIsRegranted(t *testing.T) {
	clock := newFakeClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	cb := newTestBreaker(clock)
	for i := 0; i < 5; i++ {
		cb.RecordFailure(SourceQuotable)
	}
	clock.Advance(61 * time.Second)
	require.False(t, cb.IsOpen(SourceQuotable))
	require.True(t, cb.IsOpen(SourceQuotable))

	clock.Advance(61 * time.Second)
	assert.False(t, cb.IsOpen(SourceQuotable))
}

func TestCircuitBreakerSuccessResetsCount(t *testing.T) {
	clock := newFakeClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	cb := newTestBreaker(clock)
	for i := 0; i < 4; i++ {
		cb.RecordFailure(SourceQuotable)
	}
	cb.RecordSuccess(SourceQuotable)
	for i := 0; i < 4; i++ {
		cb.RecordFailure(SourceQuotable)
	}
	assert.False(t, cb.IsOpen(SourceQuotable))
	assert.Equal(t, 4, cb.Snapshot()[SourceQuotable].Failures)
}

func TestCircuitBreakerUnknownSource(t *testing.T) {
	cb := NewCircuitBreaker(nil, CircuitBreakerConfig{}, nil)
	cb.RecordFailure(Source("mystery"))
	assert.False(t, cb.IsOpen(Source("mystery")))
	assert.True(t, cb.Allows(Source("mystery")))
}
