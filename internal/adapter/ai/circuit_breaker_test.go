package ai

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/ai-screening-interview/internal/adapter/observability"
	"github.com/fairyhunter13/ai-screening-interview/internal/domain"
	"github.com/fairyhunter13/ai-screening-interview/internal/domain/mocks"
)

func newTestBreaker(threshold int, cooldown time.Duration) (*CircuitBreaker, *time.Time) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	cb := NewCircuitBreaker("test-model", threshold, cooldown)
	cb.now = func() time.Time { return now }
	return cb, &now
}

func TestNewCircuitBreaker_Defaults(t *testing.T) {
	cb := NewCircuitBreaker("m", 0, 0)
	assert.Equal(t, 5, cb.failureThreshold)
	assert.Equal(t, 30*time.Second, cb.recoveryTimeout)
	assert.Equal(t, CircuitClosed, cb.GetState())
}

func TestCircuitBreaker_OpensAfterThreshold(t *testing.T) {
	cb, _ := newTestBreaker(3, time.Minute)
	for i := 0; i < 2; i++ {
		require.True(t, cb.ShouldAttempt())
		cb.RecordFailure()
	}
	assert.Equal(t, CircuitClosed, cb.GetState())

	cb.RecordFailure()
	assert.Equal(t, CircuitOpen, cb.GetState())
	assert.False(t, cb.ShouldAttempt())
	assert.Equal(t, float64(CircuitOpen), testutil.ToFloat64(observability.OracleBreakerState))
}

func TestCircuitBreaker_SuccessResetsCount(t *testing.T) {
	cb, _ := newTestBreaker(2, time.Minute)
	cb.RecordFailure()
	cb.RecordSuccess()
	cb.RecordFailure()
	assert.Equal(t, CircuitClosed, cb.GetState())
}

func TestCircuitBreaker_HalfOpenSingleProbe(t *testing.T) {
	cb, now := newTestBreaker(1, time.Minute)
	cb.RecordFailure()
	require.Equal(t, CircuitOpen, cb.GetState())

	*now = now.Add(61 * time.Second)
	assert.True(t, cb.ShouldAttempt())
	assert.Equal(t, CircuitHalfOpen, cb.GetState())
	assert.False(t, cb.ShouldAttempt(), "only one probe while half-open")

	cb.RecordFailure()
	assert.Equal(t, CircuitOpen, cb.GetState())

	*now = now.Add(61 * time.Second)
	require.True(t, cb.ShouldAttempt())
	cb.RecordSuccess()
	assert.Equal(t, CircuitClosed, cb.GetState())
	assert.True(t, cb.ShouldAttempt())
}

func TestCircuitState_String(t *testing.T) {
	assert.Equal(t, "closed", CircuitClosed.String())
	assert.Equal(t, "open", CircuitOpen.String())
	assert.Equal(t, "half-open", CircuitHalfOpen.String())
	assert.Equal(t, "unknown", CircuitState(9).String())
}

func TestBreakerOracle(t *testing.T) {
	inner := mocks.NewScoringOracle(t)
	inner.On("Score", mock.Anything, mock.Anything).Return(domain.OracleScore{}, errors.New("502")).Twice()

	cb, _ := newTestBreaker(2, time.Minute)
	o := NewBreakerOracle(inner, cb)
	for i := 0; i < 2; i++ {
		_, err := o.Score(context.Background(), domain.OracleRequest{})
		require.Error(t, err)
	}

	// open: the inner oracle is not called again
	_, err := o.Score(context.Background(), domain.OracleRequest{})
	assert.ErrorIs(t, err, domain.ErrCircuitOpen)
	assert.ErrorIs(t, err, domain.ErrOracle)
}

func TestBreakerOracle_SchemaErrorsDoNotTrip(t *testing.T) {
	inner := mocks.NewScoringOracle(t)
	inner.On("Score", mock.Anything, mock.Anything).Return(domain.OracleScore{}, domain.ErrSchemaInvalid).Times(3)

	cb, _ := newTestBreaker(2, time.Minute)
	o := NewBreakerOracle(inner, cb)
	for i := 0; i < 3; i++ {
		_, err := o.Score(context.Background(), domain.OracleRequest{})
		assert.ErrorIs(t, err, domain.ErrSchemaInvalid)
	}
	assert.Equal(t, CircuitClosed, cb.GetState())
}
