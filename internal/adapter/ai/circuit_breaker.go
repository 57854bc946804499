package ai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/fairyhunter13/ai-screening-interview/internal/adapter/observability"
	"github.com/fairyhunter13/ai-screening-interview/internal/domain"
)

// CircuitState represents the state of a circuit breaker
type CircuitState int

const (
	// CircuitClosed indicates the circuit is allowing requests to pass through.
	CircuitClosed CircuitState = iota
	// CircuitOpen indicates the circuit is blocking requests due to failures.
	CircuitOpen
	// CircuitHalfOpen indicates one probe request is allowed through.
	CircuitHalfOpen
)

// String returns a string representation of the circuit state
func (cs CircuitState) String() string {
	switch cs {
	case CircuitClosed:
		return "closed"
	case CircuitOpen:
		return "open"
	case CircuitHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// CircuitBreaker fast-fails oracle calls after consecutive failures.
type CircuitBreaker struct {
	mu               sync.Mutex
	model            string
	failureThreshold int
	recoveryTimeout  time.Duration
	state            CircuitState
	failureCount     int
	lastFailureTime  time.Time
	probing          bool
	now              func() time.Time
}

// NewCircuitBreaker opens after threshold consecutive failures and probes again after cooldown.
func NewCircuitBreaker(model string, threshold int, cooldown time.Duration) *CircuitBreaker {
	if threshold <= 0 {
		threshold = 5
	}
	if cooldown <= 0 {
		cooldown = 30 * time.Second
	}
	return &CircuitBreaker{
		model:            model,
		failureThreshold: threshold,
		recoveryTimeout:  cooldown,
		state:            CircuitClosed,
		now:              time.Now,
	}
}

// ShouldAttempt reports whether a call may proceed. Once the cool-down has
// passed an open circuit lets exactly one probe through.
func (cb *CircuitBreaker) ShouldAttempt() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case CircuitClosed:
		return true
	case CircuitOpen:
		if cb.now().Sub(cb.lastFailureTime) < cb.recoveryTimeout {
			return false
		}
		cb.setState(CircuitHalfOpen)
		cb.probing = true
		return true
	case CircuitHalfOpen:
		if cb.probing {
			return false
		}
		cb.probing = true
		return true
	default:
		return false
	}
}

// RecordSuccess records a successful request
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failureCount = 0
	cb.probing = false
	if cb.state != CircuitClosed {
		cb.setState(CircuitClosed)
		slog.Info("oracle circuit closed after successful probe", slog.String("model", cb.model))
	}
}

// RecordFailure records a failed request
func (cb *CircuitBreaker) RecordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failureCount++
	cb.lastFailureTime = cb.now()
	cb.probing = false
	if cb.state == CircuitHalfOpen || cb.failureCount >= cb.failureThreshold {
		if cb.state != CircuitOpen {
			slog.Warn("oracle circuit opened",
				slog.String("model", cb.model),
				slog.Int("failure_count", cb.failureCount),
				slog.Int("threshold", cb.failureThreshold))
		}
		cb.setState(CircuitOpen)
	}
}

// GetState returns the current circuit state
func (cb *CircuitBreaker) GetState() CircuitState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

func (cb *CircuitBreaker) setState(s CircuitState) {
	cb.state = s
	observability.OracleBreakerState.Set(float64(s))
}

// BreakerOracle guards a ScoringOracle with a CircuitBreaker.
type BreakerOracle struct {
	inner domain.ScoringOracle
	cb    *CircuitBreaker
}

// NewBreakerOracle wraps inner.
func NewBreakerOracle(inner domain.ScoringOracle, cb *CircuitBreaker) *BreakerOracle {
	return &BreakerOracle{inner: inner, cb: cb}
}

// Score forwards to the wrapped oracle unless the circuit is open. A verdict
// that fails to parse still proves the provider is reachable, so it does not
// count as a failure.
func (b *BreakerOracle) Score(ctx context.Context, req domain.OracleRequest) (domain.OracleScore, error) {
	if !b.cb.ShouldAttempt() {
		return domain.OracleScore{}, fmt.Errorf("op=oracle.Score: %w: %w", domain.ErrOracle, domain.ErrCircuitOpen)
	}
	out, err := b.inner.Score(ctx, req)
	switch {
	case err == nil, errors.Is(err, domain.ErrSchemaInvalid):
		b.cb.RecordSuccess()
	default:
		b.cb.RecordFailure()
	}
	return out, err
}
