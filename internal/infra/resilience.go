// Package infra provides resilience primitives shared by the wiki transport.
package infra

import (
	"sync"
	"time"
)

// CircuitState represents the current state of the circuit breaker
type CircuitState int

const (
	CircuitClosed   CircuitState = iota // Normal operation
	CircuitOpen                         // Failing fast, rejecting requests
	CircuitHalfOpen                     // Testing whether the endpoint recovered
)

func (s CircuitState) String() string {
	switch s {
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

// BreakerConfig tunes a CircuitBreaker.
type BreakerConfig struct {
	FailureThreshold int           // Consecutive failures before opening
	ResetTimeout     time.Duration // Time spent open before trying again
	HalfOpenMax      int           // Trial requests allowed while half-open
}

// DefaultBreakerConfig returns the thresholds used by the wiki transport.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		FailureThreshold: 5,
		ResetTimeout:     30 * time.Second,
		HalfOpenMax:      2,
	}
}

// CircuitBreaker stops traffic to a wiki endpoint that keeps failing at the
// transport level. It never looks at API payloads, only at whether a round
// trip produced a usable HTTP response.
type CircuitBreaker struct {
	mu  sync.Mutex
	cfg BreakerConfig

	state            CircuitState
	consecutiveFails int
	lastFailure      time.Time
	halfOpenCount    int

	now func() time.Time
}

// NewCircuitBreaker creates a breaker with DefaultBreakerConfig.
func NewCircuitBreaker() *CircuitBreaker {
	return NewCircuitBreakerWithConfig(DefaultBreakerConfig())
}

// NewCircuitBreakerWithConfig creates a breaker; zero fields fall back to defaults.
func NewCircuitBreakerWithConfig(cfg BreakerConfig) *CircuitBreaker {
	def := DefaultBreakerConfig()
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = def.FailureThreshold
	}
	if cfg.ResetTimeout <= 0 {
		cfg.ResetTimeout = def.ResetTimeout
	}
	if cfg.HalfOpenMax <= 0 {
		cfg.HalfOpenMax = def.HalfOpenMax
	}
	return &CircuitBreaker{cfg: cfg, state: CircuitClosed, now: time.Now}
}

// Allow reports whether a request may go out.
func (cb *CircuitBreaker) Allow() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case CircuitClosed:
		return true
	case CircuitOpen:
		if cb.now().Sub(cb.lastFailure) > cb.cfg.ResetTimeout {
			cb.state = CircuitHalfOpen
			cb.halfOpenCount = 0
			return true
		}
		return false
	case CircuitHalfOpen:
		if cb.halfOpenCount < cb.cfg.HalfOpenMax {
			cb.halfOpenCount++
			return true
		}
		return false
	default:
		return false
	}
}

// RecordSuccess resets the failure streak and closes a half-open circuit.
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.consecutiveFails = 0
	if cb.state == CircuitHalfOpen {
		cb.state = CircuitClosed
		cb.halfOpenCount = 0
	}
}

// RecordFailure extends the failure streak, opening the circuit at the threshold.
func (cb *CircuitBreaker) RecordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.consecutiveFails++
	cb.lastFailure = cb.now()

	switch cb.state {
	case CircuitClosed:
		if cb.consecutiveFails >= cb.cfg.FailureThreshold {
			cb.state = CircuitOpen
		}
	case CircuitHalfOpen:
		cb.state = CircuitOpen
		cb.halfOpenCount = 0
	}
}

// Release hands back a half-open trial slot taken by Allow when the request
// ended without reaching the endpoint, so it counts as neither outcome.
func (cb *CircuitBreaker) Release() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state == CircuitHalfOpen && cb.halfOpenCount > 0 {
		cb.halfOpenCount--
	}
}

// State returns the current circuit state
func (cb *CircuitBreaker) State() CircuitState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// Stats returns a snapshot of the breaker.
func (cb *CircuitBreaker) Stats() CircuitBreakerStats {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return CircuitBreakerStats{
		State:            cb.state.String(),
		ConsecutiveFails: cb.consecutiveFails,
		LastFailure:      cb.lastFailure,
		RetryAt:          cb.lastFailure.Add(cb.cfg.ResetTimeout),
	}
}

// CircuitBreakerStats contains circuit breaker statistics
type CircuitBreakerStats struct {
	State            string    `json:"state"`
	ConsecutiveFails int       `json:"consecutive_failures"`
	LastFailure      time.Time `json:"last_failure,omitempty"`
	RetryAt          time.Time `json:"retry_at,omitempty"`
}

// ErrCircuitOpen is returned when the breaker rejects a request.
type ErrCircuitOpen struct {
	Endpoint string
	RetryAt  time.Time
	Failures int
}

func (e *ErrCircuitOpen) Error() string {
	return "circuit breaker is open for " + e.Endpoint + " after repeated failures, retry after " + e.RetryAt.Format(time.RFC3339)
}
