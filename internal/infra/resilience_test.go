package infra

import (
	"strings"
	"sync"
	"testing"
	"time"
)

// fakeClock lets tests move time forward without sleeping.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestBreaker(cfg BreakerConfig) (*CircuitBreaker, *fakeClock) {
	clock := &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	cb := NewCircuitBreakerWithConfig(cfg)
	cb.now = clock.Now
	return cb, clock
}

func TestNewCircuitBreaker(t *testing.T) {
	cb := NewCircuitBreaker()
	if cb == nil {
		t.Fatal("NewCircuitBreaker returned nil")
	}
	if cb.cfg.FailureThreshold != 5 {
		t.Errorf("expected FailureThreshold=5, got %d", cb.cfg.FailureThreshold)
	}
	if cb.cfg.ResetTimeout != 30*time.Second {
		t.Errorf("expected ResetTimeout=30s, got %v", cb.cfg.ResetTimeout)
	}
	if cb.cfg.HalfOpenMax != 2 {
		t.Errorf("expected HalfOpenMax=2, got %d", cb.cfg.HalfOpenMax)
	}
	if cb.State() != CircuitClosed {
		t.Errorf("expected state=Closed, got %v", cb.State())
	}
}

func TestNewCircuitBreakerWithConfig_ZeroFieldsUseDefaults(t *testing.T) {
	cb := NewCircuitBreakerWithConfig(BreakerConfig{FailureThreshold: 3})

	if cb.cfg.FailureThreshold != 3 {
		t.Errorf("expected FailureThreshold=3, got %d", cb.cfg.FailureThreshold)
	}
	if cb.cfg.ResetTimeout != 30*time.Second {
		t.Errorf("expected default ResetTimeout, got %v", cb.cfg.ResetTimeout)
	}
	if cb.cfg.HalfOpenMax != 2 {
		t.Errorf("expected default HalfOpenMax, got %d", cb.cfg.HalfOpenMax)
	}
}

func TestCircuitBreaker_Allow_ClosedState(t *testing.T) {
	cb := NewCircuitBreaker()

	for range 100 {
		if !cb.Allow() {
			t.Fatal("closed circuit should allow requests")
		}
	}
}

func TestCircuitBreaker_TransitionToOpen(t *testing.T) {
	cb, _ := newTestBreaker(BreakerConfig{FailureThreshold: 3, ResetTimeout: time.Second, HalfOpenMax: 1})

	cb.RecordFailure()
	cb.RecordFailure()
	if cb.State() != CircuitClosed {
		t.Error("circuit should still be closed after 2 failures")
	}

	cb.RecordFailure()
	if cb.State() != CircuitOpen {
		t.Errorf("circuit should be open after 3 failures, got %v", cb.State())
	}
	if cb.Allow() {
		t.Error("open circuit should reject requests")
	}
}

func TestCircuitBreaker_HalfOpenTransitions(t *testing.T) {
	tests := []struct {
		name      string
		outcome   func(cb *CircuitBreaker)
		wantState CircuitState
	}{
		{"success closes", (*CircuitBreaker).RecordSuccess, CircuitClosed},
		{"failure reopens", (*CircuitBreaker).RecordFailure, CircuitOpen},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cb, clock := newTestBreaker(BreakerConfig{FailureThreshold: 2, ResetTimeout: time.Second, HalfOpenMax: 1})
			cb.RecordFailure()
			cb.RecordFailure()

			clock.Advance(2 * time.Second)
			if !cb.Allow() {
				t.Fatal("circuit should allow a trial request after the reset timeout")
			}
			if cb.State() != CircuitHalfOpen {
				t.Fatalf("circuit should be half-open, got %v", cb.State())
			}

			tt.outcome(cb)
			if cb.State() != tt.wantState {
				t.Errorf("state = %v, want %v", cb.State(), tt.wantState)
			}
		})
	}
}

func TestCircuitBreaker_HalfOpenMaxRequests(t *testing.T) {
	cb, clock := newTestBreaker(BreakerConfig{FailureThreshold: 2, ResetTimeout: time.Second, HalfOpenMax: 2})
	cb.RecordFailure()
	cb.RecordFailure()
	clock.Advance(2 * time.Second)

	// The transition request does not count against HalfOpenMax.
	for i := range 3 {
		if !cb.Allow() {
			t.Errorf("request %d should be allowed", i+1)
		}
	}
	if cb.Allow() {
		t.Error("fourth request should be rejected")
	}
}

func TestCircuitBreaker_ReleaseReturnsTrialSlot(t *testing.T) {
	cb, clock := newTestBreaker(BreakerConfig{FailureThreshold: 1, ResetTimeout: time.Second, HalfOpenMax: 1})
	cb.RecordFailure()
	clock.Advance(2 * time.Second)

	cb.Allow() // transition
	if !cb.Allow() {
		t.Fatal("one trial slot should be available")
	}
	if cb.Allow() {
		t.Fatal("trial slots should be exhausted")
	}

	cb.Release()
	if !cb.Allow() {
		t.Error("Release should free the trial slot")
	}
	if cb.State() != CircuitHalfOpen {
		t.Errorf("state = %v, want half-open", cb.State())
	}

	// No effect outside half-open
	cb.RecordSuccess()
	cb.Release()
	if cb.State() != CircuitClosed || !cb.Allow() {
		t.Error("Release must not disturb a closed circuit")
	}
}

func TestCircuitBreaker_RecordSuccessResetsFails(t *testing.T) {
	cb, _ := newTestBreaker(BreakerConfig{FailureThreshold: 5, ResetTimeout: time.Second, HalfOpenMax: 1})

	for range 3 {
		cb.RecordFailure()
	}
	cb.RecordSuccess()

	for range 4 {
		cb.RecordFailure()
	}
	if cb.State() != CircuitClosed {
		t.Error("circuit should still be closed after 4 failures post-success")
	}

	cb.RecordFailure()
	if cb.State() != CircuitOpen {
		t.Error("circuit should be open after 5 failures")
	}
}

func TestCircuitBreaker_Stats(t *testing.T) {
	cb, clock := newTestBreaker(BreakerConfig{ResetTimeout: 10 * time.Second})

	stats := cb.Stats()
	if stats.State != "closed" || stats.ConsecutiveFails != 0 {
		t.Errorf("unexpected initial stats: %+v", stats)
	}

	cb.RecordFailure()
	cb.RecordFailure()

	stats = cb.Stats()
	if stats.ConsecutiveFails != 2 {
		t.Errorf("expected 2 consecutive fails, got %d", stats.ConsecutiveFails)
	}
	if !stats.LastFailure.Equal(clock.Now()) {
		t.Errorf("LastFailure = %v, want %v", stats.LastFailure, clock.Now())
	}
	if !stats.RetryAt.Equal(clock.Now().Add(10 * time.Second)) {
		t.Errorf("RetryAt = %v", stats.RetryAt)
	}
}

func TestCircuitState_String(t *testing.T) {
	tests := []struct {
		state    CircuitState
		expected string
	}{
		{CircuitClosed, "closed"},
		{CircuitOpen, "open"},
		{CircuitHalfOpen, "half-open"},
		{CircuitState(99), "unknown"},
	}

	for _, tt := range tests {
		if got := tt.state.String(); got != tt.expected {
			t.Errorf("CircuitState(%d).String() = %q, want %q", tt.state, got, tt.expected)
		}
	}
}

func TestErrCircuitOpen_Error(t *testing.T) {
	err := &ErrCircuitOpen{
		Endpoint: "https://wiki.example.org/w/api.php",
		RetryAt:  time.Now().Add(30 * time.Second),
		Failures: 5,
	}

	msg := err.Error()
	if !strings.Contains(msg, "circuit breaker is open") {
		t.Errorf("error message should mention the open circuit, got %q", msg)
	}
	if !strings.Contains(msg, err.Endpoint) {
		t.Errorf("error message should name the endpoint, got %q", msg)
	}
}

func TestCircuitBreaker_ConcurrencySafety(t *testing.T) {
	cb := NewCircuitBreakerWithConfig(BreakerConfig{FailureThreshold: 10, ResetTimeout: 100 * time.Millisecond, HalfOpenMax: 5})

	var wg sync.WaitGroup
	for range 100 {
		wg.Add(3)
		go func() {
			defer wg.Done()
			cb.Allow()
		}()
		go func() {
			defer wg.Done()
			cb.RecordSuccess()
		}()
		go func() {
			defer wg.Done()
			cb.RecordFailure()
		}()
	}
	wg.Wait()

	state := cb.State()
	if state != CircuitClosed && state != CircuitOpen && state != CircuitHalfOpen {
		t.Errorf("unexpected state: %v", state)
	}
}

func TestCircuitBreaker_Allow_UnknownState(t *testing.T) {
	cb := NewCircuitBreaker()

	cb.mu.Lock()
	cb.state = CircuitState(99)
	cb.mu.Unlock()

	if cb.Allow() {
		t.Error("unknown state should return false")
	}
}
