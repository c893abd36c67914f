package openrouter

import (
	"sync"
	"time"

	"log/slog"
)

type breakerState int

const (
	stateClosed breakerState = iota
	stateOpen
	stateHalfOpen
)

// circuitBreaker sheds chat calls after consecutive upstream failures so a
// degraded provider fails fast instead of burning the request timeout.
type circuitBreaker struct {
	mu               sync.Mutex
	name             string
	state            breakerState
	failures         int
	failureThreshold int
	recoveryTimeout  time.Duration
	lastFailure      time.Time
}

func newCircuitBreaker(name string) *circuitBreaker {
	return &circuitBreaker{
		name:             name,
		state:            stateClosed,
		failureThreshold: 3,
		recoveryTimeout:  30 * time.Second,
	}
}

// ShouldAttempt reports whether a call may proceed. After the recovery
// timeout an open breaker admits a single probe in half-open state.
func (cb *circuitBreaker) ShouldAttempt() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case stateClosed:
		return true
	case stateOpen:
		if time.Since(cb.lastFailure) >= cb.recoveryTimeout {
			cb.state = stateHalfOpen
			slog.Info("circuit breaker half-open", slog.String("breaker", cb.name))
			return true
		}
		return false
	default: // half-open: one probe at a time
		return true
	}
}

func (cb *circuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state != stateClosed {
		slog.Info("circuit breaker closed", slog.String("breaker", cb.name))
	}
	cb.state = stateClosed
	cb.failures = 0
}

func (cb *circuitBreaker) RecordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failures++
	cb.lastFailure = time.Now()

	if cb.state == stateHalfOpen || cb.failures >= cb.failureThreshold {
		if cb.state != stateOpen {
			slog.Warn("circuit breaker open",
				slog.String("breaker", cb.name),
				slog.Int("failures", cb.failures))
		}
		cb.state = stateOpen
	}
}
