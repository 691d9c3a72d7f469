package util

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// CircuitState is the state of a CircuitBreaker.
type CircuitState string

const (
	CircuitStateClosed   CircuitState = "CLOSED"
	CircuitStateOpen     CircuitState = "OPEN"
	CircuitStateHalfOpen CircuitState = "HALF_OPEN"
)

func (s CircuitState) String() string {
	return string(s)
}

// CircuitBreaker stops calls to a failing dependency. After failureThreshold
// consecutive failures it opens; once resetTimeout has passed a single
// probe is let through in HALF_OPEN, and its result closes or reopens it.
type CircuitBreaker struct {
	state            CircuitState
	failureCount     int
	failureThreshold int
	resetTimeout     time.Duration
	nextRetryTime    time.Time
	probing          bool
	now              func() time.Time
	logger           *zap.Logger
	mu               sync.Mutex
}

func NewCircuitBreaker(failureThreshold int, resetTimeout time.Duration, logger *zap.Logger) *CircuitBreaker {
	if failureThreshold <= 0 {
		failureThreshold = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CircuitBreaker{
		state:            CircuitStateClosed,
		failureThreshold: failureThreshold,
		resetTimeout:     resetTimeout,
		now:              time.Now,
		logger:           logger,
	}
}

// GetState reports the current state, moving OPEN to HALF_OPEN once the
// retry time has passed.
func (cb *CircuitBreaker) GetState() CircuitState {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.refresh()
	return cb.state
}

// CanExecute reports whether a call may proceed. In HALF_OPEN only one
// caller gets through until it records a result.
func (cb *CircuitBreaker) CanExecute() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.refresh()
	switch cb.state {
	case CircuitStateOpen:
		return false
	case CircuitStateHalfOpen:
		if cb.probing {
			return false
		}
		cb.probing = true
		return true
	default:
		return true
	}
}

func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.probing = false
	if cb.state == CircuitStateHalfOpen {
		cb.logger.Info("Circuit Breaker: Dependency recovered")
		cb.transitionTo(CircuitStateClosed)
	}
	cb.failureCount = 0
}

func (cb *CircuitBreaker) RecordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.probing = false
	cb.failureCount++

	if cb.state == CircuitStateHalfOpen || cb.failureCount >= cb.failureThreshold {
		if cb.state != CircuitStateOpen {
			cb.logger.Warn("Circuit Breaker: Opening circuit",
				zap.Int("failures", cb.failureCount),
				zap.Int("threshold", cb.failureThreshold),
			)
		}
		cb.nextRetryTime = cb.now().Add(cb.resetTimeout)
		cb.transitionTo(CircuitStateOpen)
	}
}

// Reset closes the circuit and clears its failure count.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.state = CircuitStateClosed
	cb.failureCount = 0
	cb.probing = false
	cb.nextRetryTime = time.Time{}
}

// must be called with the lock held
func (cb *CircuitBreaker) refresh() {
	if cb.state == CircuitStateOpen && !cb.now().Before(cb.nextRetryTime) {
		cb.transitionTo(CircuitStateHalfOpen)
	}
}

// must be called with the lock held
func (cb *CircuitBreaker) transitionTo(newState CircuitState) {
	if cb.state == newState {
		return
	}
	cb.logger.Debug("Circuit Breaker: State transition",
		zap.String("from", cb.state.String()),
		zap.String("to", newState.String()),
		zap.Int("failure_count", cb.failureCount),
	)
	cb.state = newState
}
