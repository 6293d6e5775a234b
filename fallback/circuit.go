package fallback

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/flumehq/flume"
)

// CircuitState is the state of a circuit breaker.
type CircuitState int

const (
	// StateClosed allows requests to pass through.
	StateClosed CircuitState = iota
	// StateOpen rejects all requests.
	StateOpen
	// StateHalfOpen allows limited requests to probe recovery.
	StateHalfOpen
)

func (s CircuitState) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// CircuitBreaker wraps a runner and trips open after repeated failures,
// rejecting further runs until a reset timeout has passed. It implements
// flume.Runner.
type CircuitBreaker struct {
	name  string
	inner flume.Runner

	maxFailures      int
	resetTimeout     time.Duration
	halfOpenRequests int
	onStateChange    func(from, to CircuitState)

	mu                sync.Mutex
	state             CircuitState
	failures          int
	lastFailure       time.Time
	halfOpenSuccesses int
	halfOpenFailures  int

	totalRequests  int64
	totalSuccesses int64
	totalFailures  int64
	opens          int64
}

// CircuitOption configures a circuit breaker.
type CircuitOption func(*CircuitBreaker)

// WithMaxFailures sets how many consecutive failures trip the circuit.
func WithMaxFailures(n int) CircuitOption {
	return func(cb *CircuitBreaker) {
		if n > 0 {
			cb.maxFailures = n
		}
	}
}

// WithResetTimeout sets how long the circuit stays open before probing.
func WithResetTimeout(d time.Duration) CircuitOption {
	return func(cb *CircuitBreaker) {
		if d > 0 {
			cb.resetTimeout = d
		}
	}
}

// WithHalfOpenRequests sets how many probe requests the half-open state
// allows before deciding whether to close or reopen.
func WithHalfOpenRequests(n int) CircuitOption {
	return func(cb *CircuitBreaker) {
		if n > 0 {
			cb.halfOpenRequests = n
		}
	}
}

// WithStateChangeCallback registers a callback invoked on every state
// transition. The callback runs synchronously under the breaker's lock
// and must not call back into the breaker.
func WithStateChangeCallback(fn func(from, to CircuitState)) CircuitOption {
	return func(cb *CircuitBreaker) {
		cb.onStateChange = fn
	}
}

// NewCircuitBreaker wraps runner with circuit breaker protection.
func NewCircuitBreaker(name string, runner flume.Runner, opts ...CircuitOption) *CircuitBreaker {
	cb := &CircuitBreaker{
		name:             name,
		inner:            runner,
		maxFailures:      5,
		resetTimeout:     30 * time.Second,
		halfOpenRequests: 3,
		state:            StateClosed,
	}
	for _, opt := range opts {
		opt(cb)
	}
	return cb
}

// Name returns the breaker's name.
func (cb *CircuitBreaker) Name() string { return cb.name }

// Run executes the wrapped runner if the circuit allows it.
func (cb *CircuitBreaker) Run(ctx context.Context, state flume.Context) (flume.Context, error) {
	if err := cb.allow(); err != nil {
		return nil, err
	}

	result, err := cb.inner.Run(ctx, state)
	cb.report(err == nil)
	return result, err
}

// allow decides whether a request may proceed in the current state.
func (cb *CircuitBreaker) allow() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.totalRequests++

	switch cb.state {
	case StateClosed:
		return nil

	case StateOpen:
		if time.Since(cb.lastFailure) > cb.resetTimeout {
			cb.transition(StateHalfOpen)
			return nil
		}
		return fmt.Errorf("circuit breaker %q is open", cb.name)

	case StateHalfOpen:
		if cb.halfOpenSuccesses+cb.halfOpenFailures >= cb.halfOpenRequests {
			if cb.halfOpenFailures > 0 {
				cb.transition(StateOpen)
				return fmt.Errorf("circuit breaker %q is open", cb.name)
			}
			cb.transition(StateClosed)
			return nil
		}
		return nil

	default:
		return fmt.Errorf("circuit breaker %q in unknown state", cb.name)
	}
}

func (cb *CircuitBreaker) report(success bool) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if success {
		cb.totalSuccesses++
		switch cb.state {
		case StateClosed:
			cb.failures = 0
		case StateHalfOpen:
			cb.halfOpenSuccesses++
			if cb.halfOpenSuccesses >= cb.halfOpenRequests {
				cb.transition(StateClosed)
			}
		}
		return
	}

	cb.totalFailures++
	cb.lastFailure = time.Now()
	switch cb.state {
	case StateClosed:
		cb.failures++
		if cb.failures >= cb.maxFailures {
			cb.transition(StateOpen)
		}
	case StateHalfOpen:
		// Any failure while probing reopens the circuit.
		cb.halfOpenFailures++
		cb.transition(StateOpen)
	}
}

// transition must be called with cb.mu held.
func (cb *CircuitBreaker) transition(next CircuitState) {
	if cb.state == next {
		return
	}
	prev := cb.state
	cb.state = next

	switch next {
	case StateClosed:
		cb.failures = 0
		cb.halfOpenSuccesses = 0
		cb.halfOpenFailures = 0
	case StateOpen:
		cb.opens++
		cb.lastFailure = time.Now()
	case StateHalfOpen:
		cb.halfOpenSuccesses = 0
		cb.halfOpenFailures = 0
	}

	if cb.onStateChange != nil {
		cb.onStateChange(prev, next)
	}
}

// State returns the breaker's current state.
func (cb *CircuitBreaker) State() CircuitState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// CircuitMetrics holds circuit breaker counters.
type CircuitMetrics struct {
	Name            string
	State           string
	TotalRequests   int64
	TotalSuccesses  int64
	TotalFailures   int64
	CircuitOpens    int64
	CurrentFailures int
}

// Metrics returns a snapshot of the breaker's counters.
func (cb *CircuitBreaker) Metrics() CircuitMetrics {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	return CircuitMetrics{
		Name:            cb.name,
		State:           cb.state.String(),
		TotalRequests:   cb.totalRequests,
		TotalSuccesses:  cb.totalSuccesses,
		TotalFailures:   cb.totalFailures,
		CircuitOpens:    cb.opens,
		CurrentFailures: cb.failures,
	}
}
