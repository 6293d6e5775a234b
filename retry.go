package flume

import (
	"context"
	"time"
)

// Backoff selects how the delay between retry attempts grows.
type Backoff string

// Backoff strategies.
const (
	// BackoffFixed waits the base delay before every attempt.
	BackoffFixed Backoff = "fixed"

	// BackoffLinear waits the base delay multiplied by the attempt number.
	BackoffLinear Backoff = "linear"

	// BackoffExponential doubles the base delay per attempt.
	BackoffExponential Backoff = "exponential"
)

// RetryPolicy configures bounded re-invocation of a failing Exec step.
// It is pure configuration: no identity, no mutation after construction.
//
// Delays are always honored, under both direct and concurrent execution.
type RetryPolicy struct {
	// MaxAttempts is the total number of attempts, including the first.
	MaxAttempts int

	// Delay is the base delay fed into the backoff formula.
	Delay time.Duration

	// Backoff selects the delay growth strategy. Zero value means fixed.
	Backoff Backoff

	// RetryIf decides whether an error is worth retrying. Nil retries
	// every error.
	RetryIf func(error) bool
}

// NewRetryPolicy creates a retry policy. maxAttempts below 1 is treated
// as 1 (a single attempt, no retries).
func NewRetryPolicy(maxAttempts int, delay time.Duration, backoff Backoff) RetryPolicy {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return RetryPolicy{
		MaxAttempts: maxAttempts,
		Delay:       delay,
		Backoff:     backoff,
	}
}

// WithRetryIf returns a copy of the policy with the retry predicate replaced.
func (p RetryPolicy) WithRetryIf(fn func(error) bool) RetryPolicy {
	p.RetryIf = fn
	return p
}

// Do runs fn under the policy.
//
// On success at any attempt the result is returned immediately. When the
// predicate rejects an error the original error is returned as-is; when all
// attempts fail the last error is wrapped in *RetryExhaustedError. Waits
// between attempts abort early if ctx is done.
func (p RetryPolicy) Do(ctx context.Context, fn func() (any, error)) (any, error) {
	maxAttempts := p.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		result, err := fn()
		if err == nil {
			return result, nil
		}
		lastErr = err

		if p.RetryIf != nil && !p.RetryIf(err) {
			return nil, err
		}
		if attempt == maxAttempts-1 {
			break
		}

		// Delay for the next attempt, numbered from 1.
		delay := BackoffDelay(p.Backoff, p.Delay, attempt+2)
		if delay > 0 {
			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return nil, ctx.Err()
			case <-timer.C:
			}
		}
	}

	return nil, &RetryExhaustedError{Attempts: maxAttempts, Err: lastErr}
}

// BackoffDelay computes the wait before the given 1-based attempt:
//
//	linear:      base × attempt
//	exponential: base × 2^(attempt-1)
//	fixed:       base
func BackoffDelay(strategy Backoff, base time.Duration, attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	switch strategy {
	case BackoffLinear:
		return base * time.Duration(attempt)
	case BackoffExponential:
		shift := uint(attempt - 1)
		if shift > 62 {
			shift = 62
		}
		return base * time.Duration(1<<shift)
	default:
		return base
	}
}
