package flume_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/flumehq/flume"
)

func TestRetrySucceedsOnThirdAttempt(t *testing.T) {
	var calls int32

	node := flume.NewNode("flaky").
		WithExec(func(ctx context.Context, prep any) (any, error) {
			n := atomic.AddInt32(&calls, 1)
			if n < 3 {
				return nil, errors.New("transient")
			}
			return "success", nil
		}).
		WithPost(func(ctx context.Context, state flume.Context, prep, result any) (flume.Outcome, error) {
			state.Set("result", result)
			return flume.OutcomeDefault, nil
		}).
		WithRetry(flume.NewRetryPolicy(3, time.Millisecond, flume.BackoffFixed))

	out, err := node.Run(context.Background(), flume.NewContext())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if calls != 3 {
		t.Errorf("exec called %d times, want 3", calls)
	}
	if got := out["result"]; got != "success" {
		t.Errorf("result = %v, want success", got)
	}
}

func TestRetryExhausted(t *testing.T) {
	var calls int32

	node := flume.NewNode("doomed").
		WithExec(func(ctx context.Context, prep any) (any, error) {
			n := atomic.AddInt32(&calls, 1)
			if n < 3 {
				return nil, errors.New("transient")
			}
			return "never reached", nil
		}).
		WithRetry(flume.NewRetryPolicy(2, time.Millisecond, flume.BackoffFixed))

	_, err := node.Run(context.Background(), flume.NewContext())
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 2 {
		t.Errorf("exec called %d times, want 2", calls)
	}

	var exhausted *flume.RetryExhaustedError
	if !errors.As(err, &exhausted) {
		t.Fatalf("error %T is not *RetryExhaustedError", err)
	}
	if exhausted.Attempts != 2 {
		t.Errorf("attempts = %d, want 2", exhausted.Attempts)
	}
}

func TestRetryPredicateRejects(t *testing.T) {
	permanent := errors.New("permanent")
	var calls int32

	policy := flume.NewRetryPolicy(5, time.Millisecond, flume.BackoffFixed).
		WithRetryIf(func(err error) bool {
			return !errors.Is(err, permanent)
		})

	_, err := policy.Do(context.Background(), func() (any, error) {
		atomic.AddInt32(&calls, 1)
		return nil, permanent
	})

	// Predicate rejection returns the original error, not RetryExhausted.
	if !errors.Is(err, permanent) {
		t.Errorf("error = %v, want original permanent error", err)
	}
	var exhausted *flume.RetryExhaustedError
	if errors.As(err, &exhausted) {
		t.Error("predicate rejection must not report exhaustion")
	}
	if calls != 1 {
		t.Errorf("fn called %d times, want 1", calls)
	}
}

func TestBackoffDelay(t *testing.T) {
	tests := []struct {
		name     string
		strategy flume.Backoff
		base     time.Duration
		attempt  int
		want     time.Duration
	}{
		{"linear third attempt", flume.BackoffLinear, 10 * time.Millisecond, 3, 30 * time.Millisecond},
		{"exponential third attempt", flume.BackoffExponential, 10 * time.Millisecond, 3, 40 * time.Millisecond},
		{"fixed any attempt", flume.BackoffFixed, 10 * time.Millisecond, 7, 10 * time.Millisecond},
		{"linear first attempt", flume.BackoffLinear, 10 * time.Millisecond, 1, 10 * time.Millisecond},
		{"exponential first attempt", flume.BackoffExponential, 10 * time.Millisecond, 1, 10 * time.Millisecond},
		{"attempt clamped to one", flume.BackoffLinear, 10 * time.Millisecond, 0, 10 * time.Millisecond},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := flume.BackoffDelay(tt.strategy, tt.base, tt.attempt); got != tt.want {
				t.Errorf("BackoffDelay(%s, %v, %d) = %v, want %v", tt.strategy, tt.base, tt.attempt, got, tt.want)
			}
		})
	}
}

func TestRetryContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	policy := flume.NewRetryPolicy(10, time.Minute, flume.BackoffFixed)

	done := make(chan error, 1)
	go func() {
		_, err := policy.Do(ctx, func() (any, error) {
			return nil, errors.New("transient")
		})
		done <- err
	}()

	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("error = %v, want context.Canceled", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("retry did not abort on cancellation")
	}
}

func TestRetryPolicyIsPureConfig(t *testing.T) {
	base := flume.NewRetryPolicy(3, time.Second, flume.BackoffLinear)
	derived := base.WithRetryIf(func(error) bool { return false })

	if base.RetryIf != nil {
		t.Error("WithRetryIf mutated the receiver")
	}
	if derived.RetryIf == nil {
		t.Error("WithRetryIf did not set the predicate on the copy")
	}
	if derived.MaxAttempts != 3 || derived.Delay != time.Second || derived.Backoff != flume.BackoffLinear {
		t.Error("WithRetryIf dropped unrelated fields")
	}
}
