package flume

import (
	"context"
	"time"
)

// Runner is anything executable against a Context: Node, Pipeline, When,
// BatchProcessor, and Graph all satisfy it, so Executor decorators and
// fallback chains compose over every shape the engine offers.
type Runner interface {
	Name() string
	Run(ctx context.Context, state Context) (Context, error)
}

// FallbackFunc recovers from a failed execution. It receives the error and
// an untouched clone of the original input context and returns the context
// to use in place of the failed result.
type FallbackFunc func(ctx context.Context, err error, state Context) (Context, error)

// ProgressFunc receives coarse progress ticks as (completed, total).
type ProgressFunc func(completed, total int)

// Executor is a cross-cutting wrapper adding fallback recovery, timing and
// log instrumentation, and coarse progress reporting around any Runner.
type Executor struct {
	logger Logger
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// WithLogger sets the executor's log sink. The default is NopLogger.
func WithLogger(logger Logger) ExecutorOption {
	return func(e *Executor) {
		e.logger = logger
	}
}

// NewExecutor creates an executor.
func NewExecutor(opts ...ExecutorOption) *Executor {
	e := &Executor{logger: NopLogger{}}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute runs r against a clone of state.
func (e *Executor) Execute(ctx context.Context, r Runner, state Context) (Context, error) {
	return r.Run(ctx, state.Clone())
}

// ExecuteWithFallback runs r and, on failure, hands the error and a clone of
// the original input to fallback, returning its result instead of
// propagating.
func (e *Executor) ExecuteWithFallback(ctx context.Context, r Runner, state Context, fallback FallbackFunc) (Context, error) {
	snapshot := state.Clone()

	out, err := r.Run(ctx, state.Clone())
	if err == nil {
		return out, nil
	}

	e.logger.Warn(ctx, "execution failed, invoking fallback", "runner", r.Name(), "error", err)
	return fallback(ctx, err, snapshot)
}

// ExecuteWithLogging runs r, recording a start log with the context's key
// names and an elapsed-time completion or failure log. Failures are
// re-propagated after logging, never swallowed.
func (e *Executor) ExecuteWithLogging(ctx context.Context, r Runner, state Context) (Context, error) {
	e.logger.Info(ctx, "execution starting", "runner", r.Name(), "context_keys", state.Keys())
	start := time.Now()

	out, err := r.Run(ctx, state.Clone())
	if err != nil {
		e.logger.Error(ctx, "execution failed", "runner", r.Name(), "elapsed", time.Since(start), "error", err)
		return nil, err
	}

	e.logger.Info(ctx, "execution completed", "runner", r.Name(), "elapsed", time.Since(start))
	return out, nil
}

// ExecuteWithProgress runs r, ticking progress with (0, 1) before execution
// and (1, 1) after it completes. This is a coarse two-tick signal, not a
// fractional stream; long-running internals do not report through it, and a
// failed execution propagates its error without the final tick.
func (e *Executor) ExecuteWithProgress(ctx context.Context, r Runner, state Context, progress ProgressFunc) (Context, error) {
	progress(0, 1)

	out, err := r.Run(ctx, state.Clone())
	if err != nil {
		return nil, err
	}

	progress(1, 1)
	return out, nil
}
