package middleware

import (
	"context"
	"time"

	"github.com/flumehq/flume"
)

// TimingFunc receives the elapsed duration of one lifecycle phase.
type TimingFunc func(node string, phase flume.Phase, elapsed time.Duration)

// Timing records per-phase execution durations through record. The callback
// may be invoked from concurrent branch or batch goroutines and must be
// safe for that.
func Timing(record TimingFunc) Middleware {
	return func(node flume.Node) flume.Node {
		inner := node
		return node.
			WithPrep(func(ctx context.Context, state flume.Context) (any, error) {
				start := time.Now()
				result, err := inner.Prep(ctx, state)
				record(inner.Name(), flume.PhasePrep, time.Since(start))
				return result, err
			}).
			WithExec(func(ctx context.Context, prepResult any) (any, error) {
				start := time.Now()
				result, err := inner.Exec(ctx, prepResult)
				record(inner.Name(), flume.PhaseExec, time.Since(start))
				return result, err
			}).
			WithPost(func(ctx context.Context, state flume.Context, prepResult, execResult any) (flume.Outcome, error) {
				start := time.Now()
				outcome, err := inner.Post(ctx, state, prepResult, execResult)
				record(inner.Name(), flume.PhasePost, time.Since(start))
				return outcome, err
			})
	}
}
