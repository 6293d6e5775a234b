package middleware

import (
	"context"

	"github.com/flumehq/flume"
)

// MetricsCollector collects node execution metrics.
type MetricsCollector interface {
	RecordPhaseStart(node string, phase flume.Phase)
	RecordPhaseEnd(node string, phase flume.Phase, err error)
	RecordOutcome(node string, outcome flume.Outcome)
}

// Metrics adds metrics collection around each lifecycle phase.
func Metrics(collector MetricsCollector) Middleware {
	return func(node flume.Node) flume.Node {
		inner := node
		return node.
			WithPrep(func(ctx context.Context, state flume.Context) (any, error) {
				collector.RecordPhaseStart(inner.Name(), flume.PhasePrep)
				result, err := inner.Prep(ctx, state)
				collector.RecordPhaseEnd(inner.Name(), flume.PhasePrep, err)
				return result, err
			}).
			WithExec(func(ctx context.Context, prepResult any) (any, error) {
				collector.RecordPhaseStart(inner.Name(), flume.PhaseExec)
				result, err := inner.Exec(ctx, prepResult)
				collector.RecordPhaseEnd(inner.Name(), flume.PhaseExec, err)
				return result, err
			}).
			WithPost(func(ctx context.Context, state flume.Context, prepResult, execResult any) (flume.Outcome, error) {
				collector.RecordPhaseStart(inner.Name(), flume.PhasePost)
				outcome, err := inner.Post(ctx, state, prepResult, execResult)
				collector.RecordPhaseEnd(inner.Name(), flume.PhasePost, err)
				if err == nil {
					collector.RecordOutcome(inner.Name(), outcome)
				}
				return outcome, err
			})
	}
}
