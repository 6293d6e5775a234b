/*
Package flume is a small engine for composing units of computation into
directed workflows with propagating state.

A Node is a three-phase unit of work (Prep/Exec/Post) executed against an
isolated clone of a Context, optionally under a RetryPolicy. Nodes compose
into sequential Pipelines, parallel Fork/Join graphs, conditional When
gates, concurrency-bounded BatchProcessors, and outcome-routed Graphs. An
Executor wraps any of them with fallback recovery, log instrumentation, or
coarse progress reporting.

Key properties:
  - Nodes are immutable values: With* builders return new nodes
  - Contexts are deep-copied at every isolation boundary, so branches and
    batch items never share mutable state
  - Errors always propagate with node identity attached; the only recovery
    primitives are the Exec retry policy and the Executor fallback
  - All configuration is explicit; the library never reads the environment

Basic usage:

	double := flume.NewNode("double").
		WithExec(func(ctx context.Context, prep any) (any, error) {
			state := prep.(flume.Context)
			v, _, _ := flume.GetAs[int](state, "value")
			return v * 2, nil
		}).
		WithPost(func(ctx context.Context, state flume.Context, prep, result any) (flume.Outcome, error) {
			state.Set("value", result)
			return flume.OutcomeDefault, nil
		})

	out, err := double.Run(ctx, flume.Context{"value": 21})

Composition:

	pipe := flume.NewPipeline("etl", extract, transform, load)
	out, err := pipe.Run(ctx, state)

	fork := flume.NewFork("variants", a, b, c).WithLimit(2)
	contexts, err := fork.RunConcurrent(ctx, state)
	merged, err := flume.NewJoin("merge").Run(ctx, contexts)

Declarative workflows live in the yaml and builtin subpackages; the
middleware and fallback subpackages add decoration and recovery patterns.
*/
package flume
