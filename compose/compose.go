// Package compose embeds whole runners inside other workflows. A pipeline,
// graph, fork/join pair, or batch processor can be wrapped as a single node
// and composed like any other step.
package compose

import (
	"context"
	"fmt"

	"github.com/flumehq/flume"
)

// AsNode wraps a runner as a node. The runner executes during the exec
// phase against the node's working state; its output replaces the state's
// top-level keys during post, so the sub-workflow's results flow into the
// outer workflow.
func AsNode(runner flume.Runner) flume.Node {
	return flume.NewNode(runner.Name()).
		WithExec(func(ctx context.Context, prep any) (any, error) {
			state, ok := prep.(flume.Context)
			if !ok {
				return nil, fmt.Errorf("compose %q: unexpected prep result %T", runner.Name(), prep)
			}
			return runner.Run(ctx, state)
		}).
		WithPost(func(ctx context.Context, state flume.Context, prep, exec any) (flume.Outcome, error) {
			result, ok := exec.(flume.Context)
			if !ok {
				return flume.OutcomeDefault, nil
			}
			for _, key := range result.Keys() {
				state.Set(key, result[key])
			}
			return result.Outcome(), nil
		})
}

// scopedInput carries the isolated sub-state through the exec phase
// without being merged back onto the outer context.
type scopedInput struct {
	state flume.Context
}

// Scoped wraps a runner as a node with key isolation: the sub-workflow
// starts from the value under inputKey instead of the whole outer state,
// and its entire output lands under outputKey.
func Scoped(runner flume.Runner, inputKey, outputKey string) flume.Node {
	return flume.NewNode(runner.Name()).
		WithPrep(func(ctx context.Context, state flume.Context) (any, error) {
			if inputKey == "" {
				return scopedInput{state: state}, nil
			}
			inner := flume.NewContext()
			value, ok := state.Get(inputKey)
			if !ok {
				return nil, fmt.Errorf("compose %q: input key %q not found", runner.Name(), inputKey)
			}
			if m, ok := value.(map[string]any); ok {
				for k, v := range m {
					inner.Set(k, v)
				}
			} else {
				inner.Set(inputKey, value)
			}
			return scopedInput{state: inner}, nil
		}).
		WithExec(func(ctx context.Context, prep any) (any, error) {
			input, ok := prep.(scopedInput)
			if !ok {
				return nil, fmt.Errorf("compose %q: unexpected prep result %T", runner.Name(), prep)
			}
			return runner.Run(ctx, input.state)
		}).
		WithPost(func(ctx context.Context, state flume.Context, prep, exec any) (flume.Outcome, error) {
			result, ok := exec.(flume.Context)
			if !ok {
				return flume.OutcomeDefault, nil
			}
			if outputKey == "" {
				for _, key := range result.Keys() {
					state.Set(key, result[key])
				}
			} else {
				state.Set(outputKey, map[string]any(result))
			}
			return result.Outcome(), nil
		})
}
