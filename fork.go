package flume

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// Fork executes branch nodes over isolated clones of one input context and
// returns the ordered slice of resulting contexts, one per branch.
//
// Branch contexts never share mutable substructure: a mutation inside one
// branch cannot be observed by a sibling.
type Fork struct {
	name     string
	branches []Node
	limit    int
	logger   Logger
}

// NewFork creates a fork over the given branch nodes.
func NewFork(name string, branches ...Node) Fork {
	return Fork{
		name:     name,
		branches: branches,
		logger:   NopLogger{},
	}
}

// WithLimit returns a copy of the fork bounding how many branches
// RunConcurrent keeps in flight at once. Zero or negative means unbounded.
func (f Fork) WithLimit(n int) Fork {
	f.limit = n
	return f
}

// WithLogger returns a copy of the fork with the logger replaced.
func (f Fork) WithLogger(logger Logger) Fork {
	f.logger = logger
	return f
}

// Name returns the fork's identifier.
func (f Fork) Name() string {
	return f.name
}

// Run executes the branches one after another in declaration order.
//
// A fork with zero branches returns a single-element slice holding a clone
// of the input stamped OutcomeForked; callers relying on N-branches-in /
// N-contexts-out must special-case N=0.
func (f Fork) Run(ctx context.Context, state Context) ([]Context, error) {
	if len(f.branches) == 0 {
		return []Context{state.Clone().WithOutcome(OutcomeForked)}, nil
	}

	results := make([]Context, len(f.branches))
	for i, branch := range f.branches {
		f.logger.Debug(ctx, "fork branch starting", "fork", f.name, "branch", branch.Name(), "index", i)

		out, err := branch.Run(ctx, state)
		if err != nil {
			f.logger.Error(ctx, "fork branch failed", "fork", f.name, "branch", branch.Name(), "index", i, "error", err)
			return nil, fmt.Errorf("fork %q: %w", f.name, err)
		}
		results[i] = out
	}
	return results, nil
}

// RunConcurrent schedules all branches together, bounded by WithLimit.
// Results keep branch declaration order; completion order among in-flight
// branches is unspecified. The first branch failure cancels the group's
// context and is returned once every started branch has settled.
func (f Fork) RunConcurrent(ctx context.Context, state Context) ([]Context, error) {
	if len(f.branches) == 0 {
		return []Context{state.Clone().WithOutcome(OutcomeForked)}, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	if f.limit > 0 {
		g.SetLimit(f.limit)
	}

	results := make([]Context, len(f.branches))
	for i, branch := range f.branches {
		g.Go(func() error {
			out, err := branch.Run(gctx, state)
			if err != nil {
				f.logger.Error(gctx, "fork branch failed", "fork", f.name, "branch", branch.Name(), "index", i, "error", err)
				return fmt.Errorf("fork %q: %w", f.name, err)
			}
			results[i] = out
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// JoinFunc merges the ordered branch contexts into one context.
type JoinFunc func(ctx context.Context, contexts []Context) (Context, error)

// Join merges the ordered contexts produced by a fork into a single context.
// The default behavior deep-merges left to right (later keys win) and stamps
// OutcomeJoined. Join imposes no relationship between branch count and merge
// arity beyond "slice in, one context out".
type Join struct {
	name string
	fn   JoinFunc
}

// NewJoin creates a join with the default deep-merge behavior.
func NewJoin(name string) Join {
	return Join{name: name}
}

// WithJoinFunc returns a copy of the join with the merge replaced wholesale.
func (j Join) WithJoinFunc(fn JoinFunc) Join {
	j.fn = fn
	return j
}

// Name returns the join's identifier.
func (j Join) Name() string {
	return j.name
}

// Run merges the contexts.
func (j Join) Run(ctx context.Context, contexts []Context) (Context, error) {
	if j.fn != nil {
		return j.fn(ctx, contexts)
	}

	merged := NewContext()
	for _, c := range contexts {
		merged = deepMerge(merged, c)
	}
	return merged.WithOutcome(OutcomeJoined), nil
}
