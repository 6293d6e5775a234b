package flume

import (
	"context"

	"github.com/google/uuid"
)

// PrepFunc prepares data for execution. It receives the node's isolated
// clone of the incoming context and may read or mutate it freely.
type PrepFunc func(ctx context.Context, state Context) (prepResult any, err error)

// ExecFunc performs the main processing logic. It sees only the prep result,
// never the context, to keep business logic pure.
type ExecFunc func(ctx context.Context, prepResult any) (execResult any, err error)

// PostFunc inspects all step results, may mutate the node's context clone,
// and returns the Outcome used for routing.
type PostFunc func(ctx context.Context, state Context, prepResult, execResult any) (Outcome, error)

// Node is a three-phase (Prep/Exec/Post) unit of computation.
//
// A Node is an immutable value: the With* builders return a new Node with
// one field replaced and never mutate the receiver, so a Node can be shared
// and re-run from any number of goroutines. Each Node carries an opaque
// generated id, unique within the process, for log correlation.
type Node struct {
	id    string
	name  string
	prep  PrepFunc
	exec  ExecFunc
	post  PostFunc
	retry *RetryPolicy
}

// NewNode creates a node with pass-through defaults for every phase.
func NewNode(name string) Node {
	return Node{
		id:   uuid.NewString(),
		name: name,
	}
}

// ID returns the node's generated identity.
func (n Node) ID() string {
	return n.id
}

// Name returns the node's identifier.
func (n Node) Name() string {
	return n.name
}

// WithPrep returns a copy of the node with the prep function replaced.
func (n Node) WithPrep(fn PrepFunc) Node {
	n.prep = fn
	return n
}

// WithExec returns a copy of the node with the exec function replaced.
func (n Node) WithExec(fn ExecFunc) Node {
	n.exec = fn
	return n
}

// WithPost returns a copy of the node with the post function replaced.
func (n Node) WithPost(fn PostFunc) Node {
	n.post = fn
	return n
}

// WithRetry returns a copy of the node with the retry policy attached.
// The policy wraps the Exec step only.
func (n Node) WithRetry(policy RetryPolicy) Node {
	n.retry = &policy
	return n
}

// Retry returns the node's retry policy, if any.
func (n Node) Retry() (RetryPolicy, bool) {
	if n.retry == nil {
		return RetryPolicy{}, false
	}
	return *n.retry, true
}

// Prep runs the preparation phase. The default passes the state through as
// the prep result.
func (n Node) Prep(ctx context.Context, state Context) (any, error) {
	if n.prep != nil {
		return n.prep(ctx, state)
	}
	return state, nil
}

// Exec runs the execution phase. The default passes the prep result through.
func (n Node) Exec(ctx context.Context, prepResult any) (any, error) {
	if n.exec != nil {
		return n.exec(ctx, prepResult)
	}
	return prepResult, nil
}

// Post runs the post phase. The default routes to OutcomeDefault.
func (n Node) Post(ctx context.Context, state Context, prepResult, execResult any) (Outcome, error) {
	if n.post != nil {
		return n.post(ctx, state, prepResult, execResult)
	}
	return OutcomeDefault, nil
}

// Run executes the node lifecycle against an isolated clone of state:
//
//  1. Prep on the clone.
//  2. Exec on the prep result, wrapped in the retry policy when one is
//     attached.
//  3. Post on the clone plus both results, producing the Outcome.
//  4. A map-shaped prep result is shallow-merged onto the clone.
//  5. The clone, stamped with the outcome, is returned.
//
// Any phase error is wrapped in *ExecutionError and propagated; the engine
// never swallows node-body errors.
func (n Node) Run(ctx context.Context, state Context) (Context, error) {
	work := state.Clone()

	prepResult, err := n.Prep(ctx, work)
	if err != nil {
		return nil, &ExecutionError{Node: n.name, ID: n.id, Phase: PhasePrep, Err: err}
	}

	var execResult any
	if n.retry != nil {
		execResult, err = n.retry.Do(ctx, func() (any, error) {
			return n.Exec(ctx, prepResult)
		})
	} else {
		execResult, err = n.Exec(ctx, prepResult)
	}
	if err != nil {
		return nil, &ExecutionError{Node: n.name, ID: n.id, Phase: PhaseExec, Err: err}
	}

	outcome, err := n.Post(ctx, work, prepResult, execResult)
	if err != nil {
		return nil, &ExecutionError{Node: n.name, ID: n.id, Phase: PhasePost, Err: err}
	}

	// All top-level keys of a record-shaped prep result merge back onto
	// the context. Prep results of other shapes are exec-only inputs.
	if m, ok := toStringMap(prepResult); ok {
		work.merge(m)
	}

	if outcome != "" {
		work.WithOutcome(outcome)
	}
	return work, nil
}
