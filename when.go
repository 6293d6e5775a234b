package flume

import (
	"context"
	"fmt"
	"reflect"

	"github.com/ohler55/ojg/jp"
)

// Predicate decides whether a When gate fires for the given context.
type Predicate func(ctx context.Context, state Context) (bool, error)

// When is a conditional gate: it runs its target node only when a predicate
// over the context holds, and otherwise returns the context unchanged.
//
// The default predicate fires when the context's stamped outcome equals the
// configured tag.
type When struct {
	outcome Outcome
	cond    Predicate
	target  Node
}

// NewWhen creates a gate that runs target when the context's outcome equals
// the given tag.
func NewWhen(outcome Outcome, target Node) When {
	return When{
		outcome: outcome,
		target:  target,
	}
}

// WithCondition returns a copy of the gate with the predicate replaced.
func (w When) WithCondition(cond Predicate) When {
	w.cond = cond
	return w
}

// WithConditionPath returns a copy of the gate whose predicate evaluates a
// JSONPath expression over the context and compares the first match against
// want. A path that matches nothing never fires.
func (w When) WithConditionPath(path string, want any) When {
	expr, err := jp.ParseString(path)
	w.cond = func(_ context.Context, state Context) (bool, error) {
		if err != nil {
			return false, fmt.Errorf("flume: parse condition path %q: %w", path, err)
		}
		got := expr.Get(map[string]any(state))
		if len(got) == 0 {
			return false, nil
		}
		return reflect.DeepEqual(got[0], want), nil
	}
	return w
}

// Name returns the gate's identifier, derived from its target.
func (w When) Name() string {
	return "when-" + w.target.Name()
}

// Run evaluates the predicate and either runs the target or passes the
// context through untouched.
func (w When) Run(ctx context.Context, state Context) (Context, error) {
	fire, err := w.check(ctx, state)
	if err != nil {
		return nil, fmt.Errorf("flume: when %q condition: %w", w.Name(), err)
	}
	if !fire {
		return state, nil
	}
	return w.target.Run(ctx, state)
}

func (w When) check(ctx context.Context, state Context) (bool, error) {
	if w.cond != nil {
		return w.cond(ctx, state)
	}
	return state.Outcome() == w.outcome, nil
}
