package flume

import (
	"fmt"
	"sort"
)

// OutcomeKey is the reserved Context key holding the routing tag stamped by
// a node's Post step.
const OutcomeKey = "outcome"

// Outcome is a string tag produced by a node's Post step. It carries no
// semantics of its own; it exists only so that When gates and Graph edges can
// route on it.
type Outcome string

// Outcomes stamped by the engine itself.
const (
	// OutcomeDefault is stamped when a Post step declines to pick a route.
	OutcomeDefault Outcome = "default"

	// OutcomeForked is stamped on the single context a zero-branch Fork
	// returns.
	OutcomeForked Outcome = "forked"

	// OutcomeJoined is stamped by Join's default merge.
	OutcomeJoined Outcome = "joined"
)

// Context is the state record threaded through node executions. It maps
// string keys to arbitrary values; insertion order is irrelevant.
//
// The caller owns the Context it passes into the engine. Every execution
// boundary (node entry, fork branch, batch item) receives an independent
// clone, so the engine never mutates the caller's copy. Nodes are free to
// mutate the clone they receive; the mutated clone becomes the canonical
// context returned from the node.
type Context map[string]any

// NewContext creates an empty context.
func NewContext() Context {
	return make(Context)
}

// Get retrieves a value by key.
func (c Context) Get(key string) (any, bool) {
	v, ok := c[key]
	return v, ok
}

// Set stores a value with the given key.
func (c Context) Set(key string, value any) {
	c[key] = value
}

// Delete removes a key from the context.
func (c Context) Delete(key string) {
	delete(c, key)
}

// Keys returns the context's keys in sorted order.
func (c Context) Keys() []string {
	keys := make([]string, 0, len(c))
	for k := range c {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Outcome returns the routing tag stamped on the context, or OutcomeDefault
// when none has been stamped yet.
func (c Context) Outcome() Outcome {
	switch v := c[OutcomeKey].(type) {
	case Outcome:
		return v
	case string:
		return Outcome(v)
	default:
		return OutcomeDefault
	}
}

// WithOutcome stamps the routing tag on the context and returns it.
func (c Context) WithOutcome(o Outcome) Context {
	c[OutcomeKey] = o
	return c
}

// Clone returns a deep copy of the context. Nested maps and slices are
// duplicated so that no clone shares mutable substructure with the original;
// all other values are treated as opaque and copied by reference.
func (c Context) Clone() Context {
	if c == nil {
		return NewContext()
	}
	clone := make(Context, len(c))
	for k, v := range c {
		clone[k] = deepCopyValue(v)
	}
	return clone
}

func deepCopyValue(v any) any {
	switch val := v.(type) {
	case Context:
		return val.Clone()
	case map[string]any:
		m := make(map[string]any, len(val))
		for k, item := range val {
			m[k] = deepCopyValue(item)
		}
		return m
	case []any:
		s := make([]any, len(val))
		for i, item := range val {
			s[i] = deepCopyValue(item)
		}
		return s
	default:
		return v
	}
}

// merge shallow-merges all top-level keys from other into the context.
// Later keys win.
func (c Context) merge(other map[string]any) {
	for k, v := range other {
		c[k] = v
	}
}

// deepMerge merges src into dst recursively. Where both sides hold a map for
// the same key the maps are merged; everywhere else src wins. Values copied
// from src are deep-copied so dst never aliases src's substructure.
func deepMerge(dst, src Context) Context {
	for k, v := range src {
		if dstMap, ok := toStringMap(dst[k]); ok {
			if srcMap, ok := toStringMap(v); ok {
				dst[k] = deepMerge(Context(dstMap).Clone(), Context(srcMap))
				continue
			}
		}
		dst[k] = deepCopyValue(v)
	}
	return dst
}

func toStringMap(v any) (map[string]any, bool) {
	switch val := v.(type) {
	case Context:
		return val, true
	case map[string]any:
		return val, true
	default:
		return nil, false
	}
}

// GetAs retrieves a value by key with a type assertion. It returns the zero
// value and false when the key is absent, and an error when the key holds a
// value of a different type.
func GetAs[T any](c Context, key string) (T, bool, error) {
	var zero T
	v, ok := c[key]
	if !ok {
		return zero, false, nil
	}
	typed, ok := v.(T)
	if !ok {
		return zero, false, fmt.Errorf("flume: key %q holds %T, want %T", key, v, zero)
	}
	return typed, true, nil
}
