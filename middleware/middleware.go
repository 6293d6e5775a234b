// Package middleware provides node decoration for cross-cutting concerns
// like logging, timing, and metrics.
//
// A Middleware takes a node and returns a new node whose lifecycle phases
// wrap the original's. Because nodes are immutable values, decoration never
// affects the original node; the decorated copy keeps the original's
// identity for log correlation.
package middleware

import "github.com/flumehq/flume"

// Middleware decorates a node.
type Middleware func(flume.Node) flume.Node

// Chain combines middlewares into one. They are applied in reverse order,
// like function composition, so the first middleware in the list observes
// the others' effects.
func Chain(middlewares ...Middleware) Middleware {
	return func(node flume.Node) flume.Node {
		for i := len(middlewares) - 1; i >= 0; i-- {
			node = middlewares[i](node)
		}
		return node
	}
}

// Apply decorates a node with the given middlewares in order.
func Apply(node flume.Node, middlewares ...Middleware) flume.Node {
	for _, mw := range middlewares {
		node = mw(node)
	}
	return node
}
