package flume

import (
	"context"
	"fmt"
)

// Pipeline executes nodes sequentially, folding each node's output context
// into the next node's input. The first failure aborts the pipeline; no
// partial-result recovery is offered at this layer.
type Pipeline struct {
	name   string
	nodes  []Node
	logger Logger
}

// NewPipeline creates a pipeline over the given nodes in declaration order.
func NewPipeline(name string, nodes ...Node) Pipeline {
	return Pipeline{
		name:   name,
		nodes:  nodes,
		logger: NopLogger{},
	}
}

// WithLogger returns a copy of the pipeline with the logger replaced.
func (p Pipeline) WithLogger(logger Logger) Pipeline {
	p.logger = logger
	return p
}

// Name returns the pipeline's identifier.
func (p Pipeline) Name() string {
	return p.name
}

// Run executes the pipeline starting from a clone of state.
func (p Pipeline) Run(ctx context.Context, state Context) (Context, error) {
	current := state.Clone()

	for _, node := range p.nodes {
		p.logger.Debug(ctx, "pipeline step starting", "pipeline", p.name, "node", node.Name(), "id", node.ID())

		out, err := node.Run(ctx, current)
		if err != nil {
			p.logger.Error(ctx, "pipeline step failed", "pipeline", p.name, "node", node.Name(), "id", node.ID(), "error", err)
			return nil, fmt.Errorf("pipeline %q: %w", p.name, err)
		}
		current = out
	}

	return current, nil
}
