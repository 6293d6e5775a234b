package flume

import (
	"context"
	"fmt"
)

// Graph composes nodes into an outcome-routed directed graph. Edges map a
// node name and an outcome tag to the next node's name; traversal is
// iterative, so cycles are legal and bounded only by the optional step
// budget.
//
// Graph is a builder: Add, Start, Connect, and the With* methods mutate the
// receiver and return it for chaining. Once built, Run may be called from
// any number of goroutines.
type Graph struct {
	name     string
	nodes    map[string]Node
	edges    map[string]map[Outcome]string
	start    string
	maxSteps int
	logger   Logger
}

// NewGraph creates an empty graph.
func NewGraph(name string) *Graph {
	return &Graph{
		name:   name,
		nodes:  make(map[string]Node),
		edges:  make(map[string]map[Outcome]string),
		logger: NopLogger{},
	}
}

// Add registers a node. The first node added becomes the start node unless
// Start overrides it.
func (g *Graph) Add(node Node) *Graph {
	g.nodes[node.Name()] = node
	if g.start == "" {
		g.start = node.Name()
	}
	return g
}

// Start sets the starting node by name.
func (g *Graph) Start(name string) *Graph {
	g.start = name
	return g
}

// Connect routes from's given outcome to the node named to.
func (g *Graph) Connect(from string, outcome Outcome, to string) *Graph {
	if g.edges[from] == nil {
		g.edges[from] = make(map[Outcome]string)
	}
	g.edges[from][outcome] = to
	return g
}

// WithMaxSteps bounds how many node executions a single Run may perform.
// Zero means unbounded.
func (g *Graph) WithMaxSteps(n int) *Graph {
	g.maxSteps = n
	return g
}

// WithLogger sets the graph's log sink.
func (g *Graph) WithLogger(logger Logger) *Graph {
	g.logger = logger
	return g
}

// Name returns the graph's identifier.
func (g *Graph) Name() string {
	return g.name
}

// Run traverses the graph from the start node. After each node executes, the
// outcome stamped on its output context selects the outgoing edge; traversal
// ends at the first node with no edge for its outcome, and that node's
// output is returned.
func (g *Graph) Run(ctx context.Context, state Context) (Context, error) {
	if g.start == "" {
		return nil, ErrNoStartNode
	}
	if _, ok := g.nodes[g.start]; !ok {
		return nil, fmt.Errorf("graph %q: start %q: %w", g.name, g.start, ErrNodeNotFound)
	}

	current := g.start
	work := state.Clone()
	steps := 0

	for {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("graph %q: %w", g.name, err)
		}
		if g.maxSteps > 0 && steps >= g.maxSteps {
			return nil, fmt.Errorf("graph %q after %d steps: %w", g.name, steps, ErrTooManySteps)
		}

		node := g.nodes[current]
		g.logger.Debug(ctx, "graph node starting", "graph", g.name, "node", current, "id", node.ID(), "step", steps)

		out, err := node.Run(ctx, work)
		if err != nil {
			g.logger.Error(ctx, "graph node failed", "graph", g.name, "node", current, "id", node.ID(), "error", err)
			return nil, fmt.Errorf("graph %q: %w", g.name, err)
		}
		work = out
		steps++

		next, ok := g.edges[current][work.Outcome()]
		if !ok {
			return work, nil
		}
		if _, exists := g.nodes[next]; !exists {
			return nil, fmt.Errorf("graph %q: edge %s/%s -> %q: %w", g.name, current, work.Outcome(), next, ErrNodeNotFound)
		}
		current = next
	}
}
