// Package fallback provides resilience wrappers for runners: ordered
// fallback chains and circuit breakers.
package fallback

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/flumehq/flume"
)

// Link is one candidate in a fallback chain.
type Link struct {
	// Name identifies the link in metrics and logs.
	Name string

	// Runner is the work this link performs.
	Runner flume.Runner

	// Condition, when set, decides whether the link is eligible for the
	// given state. Ineligible links are skipped without counting as
	// failures.
	Condition func(ctx context.Context, state flume.Context) bool

	// Transform, when set, rewrites the state passed to the link's
	// runner. The original state is never modified.
	Transform func(state flume.Context) flume.Context
}

// Chain tries its links in order and returns the first success.
// It implements flume.Runner, so a chain can stand anywhere a node,
// pipeline, or graph can.
type Chain struct {
	name   string
	links  []Link
	logger flume.Logger

	metrics chainMetrics
}

type chainMetrics struct {
	mu         sync.Mutex
	executions int64
	stats      map[string]*LinkStats
}

// LinkStats holds per-link execution counters.
type LinkStats struct {
	Executions int64
	Successes  int64
	Failures   int64
	AvgLatency time.Duration

	totalLatency time.Duration
}

// MetricsSnapshot is a point-in-time view of chain metrics.
type MetricsSnapshot struct {
	TotalExecutions int64
	LinkStats       map[string]LinkStats
}

// NewChain creates a fallback chain with the given links.
func NewChain(name string, links ...Link) *Chain {
	return &Chain{
		name:    name,
		links:   links,
		logger:  flume.NopLogger{},
		metrics: chainMetrics{stats: make(map[string]*LinkStats)},
	}
}

// AddLink appends a link to the chain.
func (c *Chain) AddLink(link Link) *Chain {
	c.links = append(c.links, link)
	return c
}

// WithLogger sets the chain's logger.
func (c *Chain) WithLogger(logger flume.Logger) *Chain {
	if logger != nil {
		c.logger = logger
	}
	return c
}

// Name returns the chain's name.
func (c *Chain) Name() string { return c.name }

// Run tries each eligible link in order, returning the first success.
// The result carries the succeeding link's name under "fallback_link".
// If every link fails, the last error is returned.
func (c *Chain) Run(ctx context.Context, state flume.Context) (flume.Context, error) {
	c.metrics.mu.Lock()
	c.metrics.executions++
	c.metrics.mu.Unlock()

	var lastErr error
	tried := 0

	for _, link := range c.links {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if link.Condition != nil && !link.Condition(ctx, state) {
			c.logger.Debug(ctx, "fallback link skipped", "chain", c.name, "link", link.Name)
			continue
		}
		tried++

		input := state
		if link.Transform != nil {
			input = link.Transform(state.Clone())
		}

		start := time.Now()
		result, err := link.Runner.Run(ctx, input)
		c.record(link.Name, time.Since(start), err)

		if err == nil {
			result.Set("fallback_link", link.Name)
			return result, nil
		}

		c.logger.Warn(ctx, "fallback link failed",
			"chain", c.name,
			"link", link.Name,
			"error", err)
		lastErr = err
	}

	if tried == 0 {
		return nil, fmt.Errorf("chain %q: no eligible links", c.name)
	}
	return nil, fmt.Errorf("chain %q: all %d links failed: %w", c.name, tried, lastErr)
}

func (c *Chain) record(link string, latency time.Duration, err error) {
	c.metrics.mu.Lock()
	defer c.metrics.mu.Unlock()

	stats, ok := c.metrics.stats[link]
	if !ok {
		stats = &LinkStats{}
		c.metrics.stats[link] = stats
	}
	stats.Executions++
	stats.totalLatency += latency
	if err == nil {
		stats.Successes++
	} else {
		stats.Failures++
	}
}

// Metrics returns a snapshot of the chain's counters.
func (c *Chain) Metrics() MetricsSnapshot {
	c.metrics.mu.Lock()
	defer c.metrics.mu.Unlock()

	snapshot := MetricsSnapshot{
		TotalExecutions: c.metrics.executions,
		LinkStats:       make(map[string]LinkStats, len(c.metrics.stats)),
	}
	for name, stats := range c.metrics.stats {
		copied := *stats
		if copied.Executions > 0 {
			copied.AvgLatency = copied.totalLatency / time.Duration(copied.Executions)
		}
		snapshot.LinkStats[name] = copied
	}
	return snapshot
}
