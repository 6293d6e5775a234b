package flume

import (
	"context"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// DefaultConcurrency bounds batch item parallelism when no explicit bound is
// configured.
const DefaultConcurrency = 10

// Batch item context keys.
const (
	// ItemKey holds the item inside a per-item context.
	ItemKey = "item"

	// IndexKey holds the item's position inside a per-item context.
	IndexKey = "index"

	// ProcessedKey is false on a failure-marker result.
	ProcessedKey = "processed"

	// ErrorKey holds the failure message on a failure-marker result.
	ErrorKey = "error"
)

// ItemsFunc extracts the items to process from the batch's input context.
type ItemsFunc func(ctx context.Context, state Context) ([]any, error)

// CollectFunc folds the ordered item results back into an output context.
// It receives the batch's original input context and the results slice, with
// successes and failure markers intermixed.
type CollectFunc func(ctx context.Context, state Context, results []any) (Context, error)

// BatchProcessor applies one item-level node to a collection of items with
// bounded concurrency, isolating per-item failures.
//
// Items are partitioned into consecutive chunks of at most the configured
// concurrency. Items within a chunk run concurrently; a chunk is a hard
// barrier, so no item of chunk k+1 starts before every item of chunk k has
// settled.
type BatchProcessor struct {
	name        string
	node        Node
	items       ItemsFunc
	collect     CollectFunc
	concurrency int
	logger      Logger
}

// NewBatchProcessor creates a batch processor with the default concurrency
// bound.
func NewBatchProcessor(name string, node Node, items ItemsFunc, collect CollectFunc) BatchProcessor {
	return BatchProcessor{
		name:        name,
		node:        node,
		items:       items,
		collect:     collect,
		concurrency: DefaultConcurrency,
		logger:      NopLogger{},
	}
}

// WithConcurrency returns a copy of the processor with the concurrency bound
// replaced. Values below 1 fall back to the default.
func (b BatchProcessor) WithConcurrency(n int) BatchProcessor {
	if n < 1 {
		n = DefaultConcurrency
	}
	b.concurrency = n
	return b
}

// WithLogger returns a copy of the processor with the logger replaced.
func (b BatchProcessor) WithLogger(logger Logger) BatchProcessor {
	b.logger = logger
	return b
}

// Name returns the processor's identifier.
func (b BatchProcessor) Name() string {
	return b.name
}

// Run extracts items, processes them chunk by chunk, and hands the ordered
// results to the collector.
//
// A failing item never aborts the batch: its error is logged and replaced
// with a failure marker {processed: false, error: message}. Failures of the
// batch machinery itself (the items selector or the collector) are wrapped
// in *BatchError and do propagate.
func (b BatchProcessor) Run(ctx context.Context, state Context) (Context, error) {
	items, err := b.items(ctx, state)
	if err != nil {
		return nil, &BatchError{Batch: b.name, Stage: "items", Err: err}
	}

	concurrency := b.concurrency
	if concurrency < 1 {
		concurrency = DefaultConcurrency
	}

	// Results are stored keyed for correlation and de-duplication, then
	// flattened back to a slice in key insertion order.
	var order []string
	byKey := make(map[string]any)

	for start := 0; start < len(items); start += concurrency {
		if err := ctx.Err(); err != nil {
			return nil, &BatchError{Batch: b.name, Stage: "chunk", Err: err}
		}

		end := start + concurrency
		if end > len(items) {
			end = len(items)
		}
		chunk := items[start:end]
		results := make([]any, len(chunk))

		g, gctx := errgroup.WithContext(ctx)
		for i, item := range chunk {
			index := start + i
			g.Go(func() error {
				results[i] = b.runItem(gctx, item, index)
				return nil
			})
		}
		// Item goroutines never return errors; Wait is the chunk barrier.
		_ = g.Wait()

		for i, result := range results {
			key := resultKey(result, chunk[i])
			if _, seen := byKey[key]; !seen {
				order = append(order, key)
			}
			byKey[key] = result
		}
	}

	flat := make([]any, len(order))
	for i, key := range order {
		flat[i] = byKey[key]
	}

	out, err := b.collect(ctx, state, flat)
	if err != nil {
		return nil, &BatchError{Batch: b.name, Stage: "collect", Err: err}
	}
	return out, nil
}

// runItem executes the item node against its own context and converts any
// failure into a marker result.
func (b BatchProcessor) runItem(ctx context.Context, item any, index int) any {
	itemState := Context{
		ItemKey:  item,
		IndexKey: index,
	}

	out, err := b.node.Run(ctx, itemState)
	if err != nil {
		b.logger.Error(ctx, "batch item failed",
			"batch", b.name,
			"node", b.node.Name(),
			"index", index,
			"error", err)
		return Context{
			ProcessedKey: false,
			ErrorKey:     err.Error(),
		}
	}
	return out
}

// resultKey derives a correlation key for an item's result: result "key",
// then result "id", then the result's nested item "id", then the item's own
// "id"/"key", falling back to a random token.
func resultKey(result, item any) string {
	if m, ok := toStringMap(result); ok {
		if key, ok := stringValue(m["key"]); ok {
			return key
		}
		if key, ok := stringValue(m["id"]); ok {
			return key
		}
		if nested, ok := toStringMap(m[ItemKey]); ok {
			if key, ok := stringValue(nested["id"]); ok {
				return key
			}
		}
	}
	if m, ok := toStringMap(item); ok {
		if key, ok := stringValue(m["id"]); ok {
			return key
		}
		if key, ok := stringValue(m["key"]); ok {
			return key
		}
	}
	return uuid.NewString()
}

func stringValue(v any) (string, bool) {
	s, ok := v.(string)
	if !ok || s == "" {
		return "", false
	}
	return s, true
}
