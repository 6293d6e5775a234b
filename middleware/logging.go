package middleware

import (
	"context"
	"fmt"
	"time"

	"github.com/flumehq/flume"
)

// Logging adds structured logging around each lifecycle phase.
func Logging(logger flume.Logger) Middleware {
	return func(node flume.Node) flume.Node {
		inner := node
		return node.
			WithPrep(func(ctx context.Context, state flume.Context) (any, error) {
				logger.Debug(ctx, "node prep starting", "node", inner.Name(), "id", inner.ID())
				start := time.Now()

				result, err := inner.Prep(ctx, state)

				logger.Debug(ctx, "node prep completed",
					"node", inner.Name(),
					"elapsed", time.Since(start),
					"error", err)
				return result, err
			}).
			WithExec(func(ctx context.Context, prepResult any) (any, error) {
				logger.Info(ctx, "node exec starting", "node", inner.Name(), "id", inner.ID())
				start := time.Now()

				result, err := inner.Exec(ctx, prepResult)

				if err != nil {
					logger.Error(ctx, "node exec failed",
						"node", inner.Name(),
						"elapsed", time.Since(start),
						"error", err)
				} else {
					logger.Info(ctx, "node exec completed",
						"node", inner.Name(),
						"elapsed", time.Since(start),
						"result_type", fmt.Sprintf("%T", result))
				}
				return result, err
			}).
			WithPost(func(ctx context.Context, state flume.Context, prepResult, execResult any) (flume.Outcome, error) {
				logger.Debug(ctx, "node post starting", "node", inner.Name())

				outcome, err := inner.Post(ctx, state, prepResult, execResult)

				logger.Debug(ctx, "node post completed",
					"node", inner.Name(),
					"outcome", outcome,
					"error", err)
				return outcome, err
			})
	}
}
