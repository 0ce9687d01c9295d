package reflection

import (
	"context"
	"errors"
)

// call invokes one collaborator operation with a per-attempt timeout
// and a single immediate retry. A second consecutive failure escalates
// to a CollaboratorError. Parent context cancellation is never retried
// and is returned as-is so the run can short-circuit.
func call[T any](ctx context.Context, c *Controller, op Operation, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	var lastErr error

	for attempt := 0; attempt < 2; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, err
		}

		attemptCtx, cancel := context.WithTimeout(ctx, c.cfg.CallTimeout)
		result, err := fn(attemptCtx)
		cancel()
		if err == nil {
			return result, nil
		}
		if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
			return zero, ctx.Err()
		}

		lastErr = err
		c.metrics.ProviderFailure(string(op))
		c.log.V(1).Info("collaborator call failed", "operation", op, "attempt", attempt+1, "error", err)
	}
	return zero, &CollaboratorError{Op: op, Err: categorize(op, lastErr)}
}
