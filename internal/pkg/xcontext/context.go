package xcontext

import (
	"context"
	"time"
)

// DetachWithTimeout returns a context that keeps ctx's values but not its
// cancellation, bounded by timeout.
func DetachWithTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	ctx = context.WithoutCancel(ctx)
	ctx, cancel := context.WithTimeout(ctx, timeout)

	return ctx, cancel
}
