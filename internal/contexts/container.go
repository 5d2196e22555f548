package contexts

import (
	"context"
)

// contextContainer contains all values in the context.
type contextContainer struct {
	TraceID       *string
	SessionID     *string
	OperationName *string
}

// getContainer retrieves the existing container from context, or creates a new one if it doesn't exist.
func getContainer(ctx context.Context) *contextContainer {
	if container, ok := ctx.Value(containerContextKey).(*contextContainer); ok {
		return container
	}

	return &contextContainer{}
}

// withContainer stores a copy of the container in the context so parent contexts are never mutated.
func withContainer(ctx context.Context, container *contextContainer) context.Context {
	cp := *container
	return context.WithValue(ctx, containerContextKey, &cp)
}
