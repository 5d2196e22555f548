package tracing

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/looplj/shellstate/internal/contexts"
)

// GenerateTraceID generate trace id, format as sf-{{uuid}}.
func GenerateTraceID() string {
	id := uuid.New()
	return fmt.Sprintf("sf-%s", id.String())
}

// WithTraceID store trace id to context.
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return contexts.WithTraceID(ctx, traceID)
}

// GetTraceID get trace id from context.
func GetTraceID(ctx context.Context) (string, bool) {
	return contexts.GetTraceID(ctx)
}

// EnsureTraceID returns ctx unchanged when it already carries a trace id,
// otherwise it attaches a freshly generated one.
func EnsureTraceID(ctx context.Context) context.Context {
	if _, ok := contexts.GetTraceID(ctx); ok {
		return ctx
	}

	return contexts.WithTraceID(ctx, GenerateTraceID())
}

// WithOperationName store operation name to context.
func WithOperationName(ctx context.Context, name string) context.Context {
	return contexts.WithOperationName(ctx, name)
}

// GetOperationName get operation name from context.
func GetOperationName(ctx context.Context) (string, bool) {
	return contexts.GetOperationName(ctx)
}
