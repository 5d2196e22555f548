package log

import (
	"context"

	"github.com/looplj/shellstate/internal/contexts"
)

// Hook contributes extra fields to every entry written through a Logger.
type Hook interface {
	Apply(ctx context.Context, msg string, fields ...Field) []Field
}

// HookFunc adapts a function to Hook.
type HookFunc func(ctx context.Context, msg string, fields ...Field) []Field

func (f HookFunc) Apply(ctx context.Context, msg string, fields ...Field) []Field {
	return f(ctx, msg, fields...)
}

// traceFields adds trace, session and operation identifiers found in the context.
//
//nolint:staticcheck // nil context is tolerated on purpose.
func traceFields(ctx context.Context, msg string, fields ...Field) []Field {
	if ctx == nil {
		return fields
	}

	if traceID, ok := contexts.GetTraceID(ctx); ok {
		fields = append(fields, String("trace_id", traceID))
	}

	if sessionID, ok := contexts.GetSessionID(ctx); ok {
		fields = append(fields, String("session_id", sessionID))
	}

	if operationName, ok := contexts.GetOperationName(ctx); ok {
		fields = append(fields, String("operation_name", operationName))
	}

	return fields
}
