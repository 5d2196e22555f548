package log

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/looplj/shellstate/internal/contexts"
)

func TestTraceHook(t *testing.T) {
	hook := HookFunc(traceFields)

	t.Run("with trace ID", func(t *testing.T) {
		ctx := contexts.WithTraceID(context.Background(), "sf-test-trace-id")
		fields := hook.Apply(ctx, "test message")
		assert.Len(t, fields, 1)
		assert.Equal(t, "trace_id", fields[0].Key)
		assert.Equal(t, "sf-test-trace-id", fields[0].String)
	})

	t.Run("with operation name", func(t *testing.T) {
		ctx := contexts.WithOperationName(context.Background(), "test-operation-name")
		fields := hook.Apply(ctx, "test message")
		assert.Len(t, fields, 1)
		assert.Equal(t, "operation_name", fields[0].Key)
		assert.Equal(t, "test-operation-name", fields[0].String)
	})

	t.Run("keeps existing fields", func(t *testing.T) {
		ctx := contexts.WithSessionID(context.Background(), "session-1")
		fields := hook.Apply(ctx, "test message", String("slot", "count"))
		assert.Len(t, fields, 2)
		assert.Equal(t, "slot", fields[0].Key)
		assert.Equal(t, "session_id", fields[1].Key)
	})

	t.Run("with context that doesn't have trace ID", func(t *testing.T) {
		ctx := context.Background()
		fields := hook.Apply(ctx, "test message")
		assert.Len(t, fields, 0)
	})

	t.Run("with nil context", func(t *testing.T) {
		//nolint:staticcheck // Checked.
		fields := hook.Apply(nil, "test message")
		assert.Len(t, fields, 0)
	})
}

func TestLoggerWritesHookFields(t *testing.T) {
	var buf bytes.Buffer

	l := NewWithWriter(Config{Level: "debug"}, &buf)
	l.AddHook(HookFunc(func(ctx context.Context, msg string, fields ...Field) []Field {
		return append(fields, String("component", "observable"))
	}))

	ctx := contexts.WithTraceID(context.Background(), "sf-abc")
	l.Info(ctx, "committed", Int("version", 3))

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "committed", entry["msg"])
	assert.Equal(t, "sf-abc", entry["trace_id"])
	assert.Equal(t, "observable", entry["component"])
	assert.EqualValues(t, 3, entry["version"])
}

func TestLoggerLevelFilter(t *testing.T) {
	var buf bytes.Buffer

	l := NewWithWriter(Config{Level: "warn"}, &buf)
	l.Info(context.Background(), "dropped")
	assert.Empty(t, buf.String())

	l.Warn(context.Background(), "kept")
	assert.Contains(t, buf.String(), "kept")
}
