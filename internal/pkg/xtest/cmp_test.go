package xtest

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEqual(t *testing.T) {
	assert.True(t, Equal([]any{}, []any(nil)))
	assert.True(t, Equal(map[string]any{"count": 5}, map[string]any{"count": float64(5)}))
	assert.True(t, Equal(json.RawMessage(`{"a":1, "b":2}`), json.RawMessage(`{"b":2,"a":1}`)))
	assert.False(t, Equal(map[string]any{"count": 5}, map[string]any{"count": 6}))
	assert.NotEmpty(t, Diff([]string{"a"}, []string{"b"}))
}
