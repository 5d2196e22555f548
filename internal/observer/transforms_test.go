package observer

import (
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestField(t *testing.T) {
	out, err := Field("a")(map[string]any{"a": 1})
	require.NoError(t, err)
	assert.Equal(t, 1, out)

	out, err = Field("b")(map[string]any{"a": 1})
	require.NoError(t, err)
	assert.True(t, IsMissing(out))

	out, err = Field("a")(map[string]string{"a": "x"})
	require.NoError(t, err)
	assert.Equal(t, "x", out)

	out, err = Field("a")(nil)
	require.NoError(t, err)
	assert.True(t, IsMissing(out))

	_, err = Field("a")([]int{1})
	require.ErrorIs(t, err, ErrTypeMismatch)
}

func TestPath(t *testing.T) {
	doc := `{"wishlist":{"items":[{"sku":"a1","price":3},{"sku":"b2","price":9}]}}`

	out, err := Path("wishlist.items.#")(doc)
	require.NoError(t, err)
	assert.Equal(t, float64(2), out)

	out, err = Path("wishlist.items.1.sku")(json.RawMessage(doc))
	require.NoError(t, err)
	assert.Equal(t, "b2", out)

	out, err = Path("owner.name")([]byte(doc))
	require.NoError(t, err)
	assert.True(t, IsMissing(out))

	out, err = Path("user.id")(map[string]any{"user": map[string]any{"id": "u-1"}})
	require.NoError(t, err)
	assert.Equal(t, "u-1", out)
}

func TestSliceTransforms(t *testing.T) {
	words := []string{"pear", "fig", "apple", "kiwi"}

	out, err := Filter(func(s string) bool { return len(s) > 3 })(words)
	require.NoError(t, err)
	assert.Equal(t, []string{"pear", "apple", "kiwi"}, out)

	out, err = Map(strings.ToUpper)(words)
	require.NoError(t, err)
	assert.Equal(t, []string{"PEAR", "FIG", "APPLE", "KIWI"}, out)

	out, err = SortBy(strings.Compare)(words)
	require.NoError(t, err)
	assert.Equal(t, []string{"apple", "fig", "kiwi", "pear"}, out)
	assert.Equal(t, []string{"pear", "fig", "apple", "kiwi"}, words)

	out, err = Limit(2)(words)
	require.NoError(t, err)
	assert.Equal(t, []string{"pear", "fig"}, out)

	out, err = Limit(10)(words)
	require.NoError(t, err)
	assert.Equal(t, words, out)

	out, err = Len()(words)
	require.NoError(t, err)
	assert.Equal(t, 4, out)

	_, err = Filter(func(int) bool { return true })(words)
	require.ErrorIs(t, err, ErrTypeMismatch)

	out, err = Map(strings.ToUpper)(Missing)
	require.NoError(t, err)
	assert.True(t, IsMissing(out))
}

func TestFunc(t *testing.T) {
	label := Func(func(s fmt.Stringer) (string, error) { return "sku " + s.String(), nil })

	out, err := label(time.Second)
	require.NoError(t, err)
	assert.Equal(t, "sku 1s", out)

	out, err = label(Missing)
	require.NoError(t, err)
	assert.True(t, IsMissing(out))

	_, err = label(42)
	require.ErrorIs(t, err, ErrTypeMismatch)
	assert.Contains(t, err.Error(), "want fmt.Stringer, got int")

	_, err = Filter(func(int) bool { return true })("sf-1001")
	assert.Contains(t, err.Error(), "want []int, got string")
}
