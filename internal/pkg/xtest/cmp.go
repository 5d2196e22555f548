package xtest

import (
	"encoding/json"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

// Custom comparator for json.RawMessage that compares semantic equality.
func jsonRawMessageComparer(x, y json.RawMessage) bool {
	if len(x) == 0 && len(y) == 0 {
		return true
	}

	if len(x) == 0 || len(y) == 0 {
		return false
	}

	var xVal, yVal any
	if err := json.Unmarshal(x, &xVal); err != nil {
		return false
	}

	if err := json.Unmarshal(y, &yVal); err != nil {
		return false
	}

	return cmp.Equal(xVal, yVal)
}

// numberNormalizer lets int payload fields compare equal to the float64
// values produced by JSON round trips.
var numberNormalizer = cmp.FilterValues(func(x, y any) bool {
	_, xok := toFloat(x)
	_, yok := toFloat(y)

	return xok && yok
}, cmp.Comparer(func(x, y any) bool {
	xf, _ := toFloat(x)
	yf, _ := toFloat(y)

	return xf == yf
}))

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}

// Equal provides semantic equality for projected payloads: empty and nil
// collections are equal and numeric kinds are normalized.
func Equal(a, b any, opts ...cmp.Option) bool {
	return cmp.Equal(a, b, options(opts)...)
}

// Diff reports the difference between a and b using the same options as Equal.
func Diff(a, b any, opts ...cmp.Option) string {
	return cmp.Diff(a, b, options(opts)...)
}

func options(opts []cmp.Option) []cmp.Option {
	return append(opts,
		cmpopts.EquateEmpty(),
		numberNormalizer,
		cmp.Comparer(jsonRawMessageComparer))
}
