package observer

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"slices"

	"github.com/samber/lo"
	"github.com/tidwall/gjson"
)

// ErrTypeMismatch is returned by a transform that receives an input of the wrong type.
var ErrTypeMismatch = errors.New("observer: type mismatch")

type missing struct{}

// Missing is produced by lookups that find nothing. It passes through the remaining
// transforms and resolves to the observer default.
var Missing any = missing{}

// IsMissing reports whether v is the Missing marker.
func IsMissing(v any) bool {
	_, ok := v.(missing)
	return ok
}

func mismatch(want string, got any) error {
	return fmt.Errorf("%w: want %s, got %T", ErrTypeMismatch, want, got)
}

// Field looks up key in a map with string keys.
func Field(key string) Transform {
	return func(in any) (any, error) {
		if in == nil || IsMissing(in) {
			return Missing, nil
		}

		if m, ok := in.(map[string]any); ok {
			v, found := m[key]
			if !found {
				return Missing, nil
			}

			return v, nil
		}

		rv := reflect.ValueOf(in)
		if rv.Kind() != reflect.Map || rv.Type().Key().Kind() != reflect.String {
			return nil, mismatch("map with string keys", in)
		}

		v := rv.MapIndex(reflect.ValueOf(key).Convert(rv.Type().Key()))
		if !v.IsValid() {
			return Missing, nil
		}

		return v.Interface(), nil
	}
}

// Path evaluates a gjson path. Strings, byte slices and raw messages are parsed as JSON;
// any other value is marshalled first. Numbers come back as float64.
func Path(path string) Transform {
	return func(in any) (any, error) {
		if in == nil || IsMissing(in) {
			return Missing, nil
		}

		var raw []byte

		switch v := in.(type) {
		case json.RawMessage:
			raw = v
		case []byte:
			raw = v
		case string:
			raw = []byte(v)
		default:
			b, err := json.Marshal(v)
			if err != nil {
				return nil, fmt.Errorf("marshal for path %q: %w", path, err)
			}

			raw = b
		}

		res := gjson.GetBytes(raw, path)
		if !res.Exists() {
			return Missing, nil
		}

		return res.Value(), nil
	}
}

func elements[E any](in any) ([]E, bool, error) {
	if in == nil || IsMissing(in) {
		return nil, false, nil
	}

	items, ok := in.([]E)
	if !ok {
		return nil, false, mismatch(reflect.TypeFor[[]E]().String(), in)
	}

	return items, true, nil
}

// Filter keeps the elements of a []E for which keep returns true.
func Filter[E any](keep func(E) bool) Transform {
	if keep == nil {
		panic("observer.Filter: predicate must not be nil")
	}

	return func(in any) (any, error) {
		items, ok, err := elements[E](in)
		if err != nil || !ok {
			return passMissing(in), err
		}

		return lo.Filter(items, func(item E, _ int) bool { return keep(item) }), nil
	}
}

// Map converts a []E into a []R.
func Map[E, R any](fn func(E) R) Transform {
	if fn == nil {
		panic("observer.Map: mapper must not be nil")
	}

	return func(in any) (any, error) {
		items, ok, err := elements[E](in)
		if err != nil || !ok {
			return passMissing(in), err
		}

		return lo.Map(items, func(item E, _ int) R { return fn(item) }), nil
	}
}

// SortBy returns a sorted copy of a []E. The sort is stable.
func SortBy[E any](cmp func(a, b E) int) Transform {
	if cmp == nil {
		panic("observer.SortBy: comparator must not be nil")
	}

	return func(in any) (any, error) {
		items, ok, err := elements[E](in)
		if err != nil || !ok {
			return passMissing(in), err
		}

		sorted := slices.Clone(items)
		slices.SortStableFunc(sorted, cmp)

		return sorted, nil
	}
}

// Limit truncates any slice to at most n elements.
func Limit(n int) Transform {
	if n < 0 {
		panic("observer.Limit: limit must not be negative")
	}

	return func(in any) (any, error) {
		if in == nil || IsMissing(in) {
			return Missing, nil
		}

		rv := reflect.ValueOf(in)
		if rv.Kind() != reflect.Slice {
			return nil, mismatch("slice", in)
		}

		if rv.Len() <= n {
			return in, nil
		}

		return rv.Slice3(0, n, n).Interface(), nil
	}
}

// Len returns the length of a slice, map or string as an int.
func Len() Transform {
	return func(in any) (any, error) {
		if in == nil || IsMissing(in) {
			return Missing, nil
		}

		rv := reflect.ValueOf(in)
		switch rv.Kind() {
		case reflect.Slice, reflect.Array, reflect.Map, reflect.String:
			return rv.Len(), nil
		default:
			return nil, mismatch("slice, map or string", in)
		}
	}
}

// Func adapts a typed function. A Missing input skips fn.
func Func[I, O any](fn func(I) (O, error)) Transform {
	if fn == nil {
		panic("observer.Func: function must not be nil")
	}

	return func(in any) (any, error) {
		if IsMissing(in) {
			return Missing, nil
		}

		typed, ok := in.(I)
		if !ok {
			return nil, mismatch(reflect.TypeFor[I]().String(), in)
		}

		return fn(typed)
	}
}

func passMissing(in any) any {
	if in == nil || IsMissing(in) {
		return Missing
	}

	return nil
}
