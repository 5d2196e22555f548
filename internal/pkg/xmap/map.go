package xmap

import (
	"sync"
)

// Map is a generic type-safe wrapper around sync.Map.
type Map[K comparable, V any] struct {
	m sync.Map
}

// New creates a new Map instance.
func New[K comparable, V any]() *Map[K, V] {
	return &Map[K, V]{}
}

// Load returns the value stored for key. The ok result indicates whether a value was found.
func (m *Map[K, V]) Load(key K) (value V, ok bool) {
	v, ok := m.m.Load(key)
	if !ok {
		return value, false
	}

	//nolint:forcetypeassert // Safe to assert since we control the map.
	return v.(V), true
}

// Store sets the value for a key.
func (m *Map[K, V]) Store(key K, value V) {
	m.m.Store(key, value)
}

// LoadAndDelete deletes the value for a key, returning the previous value if any.
func (m *Map[K, V]) LoadAndDelete(key K) (value V, loaded bool) {
	v, loaded := m.m.LoadAndDelete(key)
	if !loaded {
		return value, false
	}

	//nolint:forcetypeassert // Safe to assert since we control the map.
	return v.(V), true
}

// Delete deletes the value for a key.
func (m *Map[K, V]) Delete(key K) {
	m.m.Delete(key)
}

// Range calls f for each entry until f returns false.
func (m *Map[K, V]) Range(f func(key K, value V) bool) {
	m.m.Range(func(key, value any) bool {
		//nolint:forcetypeassert // Safe to assert since we control the map.
		return f(key.(K), value.(V))
	})
}

// Len counts the entries. It walks the map.
func (m *Map[K, V]) Len() int {
	n := 0

	m.m.Range(func(_, _ any) bool {
		n++
		return true
	})

	return n
}

// Snapshot copies the entries into a plain map.
func (m *Map[K, V]) Snapshot() map[K]V {
	out := make(map[K]V)

	m.Range(func(key K, value V) bool {
		out[key] = value
		return true
	})

	return out
}

// Clear deletes all entries from the map.
func (m *Map[K, V]) Clear() {
	m.m.Clear()
}
