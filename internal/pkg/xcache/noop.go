package xcache

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/eko/gocache/lib/v4/store"
)

// ErrCacheNotConfigured is the cause of every miss reported by a NoopCache.
var ErrCacheNotConfigured = errors.New("cache not configured")

// NoopCache retains nothing. Every Get misses and writes are counted and dropped. It
// backs ModeNone, which turns memoization off while concurrent loads are still shared.
type NoopCache[T any] struct {
	dropped atomic.Int64
}

func NewNoop[T any]() *NoopCache[T] {
	return &NoopCache[T]{}
}

func (c *NoopCache[T]) Get(context.Context, any) (T, error) {
	var zero T
	return zero, store.NotFoundWithCause(ErrCacheNotConfigured)
}

func (c *NoopCache[T]) Set(context.Context, any, T, ...Option) error {
	c.dropped.Add(1)
	return nil
}

func (c *NoopCache[T]) Delete(context.Context, any) error { return nil }
func (c *NoopCache[T]) Invalidate(context.Context, ...store.InvalidateOption) error { return nil }
func (c *NoopCache[T]) Clear(context.Context) error { return nil }

func (c *NoopCache[T]) GetType() string {
	return ModeNone
}

// Dropped returns the number of writes discarded so far.
func (c *NoopCache[T]) Dropped() int64 {
	return c.dropped.Load()
}
