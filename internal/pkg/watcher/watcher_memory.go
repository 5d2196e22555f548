package watcher

import (
	"context"
	"sync"
	"sync/atomic"
)

type MemoryWatcherOptions struct {
	Buffer int
}

// MemoryWatcher broadcasts to subscribers in the same process. Events for a
// subscriber whose buffer is full are dropped and counted.
type MemoryWatcher[T any] struct {
	mu     sync.Mutex
	nextID uint64
	subs   map[uint64]chan T
	buffer int

	dropped atomic.Uint64
}

func NewMemoryWatcher[T any](opts MemoryWatcherOptions) *MemoryWatcher[T] {
	buffer := opts.Buffer
	if buffer <= 0 {
		buffer = 1
	}

	return &MemoryWatcher[T]{
		subs:   make(map[uint64]chan T),
		buffer: buffer,
	}
}

func (w *MemoryWatcher[T]) Watch() (<-chan T, func()) {
	w.mu.Lock()
	defer w.mu.Unlock()

	id := w.nextID
	w.nextID++

	ch := make(chan T, w.buffer)
	w.subs[id] = ch

	return ch, func() {
		w.mu.Lock()
		defer w.mu.Unlock()

		sub, ok := w.subs[id]
		if !ok {
			return
		}

		delete(w.subs, id)
		close(sub)
	}
}

func (w *MemoryWatcher[T]) Notify(_ context.Context, v T) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	for _, ch := range w.subs {
		select {
		case ch <- v:
		default:
			w.dropped.Add(1)
		}
	}

	return nil
}

// Dropped returns how many deliveries were skipped because a subscriber was full.
func (w *MemoryWatcher[T]) Dropped() uint64 {
	return w.dropped.Load()
}

// Subscribers returns the number of active subscriptions.
func (w *MemoryWatcher[T]) Subscribers() int {
	w.mu.Lock()
	defer w.mu.Unlock()

	return len(w.subs)
}
