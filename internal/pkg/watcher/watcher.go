package watcher

import (
	"context"
	"sync"
)

// Watcher provides a best-effort cross-goroutine / cross-instance watch stream.
//
// It carries change signals rather than durable deliveries: implementations may drop
// events when subscribers are slow or disconnected.
//
// Callers must call the stop function returned by Watch exactly once.
type Watcher[T any] interface {
	// Watch subscribes to the stream and returns the event channel and a stop function.
	Watch() (<-chan T, func())
}

// Notifier is a Watcher that can also publish events.
//
// Writers call Notify after committing the source of truth; readers depend only on Watcher.
type Notifier[T any] interface {
	Watcher[T]

	// Notify broadcasts the value to all subscribers.
	Notify(ctx context.Context, v T) error
}

// Forward subscribes to w and calls fn for every event on a dedicated goroutine until
// ctx is done or the stream is closed. The returned stop function unsubscribes and
// waits for the goroutine to exit; it is safe to call more than once.
func Forward[T any](ctx context.Context, w Watcher[T], fn func(T)) (stop func()) {
	ch, unsubscribe := w.Watch()
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	go func() {
		defer close(done)

		for {
			select {
			case <-ctx.Done():
				return
			case v, ok := <-ch:
				if !ok {
					return
				}

				fn(v)
			}
		}
	}()

	var once sync.Once

	return func() {
		once.Do(func() {
			cancel()
			<-done
			unsubscribe()
		})
	}
}
