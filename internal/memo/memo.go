// Package memo memoizes producer functions. A decorated function has the producer's
// signature, returns the stored value for a known argument and calls the producer
// otherwise. Failed calls are never stored.
package memo

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/sync/singleflight"

	"github.com/looplj/shellstate/internal/log"
	"github.com/looplj/shellstate/internal/metrics"
	"github.com/looplj/shellstate/internal/pkg/xcache"
	"github.com/looplj/shellstate/internal/pkg/xcontext"
	"github.com/looplj/shellstate/internal/pkg/xtime"
)

// Producer computes a value for an argument.
type Producer[A, R any] func(ctx context.Context, arg A) (R, error)

// Entry is the stored form of a produced value.
type Entry[R any] struct {
	Value    R         `json:"value"`
	StoredAt time.Time `json:"stored_at"`
}

// Store holds entries by key.
type Store[R any] = xcache.Cache[Entry[R]]

// Stats counts decorator activity since creation.
type Stats struct {
	Hits         int64 `json:"hits"`
	Misses       int64 `json:"misses"`
	Loads        int64 `json:"loads"`
	LoadFailures int64 `json:"load_failures"`
}

// Decorator memoizes a Producer.
type Decorator[A, R any] struct {
	name        string
	producer    Producer[A, R]
	key         func(A) (string, error)
	expiry      Expiry
	store       Store[R]
	now         func() time.Time
	loadTimeout time.Duration
	instruments *metrics.Instruments
	attrs       metric.MeasurementOption

	group singleflight.Group

	hits         atomic.Int64
	misses       atomic.Int64
	loads        atomic.Int64
	loadFailures atomic.Int64
}

// New wraps producer. Without WithStore, entries live in an unbounded in-memory store.
func New[A, R any](producer Producer[A, R], opts ...Option) *Decorator[A, R] {
	if producer == nil {
		panic("memo.New: producer must not be nil")
	}

	s := settings{
		name:   "memo",
		expiry: NeverExpires,
		now:    xtime.UTCNow,
	}

	for _, opt := range opts {
		opt(&s)
	}

	d := &Decorator[A, R]{
		name:        s.name,
		producer:    producer,
		key:         StructuralKey[A],
		expiry:      s.expiry,
		now:         s.now,
		loadTimeout: s.loadTimeout,
		instruments: s.instruments,
		attrs:       metric.WithAttributes(attribute.String("memo", s.name)),
	}

	if s.keyFunc != nil {
		fn, ok := s.keyFunc.(func(A) (string, error))
		if !ok {
			panic(fmt.Sprintf("memo.New: key func %T does not accept the decorated argument type", s.keyFunc))
		}

		d.key = fn
	}

	if s.store != nil {
		st, ok := s.store.(Store[R])
		if !ok {
			panic(fmt.Sprintf("memo.New: store %T does not hold the decorated result type", s.store))
		}

		d.store = st
	} else {
		d.store = xcache.NewMemoryWithOptions[Entry[R]](0, 0)
	}

	if d.instruments == nil {
		d.instruments = metrics.NewInstruments(nil)
	}

	return d
}

// Decorate returns a memoized function with the producer's signature.
func Decorate[A, R any](producer Producer[A, R], opts ...Option) Producer[A, R] {
	return New(producer, opts...).Do
}

func (d *Decorator[A, R]) cacheKey(arg A) (string, error) {
	k, err := d.key(arg)
	if err != nil {
		return "", fmt.Errorf("memo %s: %w", d.name, err)
	}

	return d.name + ":" + k, nil
}

// Do returns the value for arg, calling the producer on a miss or a stale entry.
// Concurrent calls for the same key share a single producer call. The producer runs
// without the caller's cancellation; a caller whose ctx ends stops waiting and gets
// ctx.Err() while the load goes on for the others.
func (d *Decorator[A, R]) Do(ctx context.Context, arg A) (R, error) {
	var zero R

	key, err := d.cacheKey(arg)
	if err != nil {
		return zero, err
	}

	if entry, ok := d.lookup(ctx, key); ok {
		d.hits.Add(1)
		d.instruments.MemoHits.Add(ctx, 1, d.attrs)

		return entry.Value, nil
	}

	d.misses.Add(1)
	d.instruments.MemoMisses.Add(ctx, 1, d.attrs)

	loadCtx := context.WithoutCancel(ctx)

	ch := d.group.DoChan(key, func() (any, error) {
		// A call that finished between our lookup and here has already stored the value.
		if entry, ok := d.lookup(loadCtx, key); ok {
			return entry.Value, nil
		}

		return d.load(loadCtx, key, arg)
	})

	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Err
		}

		value, _ := res.Val.(R)

		return value, nil
	}
}

func (d *Decorator[A, R]) load(ctx context.Context, key string, arg A) (R, error) {
	d.loads.Add(1)
	d.instruments.MemoLoads.Add(ctx, 1, d.attrs)

	if d.loadTimeout > 0 {
		var cancel context.CancelFunc

		ctx, cancel = xcontext.DetachWithTimeout(ctx, d.loadTimeout)
		defer cancel()
	}

	value, err := d.producer(ctx, arg)
	if err != nil {
		d.loadFailures.Add(1)
		d.instruments.MemoLoadFailures.Add(ctx, 1, d.attrs)

		return value, err
	}

	entry := Entry[R]{Value: value, StoredAt: d.now()}
	if err := d.store.Set(ctx, key, entry); err != nil {
		log.Warn(ctx, "memo store write failed",
			log.String("name", d.name),
			log.String("key", key),
			log.Cause(err))
	}

	return value, nil
}

func (d *Decorator[A, R]) lookup(ctx context.Context, key string) (Entry[R], bool) {
	entry, err := d.store.Get(ctx, key)
	if err != nil {
		if !xcache.IsNotFound(err) {
			log.Warn(ctx, "memo store read failed",
				log.String("name", d.name),
				log.String("key", key),
				log.Cause(err))
		}

		return entry, false
	}

	if d.expiry(entry.StoredAt, d.now()) {
		return entry, false
	}

	return entry, true
}

// Forget drops the entry for arg.
func (d *Decorator[A, R]) Forget(ctx context.Context, arg A) error {
	key, err := d.cacheKey(arg)
	if err != nil {
		return err
	}

	d.group.Forget(key)

	return d.store.Delete(ctx, key)
}

// Stats returns a snapshot of the counters.
func (d *Decorator[A, R]) Stats() Stats {
	return Stats{
		Hits:         d.hits.Load(),
		Misses:       d.misses.Load(),
		Loads:        d.loads.Load(),
		LoadFailures: d.loadFailures.Load(),
	}
}
