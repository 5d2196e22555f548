package watcher

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/looplj/shellstate/internal/log"
	"github.com/looplj/shellstate/internal/pkg/xredis"
)

type RedisWatcherOptions struct {
	Channel string
	Buffer  int
	// Origin names this publisher on the channel and must be unique per process.
	// Defaults to a random id.
	Origin string
	// SkipOwn drops events published through this watcher.
	SkipOwn bool
}

// envelope is the wire form of an event.
type envelope[T any] struct {
	Origin string `msgpack:"o"`
	Seq    uint64 `msgpack:"s"`
	Value  T      `msgpack:"v"`
}

// RedisWatcher fans events out over a redis pub/sub channel. Every event carries its
// publisher's origin and a per-origin sequence number; an event whose sequence is not
// newer than the last one seen from that origin is discarded as stale. The redis
// subscription is held only while at least one Watch is active.
type RedisWatcher[T any] struct {
	client *redis.Client
	opts   RedisWatcherOptions
	seq    atomic.Uint64

	mu      sync.Mutex
	nextID  uint64
	subs    map[uint64]chan T
	lastSeq map[string]uint64
	pubsub  *redis.PubSub
	done    chan struct{}

	dropped atomic.Uint64
	stale   atomic.Uint64
}

func NewRedisWatcher[T any](client *redis.Client, opts RedisWatcherOptions) (*RedisWatcher[T], error) {
	if client == nil {
		return nil, errors.New("watcher.RedisWatcher: redis client is required")
	}

	if opts.Channel == "" {
		return nil, errors.New("watcher.RedisWatcher: channel is required")
	}

	if opts.Buffer <= 0 {
		opts.Buffer = 1
	}

	if opts.Origin == "" {
		opts.Origin = uuid.NewString()
	}

	return &RedisWatcher[T]{
		client:  client,
		opts:    opts,
		subs:    make(map[uint64]chan T),
		lastSeq: make(map[string]uint64),
	}, nil
}

func NewRedisWatcherFromConfig[T any](cfg xredis.Config, opts RedisWatcherOptions) (*RedisWatcher[T], error) {
	client, err := xredis.NewClient(cfg)
	if err != nil {
		return nil, err
	}

	return NewRedisWatcher[T](client, opts)
}

// Origin returns the id stamped on events published by w.
func (w *RedisWatcher[T]) Origin() string {
	return w.opts.Origin
}

func (w *RedisWatcher[T]) Watch() (<-chan T, func()) {
	w.mu.Lock()
	defer w.mu.Unlock()

	id := w.nextID
	w.nextID++

	ch := make(chan T, w.opts.Buffer)
	w.subs[id] = ch

	if w.pubsub == nil {
		w.subscribeLocked()
	}

	var once sync.Once

	return ch, func() {
		once.Do(func() { w.unwatch(id) })
	}
}

func (w *RedisWatcher[T]) unwatch(id uint64) {
	w.mu.Lock()

	close(w.subs[id])
	delete(w.subs, id)

	if len(w.subs) > 0 || w.pubsub == nil {
		w.mu.Unlock()
		return
	}

	ps, done := w.pubsub, w.done
	w.pubsub, w.done = nil, nil
	w.mu.Unlock()

	_ = ps.Close()
	<-done
}

// Notify publishes v stamped with w's origin and the next sequence number.
func (w *RedisWatcher[T]) Notify(ctx context.Context, v T) error {
	payload, err := msgpack.Marshal(envelope[T]{
		Origin: w.opts.Origin,
		Seq:    w.seq.Add(1),
		Value:  v,
	})
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}

	if err := w.client.Publish(ctx, w.opts.Channel, payload).Err(); err != nil {
		return fmt.Errorf("publish to %s: %w", w.opts.Channel, err)
	}

	return nil
}

// Subscribers returns the number of active watches.
func (w *RedisWatcher[T]) Subscribers() int {
	w.mu.Lock()
	defer w.mu.Unlock()

	return len(w.subs)
}

// Dropped counts events skipped because a subscriber's buffer was full.
func (w *RedisWatcher[T]) Dropped() uint64 {
	return w.dropped.Load()
}

// Stale counts events discarded for arriving out of order.
func (w *RedisWatcher[T]) Stale() uint64 {
	return w.stale.Load()
}

func (w *RedisWatcher[T]) subscribeLocked() {
	ctx := context.Background()

	ps := w.client.Subscribe(ctx, w.opts.Channel)
	// Wait for the subscription so events published right after Watch are not lost.
	if _, err := ps.Receive(ctx); err != nil {
		log.Warn(ctx, "redis watcher subscribe failed",
			log.String("channel", w.opts.Channel),
			log.Cause(err))
	}

	w.pubsub = ps
	w.done = make(chan struct{})

	go w.receive(ps.Channel(), w.done)
}

func (w *RedisWatcher[T]) receive(msgs <-chan *redis.Message, done chan struct{}) {
	defer close(done)

	for msg := range msgs {
		var env envelope[T]
		if err := msgpack.Unmarshal([]byte(msg.Payload), &env); err != nil {
			log.Warn(context.Background(), "redis watcher dropped undecodable event",
				log.String("channel", w.opts.Channel),
				log.Cause(err))

			continue
		}

		w.dispatch(env)
	}
}

func (w *RedisWatcher[T]) dispatch(env envelope[T]) {
	if w.opts.SkipOwn && env.Origin == w.opts.Origin {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if last, ok := w.lastSeq[env.Origin]; ok && env.Seq <= last {
		w.stale.Add(1)
		return
	}

	w.lastSeq[env.Origin] = env.Seq

	for _, sub := range w.subs {
		select {
		case sub <- env.Value:
		default:
			w.dropped.Add(1)
		}
	}
}
