package observable

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/multierr"

	"github.com/looplj/shellstate/internal/log"
	"github.com/looplj/shellstate/internal/metrics"
	"github.com/looplj/shellstate/internal/pkg/ringbuffer"
	"github.com/looplj/shellstate/internal/pkg/watcher"
	"github.com/looplj/shellstate/internal/pkg/xtime"
)

// Subscriber is called with the committed payload. It must treat the payload as read-only.
type Subscriber[T any] func(ctx context.Context, payload T) error

// CommitEvent describes a completed commit. It is published to the notifier and kept
// in the commit history.
type CommitEvent struct {
	Name        string    `json:"name"`
	Version     uint64    `json:"version"`
	CommittedAt time.Time `json:"committed_at"`
	Delivered   int       `json:"delivered"`
	Failed      int       `json:"failed"`
}

// CommitRecord is a retained CommitEvent.
type CommitRecord = CommitEvent

type subscription[T any] struct {
	id     uint64
	fn     Subscriber[T]
	active atomic.Bool
}

// Observable wraps a payload of type T and a list of subscribers.
//
// The payload must be mutated by a single owner. Subscribe and Unsubscribe may be
// called from any goroutine, including from inside a subscriber.
type Observable[T any] struct {
	name        string
	reporter    ErrorReporter
	notifier    watcher.Notifier[CommitEvent]
	instruments *metrics.Instruments
	history     *ringbuffer.RingBuffer[CommitEvent]
	attrs       metric.MeasurementOption

	mu       sync.Mutex
	payload  T
	updating bool
	version  uint64
	nextID   uint64
	subs     []*subscription[T]
}

// New wraps initial.
func New[T any](initial T, opts ...Option) *Observable[T] {
	o := buildOptions(opts)

	return &Observable[T]{
		name:        o.name,
		reporter:    o.reporter,
		notifier:    o.notifier,
		instruments: o.instruments,
		history:     ringbuffer.New[CommitEvent](o.historySize),
		attrs:       metric.WithAttributes(attribute.String("observable", o.name)),
		payload:     initial,
	}
}

// NewMap creates an observable over an empty map payload.
func NewMap(opts ...Option) *Observable[map[string]any] {
	return New(map[string]any{}, opts...)
}

// Name returns the observable name.
func (o *Observable[T]) Name() string {
	return o.name
}

// Subscribe registers fn for every future commit. fn is never called from Subscribe itself,
// and a subscriber registered while a commit is running first runs on the next commit.
func (o *Observable[T]) Subscribe(fn Subscriber[T]) Handle {
	if fn == nil {
		panic("observable.Subscribe: subscriber must not be nil")
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	o.nextID++
	sub := &subscription[T]{id: o.nextID, fn: fn}
	sub.active.Store(true)
	o.subs = append(o.subs, sub)

	return Handle{id: sub.id, owner: o, release: o.unsubscribe}
}

// Unsubscribe removes the subscription behind h. Unknown, foreign or already released
// handles are ignored.
func (o *Observable[T]) Unsubscribe(h Handle) {
	if h.owner != o {
		return
	}

	o.unsubscribe(h.id)
}

func (o *Observable[T]) unsubscribe(id uint64) {
	o.mu.Lock()
	defer o.mu.Unlock()

	idx := slices.IndexFunc(o.subs, func(s *subscription[T]) bool { return s.id == id })
	if idx < 0 {
		return
	}

	// A commit may hold a snapshot that still contains this subscription.
	o.subs[idx].active.Store(false)
	o.subs = slices.Delete(o.subs, idx, idx+1)
}

// Len returns the number of active subscriptions.
func (o *Observable[T]) Len() int {
	o.mu.Lock()
	defer o.mu.Unlock()

	return len(o.subs)
}

// BeginUpdate marks the observable as being updated. It does not block readers.
func (o *Observable[T]) BeginUpdate() {
	o.mu.Lock()
	o.updating = true
	o.mu.Unlock()
}

// IsUpdating reports whether an update cycle is in progress.
func (o *Observable[T]) IsUpdating() bool {
	o.mu.Lock()
	defer o.mu.Unlock()

	return o.updating
}

// Data returns the current payload.
func (o *Observable[T]) Data() T {
	o.mu.Lock()
	defer o.mu.Unlock()

	return o.payload
}

// Set replaces the payload. Subscribers are not notified until Commit.
func (o *Observable[T]) Set(v T) {
	o.mu.Lock()
	o.payload = v
	o.mu.Unlock()
}

// Update replaces the payload with fn(current). fn runs without the lock held.
func (o *Observable[T]) Update(fn func(current T) T) {
	next := fn(o.Data())
	o.Set(next)
}

// Version returns the number of completed commits.
func (o *Observable[T]) Version() uint64 {
	o.mu.Lock()
	defer o.mu.Unlock()

	return o.version
}

// History returns the most recent commits, oldest first.
func (o *Observable[T]) History() []CommitRecord {
	items := o.history.GetAll()

	events := make([]CommitRecord, 0, len(items))
	for _, item := range items {
		events = append(events, item.Value)
	}

	return events
}

// Commit ends the update cycle and synchronously delivers the current payload to every
// subscriber, in registration order. Subscriber failures are combined and handed to the
// error reporter once per commit, never returned.
func (o *Observable[T]) Commit(ctx context.Context) {
	o.mu.Lock()
	o.updating = false
	o.version++
	version := o.version
	payload := o.payload
	snapshot := slices.Clone(o.subs)
	o.mu.Unlock()

	event := CommitEvent{
		Name:        o.name,
		Version:     version,
		CommittedAt: xtime.UTCNow(),
	}

	var failures error

	for _, sub := range snapshot {
		if !sub.active.Load() {
			continue
		}

		if err := o.invoke(ctx, sub, payload, version); err != nil {
			event.Failed++
			failures = multierr.Append(failures, err)

			log.Warn(ctx, "observable subscriber failed",
				log.String("name", o.name),
				log.Uint64("subscription", sub.id),
				log.Uint64("version", version),
				log.Cause(err))

			continue
		}

		event.Delivered++
	}

	if failures != nil {
		o.reporter.ReportError(ctx, failures)
	}

	o.history.Push(version, event)

	o.instruments.Commits.Add(ctx, 1, o.attrs)

	if event.Failed > 0 {
		o.instruments.SubscriberFailures.Add(ctx, int64(event.Failed), o.attrs)
	}

	log.Debug(ctx, "observable committed",
		log.String("name", o.name),
		log.Uint64("version", version),
		log.Int("delivered", event.Delivered),
		log.Int("failed", event.Failed))

	if o.notifier != nil {
		if err := o.notifier.Notify(ctx, event); err != nil {
			log.Warn(ctx, "observable commit notification failed",
				log.String("name", o.name),
				log.Uint64("version", version),
				log.Cause(err))
		}
	}
}

func (o *Observable[T]) invoke(ctx context.Context, sub *subscription[T], payload T, version uint64) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &SubscriberError{
				Observable:   o.name,
				Subscription: sub.id,
				Version:      version,
				Err:          fmt.Errorf("%v", r),
				Panicked:     true,
			}
		}
	}()

	if cbErr := sub.fn(ctx, payload); cbErr != nil {
		return &SubscriberError{
			Observable:   o.name,
			Subscription: sub.id,
			Version:      version,
			Err:          cbErr,
		}
	}

	return nil
}
