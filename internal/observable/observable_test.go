package observable

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/multierr"

	"github.com/looplj/shellstate/internal/metrics"
	"github.com/looplj/shellstate/internal/pkg/watcher"
	"github.com/looplj/shellstate/internal/pkg/xtest"
)

type recordingReporter struct {
	mu   sync.Mutex
	errs []error
}

func (r *recordingReporter) ReportError(_ context.Context, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.errs = append(r.errs, err)
}

func (r *recordingReporter) all() []error {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]error(nil), r.errs...)
}

func TestNewMap_EmptyPayload(t *testing.T) {
	obs := NewMap()

	require.NotNil(t, obs.Data())
	assert.Empty(t, obs.Data())
	assert.False(t, obs.IsUpdating())
	assert.Equal(t, uint64(0), obs.Version())
	assert.Equal(t, "observable", obs.Name())
}

func TestSubscribe_NotCalledUntilCommit(t *testing.T) {
	ctx := context.Background()
	obs := New(1)

	calls := 0
	obs.Subscribe(func(context.Context, int) error {
		calls++
		return nil
	})

	obs.BeginUpdate()
	assert.True(t, obs.IsUpdating())
	obs.Set(2)
	obs.Update(func(v int) int { return v * 10 })
	assert.Equal(t, 0, calls)

	obs.Commit(ctx)
	assert.False(t, obs.IsUpdating())
	assert.Equal(t, 1, calls)
	assert.Equal(t, 20, obs.Data())
	assert.Equal(t, uint64(1), obs.Version())
}

func TestCommit_RegistrationOrder(t *testing.T) {
	obs := New("payload")

	var order []int
	for i := range 4 {
		obs.Subscribe(func(_ context.Context, p string) error {
			assert.Equal(t, "payload", p)
			order = append(order, i)

			return nil
		})
	}

	obs.Commit(context.Background())
	assert.Equal(t, []int{0, 1, 2, 3}, order)
}

func TestUnsubscribe_NeverCalledAgain(t *testing.T) {
	ctx := context.Background()
	obs := New(0)

	calls := 0
	h := obs.Subscribe(func(context.Context, int) error {
		calls++
		return nil
	})
	require.True(t, h.Valid())

	obs.Commit(ctx)
	h.Unsubscribe()
	obs.Commit(ctx)
	obs.Commit(ctx)

	assert.Equal(t, 1, calls)
	assert.Equal(t, 0, obs.Len())

	// Releasing twice, or releasing a zero handle, is a no-op.
	h.Unsubscribe()
	obs.Unsubscribe(h)
	obs.Unsubscribe(Handle{})
	Handle{}.Unsubscribe()
}

func TestUnsubscribe_ForeignHandleIgnored(t *testing.T) {
	a := New(0)
	b := New(0)

	a.Subscribe(func(context.Context, int) error { return nil })
	hb := b.Subscribe(func(context.Context, int) error { return nil })

	a.Unsubscribe(hb)
	assert.Equal(t, 1, a.Len())
	assert.Equal(t, 1, b.Len())
}

func TestCommit_UnsubscribeDuringCommit(t *testing.T) {
	obs := New(0)

	var (
		second     Handle
		secondRuns int
	)

	obs.Subscribe(func(context.Context, int) error {
		second.Unsubscribe()
		return nil
	})
	second = obs.Subscribe(func(context.Context, int) error {
		secondRuns++
		return nil
	})

	obs.Commit(context.Background())
	obs.Commit(context.Background())

	assert.Equal(t, 0, secondRuns)
}

func TestCommit_SubscribeDuringCommitDeferred(t *testing.T) {
	ctx := context.Background()
	obs := New(0)

	lateRuns := 0
	added := false

	obs.Subscribe(func(context.Context, int) error {
		if !added {
			added = true

			obs.Subscribe(func(context.Context, int) error {
				lateRuns++
				return nil
			})
		}

		return nil
	})

	obs.Commit(ctx)
	assert.Equal(t, 0, lateRuns)

	obs.Commit(ctx)
	assert.Equal(t, 1, lateRuns)
}

func TestCommit_FailingSubscribersIsolated(t *testing.T) {
	reporter := &recordingReporter{}
	obs := New(7, WithName("isolated"), WithErrorReporter(reporter))

	boom := errors.New("boom")

	var got []int
	obs.Subscribe(func(_ context.Context, v int) error {
		got = append(got, v)
		return nil
	})
	obs.Subscribe(func(context.Context, int) error {
		return boom
	})
	obs.Subscribe(func(context.Context, int) error {
		panic("subscriber exploded")
	})
	obs.Subscribe(func(_ context.Context, v int) error {
		got = append(got, v*2)
		return nil
	})

	require.NotPanics(t, func() { obs.Commit(context.Background()) })
	assert.Equal(t, []int{7, 14}, got)

	reported := reporter.all()
	require.Len(t, reported, 1)

	failures := multierr.Errors(reported[0])
	require.Len(t, failures, 2)
	require.ErrorIs(t, failures[0], boom)

	var subErr *SubscriberError
	require.ErrorAs(t, failures[1], &subErr)
	assert.True(t, subErr.Panicked)
	assert.Equal(t, "isolated", subErr.Observable)
	assert.Equal(t, uint64(1), subErr.Version)
	assert.Contains(t, subErr.Error(), "subscriber exploded")

	history := obs.History()
	require.Len(t, history, 1)
	assert.Equal(t, 2, history[0].Delivered)
	assert.Equal(t, 2, history[0].Failed)
}

func TestCommit_Idempotent(t *testing.T) {
	ctx := context.Background()
	obs := New(map[string]any{"count": 3})

	var seen []any
	obs.Subscribe(func(_ context.Context, p map[string]any) error {
		seen = append(seen, p["count"])
		return nil
	})

	obs.Commit(ctx)
	obs.Commit(ctx)

	assert.Equal(t, []any{3, 3}, seen)
	assert.Equal(t, uint64(2), obs.Version())
}

func TestSubscribe_NilPanics(t *testing.T) {
	obs := New(0)

	assert.PanicsWithValue(t, "observable.Subscribe: subscriber must not be nil", func() {
		obs.Subscribe(nil)
	})
}

func TestHistory_Bounded(t *testing.T) {
	ctx := context.Background()
	obs := New(0, WithName("hist"), WithHistorySize(3))

	for range 5 {
		obs.Commit(ctx)
	}

	history := obs.History()
	require.Len(t, history, 3)
	assert.Equal(t, uint64(3), history[0].Version)
	assert.Equal(t, uint64(5), history[2].Version)
	assert.Equal(t, "hist", history[2].Name)
	assert.False(t, history[2].CommittedAt.IsZero())
}

func TestCommit_PublishesEvent(t *testing.T) {
	ctx := context.Background()
	notifier := watcher.NewMemoryWatcher[CommitEvent](watcher.MemoryWatcherOptions{Buffer: 4})

	events, cancel := notifier.Watch()
	defer cancel()

	obs := New("x", WithName("wishlist"), WithNotifier(notifier))
	obs.Commit(ctx)

	select {
	case ev := <-events:
		assert.Equal(t, "wishlist", ev.Name)
		assert.Equal(t, uint64(1), ev.Version)
	case <-time.After(time.Second):
		t.Fatal("commit event not published")
	}
}

func TestCommit_Metrics(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	obs := New(0,
		WithMetrics(metrics.NewInstruments(provider)),
		WithErrorReporter(ErrorReporterFunc(func(context.Context, error) {})),
	)
	obs.Subscribe(func(context.Context, int) error { return errors.New("nope") })

	obs.Commit(context.Background())
	obs.Commit(context.Background())

	assert.Equal(t, int64(2), xtest.CounterValue(t, reader, "observable.commits"))
	assert.Equal(t, int64(2), xtest.CounterValue(t, reader, "observable.subscriber_failures"))
}

func TestSubscribe_ConcurrentWithCommit(t *testing.T) {
	ctx := context.Background()
	obs := New(0)

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)

		go func() {
			defer wg.Done()

			for range 50 {
				h := obs.Subscribe(func(context.Context, int) error { return nil })
				h.Unsubscribe()
			}
		}()
	}

	for range 50 {
		obs.Commit(ctx)
	}

	wg.Wait()
	assert.Equal(t, 0, obs.Len())
}
