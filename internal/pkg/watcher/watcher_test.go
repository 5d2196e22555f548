package watcher

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/looplj/shellstate/internal/pkg/xredis"
)

type commitSignal struct {
	Name    string `json:"name"`
	Version uint64 `json:"version"`
}

func TestMemoryWatcher_BroadcastAndUnsubscribe(t *testing.T) {
	w := NewMemoryWatcher[int](MemoryWatcherOptions{Buffer: 1})

	ch1, stop1 := w.Watch()

	require.NoError(t, w.Notify(context.Background(), 42))

	select {
	case v := <-ch1:
		require.Equal(t, 42, v)
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for ch1")
	}

	stop1()
	stop1()

	select {
	case _, ok := <-ch1:
		require.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for ch1 close")
	}

	require.Equal(t, 0, w.Subscribers())
}

func TestMemoryWatcher_DropsWhenFull(t *testing.T) {
	w := NewMemoryWatcher[int](MemoryWatcherOptions{Buffer: 1})

	_, stop := w.Watch()
	defer stop()

	require.NoError(t, w.Notify(context.Background(), 1))
	require.NoError(t, w.Notify(context.Background(), 2))
	require.Equal(t, uint64(1), w.Dropped())
}

func TestForward(t *testing.T) {
	w := NewMemoryWatcher[commitSignal](MemoryWatcherOptions{Buffer: 4})

	var got atomic.Uint64

	stop := Forward(context.Background(), w, func(s commitSignal) {
		got.Store(s.Version)
	})

	require.NoError(t, w.Notify(context.Background(), commitSignal{Name: "wishlist", Version: 3}))
	require.Eventually(t, func() bool { return got.Load() == 3 }, time.Second, 10*time.Millisecond)

	stop()
	stop()
	require.Equal(t, 0, w.Subscribers())
}

func newRedisPair(t *testing.T, opts RedisWatcherOptions) (*redis.Client, *RedisWatcher[commitSignal], *RedisWatcher[commitSignal]) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	t.Cleanup(func() { _ = client.Close() })

	a, err := NewRedisWatcher[commitSignal](client, opts)
	require.NoError(t, err)
	b, err := NewRedisWatcher[commitSignal](client, opts)
	require.NoError(t, err)

	require.NotEqual(t, a.Origin(), b.Origin())

	return client, a, b
}

func receive(t *testing.T, ch <-chan commitSignal) commitSignal {
	t.Helper()

	select {
	case v := <-ch:
		return v
	case <-time.After(time.Second):
	}

	t.Fatal("timeout waiting for commit event")

	return commitSignal{}
}

func TestRedisWatcher_BroadcastAcrossInstances(t *testing.T) {
	ctx := context.Background()
	_, a, b := newRedisPair(t, RedisWatcherOptions{Channel: "shellstate:commits", Buffer: 4})

	chA, stopA := a.Watch()
	chB, stopB := b.Watch()

	defer stopA()
	defer stopB()

	require.NoError(t, a.Notify(ctx, commitSignal{Name: "wishlist:u1", Version: 7}))

	require.Equal(t, uint64(7), receive(t, chA).Version)
	require.Equal(t, "wishlist:u1", receive(t, chB).Name)
}

func TestRedisWatcher_SkipOwn(t *testing.T) {
	ctx := context.Background()
	_, a, b := newRedisPair(t, RedisWatcherOptions{Channel: "shellstate:commits", Buffer: 4, SkipOwn: true})

	chA, stopA := a.Watch()
	defer stopA()

	require.NoError(t, a.Notify(ctx, commitSignal{Name: "from-a", Version: 1}))
	require.NoError(t, b.Notify(ctx, commitSignal{Name: "from-b", Version: 1}))

	// Published in order on one channel, so an echo of a's own event would arrive first.
	require.Equal(t, "from-b", receive(t, chA).Name)
}

func TestRedisWatcher_DiscardsStaleEvents(t *testing.T) {
	ctx := context.Background()
	client, a, _ := newRedisPair(t, RedisWatcherOptions{Channel: "shellstate:commits", Buffer: 4})

	ch, stop := a.Watch()
	defer stop()

	publish := func(seq uint64, version uint64) {
		raw, err := msgpack.Marshal(envelope[commitSignal]{
			Origin: "replica-2",
			Seq:    seq,
			Value:  commitSignal{Name: "wishlist:u1", Version: version},
		})
		require.NoError(t, err)
		require.NoError(t, client.Publish(ctx, "shellstate:commits", raw).Err())
	}

	publish(2, 20)
	publish(1, 10)
	require.NoError(t, client.Publish(ctx, "shellstate:commits", "not msgpack").Err())
	publish(3, 30)

	require.Equal(t, uint64(20), receive(t, ch).Version)
	require.Equal(t, uint64(30), receive(t, ch).Version)
	require.Equal(t, uint64(1), a.Stale())
}

func TestRedisWatcher_LastStopClosesSubscription(t *testing.T) {
	_, a, _ := newRedisPair(t, RedisWatcherOptions{Channel: "shellstate:commits"})

	ch1, stop1 := a.Watch()
	_, stop2 := a.Watch()
	require.Equal(t, 2, a.Subscribers())

	stop1()
	stop1()

	_, ok := <-ch1
	require.False(t, ok)

	stop2()
	require.Equal(t, 0, a.Subscribers())

	ch3, stop3 := a.Watch()
	defer stop3()

	require.NoError(t, a.Notify(context.Background(), commitSignal{Name: "wishlist:u2", Version: 1}))
	require.Equal(t, "wishlist:u2", receive(t, ch3).Name)
}

func TestNewWatcherFromConfig(t *testing.T) {
	w, err := NewWatcherFromConfig[int](Config{})
	require.NoError(t, err)
	require.IsType(t, &MemoryWatcher[int]{}, w)

	_, err = NewWatcherFromConfig[int](Config{Mode: ModeRedis})
	require.Error(t, err)

	mr := miniredis.RunT(t)

	w, err = NewWatcherFromConfig[int](Config{
		Mode:    ModeRedis,
		Channel: "shellstate:test",
		Redis:   xredis.Config{Addr: mr.Addr()},
	})
	require.NoError(t, err)
	require.NotNil(t, w)
}
