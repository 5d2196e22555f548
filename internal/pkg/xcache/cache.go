package xcache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/eko/gocache/lib/v4/store"

	cachelib "github.com/eko/gocache/lib/v4/cache"
	gocache_store "github.com/eko/gocache/store/go_cache/v4"
	gocache "github.com/patrickmn/go-cache"
	redis "github.com/redis/go-redis/v9"

	"github.com/looplj/shellstate/internal/log"
	lru_store "github.com/looplj/shellstate/internal/pkg/xcache/lru"
	redis_store "github.com/looplj/shellstate/internal/pkg/xcache/redis"
	"github.com/looplj/shellstate/internal/pkg/xredis"
)

// Cache is an alias to the gocache CacheInterface for convenience.
// It allows you to depend on xcache while still exposing the common methods:
//   - Get(ctx, key) (T, error)
//   - Set(ctx, key, value, options ...Option) error
//   - Delete(ctx, key) error
//   - Invalidate(ctx, options ...store.InvalidateOption) error
//   - Clear(ctx) error
//   - GetType() string
//
// See: github.com/eko/gocache/lib/v4/cache
type Cache[T any] = cachelib.CacheInterface[T]

type SetterCache[T any] = cachelib.SetterCacheInterface[T]

// NewMemory creates an in-memory cache backed by patrickmn/go-cache.
func NewMemory[T any](client *gocache.Cache, options ...Option) SetterCache[T] {
	return cachelib.New[T](gocache_store.NewGoCache(client, options...))
}

// NewMemoryWithOptions builds the go-cache client with the given default expiration
// and cleanup interval. A non-positive expiration means entries never expire.
func NewMemoryWithOptions[T any](defaultExpiration, cleanupInterval time.Duration, options ...Option) SetterCache[T] {
	if defaultExpiration <= 0 {
		defaultExpiration = gocache.NoExpiration
	}

	return NewMemory[T](gocache.New(defaultExpiration, cleanupInterval), options...)
}

// NewLRU creates a size-bounded in-memory cache.
func NewLRU[T any](size int) (SetterCache[T], error) {
	s, err := lru_store.NewLRUStore(size)
	if err != nil {
		return nil, err
	}

	return cachelib.New[T](s), nil
}

// NewRedis creates a Redis cache using github.com/redis/go-redis/v9 as the client.
func NewRedis[T any](client *redis.Client, options ...Option) SetterCache[T] {
	return cachelib.New[T](redis_store.NewRedisStore[T](client, options...))
}

// NewRedisWithOptions builds a redis.Client for you and returns the cache.
func NewRedisWithOptions[T any](opts *redis.Options, options ...Option) SetterCache[T] {
	return NewRedis[T](redis.NewClient(opts), options...)
}

// NewTwoLevel constructs a 2-level cache: memory first, then Redis.
func NewTwoLevel[T any](memory SetterCache[T], redis SetterCache[T]) Cache[T] {
	return cachelib.NewChain[T](memory, redis)
}

// NewFromConfig builds a typed cache from the given Config.
// An empty mode or ModeNone returns a NoopCache.
func NewFromConfig[T any](cfg Config) (Cache[T], error) {
	ctx := context.Background()

	switch cfg.Mode {
	case "", ModeNone:
		log.Debug(ctx, "cache disabled")
		return NewNoop[T](), nil
	case ModeMemory:
		log.Debug(ctx, "using memory cache")
		return newMemoryFromConfig[T](cfg.Memory), nil
	case ModeLRU:
		log.Debug(ctx, "using lru cache", log.Int("size", cfg.LRU.Size))
		return NewLRU[T](cfg.LRU.Size)
	case ModeRedis, ModeTwoLevel:
		rds, err := newRedisFromConfig[T](cfg.Redis)
		if err != nil {
			return nil, err
		}

		if cfg.Mode == ModeRedis {
			log.Debug(ctx, "using redis cache")
			return rds, nil
		}

		log.Debug(ctx, "using two-level cache")

		return NewTwoLevel[T](newMemoryFromConfig[T](cfg.Memory), rds), nil
	default:
		return nil, fmt.Errorf("unsupported cache mode: %s", cfg.Mode)
	}
}

func newMemoryFromConfig[T any](cfg MemoryConfig) SetterCache[T] {
	return NewMemoryWithOptions[T](cfg.Expiration, cfg.CleanupInterval, store.WithExpiration(cfg.Expiration))
}

func newRedisFromConfig[T any](cfg xredis.Config) (SetterCache[T], error) {
	if cfg.Addr == "" && cfg.URL == "" {
		return nil, errors.New("redis cache requires redis.addr or redis.url")
	}

	client, err := xredis.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("connect redis cache: %w", err)
	}

	return NewRedis[T](client, store.WithExpiration(cfg.Expiration)), nil
}

// IsNotFound reports whether err is a cache miss from any backend.
func IsNotFound(err error) bool {
	var nf *store.NotFound
	return errors.As(err, &nf)
}
