package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	lib_store "github.com/eko/gocache/lib/v4/store"
	redis "github.com/redis/go-redis/v9"
)

//go:generate go tool mockgen -source=redis.go -destination=mock_client_test.go -package=redis RedisClientInterface

// RedisClientInterface represents a go-redis/redis client.
type RedisClientInterface interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	TTL(ctx context.Context, key string) *redis.DurationCmd
	Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd
	Set(ctx context.Context, key string, values any, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
	FlushAll(ctx context.Context) *redis.StatusCmd
	SAdd(ctx context.Context, key string, members ...any) *redis.IntCmd
	SMembers(ctx context.Context, key string) *redis.StringSliceCmd
}

const (
	// RedisType represents the storage type as a string value.
	RedisType = "redis"
	// RedisTagPattern represents the tag pattern to be used as a key in specified storage.
	RedisTagPattern = "gocache_tag_%s"

	defaultTagsTTL = 720 * time.Hour
)

// RedisStore stores JSON-encoded values of type T.
type RedisStore[T any] struct {
	client  RedisClientInterface
	options *lib_store.Options
}

// NewRedisStore creates a new generic store.
func NewRedisStore[T any](client RedisClientInterface, options ...lib_store.Option) *RedisStore[T] {
	return &RedisStore[T]{
		client:  client,
		options: lib_store.ApplyOptions(options...),
	}
}

func stringKey(key any) (string, error) {
	s, ok := key.(string)
	if !ok {
		return "", fmt.Errorf("redis store: expected string key, got %T", key)
	}

	return s, nil
}

// Get returns the decoded value stored under key.
func (s *RedisStore[T]) Get(ctx context.Context, key any) (any, error) {
	var result T

	k, err := stringKey(key)
	if err != nil {
		return result, lib_store.NotFoundWithCause(err)
	}

	object, err := s.client.Get(ctx, k).Result()
	if errors.Is(err, redis.Nil) {
		return result, lib_store.NotFoundWithCause(err)
	}

	if err != nil {
		return result, err
	}

	if err := json.Unmarshal([]byte(object), &result); err != nil {
		var zero T
		return zero, fmt.Errorf("redis store: decode %q: %w", k, err)
	}

	return result, nil
}

// GetWithTTL returns the decoded value stored under key and its remaining TTL.
func (s *RedisStore[T]) GetWithTTL(ctx context.Context, key any) (any, time.Duration, error) {
	value, err := s.Get(ctx, key)
	if err != nil {
		return value, 0, err
	}

	//nolint:forcetypeassert // Get already validated the key.
	ttl, err := s.client.TTL(ctx, key.(string)).Result()
	if err != nil {
		var zero T
		return zero, 0, err
	}

	return value, ttl, nil
}

// Set stores value under key as JSON.
func (s *RedisStore[T]) Set(ctx context.Context, key any, value any, options ...lib_store.Option) error {
	k, err := stringKey(key)
	if err != nil {
		return err
	}

	opts := lib_store.ApplyOptionsWithDefault(s.options, options...)

	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}

	if err := s.client.Set(ctx, k, string(raw), opts.Expiration).Err(); err != nil {
		return err
	}

	if tags := opts.Tags; len(tags) > 0 {
		ttl := opts.TagsTTL
		if ttl == 0 {
			ttl = defaultTagsTTL
		}

		for _, tag := range tags {
			tagKey := fmt.Sprintf(RedisTagPattern, tag)
			s.client.SAdd(ctx, tagKey, k)
			s.client.Expire(ctx, tagKey, ttl)
		}
	}

	return nil
}

// Delete removes the value stored under key.
func (s *RedisStore[T]) Delete(ctx context.Context, key any) error {
	k, err := stringKey(key)
	if err != nil {
		return err
	}

	return s.client.Del(ctx, k).Err()
}

// GetType returns the store type.
func (s *RedisStore[T]) GetType() string {
	return RedisType
}

// Clear resets all data in the redis database.
func (s *RedisStore[T]) Clear(ctx context.Context) error {
	return s.client.FlushAll(ctx).Err()
}

// Invalidate deletes every key registered under the given tags.
func (s *RedisStore[T]) Invalidate(ctx context.Context, options ...lib_store.InvalidateOption) error {
	opts := lib_store.ApplyInvalidateOptions(options...)

	for _, tag := range opts.Tags {
		tagKey := fmt.Sprintf(RedisTagPattern, tag)

		keys, err := s.client.SMembers(ctx, tagKey).Result()
		if err != nil {
			return err
		}

		if err := s.client.Del(ctx, append(keys, tagKey)...).Err(); err != nil {
			return err
		}
	}

	return nil
}
