// Package lru provides a size-bounded gocache store backed by hashicorp/golang-lru.
package lru

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	lib_store "github.com/eko/gocache/lib/v4/store"
	lru "github.com/hashicorp/golang-lru/v2"
)

// LRUType represents the storage type as a string value.
const LRUType = "lru"

var errKeyNotFound = errors.New("value not found in lru store")

// LRUStore keeps at most Size entries and evicts the least recently used one on overflow.
// Expiration options are ignored: entries leave the store only through eviction,
// Delete, Invalidate or Clear.
type LRUStore struct {
	cache *lru.Cache[string, any]

	mu   sync.Mutex
	tags map[string]map[string]struct{}
}

// NewLRUStore creates a store holding at most size entries.
func NewLRUStore(size int) (*LRUStore, error) {
	s := &LRUStore{tags: make(map[string]map[string]struct{})}

	c, err := lru.NewWithEvict(size, func(key string, _ any) {
		s.forget(key)
	})
	if err != nil {
		return nil, fmt.Errorf("lru store: %w", err)
	}

	s.cache = c

	return s, nil
}

func keyString(key any) (string, error) {
	k, ok := key.(string)
	if !ok {
		return "", fmt.Errorf("lru store: expected string key, got %T", key)
	}

	return k, nil
}

func (s *LRUStore) Get(_ context.Context, key any) (any, error) {
	k, err := keyString(key)
	if err != nil {
		return nil, lib_store.NotFoundWithCause(err)
	}

	v, ok := s.cache.Get(k)
	if !ok {
		return nil, lib_store.NotFoundWithCause(errKeyNotFound)
	}

	return v, nil
}

// GetWithTTL returns the value with a zero TTL, meaning no expiration.
func (s *LRUStore) GetWithTTL(ctx context.Context, key any) (any, time.Duration, error) {
	v, err := s.Get(ctx, key)
	return v, 0, err
}

func (s *LRUStore) Set(_ context.Context, key any, value any, options ...lib_store.Option) error {
	k, err := keyString(key)
	if err != nil {
		return err
	}

	s.cache.Add(k, value)

	opts := lib_store.ApplyOptions(options...)
	if len(opts.Tags) > 0 {
		s.mu.Lock()
		for _, tag := range opts.Tags {
			keys, ok := s.tags[tag]
			if !ok {
				keys = make(map[string]struct{})
				s.tags[tag] = keys
			}

			keys[k] = struct{}{}
		}
		s.mu.Unlock()
	}

	return nil
}

func (s *LRUStore) Delete(_ context.Context, key any) error {
	k, err := keyString(key)
	if err != nil {
		return err
	}

	s.cache.Remove(k)

	return nil
}

// Invalidate removes every entry registered under the given tags.
func (s *LRUStore) Invalidate(_ context.Context, options ...lib_store.InvalidateOption) error {
	opts := lib_store.ApplyInvalidateOptions(options...)

	for _, tag := range opts.Tags {
		s.mu.Lock()
		keys := s.tags[tag]
		delete(s.tags, tag)
		s.mu.Unlock()

		for k := range keys {
			s.cache.Remove(k)
		}
	}

	return nil
}

func (s *LRUStore) Clear(_ context.Context) error {
	s.cache.Purge()

	s.mu.Lock()
	s.tags = make(map[string]map[string]struct{})
	s.mu.Unlock()

	return nil
}

func (s *LRUStore) GetType() string {
	return LRUType
}

// Len returns the number of stored entries.
func (s *LRUStore) Len() int {
	return s.cache.Len()
}

// forget drops an evicted key from the tag index.
func (s *LRUStore) forget(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for tag, keys := range s.tags {
		delete(keys, key)

		if len(keys) == 0 {
			delete(s.tags, tag)
		}
	}
}
