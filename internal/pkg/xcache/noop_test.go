package xcache

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNoopCache(t *testing.T) {
	ctx := context.Background()
	cache := NewNoop[wishlistEntry]()

	require.NoError(t, cache.Set(ctx, "wishlist:u1", wishlistEntry{Items: []string{"sf-1001"}}))
	require.NoError(t, cache.Set(ctx, "wishlist:u2", wishlistEntry{}))

	_, err := cache.Get(ctx, "wishlist:u1")
	assert.True(t, IsNotFound(err))
	assert.ErrorIs(t, err, ErrCacheNotConfigured)
	assert.Equal(t, int64(2), cache.Dropped())

	assert.NoError(t, cache.Delete(ctx, "wishlist:u1"))
	assert.NoError(t, cache.Invalidate(ctx))
	assert.NoError(t, cache.Clear(ctx))
	assert.Equal(t, ModeNone, cache.GetType())
}
