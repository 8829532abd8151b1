package cache_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agenticmem/agenticmem-go/pkg/cache"
)

func TestMemoryCacheSetGet(t *testing.T) {
	c := cache.NewMemoryCache(time.Minute)
	defer c.Close()
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", []byte("v"), 0))
	value, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), value)
}

func TestMemoryCacheMiss(t *testing.T) {
	c := cache.NewMemoryCache(time.Minute)
	defer c.Close()

	_, err := c.Get(context.Background(), "absent")
	assert.ErrorIs(t, err, cache.ErrMiss)
}

func TestMemoryCacheExpiry(t *testing.T) {
	c := cache.NewMemoryCache(time.Minute)
	defer c.Close()
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", []byte("v"), 10*time.Millisecond))
	time.Sleep(30 * time.Millisecond)

	_, err := c.Get(ctx, "k")
	assert.ErrorIs(t, err, cache.ErrMiss, "expired entries must read as misses")
}

func TestMemoryCacheDelete(t *testing.T) {
	c := cache.NewMemoryCache(time.Minute)
	defer c.Close()
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", []byte("v"), 0))
	require.NoError(t, c.Delete(ctx, "k"))

	_, err := c.Get(ctx, "k")
	assert.ErrorIs(t, err, cache.ErrMiss)
}

func TestMemoryCacheDeletePrefix(t *testing.T) {
	c := cache.NewMemoryCache(time.Minute)
	defer c.Close()
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "search:alice:1", []byte("a"), 0))
	require.NoError(t, c.Set(ctx, "search:alice:2", []byte("b"), 0))
	require.NoError(t, c.Set(ctx, "search:bob:1", []byte("c"), 0))

	require.NoError(t, c.DeletePrefix(ctx, "search:alice:"))

	_, err := c.Get(ctx, "search:alice:1")
	assert.ErrorIs(t, err, cache.ErrMiss)
	_, err = c.Get(ctx, "search:alice:2")
	assert.ErrorIs(t, err, cache.ErrMiss)

	value, err := c.Get(ctx, "search:bob:1")
	require.NoError(t, err, "other users' entries must survive")
	assert.Equal(t, []byte("c"), value)
}
