package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryClient_SetGet(t *testing.T) {
	c := NewMemoryClient(10)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k1", []byte("v1"), time.Minute))

	val, err := c.Get(ctx, "k1")
	require.NoError(t, err)
	assert.Equal(t, []byte("v1"), val)
}

func TestMemoryClient_Miss(t *testing.T) {
	c := NewMemoryClient(10)

	_, err := c.Get(context.Background(), "absent")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestMemoryClient_Expiry(t *testing.T) {
	c := NewMemoryClient(10)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k1", []byte("v1"), -time.Second))

	_, err := c.Get(ctx, "k1")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestMemoryClient_Delete(t *testing.T) {
	c := NewMemoryClient(10)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k1", []byte("v1"), time.Minute))
	require.NoError(t, c.Delete(ctx, "k1"))

	_, err := c.Get(ctx, "k1")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestMemoryClient_DeleteByPrefix(t *testing.T) {
	c := NewMemoryClient(10)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "run:1", []byte("a"), time.Minute))
	require.NoError(t, c.Set(ctx, "run:2", []byte("b"), time.Minute))
	require.NoError(t, c.Set(ctx, "other", []byte("c"), time.Minute))

	require.NoError(t, c.DeleteByPrefix(ctx, "run:"))

	_, err := c.Get(ctx, "run:1")
	assert.ErrorIs(t, err, ErrCacheMiss)
	_, err = c.Get(ctx, "run:2")
	assert.ErrorIs(t, err, ErrCacheMiss)

	val, err := c.Get(ctx, "other")
	require.NoError(t, err)
	assert.Equal(t, []byte("c"), val)
}

func TestMemoryClient_Eviction(t *testing.T) {
	c := NewMemoryClient(2)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "old", []byte("a"), time.Minute))
	require.NoError(t, c.Set(ctx, "new", []byte("b"), time.Hour))
	require.NoError(t, c.Set(ctx, "newer", []byte("c"), time.Hour))

	_, err := c.Get(ctx, "old")
	assert.ErrorIs(t, err, ErrCacheMiss)

	val, err := c.Get(ctx, "newer")
	require.NoError(t, err)
	assert.Equal(t, []byte("c"), val)
}
