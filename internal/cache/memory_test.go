package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMemoryStoreSetNX(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()

	ok, err := store.SetNX(ctx, "line:event:1", []byte("1"), time.Hour)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = store.SetNX(ctx, "line:event:1", []byte("2"), time.Hour)
	require.NoError(t, err)
	require.False(t, ok)

	val, err := store.Get(ctx, "line:event:1")
	require.NoError(t, err)
	require.Equal(t, []byte("1"), val)
}

func TestMemoryStoreExpiry(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	require.NoError(t, store.Set(ctx, "order:T0101ABCD", []byte("{}"), time.Minute))

	now = now.Add(2 * time.Minute)
	_, err := store.Get(ctx, "order:T0101ABCD")
	require.ErrorIs(t, err, ErrCacheMiss)

	ok, err := store.SetNX(ctx, "order:T0101ABCD", []byte("{}"), time.Minute)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestNoopStoreAlwaysMisses(t *testing.T) {
	ctx := context.Background()
	store := noopStore{}
	require.NoError(t, store.Set(ctx, "k", []byte("v"), 0))
	_, err := store.Get(ctx, "k")
	require.ErrorIs(t, err, ErrCacheMiss)
	ok, err := store.SetNX(ctx, "k", []byte("v"), 0)
	require.NoError(t, err)
	require.True(t, ok)
}
