package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryClientSetGet(t *testing.T) {
	c := NewMemoryClient(10)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", []byte("v"), time.Minute))

	got, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), got)
}

func TestMemoryClientMiss(t *testing.T) {
	c := NewMemoryClient(10)

	_, err := c.Get(context.Background(), "absent")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestMemoryClientExpiry(t *testing.T) {
	c := NewMemoryClient(10)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", []byte("v"), -time.Second))

	_, err := c.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestMemoryClientDeleteByPrefix(t *testing.T) {
	c := NewMemoryClient(10)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, PassportKey("p-1"), []byte("a"), time.Minute))
	require.NoError(t, c.Set(ctx, ComplianceKey("p-1"), []byte("b"), time.Minute))
	require.NoError(t, c.Set(ctx, PassportKey("p-2"), []byte("c"), time.Minute))

	require.NoError(t, c.DeleteByPrefix(ctx, ProductPrefix("p-1")))

	_, err := c.Get(ctx, PassportKey("p-1"))
	assert.ErrorIs(t, err, ErrCacheMiss)
	_, err = c.Get(ctx, ComplianceKey("p-1"))
	assert.ErrorIs(t, err, ErrCacheMiss)

	got, err := c.Get(ctx, PassportKey("p-2"))
	require.NoError(t, err)
	assert.Equal(t, []byte("c"), got)
}

func TestMemoryClientEviction(t *testing.T) {
	c := NewMemoryClient(2)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "a", []byte("1"), time.Minute))
	require.NoError(t, c.Set(ctx, "b", []byte("2"), 2*time.Minute))
	require.NoError(t, c.Set(ctx, "c", []byte("3"), 3*time.Minute))

	// "a" had the earliest expiry and gets evicted.
	_, err := c.Get(ctx, "a")
	assert.ErrorIs(t, err, ErrCacheMiss)

	_, err = c.Get(ctx, "b")
	assert.NoError(t, err)
}

func TestMemoryClientCloseStopsCleanup(t *testing.T) {
	c := NewMemoryClient(10)

	require.NoError(t, c.Close())
	require.NoError(t, c.Close())

	select {
	case <-c.done:
	default:
		t.Fatal("close did not release the cleanup goroutine")
	}
}

func TestKeyHelpers(t *testing.T) {
	assert.Equal(t, "p:p-1:passport", PassportKey("p-1"))
	assert.Equal(t, "p:p-1:compliance", ComplianceKey("p-1"))
	assert.Equal(t, "p:p-1:insights", InsightKey("p-1"))
	assert.Equal(t, "p:p-1:", ProductPrefix("p-1"))
}
