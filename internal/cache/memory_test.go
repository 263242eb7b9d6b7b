package cache

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemory_GetPut(t *testing.T) {
	ctx := context.Background()
	c := NewMemory(10, time.Hour)

	_, ok, err := c.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Put(ctx, "k", []byte("payload")))
	data, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("payload"), data)
}

func TestMemory_Eviction(t *testing.T) {
	ctx := context.Background()
	c := NewMemory(3, time.Hour)

	for i := range 3 {
		require.NoError(t, c.Put(ctx, fmt.Sprintf("k%d", i), []byte{byte(i)}))
	}
	// Touch k0 so k1 becomes the oldest.
	_, ok, _ := c.Get(ctx, "k0")
	require.True(t, ok)

	require.NoError(t, c.Put(ctx, "k3", []byte{3}))

	_, ok, _ = c.Get(ctx, "k1")
	assert.False(t, ok, "least recently used entry should be evicted")
	_, ok, _ = c.Get(ctx, "k0")
	assert.True(t, ok)
	_, ok, _ = c.Get(ctx, "k3")
	assert.True(t, ok)
	assert.Equal(t, 3, c.Stats().Entries)
}

func TestMemory_ReplaceDoesNotEvict(t *testing.T) {
	ctx := context.Background()
	c := NewMemory(2, time.Hour)

	require.NoError(t, c.Put(ctx, "a", []byte("1")))
	require.NoError(t, c.Put(ctx, "b", []byte("2")))
	require.NoError(t, c.Put(ctx, "a", []byte("3")))

	data, ok, _ := c.Get(ctx, "a")
	assert.True(t, ok)
	assert.Equal(t, []byte("3"), data)
	_, ok, _ = c.Get(ctx, "b")
	assert.True(t, ok)
}

func TestMemory_TTLExpiry(t *testing.T) {
	ctx := context.Background()
	c := NewMemory(10, time.Minute)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	require.NoError(t, c.Put(ctx, "k", []byte("v")))

	now = now.Add(30 * time.Second)
	_, ok, _ := c.Get(ctx, "k")
	assert.True(t, ok)

	now = now.Add(2 * time.Minute)
	_, ok, _ = c.Get(ctx, "k")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Stats().Entries)
}

func TestMemory_ZeroTTLNeverExpires(t *testing.T) {
	ctx := context.Background()
	c := NewMemory(10, 0)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	require.NoError(t, c.Put(ctx, "k", []byte("v")))
	now = now.Add(1000 * time.Hour)
	_, ok, _ := c.Get(ctx, "k")
	assert.True(t, ok)
}

func TestMemory_ClearAndStats(t *testing.T) {
	ctx := context.Background()
	c := NewMemory(0, 0)
	assert.Equal(t, 128, c.Stats().MaxEntries)

	require.NoError(t, c.Put(ctx, "k", []byte("v")))
	_, _, _ = c.Get(ctx, "k")
	_, _, _ = c.Get(ctx, "nope")

	s := c.Stats()
	assert.Equal(t, int64(1), s.Hits)
	assert.Equal(t, int64(1), s.Misses)
	assert.InDelta(t, 0.5, s.HitRate, 0.001)

	require.NoError(t, c.Clear(ctx))
	_, ok, _ := c.Get(ctx, "k")
	assert.False(t, ok)
	assert.NoError(t, c.Close())
}

func TestKey(t *testing.T) {
	a := Key("https://example.org/lga.geojson", "name")
	b := Key(" https://example.org/lga.geojson ", "name")
	c := Key("https://example.org/lga.geojson", "lga_code")

	assert.Len(t, a, 64)
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}
