package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type page struct {
	Items []string `json:"items"`
	Total int      `json:"total"`
}

func TestMemoryCache_GetSet(t *testing.T) {
	c := NewMemoryCache(time.Minute)
	ctx := context.Background()

	var got page
	hit, err := c.Get(ctx, ScopePublicListings, "p1", &got)
	require.NoError(t, err)
	assert.False(t, hit)

	require.NoError(t, c.Set(ctx, ScopePublicListings, "p1", page{Items: []string{"a"}, Total: 1}))
	hit, err = c.Get(ctx, ScopePublicListings, "p1", &got)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, page{Items: []string{"a"}, Total: 1}, got)
}

func TestMemoryCache_Expiration(t *testing.T) {
	c := NewMemoryCache(time.Minute)
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	require.NoError(t, c.Set(ctx, ScopeAdminListings, "dash", page{Total: 3}))

	now = now.Add(2 * time.Minute)
	var got page
	hit, err := c.Get(ctx, ScopeAdminListings, "dash", &got)
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestMemoryCache_Invalidate(t *testing.T) {
	c := NewMemoryCache(0)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, ScopePublicListings, "p1", page{Total: 1}))
	require.NoError(t, c.Set(ctx, ScopePublicListings, "p2", page{Total: 2}))
	require.NoError(t, c.Set(ctx, ScopeAdminListings, "dash", page{Total: 3}))

	require.NoError(t, c.Invalidate(ctx, ScopePublicListings))

	var got page
	for _, key := range []string{"p1", "p2"} {
		hit, _ := c.Get(ctx, ScopePublicListings, key, &got)
		assert.False(t, hit, key)
	}
	hit, _ := c.Get(ctx, ScopeAdminListings, "dash", &got)
	assert.True(t, hit)
}

func TestMemoryCache_NotCacheable(t *testing.T) {
	c := NewMemoryCache(time.Minute)
	err := c.Set(context.Background(), ScopePublicListings, "bad", make(chan int))
	assert.ErrorIs(t, err, ErrNotCacheable)
}

func TestMemoryCache_SetAtGeneration(t *testing.T) {
	c := NewMemoryCache(time.Minute)
	ctx := context.Background()

	gen, err := c.Generation(ctx, ScopePublicListings)
	require.NoError(t, err)
	assert.Equal(t, int64(0), gen)

	t.Run("当前代写入可读", func(t *testing.T) {
		require.NoError(t, c.SetAt(ctx, ScopePublicListings, "p1", gen, page{Total: 1}))
		var got page
		hit, err := c.Get(ctx, ScopePublicListings, "p1", &got)
		require.NoError(t, err)
		assert.True(t, hit)
	})

	require.NoError(t, c.Invalidate(ctx, ScopePublicListings))
	next, err := c.Generation(ctx, ScopePublicListings)
	require.NoError(t, err)
	assert.Equal(t, gen+1, next)

	t.Run("旧代写入被丢弃", func(t *testing.T) {
		require.NoError(t, c.SetAt(ctx, ScopePublicListings, "p1", gen, page{Total: 1}))
		var got page
		hit, err := c.Get(ctx, ScopePublicListings, "p1", &got)
		require.NoError(t, err)
		assert.False(t, hit)
	})

	t.Run("其他作用域代数不变", func(t *testing.T) {
		adminGen, err := c.Generation(ctx, ScopeAdminListings)
		require.NoError(t, err)
		assert.Equal(t, int64(0), adminGen)
	})
}

func TestMemoryCache_StaleGenerationEntryHidden(t *testing.T) {
	c := NewMemoryCache(time.Minute)
	ctx := context.Background()

	// 模拟检查代数之后、写入之前发生失效
	c.items.Store(memoryKey(ScopePublicListings, "p1"), &memoryItem{data: []byte(`{"total":1}`), gen: 0, expiration: time.Now().Add(time.Minute)})
	c.mu.Lock()
	c.gens[ScopePublicListings] = 1
	c.mu.Unlock()

	var got page
	hit, err := c.Get(ctx, ScopePublicListings, "p1", &got)
	require.NoError(t, err)
	assert.False(t, hit)
}
