package task

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"boards_catalog_v1/internal/cache"
	"boards_catalog_v1/internal/repository"
	"boards_catalog_v1/internal/service"
)

// ==================== 测试替身 ====================

type fakeWarmer struct {
	pageCalls int32
	dashCalls int32
	lastQuery repository.ListingQuery
	pageErr   error
	block     chan struct{}
	mu        sync.Mutex
}

func (w *fakeWarmer) GetListingsPage(ctx context.Context, q repository.ListingQuery) (*repository.ListingPage, error) {
	atomic.AddInt32(&w.pageCalls, 1)
	w.mu.Lock()
	w.lastQuery = q
	w.mu.Unlock()
	if w.block != nil {
		<-w.block
	}
	if w.pageErr != nil {
		return nil, w.pageErr
	}
	return &repository.ListingPage{}, nil
}

func (w *fakeWarmer) GetDashboard(ctx context.Context) (*service.Dashboard, error) {
	atomic.AddInt32(&w.dashCalls, 1)
	return &service.Dashboard{}, nil
}

// ==================== CacheWarmTask ====================

func TestCacheWarmTask_RefreshNow(t *testing.T) {
	ctx := context.Background()
	viewCache := cache.NewMemoryCache(time.Minute)
	require.NoError(t, viewCache.Set(ctx, cache.ScopePublicListings, "stale", "x"))
	require.NoError(t, viewCache.Set(ctx, cache.ScopeAdminListings, "dashboard", "y"))

	warmer := &fakeWarmer{}
	task := NewCacheWarmTask(viewCache, warmer, zap.NewNop(), "")
	assert.Equal(t, DefaultWarmSpec, task.spec)

	require.NoError(t, task.RefreshNow(ctx))
	assert.Equal(t, int32(1), atomic.LoadInt32(&warmer.pageCalls))
	assert.Equal(t, int32(1), atomic.LoadInt32(&warmer.dashCalls))
	assert.Equal(t, repository.ListingQuery{}, warmer.lastQuery)

	var v string
	hit, err := viewCache.Get(ctx, cache.ScopePublicListings, "stale", &v)
	require.NoError(t, err)
	assert.False(t, hit, "刷新后旧缓存应失效")
	hit, err = viewCache.Get(ctx, cache.ScopeAdminListings, "dashboard", &v)
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestCacheWarmTask_Errors(t *testing.T) {
	t.Run("列表失败时不查询仪表盘", func(t *testing.T) {
		warmer := &fakeWarmer{pageErr: errors.New("db down")}
		task := NewCacheWarmTask(cache.NewMemoryCache(time.Minute), warmer, zap.NewNop(), "")

		err := task.RefreshNow(context.Background())
		assert.EqualError(t, err, "db down")
		assert.Equal(t, int32(0), atomic.LoadInt32(&warmer.dashCalls))
	})

	t.Run("并发触发返回ErrWarmRunning", func(t *testing.T) {
		warmer := &fakeWarmer{block: make(chan struct{})}
		task := NewCacheWarmTask(cache.NewMemoryCache(time.Minute), warmer, zap.NewNop(), "")

		done := make(chan error, 1)
		go func() { done <- task.RefreshNow(context.Background()) }()

		require.Eventually(t, func() bool {
			return atomic.LoadInt32(&warmer.pageCalls) == 1
		}, time.Second, 5*time.Millisecond)

		assert.ErrorIs(t, task.RefreshNow(context.Background()), ErrWarmRunning)

		close(warmer.block)
		assert.NoError(t, <-done)
	})

	t.Run("非法cron表达式", func(t *testing.T) {
		task := NewCacheWarmTask(cache.NewMemoryCache(time.Minute), &fakeWarmer{}, zap.NewNop(), "not a spec")
		assert.Error(t, task.Start())
	})
}

func TestCacheWarmTask_StartStop(t *testing.T) {
	warmer := &fakeWarmer{}
	task := NewCacheWarmTask(cache.NewMemoryCache(time.Minute), warmer, zap.NewNop(), "@every 1h")

	require.NoError(t, task.Start())
	// 启动时异步执行一次
	require.Eventually(t, func() bool {
		return atomic.LoadInt32(&warmer.dashCalls) == 1
	}, time.Second, 5*time.Millisecond)
	task.Stop()
}

// ==================== TaskManager ====================

func TestTaskManager(t *testing.T) {
	t.Run("禁用时手动触发返回ErrTaskDisabled", func(t *testing.T) {
		tm := NewTaskManager(&TaskManagerDeps{}, &TaskManagerConfig{CacheWarmEnabled: false})
		assert.Equal(t, map[string]bool{"cache_warm": false}, tm.Status())
		assert.ErrorIs(t, tm.TriggerCacheRefresh(context.Background()), ErrTaskDisabled)
		require.NoError(t, tm.Start())
		tm.Stop()
	})

	t.Run("启用时手动触发执行预热", func(t *testing.T) {
		warmer := &fakeWarmer{}
		tm := NewTaskManager(&TaskManagerDeps{
			Cache:  cache.NewMemoryCache(time.Minute),
			Warmer: warmer,
		}, nil)
		assert.True(t, tm.Status()["cache_warm"])
		require.NoError(t, tm.TriggerCacheRefresh(context.Background()))
		assert.Equal(t, int32(1), atomic.LoadInt32(&warmer.pageCalls))
	})
}
