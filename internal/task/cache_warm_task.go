package task

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"boards_catalog_v1/internal/cache"
	"boards_catalog_v1/internal/repository"
	"boards_catalog_v1/internal/service"
)

// DefaultWarmSpec 默认每 5 分钟预热一次（秒级 cron 表达式）
const DefaultWarmSpec = "0 */5 * * * *"

// ErrWarmRunning 上一轮预热尚未结束
var ErrWarmRunning = errors.New("cache warm is already running")

// ListingWarmer 预热时读取的视图
type ListingWarmer interface {
	GetListingsPage(ctx context.Context, q repository.ListingQuery) (*repository.ListingPage, error)
	GetDashboard(ctx context.Context) (*service.Dashboard, error)
}

// CacheWarmTask 定时把首页列表与仪表盘写入视图缓存
type CacheWarmTask struct {
	cache   cache.ViewCache
	warmer  ListingWarmer
	logger  *zap.Logger
	cron    *cron.Cron
	spec    string
	timeout time.Duration

	mu      sync.Mutex
	running bool
}

// NewCacheWarmTask 创建预热任务，spec 为空时使用默认值
func NewCacheWarmTask(viewCache cache.ViewCache, warmer ListingWarmer, logger *zap.Logger, spec string) *CacheWarmTask {
	if spec == "" {
		spec = DefaultWarmSpec
	}
	return &CacheWarmTask{
		cache:   viewCache,
		warmer:  warmer,
		logger:  logger,
		cron:    cron.New(cron.WithSeconds()),
		spec:    spec,
		timeout: time.Minute,
	}
}

// Start 启动定时任务，并异步执行一次
func (t *CacheWarmTask) Start() error {
	if _, err := t.cron.AddFunc(t.spec, t.runScheduled); err != nil {
		return err
	}

	go t.runScheduled()

	t.cron.Start()
	t.logger.Info("缓存预热任务已启动", zap.String("spec", t.spec))
	return nil
}

// Stop 停止调度并等待正在执行的任务
func (t *CacheWarmTask) Stop() {
	<-t.cron.Stop().Done()
	t.logger.Info("缓存预热任务已停止")
}

func (t *CacheWarmTask) runScheduled() {
	ctx, cancel := context.WithTimeout(context.Background(), t.timeout)
	defer cancel()

	if err := t.run(ctx, false); err != nil && !errors.Is(err, ErrWarmRunning) {
		t.logger.Warn("缓存预热失败", zap.Error(err))
	}
}

// RefreshNow 先失效全部视图再重新预热
func (t *CacheWarmTask) RefreshNow(ctx context.Context) error {
	return t.run(ctx, true)
}

func (t *CacheWarmTask) run(ctx context.Context, invalidate bool) error {
	t.mu.Lock()
	if t.running {
		t.mu.Unlock()
		return ErrWarmRunning
	}
	t.running = true
	t.mu.Unlock()

	defer func() {
		t.mu.Lock()
		t.running = false
		t.mu.Unlock()
	}()

	start := time.Now()
	if invalidate {
		if err := t.cache.Invalidate(ctx, cache.ScopePublicListings, cache.ScopeAdminListings); err != nil {
			return err
		}
	}

	// 首页默认查询
	if _, err := t.warmer.GetListingsPage(ctx, repository.ListingQuery{}); err != nil {
		return err
	}
	if _, err := t.warmer.GetDashboard(ctx); err != nil {
		return err
	}

	t.logger.Debug("缓存预热完成", zap.Bool("invalidate", invalidate), zap.Duration("cost", time.Since(start)))
	return nil
}
