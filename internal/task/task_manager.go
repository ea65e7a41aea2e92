package task

import (
	"context"

	"go.uber.org/zap"

	"boards_catalog_v1/internal/cache"
)

// ==================== TaskManager 任务管理器 ====================

// TaskManager 统一管理后台任务
type TaskManager struct {
	warmTask *CacheWarmTask
	logger   *zap.Logger
}

// TaskManagerDeps 任务管理器依赖
type TaskManagerDeps struct {
	Cache  cache.ViewCache
	Warmer ListingWarmer
	Logger *zap.Logger
}

// TaskManagerConfig 任务管理器配置
type TaskManagerConfig struct {
	CacheWarmEnabled bool
	CacheWarmSpec    string
}

// DefaultConfig 默认配置
func DefaultConfig() *TaskManagerConfig {
	return &TaskManagerConfig{
		CacheWarmEnabled: true,
		CacheWarmSpec:    DefaultWarmSpec,
	}
}

// NewTaskManager 创建任务管理器
func NewTaskManager(deps *TaskManagerDeps, cfg *TaskManagerConfig) *TaskManager {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	tm := &TaskManager{logger: logger}
	if cfg.CacheWarmEnabled && deps.Cache != nil && deps.Warmer != nil {
		tm.warmTask = NewCacheWarmTask(deps.Cache, deps.Warmer, logger, cfg.CacheWarmSpec)
	}
	return tm
}

// ==================== 生命周期管理 ====================

// Start 启动所有任务
func (tm *TaskManager) Start() error {
	if tm.warmTask != nil {
		if err := tm.warmTask.Start(); err != nil {
			return err
		}
	}
	tm.logger.Info("后台任务已启动", zap.Any("status", tm.Status()))
	return nil
}

// Stop 停止所有任务
func (tm *TaskManager) Stop() {
	if tm.warmTask != nil {
		tm.warmTask.Stop()
	}
	tm.logger.Info("后台任务已停止")
}

// ==================== 手动触发接口 ====================

// TriggerCacheRefresh 立即失效并重新预热视图缓存
func (tm *TaskManager) TriggerCacheRefresh(ctx context.Context) error {
	if tm.warmTask == nil {
		return ErrTaskDisabled
	}
	return tm.warmTask.RefreshNow(ctx)
}

// Status 获取任务状态
func (tm *TaskManager) Status() map[string]bool {
	return map[string]bool{
		"cache_warm": tm.warmTask != nil,
	}
}

// ==================== 错误定义 ====================

type TaskError string

func (e TaskError) Error() string { return string(e) }

const (
	ErrTaskDisabled TaskError = "task is disabled"
)
