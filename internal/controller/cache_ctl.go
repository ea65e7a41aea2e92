package controller

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"boards_catalog_v1/internal/api/dto"
	"boards_catalog_v1/internal/task"
)

// CacheRefresher 手动刷新视图缓存
type CacheRefresher interface {
	TriggerCacheRefresh(ctx context.Context) error
}

// CacheController 缓存运维接口
type CacheController struct {
	refresher CacheRefresher
}

// NewCacheController 创建控制器
func NewCacheController(refresher CacheRefresher) *CacheController {
	return &CacheController{refresher: refresher}
}

// Refresh 失效并重新预热列表缓存
// @Summary 刷新列表缓存
// @Tags Admin
// @Security BearerAuth
// @Success 200 {object} dto.ErrorResp
// @Failure 409 {object} dto.ErrorResp
// @Failure 429 {object} dto.ErrorResp
// @Router /api/admin/cache/refresh [post]
func (ctrl *CacheController) Refresh(c *gin.Context) {
	err := ctrl.refresher.TriggerCacheRefresh(c.Request.Context())
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"success": true, "message": "Cache refreshed."})
	case errors.Is(err, task.ErrTaskDisabled):
		c.JSON(http.StatusServiceUnavailable, dto.NewErrorResp("Cache warm task is disabled", ""))
	case errors.Is(err, task.ErrWarmRunning):
		c.JSON(http.StatusConflict, dto.NewErrorResp("Cache refresh already in progress", ""))
	default:
		c.JSON(http.StatusInternalServerError, dto.NewErrorResp("Failed to refresh cache", err.Error()))
	}
}
