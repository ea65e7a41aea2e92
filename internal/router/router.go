package router

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"boards_catalog_v1/internal/controller"
	"boards_catalog_v1/internal/middleware"

	_ "boards_catalog_v1/docs"
)

// Controllers 控制器集合
type Controllers struct {
	Listing *controller.ListingController
	Cache   *controller.CacheController
}

// Options 路由依赖
type Options struct {
	Auth     *middleware.Authenticator
	Metrics  *middleware.Metrics
	Cooldown *middleware.CooldownLimiter
	Writes   *middleware.ClientRateLimiter // 写接口限流，nil 时不限流
	Logger   *zap.Logger

	CacheRefreshInterval time.Duration // 手动刷新缓存的冷却时间
	UploadDir            string        // 本地存储目录，非空时挂载 /uploads
	MaxMultipartMB       int64
}

// SetupRouter 创建 gin 引擎并注册所有路由
func SetupRouter(ctrls *Controllers, opts Options) *gin.Engine {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	r := gin.New()
	r.Use(middleware.Recovery(logger), middleware.RequestLogger(logger))
	if opts.Metrics != nil {
		r.Use(opts.Metrics.Middleware())
		r.GET("/metrics", opts.Metrics.Handler())
	}
	if opts.MaxMultipartMB > 0 {
		r.MaxMultipartMemory = opts.MaxMultipartMB << 20
	}

	// 1. 运维路由
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	// 访问 http://localhost:8080/swagger/index.html 即可查看
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	if opts.UploadDir != "" {
		r.Static("/uploads", opts.UploadDir)
	}

	var writeLimit gin.HandlerFunc = func(c *gin.Context) { c.Next() }
	if opts.Writes != nil {
		writeLimit = middleware.RateLimit(opts.Writes)
	}

	// 2. API 路由组
	api := r.Group("/api")
	{
		// 公开列表与批量操作
		listings := api.Group("/listings")
		{
			// GET /api/listings?page=&limit=&sortBy=&sortOrder=&availabilityFilter=
			listings.GET("", ctrls.Listing.GetListings)
			listings.GET("/:slug", ctrls.Listing.GetListingBySlug)
			listings.POST("/bulk-delete", opts.Auth.Required(), writeLimit, ctrls.Listing.BulkDelete)
			listings.POST("/bulk-update", opts.Auth.Required(), writeLimit, ctrls.Listing.BulkUpdate)
		}

		// 后台：读取必须登录，写操作的登录校验由 action 返回结构化结果
		admin := api.Group("/admin")
		{
			admin.GET("/dashboard", opts.Auth.Required(), ctrls.Listing.GetDashboard)
			admin.GET("/listings", opts.Auth.Required(), ctrls.Listing.GetAllListings)
			admin.GET("/listings/:id", opts.Auth.Required(), ctrls.Listing.GetListingByID)

			admin.POST("/listings", opts.Auth.Optional(), writeLimit, ctrls.Listing.CreateListing)
			admin.PUT("/listings/:id", opts.Auth.Optional(), writeLimit, ctrls.Listing.UpdateListing)
			admin.DELETE("/listings/:id", opts.Auth.Optional(), writeLimit, ctrls.Listing.DeleteListing)
			admin.PATCH("/listings/:id/images", opts.Auth.Optional(), writeLimit, ctrls.Listing.ReorderImages)

			if ctrls.Cache != nil && opts.Cooldown != nil {
				admin.POST("/cache/refresh",
					opts.Auth.Required(),
					middleware.Cooldown(opts.Cooldown, "cache_refresh", opts.CacheRefreshInterval),
					ctrls.Cache.Refresh,
				)
			}
		}
	}

	return r
}
