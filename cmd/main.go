package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/cors"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"boards_catalog_v1/internal/cache"
	"boards_catalog_v1/internal/config"
	"boards_catalog_v1/internal/controller"
	"boards_catalog_v1/internal/event"
	"boards_catalog_v1/internal/middleware"
	"boards_catalog_v1/internal/model"
	"boards_catalog_v1/internal/repository"
	"boards_catalog_v1/internal/router"
	"boards_catalog_v1/internal/service"
	"boards_catalog_v1/internal/task"
	"boards_catalog_v1/pkg/database"
	"boards_catalog_v1/pkg/logger"
)

// @title Boards Catalog API
// @version 1.0
// @description Storefront listing queries and admin listing management.
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	configPath := flag.String("config", "", "配置文件或目录")
	flag.Parse()

	// 1. 加载配置
	cfg, err := config.Load(*configPath)
	if err != nil {
		// logger 尚未初始化
		zap.NewExample().Fatal("加载配置失败", zap.Error(err))
	}

	// 2. 初始化日志
	log, err := logger.New(logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})
	if err != nil {
		zap.NewExample().Fatal("初始化日志失败", zap.Error(err))
	}
	defer func() { _ = log.Sync() }()

	// 3. 初始化数据库
	db, err := database.InitDB(database.Config{
		DSN:             cfg.Database.DSN,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		LogLevel:        cfg.Database.LogLevel,
		AutoMigrate:     cfg.Database.AutoMigrate,
	}, &model.Listing{})
	if err != nil {
		log.Fatal("初始化数据库失败", zap.Error(err))
	}
	log.Info("数据库连接成功")

	// 4. 初始化依赖
	deps, err := initDependencies(cfg, db, log)
	if err != nil {
		log.Fatal("初始化依赖失败", zap.Error(err))
	}
	defer deps.Close()

	// 5. 启动后台任务
	if err := deps.Tasks.Start(); err != nil {
		log.Fatal("启动后台任务失败", zap.Error(err))
	}
	defer deps.Tasks.Stop()

	// 6. 启动服务
	startServer(cfg, deps, log)
}

// ==================== 依赖容器 ====================

// Dependencies 依赖容器
type Dependencies struct {
	DB          *gorm.DB
	Cache       cache.ViewCache
	Publisher   event.Publisher
	Metrics     *middleware.Metrics
	Auth        *middleware.Authenticator
	Storage     *service.StorageService
	Services    *Services
	Controllers *router.Controllers
	Tasks       *task.TaskManager

	closers []func()
}

// Services 服务集合
type Services struct {
	Listing *service.ListingService
	Bulk    *service.BulkService
	Query   *service.QueryService
}

// Close 释放外部连接
func (d *Dependencies) Close() {
	for i := len(d.closers) - 1; i >= 0; i-- {
		d.closers[i]()
	}
}

// ==================== 初始化函数 ====================

// initDependencies 初始化所有依赖
func initDependencies(cfg *config.Config, db *gorm.DB, log *zap.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		DB:      db,
		Metrics: middleware.NewMetrics("boards"),
		Auth: middleware.NewAuthenticator(middleware.JWTConfig{
			SecretKey:      cfg.JWT.Secret,
			Issuer:         cfg.JWT.Issuer,
			AccessTokenTTL: cfg.JWT.AccessTokenTTL,
		}),
	}

	// -------- 基础设施 --------
	viewCache, closeCache, err := initCache(cfg.Redis, log)
	if err != nil {
		return nil, err
	}
	deps.Cache = viewCache
	deps.closers = append(deps.closers, closeCache)

	deps.Publisher = initPublisher(cfg.NATS, log)
	deps.closers = append(deps.closers, deps.Publisher.Close)

	storageSvc, err := service.NewStorageService(service.StorageConfig{
		Provider:      cfg.Storage.Provider,
		Bucket:        cfg.Storage.Bucket,
		Region:        cfg.Storage.Region,
		AccessKey:     cfg.Storage.AccessKey,
		SecretKey:     cfg.Storage.SecretKey,
		Endpoint:      cfg.Storage.Endpoint,
		UsePathStyle:  cfg.Storage.UsePathStyle,
		UseSSL:        cfg.Storage.UseSSL,
		CDNDomain:     cfg.Storage.CDNDomain,
		BasePath:      cfg.Storage.BasePath,
		PublicBaseURL: cfg.Storage.PublicBaseURL,
		MaxImageMB:    cfg.Storage.MaxImageMB,
	})
	if err != nil {
		return nil, err
	}
	deps.Storage = storageSvc
	log.Info("存储服务已初始化", zap.String("provider", cfg.Storage.Provider))

	// -------- 业务服务 --------
	repo := repository.NewListingRepository(db)
	services := &Services{
		Listing: service.NewListingService(repo, storageSvc, viewCache, deps.Publisher, log.Named("listing")),
		Bulk:    service.NewBulkService(repo, viewCache, deps.Publisher, log.Named("bulk")),
		Query:   service.NewQueryService(repo, viewCache, log.Named("query")),
	}
	services.Listing.SetObserver(deps.Metrics)
	services.Bulk.SetObserver(deps.Metrics)
	deps.Services = services

	// -------- 后台任务 --------
	deps.Tasks = task.NewTaskManager(&task.TaskManagerDeps{
		Cache:  viewCache,
		Warmer: services.Query,
		Logger: log.Named("task"),
	}, &task.TaskManagerConfig{
		CacheWarmEnabled: cfg.Task.CacheWarmEnabled,
		CacheWarmSpec:    cfg.Task.CacheWarmSpec,
	})

	// -------- Controller 层 --------
	deps.Controllers = &router.Controllers{
		Listing: controller.NewListingController(services.Listing, services.Bulk, services.Query),
		Cache:   controller.NewCacheController(deps.Tasks),
	}
	return deps, nil
}

// initCache Redis 地址为空时使用进程内缓存
func initCache(cfg config.RedisConfig, log *zap.Logger) (cache.ViewCache, func(), error) {
	if cfg.Address == "" {
		log.Info("未配置 Redis，使用进程内缓存")
		return cache.NewMemoryCache(cfg.TTL), func() {}, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	client, err := cache.NewRedisClient(ctx, cache.RedisOptions{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err != nil {
		return nil, nil, err
	}
	log.Info("Redis 连接成功", zap.String("addr", cfg.Address))
	return cache.NewRedisCache(client, cfg.TTL), func() { _ = client.Close() }, nil
}

// initPublisher NATS 不可用时降级为不发布
func initPublisher(cfg config.NATSConfig, log *zap.Logger) event.Publisher {
	if cfg.URL == "" {
		return event.NoopPublisher{}
	}
	pub, err := event.NewNATSPublisher(cfg.URL, cfg.SubjectPrefix)
	if err != nil {
		log.Warn("NATS 连接失败，变更事件将不会发布", zap.String("url", cfg.URL), zap.Error(err))
		return event.NoopPublisher{}
	}
	log.Info("NATS 连接成功", zap.String("url", cfg.URL))
	return pub
}

// ==================== 服务启动 ====================

// startServer 启动服务
func startServer(cfg *config.Config, deps *Dependencies, log *zap.Logger) {
	gin.SetMode(cfg.Server.Mode)

	opts := router.Options{
		Auth:                 deps.Auth,
		Metrics:              deps.Metrics,
		Cooldown:             middleware.NewCooldownLimiter(),
		Logger:               log.Named("http"),
		CacheRefreshInterval: cfg.Server.CacheRefreshCooldown,
		MaxMultipartMB:       cfg.Server.MaxUploadMB,
	}
	if cfg.Server.WriteRatePerSec > 0 {
		opts.Writes = middleware.NewClientRateLimiter(cfg.Server.WriteRatePerSec, cfg.Server.WriteBurst)
	}
	if local, ok := deps.Storage.GetProvider().(*service.LocalStorage); ok {
		opts.UploadDir = local.BasePath()
	}
	r := router.SetupRouter(deps.Controllers, opts)

	handler := cors.New(cors.Options{
		AllowedOrigins:   cfg.Server.CORSOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
	}).Handler(r)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// 异步启动服务
	go func() {
		log.Info("服务启动", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("服务启动失败", zap.Error(err))
		}
	}()

	// 等待退出信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("正在关闭服务...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("服务强制关闭", zap.Error(err))
		return
	}
	log.Info("服务已退出")
}
