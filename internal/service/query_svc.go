package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"boards_catalog_v1/internal/cache"
	"boards_catalog_v1/internal/model"
	"boards_catalog_v1/internal/repository"
)

const (
	dashboardRecentLimit = 5
	dashboardRecentDays  = 7
)

// Dashboard 后台仪表盘
type Dashboard struct {
	Stats          model.ListingStats `json:"stats"`
	RecentListings []model.Listing    `json:"recentListings"`
}

// QueryService 列表读取，带视图缓存
type QueryService struct {
	repo   repository.ListingRepository
	cache  cache.ViewCache
	logger *zap.Logger
	now    func() time.Time
}

// NewQueryService 创建查询服务
func NewQueryService(repo repository.ListingRepository, viewCache cache.ViewCache, logger *zap.Logger) *QueryService {
	return &QueryService{repo: repo, cache: viewCache, logger: logger, now: time.Now}
}

// PageCacheKey 分页查询的缓存 key，参数需已归一化
func PageCacheKey(q repository.ListingQuery) string {
	return fmt.Sprintf("page=%d&limit=%d&sort=%s&order=%s&filter=%s",
		q.Page, q.Limit, q.SortBy, q.SortOrder, q.AvailabilityFilter)
}

// GetListingsPage 公开列表分页查询
func (s *QueryService) GetListingsPage(ctx context.Context, q repository.ListingQuery) (*repository.ListingPage, error) {
	q = q.Normalize()
	key := PageCacheKey(q)

	var cached repository.ListingPage
	gen, hit := s.lookup(ctx, cache.ScopePublicListings, key, &cached)
	if hit {
		return &cached, nil
	}

	page, err := s.repo.GetPaginated(ctx, q)
	if err != nil {
		s.logger.Error("分页查询失败", zap.String("query", key), zap.Error(err))
		return nil, err
	}
	s.store(ctx, cache.ScopePublicListings, key, gen, page)
	return page, nil
}

// GetBySlug 公开详情
func (s *QueryService) GetBySlug(ctx context.Context, slug string) (*model.Listing, error) {
	key := "slug=" + slug

	var cached model.Listing
	gen, hit := s.lookup(ctx, cache.ScopePublicListings, key, &cached)
	if hit {
		return &cached, nil
	}

	listing, err := s.repo.GetBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	s.store(ctx, cache.ScopePublicListings, key, gen, listing)
	return listing, nil
}

// GetAll 后台全部列表
func (s *QueryService) GetAll(ctx context.Context) ([]model.Listing, error) {
	return s.repo.GetAll(ctx)
}

// GetByID 后台详情
func (s *QueryService) GetByID(ctx context.Context, id string) (*model.Listing, error) {
	return s.repo.GetByID(ctx, id)
}

// GetDashboard 统计与最近新增
func (s *QueryService) GetDashboard(ctx context.Context) (*Dashboard, error) {
	const key = "dashboard"

	var cached Dashboard
	gen, hit := s.lookup(ctx, cache.ScopeAdminListings, key, &cached)
	if hit {
		return &cached, nil
	}

	stats, err := s.repo.Stats(ctx, s.now().AddDate(0, 0, -dashboardRecentDays))
	if err != nil {
		s.logger.Error("统计查询失败", zap.Error(err))
		return nil, err
	}
	recent, err := s.repo.Recent(ctx, dashboardRecentLimit)
	if err != nil {
		s.logger.Error("最近商品查询失败", zap.Error(err))
		return nil, err
	}

	dash := &Dashboard{Stats: *stats, RecentListings: recent}
	s.store(ctx, cache.ScopeAdminListings, key, gen, dash)
	return dash, nil
}

// lookup 先取代数再读缓存，返回的代数用于回源后的写入
// 缓存异常按未命中处理，代数为 -1 时不回写
func (s *QueryService) lookup(ctx context.Context, scope, key string, dest interface{}) (int64, bool) {
	gen, err := s.cache.Generation(ctx, scope)
	if err != nil {
		s.logger.Warn("读取缓存代数失败", zap.String("scope", scope), zap.Error(err))
		return -1, false
	}
	hit, err := s.cache.Get(ctx, scope, key, dest)
	if err != nil {
		s.logger.Warn("读取缓存失败", zap.String("scope", scope), zap.String("key", key), zap.Error(err))
		return gen, false
	}
	return gen, hit
}

// store 回源期间作用域被失效时写入会被丢弃
func (s *QueryService) store(ctx context.Context, scope, key string, gen int64, value interface{}) {
	if gen < 0 {
		return
	}
	if err := s.cache.SetAt(ctx, scope, key, gen, value); err != nil {
		s.logger.Warn("写入缓存失败", zap.String("scope", scope), zap.String("key", key), zap.Error(err))
	}
}
