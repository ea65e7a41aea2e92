package repository

import (
	"context"
	"math"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"boards_catalog_v1/internal/model"
)

// ==================== 接口定义 ====================

// ListingRepository 商品条目仓储接口
type ListingRepository interface {
	// 读取（不受归属范围限制）
	GetAll(ctx context.Context) ([]model.Listing, error)
	GetByID(ctx context.Context, id string) (*model.Listing, error)
	GetBySlug(ctx context.Context, slug string) (*model.Listing, error)
	GetPaginated(ctx context.Context, q ListingQuery) (*ListingPage, error)
	// LockByID 在事务内读取并锁定记录（SELECT ... FOR UPDATE，sqlite 忽略锁）
	LockByID(ctx context.Context, id string) (*model.Listing, error)

	// 写入
	Create(ctx context.Context, listing *model.Listing) error
	Update(ctx context.Context, id string, patch model.ListingPatch) (*model.Listing, error)
	Delete(ctx context.Context, id string) error

	// 批量操作
	BulkDelete(ctx context.Context, ids []string) (int64, error)
	BulkUpdate(ctx context.Context, ids []string, patch model.BulkPatch) (int64, error)

	// 统计
	Stats(ctx context.Context, since time.Time) (*model.ListingStats, error)
	Recent(ctx context.Context, limit int) ([]model.Listing, error)

	// 归属范围：userID 非空时写操作只作用于该用户的记录
	ForOwner(userID string) ListingRepository

	// 事务
	WithTx(tx *gorm.DB) ListingRepository
	Transaction(ctx context.Context, fn func(txRepo ListingRepository) error) error
}

// ==================== 查询条件 ====================

const (
	SortByCreatedAt   = "created_at"
	SortByTitle       = "title"
	SortByPrice       = "price"
	SortByIsAvailable = "is_available"

	SortOrderAsc  = "asc"
	SortOrderDesc = "desc"

	FilterAll       = "all"
	FilterAvailable = "available"
	FilterSold      = "sold"

	DefaultPage  = 1
	DefaultLimit = 12
	MaxLimit     = 100
)

var sortableColumns = map[string]bool{
	SortByCreatedAt:   true,
	SortByTitle:       true,
	SortByPrice:       true,
	SortByIsAvailable: true,
}

// ListingQuery 分页查询参数
type ListingQuery struct {
	Page               int
	Limit              int
	SortBy             string
	SortOrder          string
	AvailabilityFilter string
}

// Normalize 不识别的取值回退为默认值
func (q ListingQuery) Normalize() ListingQuery {
	if q.Page < 1 {
		q.Page = DefaultPage
	}
	if q.Limit < 1 {
		q.Limit = DefaultLimit
	}
	if q.Limit > MaxLimit {
		q.Limit = MaxLimit
	}
	if !sortableColumns[q.SortBy] {
		q.SortBy = SortByCreatedAt
	}
	if q.SortOrder != SortOrderAsc && q.SortOrder != SortOrderDesc {
		q.SortOrder = SortOrderDesc
	}
	switch q.AvailabilityFilter {
	case FilterAvailable, FilterSold:
	default:
		q.AvailabilityFilter = FilterAll
	}
	return q
}

// Pagination 分页信息
type Pagination struct {
	CurrentPage int   `json:"currentPage"`
	TotalPages  int   `json:"totalPages"`
	TotalCount  int64 `json:"totalCount"`
	Limit       int   `json:"limit"`
	HasPrevPage bool  `json:"hasPrevPage"`
	HasNextPage bool  `json:"hasNextPage"`
}

// NewPagination 由总数和页大小推算分页信息，页码越界时不做修正
func NewPagination(page, limit int, total int64) Pagination {
	totalPages := int(math.Ceil(float64(total) / float64(limit)))
	if totalPages < 1 {
		totalPages = 1
	}
	return Pagination{
		CurrentPage: page,
		TotalPages:  totalPages,
		TotalCount:  total,
		Limit:       limit,
		HasPrevPage: page > 1,
		HasNextPage: page < totalPages,
	}
}

// ListingPage 一页结果
type ListingPage struct {
	Items      []model.Listing `json:"listings"`
	Pagination Pagination      `json:"pagination"`
}

// ==================== 仓储实现 ====================

type listingRepo struct {
	db      *gorm.DB
	ownerID string
}

// NewListingRepository 创建商品条目仓储
func NewListingRepository(db *gorm.DB) ListingRepository {
	return &listingRepo{db: db}
}

// scoped 写操作的查询起点，带上归属条件
func (r *listingRepo) scoped(ctx context.Context) *gorm.DB {
	db := r.db.WithContext(ctx).Model(&model.Listing{})
	if r.ownerID != "" {
		db = db.Where("user_id = ?", r.ownerID)
	}
	return db
}

func (r *listingRepo) GetAll(ctx context.Context) ([]model.Listing, error) {
	listings := make([]model.Listing, 0)
	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Order("id").
		Find(&listings).Error
	if err != nil {
		return nil, translateError("get all", err)
	}
	return listings, nil
}

func (r *listingRepo) GetByID(ctx context.Context, id string) (*model.Listing, error) {
	if !model.IsUUID(id) {
		return nil, ErrListingNotFound
	}
	var listing model.Listing
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&listing).Error; err != nil {
		return nil, translateError("get by id", err)
	}
	return &listing, nil
}

func (r *listingRepo) LockByID(ctx context.Context, id string) (*model.Listing, error) {
	if !model.IsUUID(id) {
		return nil, ErrListingNotFound
	}
	var listing model.Listing
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&listing).Error
	if err != nil {
		return nil, translateError("lock by id", err)
	}
	return &listing, nil
}

func (r *listingRepo) GetBySlug(ctx context.Context, slug string) (*model.Listing, error) {
	if slug == "" {
		return nil, ErrListingNotFound
	}
	var listing model.Listing
	if err := r.db.WithContext(ctx).Where("slug = ?", slug).First(&listing).Error; err != nil {
		return nil, translateError("get by slug", err)
	}
	return &listing, nil
}

// filtered 按可售状态过滤，每次调用都返回新的查询
func (r *listingRepo) filtered(ctx context.Context, filter string) *gorm.DB {
	db := r.db.WithContext(ctx).Model(&model.Listing{})
	switch filter {
	case FilterAvailable:
		db = db.Where("is_available = ?", true)
	case FilterSold:
		db = db.Where("is_available = ?", false)
	}
	return db
}

func (r *listingRepo) GetPaginated(ctx context.Context, q ListingQuery) (*ListingPage, error) {
	q = q.Normalize()

	var total int64
	if err := r.filtered(ctx, q.AvailabilityFilter).Count(&total).Error; err != nil {
		return nil, translateError("count", err)
	}

	page := &ListingPage{
		Items:      make([]model.Listing, 0),
		Pagination: NewPagination(q.Page, q.Limit, total),
	}
	// 先比较页码再算偏移，超大页码相乘会溢出
	if q.Page > page.Pagination.TotalPages {
		return page, nil
	}
	offset := (q.Page - 1) * q.Limit
	if int64(offset) >= total {
		return page, nil
	}

	err := r.filtered(ctx, q.AvailabilityFilter).
		Order(clause.OrderByColumn{Column: clause.Column{Name: q.SortBy}, Desc: q.SortOrder == SortOrderDesc}).
		Order(clause.OrderByColumn{Column: clause.Column{Name: "id"}}).
		Limit(q.Limit).
		Offset(offset).
		Find(&page.Items).Error
	if err != nil {
		return nil, translateError("paginate", err)
	}
	return page, nil
}

func (r *listingRepo) Create(ctx context.Context, listing *model.Listing) error {
	return translateError("create", r.db.WithContext(ctx).Create(listing).Error)
}

func (r *listingRepo) Update(ctx context.Context, id string, patch model.ListingPatch) (*model.Listing, error) {
	if !model.IsUUID(id) {
		return nil, ErrListingNotFound
	}

	cols := patch.Columns()
	if len(cols) == 0 {
		// 没有字段可改时仍需确认记录可见
		var listing model.Listing
		if err := r.scoped(ctx).Where("id = ?", id).First(&listing).Error; err != nil {
			return nil, translateError("update", err)
		}
		return &listing, nil
	}

	result := r.scoped(ctx).Where("id = ?", id).Updates(cols)
	if result.Error != nil {
		return nil, translateError("update", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, ErrListingNotFound
	}
	return r.GetByID(ctx, id)
}

func (r *listingRepo) Delete(ctx context.Context, id string) error {
	if !model.IsUUID(id) {
		return ErrListingNotFound
	}
	result := r.scoped(ctx).Where("id = ?", id).Delete(&model.Listing{})
	if result.Error != nil {
		return translateError("delete", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrListingNotFound
	}
	return nil
}

func (r *listingRepo) BulkDelete(ctx context.Context, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	result := r.scoped(ctx).Where("id IN ?", ids).Delete(&model.Listing{})
	if result.Error != nil {
		return 0, translateError("bulk delete", result.Error)
	}
	return result.RowsAffected, nil
}

func (r *listingRepo) BulkUpdate(ctx context.Context, ids []string, patch model.BulkPatch) (int64, error) {
	cols := patch.Columns()
	if len(ids) == 0 || len(cols) == 0 {
		return 0, nil
	}
	result := r.scoped(ctx).Where("id IN ?", ids).Updates(cols)
	if result.Error != nil {
		return 0, translateError("bulk update", result.Error)
	}
	return result.RowsAffected, nil
}

func (r *listingRepo) Stats(ctx context.Context, since time.Time) (*model.ListingStats, error) {
	var stats model.ListingStats
	err := r.db.WithContext(ctx).
		Model(&model.Listing{}).
		Select(`COUNT(*) AS total_listings,
			COALESCE(SUM(CASE WHEN is_available THEN 1 ELSE 0 END), 0) AS available_listings,
			COALESCE(SUM(CASE WHEN is_available THEN 0 ELSE 1 END), 0) AS unavailable_listings,
			COUNT(price) AS listings_with_prices,
			COALESCE(SUM(CASE WHEN created_at >= ? THEN 1 ELSE 0 END), 0) AS recent_listings,
			COALESCE(AVG(price), 0) AS average_price`, since).
		Scan(&stats).Error
	if err != nil {
		return nil, translateError("stats", err)
	}
	stats.AveragePrice = math.Round(stats.AveragePrice*100) / 100
	return &stats, nil
}

func (r *listingRepo) Recent(ctx context.Context, limit int) ([]model.Listing, error) {
	if limit < 1 {
		limit = 5
	}
	listings := make([]model.Listing, 0, limit)
	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Order("id").
		Limit(limit).
		Find(&listings).Error
	if err != nil {
		return nil, translateError("recent", err)
	}
	return listings, nil
}

func (r *listingRepo) ForOwner(userID string) ListingRepository {
	return &listingRepo{db: r.db, ownerID: userID}
}

func (r *listingRepo) WithTx(tx *gorm.DB) ListingRepository {
	return &listingRepo{db: tx, ownerID: r.ownerID}
}

func (r *listingRepo) Transaction(ctx context.Context, fn func(txRepo ListingRepository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(r.WithTx(tx))
	})
}
