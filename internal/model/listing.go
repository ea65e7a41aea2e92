package model

import "strings"

// Listing 商品（滑板）条目
type Listing struct {
	UUIDModel

	Slug        string    `gorm:"size:255;uniqueIndex;not null" json:"slug"`
	Title       string    `gorm:"size:255;not null" json:"title"`
	Description *string   `gorm:"type:text" json:"description"`
	Price       *float64  `gorm:"type:numeric(10,2)" json:"price"` // nil 表示未定价
	ImageURLs   ImageList `json:"image_urls"`                      // 第一张为封面

	// 默认 true 由校验层设置，不使用 gorm default 标签
	IsAvailable bool `gorm:"not null;index" json:"is_available"`

	// 创建时写入，更新流程不可修改
	UserID string `gorm:"type:uuid;not null;index" json:"user_id"`
}

func (Listing) TableName() string {
	return "listings"
}

// ==================== 更新载荷 ====================

// ListingPatch 部分更新字段，nil 表示不修改
type ListingPatch struct {
	Title       *string
	Slug        *string
	Description *string
	Price       *float64
	ClearPrice  bool
	ImageURLs   *ImageList
	IsAvailable *bool
}

// Columns 转换为 gorm Updates 使用的列映射
// id / user_id / created_at 永远不会出现在这里
func (p ListingPatch) Columns() map[string]interface{} {
	cols := make(map[string]interface{})
	if p.Title != nil {
		cols["title"] = *p.Title
	}
	if p.Slug != nil {
		cols["slug"] = *p.Slug
	}
	if p.Description != nil {
		if strings.TrimSpace(*p.Description) == "" {
			cols["description"] = nil
		} else {
			cols["description"] = *p.Description
		}
	}
	if p.ClearPrice {
		cols["price"] = nil
	} else if p.Price != nil {
		cols["price"] = *p.Price
	}
	if p.ImageURLs != nil {
		cols["image_urls"] = p.ImageURLs.Normalize()
	}
	if p.IsAvailable != nil {
		cols["is_available"] = *p.IsAvailable
	}
	return cols
}

// IsEmpty 是否没有任何待更新字段
func (p ListingPatch) IsEmpty() bool {
	return len(p.Columns()) == 0
}

// BulkPatch 批量更新字段（仅允许 is_available / price）
type BulkPatch struct {
	IsAvailable *bool
	Price       *float64
	ClearPrice  bool
}

// Columns 批量更新列映射
func (p BulkPatch) Columns() map[string]interface{} {
	cols := make(map[string]interface{})
	if p.IsAvailable != nil {
		cols["is_available"] = *p.IsAvailable
	}
	if p.ClearPrice {
		cols["price"] = nil
	} else if p.Price != nil {
		cols["price"] = *p.Price
	}
	return cols
}

// ==================== 统计 ====================

// ListingStats 后台仪表盘统计
type ListingStats struct {
	TotalListings       int64   `json:"totalListings"`
	AvailableListings   int64   `json:"availableListings"`
	UnavailableListings int64   `json:"unavailableListings"`
	ListingsWithPrices  int64   `json:"listingsWithPrices"`
	RecentListings      int64   `json:"recentListings"`
	AveragePrice        float64 `json:"averagePrice"`
}
