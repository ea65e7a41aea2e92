package dto

import (
	"boards_catalog_v1/internal/model"
	"boards_catalog_v1/internal/repository"
	"boards_catalog_v1/internal/service"
)

// ==================== 请求 DTO ====================

// BulkDeleteReq 批量删除请求
type BulkDeleteReq struct {
	ListingIDs []string `json:"listingIds"`
}

// BulkUpdateReq 批量更新请求，updateData 只允许 is_available 与 price
type BulkUpdateReq struct {
	ListingIDs []string               `json:"listingIds"`
	UpdateData map[string]interface{} `json:"updateData"`
}

// ListingQueryReq 公开列表查询参数，非数字的 page/limit 按默认值处理
type ListingQueryReq struct {
	Page               string `form:"page"`
	Limit              string `form:"limit"`
	SortBy             string `form:"sortBy"`
	SortOrder          string `form:"sortOrder"`
	AvailabilityFilter string `form:"availabilityFilter"`
}

// ==================== 响应 DTO ====================

// ListingPageResp 分页列表响应
type ListingPageResp struct {
	Success    bool                  `json:"success"`
	Listings   []model.Listing       `json:"listings"`
	Pagination repository.Pagination `json:"pagination"`
}

// ListingResp 单条响应
type ListingResp struct {
	Success bool           `json:"success"`
	Listing *model.Listing `json:"listing"`
}

// ListingsResp 全量列表响应
type ListingsResp struct {
	Success  bool            `json:"success"`
	Listings []model.Listing `json:"listings"`
}

// DashboardResp 仪表盘响应
type DashboardResp struct {
	Success bool `json:"success"`
	service.Dashboard
}

// BulkDeleteResp 批量删除响应
type BulkDeleteResp struct {
	Success      bool   `json:"success"`
	Message      string `json:"message"`
	DeletedCount int64  `json:"deletedCount"`
}

// BulkUpdateResp 批量更新响应
type BulkUpdateResp struct {
	Success      bool   `json:"success"`
	Message      string `json:"message"`
	UpdatedCount int64  `json:"updatedCount"`
}

// ErrorResp 失败响应
type ErrorResp struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// NewErrorResp 构造失败响应
func NewErrorResp(errMsg, message string) ErrorResp {
	return ErrorResp{Success: false, Error: errMsg, Message: message}
}
