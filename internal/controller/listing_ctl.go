package controller

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"boards_catalog_v1/internal/api/dto"
	"boards_catalog_v1/internal/middleware"
	"boards_catalog_v1/internal/repository"
	"boards_catalog_v1/internal/service"
)

// ListingController 商品条目接口
type ListingController struct {
	listingService *service.ListingService
	bulkService    *service.BulkService
	queryService   *service.QueryService
}

// NewListingController 创建控制器
func NewListingController(
	listingService *service.ListingService,
	bulkService *service.BulkService,
	queryService *service.QueryService,
) *ListingController {
	return &ListingController{
		listingService: listingService,
		bulkService:    bulkService,
		queryService:   queryService,
	}
}

// ==================== 公开查询接口 ====================

// GetListings 分页查询
// @Summary 分页获取商品列表
// @Tags Listing
// @Param page query int false "页码" default(1)
// @Param limit query int false "每页数量" default(12)
// @Param sortBy query string false "排序字段" Enums(created_at, title, price, is_available)
// @Param sortOrder query string false "排序方向" Enums(asc, desc)
// @Param availabilityFilter query string false "可售筛选" Enums(all, available, sold)
// @Success 200 {object} dto.ListingPageResp
// @Failure 500 {object} dto.ErrorResp
// @Router /api/listings [get]
func (ctrl *ListingController) GetListings(c *gin.Context) {
	var req dto.ListingQueryReq
	_ = c.ShouldBindQuery(&req)

	q := repository.ListingQuery{
		Page:               atoiOr(req.Page, repository.DefaultPage),
		Limit:              atoiOr(req.Limit, repository.DefaultLimit),
		SortBy:             req.SortBy,
		SortOrder:          req.SortOrder,
		AvailabilityFilter: req.AvailabilityFilter,
	}

	page, err := ctrl.queryService.GetListingsPage(c.Request.Context(), q)
	if err != nil {
		c.JSON(http.StatusInternalServerError, dto.NewErrorResp("Failed to fetch listings", err.Error()))
		return
	}

	c.JSON(http.StatusOK, dto.ListingPageResp{
		Success:    true,
		Listings:   page.Items,
		Pagination: page.Pagination,
	})
}

// GetListingBySlug 公开详情
// @Summary 按 slug 获取商品详情
// @Tags Listing
// @Param slug path string true "slug"
// @Success 200 {object} dto.ListingResp
// @Failure 404 {object} dto.ErrorResp
// @Router /api/listings/{slug} [get]
func (ctrl *ListingController) GetListingBySlug(c *gin.Context) {
	listing, err := ctrl.queryService.GetBySlug(c.Request.Context(), c.Param("slug"))
	if err != nil {
		ctrl.readFailure(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ListingResp{Success: true, Listing: listing})
}

// ==================== 批量接口 ====================

// BulkDelete 批量删除
// @Summary 批量删除商品
// @Tags Listing
// @Security BearerAuth
// @Param body body dto.BulkDeleteReq true "id 列表"
// @Success 200 {object} dto.BulkDeleteResp
// @Failure 400 {object} dto.ErrorResp
// @Failure 401 {object} dto.ErrorResp
// @Router /api/listings/bulk-delete [post]
func (ctrl *ListingController) BulkDelete(c *gin.Context) {
	var req dto.BulkDeleteReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.NewErrorResp("Invalid request body", err.Error()))
		return
	}

	n, err := ctrl.bulkService.BulkDelete(c.Request.Context(), middleware.GetPrincipal(c), req.ListingIDs)
	if err != nil {
		bulkFailure(c, err, "Failed to delete listings")
		return
	}

	c.JSON(http.StatusOK, dto.BulkDeleteResp{
		Success:      true,
		Message:      service.BulkMessage("deleted", n),
		DeletedCount: n,
	})
}

// BulkUpdate 批量更新
// @Summary 批量更新可售状态或价格
// @Tags Listing
// @Security BearerAuth
// @Param body body dto.BulkUpdateReq true "id 列表与更新字段"
// @Success 200 {object} dto.BulkUpdateResp
// @Failure 400 {object} dto.ErrorResp
// @Failure 401 {object} dto.ErrorResp
// @Router /api/listings/bulk-update [post]
func (ctrl *ListingController) BulkUpdate(c *gin.Context) {
	var req dto.BulkUpdateReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.NewErrorResp("Invalid request body", err.Error()))
		return
	}

	n, err := ctrl.bulkService.BulkUpdate(c.Request.Context(), middleware.GetPrincipal(c), req.ListingIDs, req.UpdateData)
	if err != nil {
		bulkFailure(c, err, "Failed to update listings")
		return
	}

	c.JSON(http.StatusOK, dto.BulkUpdateResp{
		Success:      true,
		Message:      service.BulkMessage("updated", n),
		UpdatedCount: n,
	})
}

// ==================== 后台查询接口 ====================

// GetAllListings 后台全部列表
// @Summary 获取全部商品（按创建时间倒序）
// @Tags Admin
// @Security BearerAuth
// @Success 200 {object} dto.ListingsResp
// @Router /api/admin/listings [get]
func (ctrl *ListingController) GetAllListings(c *gin.Context) {
	listings, err := ctrl.queryService.GetAll(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, dto.NewErrorResp("Failed to fetch listings", err.Error()))
		return
	}
	c.JSON(http.StatusOK, dto.ListingsResp{Success: true, Listings: listings})
}

// GetListingByID 后台详情
// @Summary 按 id 获取商品
// @Tags Admin
// @Security BearerAuth
// @Param id path string true "商品ID"
// @Success 200 {object} dto.ListingResp
// @Failure 404 {object} dto.ErrorResp
// @Router /api/admin/listings/{id} [get]
func (ctrl *ListingController) GetListingByID(c *gin.Context) {
	listing, err := ctrl.queryService.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		ctrl.readFailure(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ListingResp{Success: true, Listing: listing})
}

// GetDashboard 仪表盘
// @Summary 商品统计与最近新增
// @Tags Admin
// @Security BearerAuth
// @Success 200 {object} dto.DashboardResp
// @Router /api/admin/dashboard [get]
func (ctrl *ListingController) GetDashboard(c *gin.Context) {
	dash, err := ctrl.queryService.GetDashboard(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, dto.NewErrorResp("Failed to fetch dashboard", err.Error()))
		return
	}
	c.JSON(http.StatusOK, dto.DashboardResp{Success: true, Dashboard: *dash})
}

// ==================== 写操作 ====================

// CreateListing 创建
// @Summary 创建商品（multipart 表单）
// @Tags Admin
// @Security BearerAuth
// @Accept multipart/form-data
// @Param title formData string true "标题"
// @Param description formData string false "描述"
// @Param price formData number false "价格"
// @Param is_available formData string false "是否可售，取最后一个值；未提交时创建为 true、更新不变，标记已售需显式提交 off/false"
// @Param images formData file false "图片，可多个"
// @Success 200 {object} service.ActionResult
// @Failure 400 {object} service.ActionResult
// @Failure 401 {object} service.ActionResult
// @Failure 409 {object} service.ActionResult
// @Router /api/admin/listings [post]
func (ctrl *ListingController) CreateListing(c *gin.Context) {
	form, err := readListingForm(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, service.ActionResult{Success: false, Message: "Invalid form data."})
		return
	}
	res := ctrl.listingService.CreateListing(c.Request.Context(), middleware.GetPrincipal(c), form)
	respondAction(c, res)
}

// UpdateListing 更新
// @Summary 更新商品（multipart 表单，字段可部分提交）
// @Tags Admin
// @Security BearerAuth
// @Accept multipart/form-data
// @Param id path string true "商品ID"
// @Param title formData string false "标题"
// @Param description formData string false "描述"
// @Param price formData string false "价格，空字符串表示清除"
// @Param is_available formData string false "是否可售，取最后一个值；未提交时创建为 true、更新不变，标记已售需显式提交 off/false"
// @Param current_images formData string false "保留的图片 URL（JSON 数组）"
// @Param images formData file false "新图片，可多个"
// @Success 200 {object} service.ActionResult
// @Failure 404 {object} service.ActionResult
// @Router /api/admin/listings/{id} [put]
func (ctrl *ListingController) UpdateListing(c *gin.Context) {
	form, err := readListingForm(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, service.ActionResult{Success: false, Message: "Invalid form data."})
		return
	}
	res := ctrl.listingService.UpdateListing(c.Request.Context(), middleware.GetPrincipal(c), c.Param("id"), form)
	respondAction(c, res)
}

// DeleteListing 删除
// @Summary 删除商品
// @Tags Admin
// @Security BearerAuth
// @Param id path string true "商品ID"
// @Success 200 {object} service.ActionResult
// @Failure 404 {object} service.ActionResult
// @Router /api/admin/listings/{id} [delete]
func (ctrl *ListingController) DeleteListing(c *gin.Context) {
	res := ctrl.listingService.DeleteListing(c.Request.Context(), middleware.GetPrincipal(c), c.Param("id"))
	respondAction(c, res)
}

// ReorderImages 调整或移除已存储图片
// @Summary 移动或移除商品图片
// @Tags Admin
// @Security BearerAuth
// @Param id path string true "商品ID"
// @Param body body service.ImageOp true "move: from->to; remove: from"
// @Success 200 {object} service.ActionResult
// @Failure 400 {object} service.ActionResult
// @Router /api/admin/listings/{id}/images [patch]
func (ctrl *ListingController) ReorderImages(c *gin.Context) {
	var op service.ImageOp
	if err := c.ShouldBindJSON(&op); err != nil {
		c.JSON(http.StatusBadRequest, service.ActionResult{Success: false, Message: "Invalid image operation."})
		return
	}
	res := ctrl.listingService.ReorderImages(c.Request.Context(), middleware.GetPrincipal(c), c.Param("id"), op)
	respondAction(c, res)
}

// ==================== 工具函数 ====================

func (ctrl *ListingController) readFailure(c *gin.Context, err error) {
	if errors.Is(err, repository.ErrListingNotFound) {
		c.JSON(http.StatusNotFound, dto.NewErrorResp("Listing not found", ""))
		return
	}
	c.JSON(http.StatusInternalServerError, dto.NewErrorResp("Failed to fetch listing", err.Error()))
}

func bulkFailure(c *gin.Context, err error, fallback string) {
	switch service.KindOf(err) {
	case service.KindUnauthenticated:
		c.JSON(http.StatusUnauthorized, dto.NewErrorResp(err.Error(), ""))
	case service.KindValidationFailed:
		c.JSON(http.StatusBadRequest, dto.NewErrorResp(err.Error(), ""))
	default:
		c.JSON(http.StatusInternalServerError, dto.NewErrorResp(fallback, err.Error()))
	}
}

// StatusOf 操作失败分类对应的 HTTP 状态码
func StatusOf(kind service.ErrorKind) int {
	switch kind {
	case service.KindUnauthenticated:
		return http.StatusUnauthorized
	case service.KindValidationFailed:
		return http.StatusBadRequest
	case service.KindConflict:
		return http.StatusConflict
	case service.KindNotFound:
		return http.StatusNotFound
	case service.KindUploadFailed:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func respondAction(c *gin.Context, res *service.ActionResult) {
	status := http.StatusOK
	if !res.Success {
		status = StatusOf(res.Kind)
	}
	c.JSON(status, res)
}

// readListingForm 读取表单字段与 images 文件，兼容非 multipart 提交
func readListingForm(c *gin.Context) (service.ListingForm, error) {
	var form service.ListingForm

	mf, err := c.MultipartForm()
	if err != nil {
		if !errors.Is(err, http.ErrNotMultipart) {
			return form, err
		}
		if err := c.Request.ParseForm(); err != nil {
			return form, err
		}
		form.Values = c.Request.PostForm
		return form, nil
	}

	form.Values = mf.Value
	for _, fh := range mf.File["images"] {
		// 未选择文件时浏览器会提交空的文件项，空文件一律跳过
		if fh.Size == 0 {
			continue
		}
		data, err := readFileHeader(fh)
		if err != nil {
			return form, err
		}
		form.Images = append(form.Images, service.ImageFile{
			Filename:    fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Data:        data,
		})
	}
	return form, nil
}

func readFileHeader(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

func atoiOr(raw string, fallback int) int {
	n, err := strconv.Atoi(raw)
	if err != nil || n == 0 {
		return fallback
	}
	return n
}
