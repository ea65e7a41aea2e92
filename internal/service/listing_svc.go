package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"boards_catalog_v1/internal/cache"
	"boards_catalog_v1/internal/event"
	"boards_catalog_v1/internal/model"
	"boards_catalog_v1/internal/repository"
	"boards_catalog_v1/internal/schema"
)

// ListingForm 提交的表单字段与图片
type ListingForm struct {
	Values map[string][]string
	Images []ImageFile
}

// ImageOp 对已存储图片列表的操作
type ImageOp struct {
	Action string `json:"action" binding:"required,oneof=move remove"`
	From   int    `json:"from"`
	To     int    `json:"to"`
}

const (
	ImageOpMove   = "move"
	ImageOpRemove = "remove"
)

const (
	msgCreated         = "Listing created successfully!"
	msgUpdated         = "Listing updated successfully!"
	msgDeleted         = "Listing deleted."
	msgImagesUpdated   = "Images updated."
	msgCreateConflict  = "Database Error: A listing with this title already exists. Please choose a different title."
	msgUpdateConflict  = "Database Error: Another listing with this title already exists. Please choose a different title."
	msgEditNotFound    = "Listing not found or you do not have permission to edit it."
	msgDeleteNotFound  = "Listing not found or you do not have permission to delete it."
	msgAuthRequiredFmt = "Authentication Error: You must be logged in to %s a listing."
)

// ListingService 商品条目的创建/更新/删除
type ListingService struct {
	repo     repository.ListingRepository
	storage  *StorageService
	notifier *changeNotifier
	observer MutationObserver
	logger   *zap.Logger
}

// NewListingService 创建服务
func NewListingService(
	repo repository.ListingRepository,
	storage *StorageService,
	viewCache cache.ViewCache,
	publisher event.Publisher,
	logger *zap.Logger,
) *ListingService {
	return &ListingService{
		repo:    repo,
		storage: storage,
		notifier: &changeNotifier{
			cache:     viewCache,
			publisher: publisher,
			logger:    logger,
			now:       time.Now,
		},
		observer: noopObserver{},
		logger:   logger,
	}
}

// SetObserver 设置指标记录器
func (s *ListingService) SetObserver(o MutationObserver) {
	if o != nil {
		s.observer = o
	}
}

func (s *ListingService) observe(action string, res *ActionResult) *ActionResult {
	result := "success"
	if !res.Success {
		result = string(res.Kind)
	}
	s.observer.ObserveMutation(action, result)
	return res
}

// ==================== 创建 ====================

// CreateListing 鉴权 -> 上传图片 -> 组装字段 -> 校验 -> 入库 -> 失效缓存
func (s *ListingService) CreateListing(ctx context.Context, p *model.Principal, form ListingForm) *ActionResult {
	return s.observe("create", s.create(ctx, p, form))
}

func (s *ListingService) create(ctx context.Context, p *model.Principal, form ListingForm) *ActionResult {
	if p == nil {
		return failed(KindUnauthenticated, fmt.Sprintf(msgAuthRequiredFmt, "create"))
	}

	uploaded, res := s.uploadImages(ctx, form.Images)
	if res != nil {
		return res
	}

	in, errs := schema.DecodeListingForm(form.Values, schema.ModeCreate)
	if errs.HasErrors() {
		s.cleanup(ctx, uploaded)
		return invalid(errs)
	}
	userID := p.UserID
	in.UserID = &userID
	images := model.ImageList(uploaded)
	in.ImageURLs = &images

	listing, errs := schema.ValidateCreate(in)
	if errs.HasErrors() {
		s.cleanup(ctx, uploaded)
		return invalid(errs)
	}

	if err := s.repo.Create(ctx, listing); err != nil {
		s.cleanup(ctx, uploaded)
		if errors.Is(err, repository.ErrDuplicateSlug) {
			return failed(KindConflict, msgCreateConflict)
		}
		return s.storeFailure("创建商品失败", err)
	}

	s.logger.Info("商品已创建",
		zap.String("listing_id", listing.ID),
		zap.String("slug", listing.Slug),
		zap.String("user_id", p.UserID),
		zap.Int("images", len(uploaded)))
	s.notifier.notify(ctx, event.SubjectListingCreated, event.ListingEvent{
		ListingIDs: []string{listing.ID},
		Slug:       listing.Slug,
		UserID:     p.UserID,
	})
	return &ActionResult{Success: true, Message: msgCreated, Listing: listing}
}

// ==================== 更新 ====================

// UpdateListing 部分更新；current_images 决定保留的旧图及其顺序，新图追加在后
func (s *ListingService) UpdateListing(ctx context.Context, p *model.Principal, id string, form ListingForm) *ActionResult {
	return s.observe("update", s.update(ctx, p, id, form))
}

func (s *ListingService) update(ctx context.Context, p *model.Principal, id string, form ListingForm) *ActionResult {
	if p == nil {
		return failed(KindUnauthenticated, fmt.Sprintf(msgAuthRequiredFmt, "update"))
	}

	uploaded, res := s.uploadImages(ctx, form.Images)
	if res != nil {
		return res
	}

	in, errs := schema.DecodeListingForm(form.Values, schema.ModeUpdate)
	if errs.HasErrors() {
		s.cleanup(ctx, uploaded)
		return invalid(errs)
	}

	switch {
	case in.ImageURLs != nil:
		images := in.ImageURLs.Append(uploaded...)
		in.ImageURLs = &images
	case len(uploaded) > 0:
		// 未提交 current_images 时新图追加到现有图片之后
		existing, err := s.repo.GetByID(ctx, id)
		if err != nil {
			s.cleanup(ctx, uploaded)
			return s.updateFailure(err)
		}
		images := existing.ImageURLs.Append(uploaded...)
		in.ImageURLs = &images
	}

	patch, errs := schema.ValidatePatch(in)
	if errs.HasErrors() {
		s.cleanup(ctx, uploaded)
		return invalid(errs)
	}

	listing, err := s.repo.ForOwner(p.OwnerScope()).Update(ctx, id, patch)
	if err != nil {
		s.cleanup(ctx, uploaded)
		return s.updateFailure(err)
	}

	s.logger.Info("商品已更新",
		zap.String("listing_id", listing.ID),
		zap.String("slug", listing.Slug),
		zap.String("user_id", p.UserID))
	s.notifier.notify(ctx, event.SubjectListingUpdated, event.ListingEvent{
		ListingIDs: []string{listing.ID},
		Slug:       listing.Slug,
		UserID:     p.UserID,
	})
	return &ActionResult{Success: true, Message: msgUpdated, NewSlug: listing.Slug, Listing: listing}
}

func (s *ListingService) updateFailure(err error) *ActionResult {
	switch {
	case errors.Is(err, repository.ErrListingNotFound):
		return failed(KindNotFound, msgEditNotFound)
	case errors.Is(err, repository.ErrDuplicateSlug):
		return failed(KindConflict, msgUpdateConflict)
	default:
		return s.storeFailure("更新商品失败", err)
	}
}

// ==================== 删除 ====================

// DeleteListing 物理删除，成功后尽力删除关联图片
func (s *ListingService) DeleteListing(ctx context.Context, p *model.Principal, id string) *ActionResult {
	return s.observe("delete", s.delete(ctx, p, id))
}

func (s *ListingService) delete(ctx context.Context, p *model.Principal, id string) *ActionResult {
	if p == nil {
		return failed(KindUnauthenticated, fmt.Sprintf(msgAuthRequiredFmt, "delete"))
	}

	var images model.ImageList
	if existing, err := s.repo.GetByID(ctx, id); err == nil {
		images = existing.ImageURLs
	}

	if err := s.repo.ForOwner(p.OwnerScope()).Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrListingNotFound) {
			return failed(KindNotFound, msgDeleteNotFound)
		}
		return s.storeFailure("删除商品失败", err)
	}

	s.cleanup(ctx, images)
	s.logger.Info("商品已删除", zap.String("listing_id", id), zap.String("user_id", p.UserID))
	s.notifier.notify(ctx, event.SubjectListingDeleted, event.ListingEvent{
		ListingIDs: []string{id},
		UserID:     p.UserID,
	})
	return &ActionResult{Success: true, Message: msgDeleted}
}

// ==================== 图片排序 ====================

// ReorderImages 移动或移除已存储的图片
func (s *ListingService) ReorderImages(ctx context.Context, p *model.Principal, id string, op ImageOp) *ActionResult {
	return s.observe("reorder_images", s.reorder(ctx, p, id, op))
}

func (s *ListingService) reorder(ctx context.Context, p *model.Principal, id string, op ImageOp) *ActionResult {
	if p == nil {
		return failed(KindUnauthenticated, fmt.Sprintf(msgAuthRequiredFmt, "update"))
	}
	if op.Action != ImageOpMove && op.Action != ImageOpRemove {
		return invalid(schema.FieldErrors{"action": {"Action must be either move or remove."}})
	}

	// 读改写放在同一事务里，行锁防止并发的图片修改互相覆盖
	var (
		listing *model.Listing
		removed string
	)
	err := s.repo.Transaction(ctx, func(tx repository.ListingRepository) error {
		existing, err := tx.LockByID(ctx, id)
		if err != nil {
			return err
		}

		var images model.ImageList
		if op.Action == ImageOpMove {
			images, err = existing.ImageURLs.Move(op.From, op.To)
		} else {
			if op.From >= 0 && op.From < len(existing.ImageURLs) {
				removed = existing.ImageURLs[op.From]
			}
			images, err = existing.ImageURLs.Remove(op.From)
		}
		if err != nil {
			return err
		}

		listing, err = tx.ForOwner(p.OwnerScope()).Update(ctx, id, model.ListingPatch{ImageURLs: &images})
		return err
	})
	if errors.Is(err, model.ErrImageIndexOutOfRange) {
		return invalid(schema.FieldErrors{schema.FieldImageURLs: {"Image index out of range."}})
	}
	if err != nil {
		return s.updateFailure(err)
	}
	if removed != "" {
		s.cleanup(ctx, []string{removed})
	}

	s.notifier.notify(ctx, event.SubjectListingImagesReordered, event.ListingEvent{
		ListingIDs: []string{listing.ID},
		Slug:       listing.Slug,
		UserID:     p.UserID,
	})
	return &ActionResult{Success: true, Message: msgImagesUpdated, Listing: listing}
}

// ==================== 工具函数 ====================

// uploadImages 先校验全部文件，再逐个上传
func (s *ListingService) uploadImages(ctx context.Context, files []ImageFile) ([]string, *ActionResult) {
	if len(files) == 0 {
		return nil, nil
	}
	for _, f := range files {
		if err := s.storage.ValidateImage(f); err != nil {
			return nil, failed(KindUploadFailed, err.Error())
		}
	}
	urls, err := s.storage.UploadImages(ctx, files)
	if err != nil {
		s.logger.Error("上传图片失败", zap.Error(err))
		s.cleanup(ctx, urls)
		return nil, failed(KindUploadFailed, err.Error())
	}
	return urls, nil
}

// cleanup 尽力删除已上传的对象
func (s *ListingService) cleanup(ctx context.Context, urls []string) {
	if len(urls) == 0 {
		return
	}
	if err := s.storage.DeleteAll(ctx, urls); err != nil {
		s.logger.Warn("清理图片失败", zap.Strings("urls", urls), zap.Error(err))
	}
}

func (s *ListingService) storeFailure(msg string, err error) *ActionResult {
	s.logger.Error(msg, zap.Error(err))
	return failed(KindStoreError, "Database Error: "+storeMessage(err))
}

// storeMessage 取底层数据库错误信息
func storeMessage(err error) string {
	var storeErr *repository.StoreError
	if errors.As(err, &storeErr) {
		return storeErr.Err.Error()
	}
	return err.Error()
}
