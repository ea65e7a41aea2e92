package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"boards_catalog_v1/internal/cache"
	"boards_catalog_v1/internal/event"
	"boards_catalog_v1/internal/model"
	"boards_catalog_v1/internal/repository"
	"boards_catalog_v1/internal/schema"
)

// ==================== 错误类型 ====================

// ErrorKind 操作失败的分类，控制器据此选择 HTTP 状态码
type ErrorKind string

const (
	KindUnauthenticated  ErrorKind = "unauthenticated"
	KindValidationFailed ErrorKind = "validation_failed"
	KindConflict         ErrorKind = "conflict"
	KindNotFound         ErrorKind = "not_found"
	KindUploadFailed     ErrorKind = "upload_failed"
	KindStoreError       ErrorKind = "store_error"
)

// ActionError 批量操作与查询返回的错误
type ActionError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *ActionError) Error() string {
	return e.Message
}

func (e *ActionError) Unwrap() error {
	return e.Err
}

// KindOf 取错误分类，非 ActionError 一律视为数据库错误
func KindOf(err error) ErrorKind {
	var ae *ActionError
	if errors.As(err, &ae) {
		return ae.Kind
	}
	if errors.Is(err, repository.ErrListingNotFound) {
		return KindNotFound
	}
	return KindStoreError
}

// ==================== 操作结果 ====================

// ActionResult 创建/更新/删除的统一返回，失败也不返回 error
type ActionResult struct {
	Success bool               `json:"success"`
	Message string             `json:"message,omitempty"`
	Errors  schema.FieldErrors `json:"errors,omitempty"`
	NewSlug string             `json:"newSlug,omitempty"`
	Listing *model.Listing     `json:"listing,omitempty"`
	Kind    ErrorKind          `json:"-"`
}

func failed(kind ErrorKind, msg string) *ActionResult {
	return &ActionResult{Success: false, Kind: kind, Message: msg}
}

func invalid(errs schema.FieldErrors) *ActionResult {
	return &ActionResult{
		Success: false,
		Kind:    KindValidationFailed,
		Message: "Validation failed. Please check the highlighted fields.",
		Errors:  errs,
	}
}

// ==================== 变更通知 ====================

// MutationObserver 记录写操作结果（指标）
type MutationObserver interface {
	ObserveMutation(action, result string)
}

type noopObserver struct{}

func (noopObserver) ObserveMutation(string, string) {}

// changeNotifier 写操作成功后失效缓存并发布事件
// 两者失败都只记录日志，不影响已提交的写入
type changeNotifier struct {
	cache     cache.ViewCache
	publisher event.Publisher
	logger    *zap.Logger
	now       func() time.Time
}

func (n *changeNotifier) notify(ctx context.Context, subject string, evt event.ListingEvent) {
	if err := n.cache.Invalidate(ctx, cache.ScopeAdminListings, cache.ScopePublicListings); err != nil {
		n.logger.Warn("缓存失效失败", zap.String("subject", subject), zap.Error(err))
	}
	evt.OccurredAt = n.now()
	if err := n.publisher.Publish(ctx, subject, evt); err != nil {
		n.logger.Warn("发布事件失败", zap.String("subject", subject), zap.Error(err))
	}
}
