package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"boards_catalog_v1/internal/cache"
	"boards_catalog_v1/internal/event"
	"boards_catalog_v1/internal/model"
	"boards_catalog_v1/internal/repository"
)

// 批量更新允许的字段
var bulkUpdatableFields = map[string]bool{
	"is_available": true,
	"price":        true,
}

// BulkService 批量删除与批量更新
type BulkService struct {
	repo     repository.ListingRepository
	notifier *changeNotifier
	observer MutationObserver
	logger   *zap.Logger
}

// NewBulkService 创建批量服务
func NewBulkService(repo repository.ListingRepository, viewCache cache.ViewCache, publisher event.Publisher, logger *zap.Logger) *BulkService {
	return &BulkService{
		repo: repo,
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
func (s *BulkService) SetObserver(o MutationObserver) {
	if o != nil {
		s.observer = o
	}
}

// BulkDelete 返回实际删除的条数，不存在或无权限的记录不计数
func (s *BulkService) BulkDelete(ctx context.Context, p *model.Principal, ids []string) (int64, error) {
	n, err := s.bulkDelete(ctx, p, ids)
	s.observe("bulk_delete", err)
	return n, err
}

func (s *BulkService) bulkDelete(ctx context.Context, p *model.Principal, ids []string) (int64, error) {
	if p == nil {
		return 0, &ActionError{Kind: KindUnauthenticated, Message: "Unauthorized"}
	}
	if len(ids) == 0 {
		return 0, &ActionError{Kind: KindValidationFailed, Message: "No listing IDs provided"}
	}

	valid := normalizeIDs(ids)
	if len(valid) == 0 {
		return 0, nil
	}

	n, err := s.repo.ForOwner(p.OwnerScope()).BulkDelete(ctx, valid)
	if err != nil {
		s.logger.Error("批量删除失败", zap.Int("requested", len(valid)), zap.Error(err))
		return 0, &ActionError{Kind: KindStoreError, Message: storeMessage(err), Err: err}
	}

	s.logger.Info("批量删除完成", zap.Int("requested", len(valid)), zap.Int64("deleted", n), zap.String("user_id", p.UserID))
	s.notifier.notify(ctx, event.SubjectListingsBulkDeleted, event.ListingEvent{
		ListingIDs: valid,
		UserID:     p.UserID,
		Count:      n,
	})
	return n, nil
}

// BulkUpdate fields 只允许 is_available 与 price，其他字段整体拒绝
func (s *BulkService) BulkUpdate(ctx context.Context, p *model.Principal, ids []string, fields map[string]interface{}) (int64, error) {
	n, err := s.bulkUpdate(ctx, p, ids, fields)
	s.observe("bulk_update", err)
	return n, err
}

func (s *BulkService) bulkUpdate(ctx context.Context, p *model.Principal, ids []string, fields map[string]interface{}) (int64, error) {
	if p == nil {
		return 0, &ActionError{Kind: KindUnauthenticated, Message: "Unauthorized"}
	}
	if len(ids) == 0 {
		return 0, &ActionError{Kind: KindValidationFailed, Message: "No listing IDs provided"}
	}
	if len(fields) == 0 {
		return 0, &ActionError{Kind: KindValidationFailed, Message: "No update data provided"}
	}

	patch, err := ParseBulkPatch(fields)
	if err != nil {
		return 0, err
	}

	valid := normalizeIDs(ids)
	if len(valid) == 0 {
		return 0, nil
	}

	n, err := s.repo.ForOwner(p.OwnerScope()).BulkUpdate(ctx, valid, patch)
	if err != nil {
		s.logger.Error("批量更新失败", zap.Int("requested", len(valid)), zap.Error(err))
		return 0, &ActionError{Kind: KindStoreError, Message: storeMessage(err), Err: err}
	}

	s.logger.Info("批量更新完成", zap.Int("requested", len(valid)), zap.Int64("updated", n), zap.String("user_id", p.UserID))
	s.notifier.notify(ctx, event.SubjectListingsBulkUpdated, event.ListingEvent{
		ListingIDs: valid,
		UserID:     p.UserID,
		Count:      n,
	})
	return n, nil
}

func (s *BulkService) observe(action string, err error) {
	result := "success"
	if err != nil {
		result = string(KindOf(err))
	}
	s.observer.ObserveMutation(action, result)
}

// ParseBulkPatch 校验字段白名单与取值
func ParseBulkPatch(fields map[string]interface{}) (model.BulkPatch, error) {
	var unknown []string
	for k := range fields {
		if !bulkUpdatableFields[k] {
			unknown = append(unknown, k)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return model.BulkPatch{}, &ActionError{
			Kind:    KindValidationFailed,
			Message: "Invalid fields: " + strings.Join(unknown, ", "),
		}
	}

	var patch model.BulkPatch
	if v, ok := fields["is_available"]; ok {
		b, isBool := v.(bool)
		if !isBool {
			return model.BulkPatch{}, &ActionError{Kind: KindValidationFailed, Message: "is_available must be a boolean"}
		}
		patch.IsAvailable = &b
	}
	if v, ok := fields["price"]; ok {
		if v == nil {
			patch.ClearPrice = true
		} else {
			price, isNum := toFloat(v)
			if !isNum || price <= 0 {
				return model.BulkPatch{}, &ActionError{Kind: KindValidationFailed, Message: "price must be a positive number or null"}
			}
			patch.Price = &price
		}
	}
	return patch, nil
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case interface{ Float64() (float64, error) }:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}

// normalizeIDs 去重并丢弃非法 UUID，保持原顺序
func normalizeIDs(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if seen[id] || !model.IsUUID(id) {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

// BulkMessage 批量操作成功提示
func BulkMessage(verb string, n int64) string {
	return fmt.Sprintf("Successfully %s %d listing(s)", verb, n)
}
