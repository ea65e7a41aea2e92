package event

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
)

// 商品条目变更事件主题
const (
	SubjectListingCreated         = "listings.created"
	SubjectListingUpdated         = "listings.updated"
	SubjectListingDeleted         = "listings.deleted"
	SubjectListingsBulkDeleted    = "listings.bulk_deleted"
	SubjectListingsBulkUpdated    = "listings.bulk_updated"
	SubjectListingImagesReordered = "listings.images_reordered"
)

// ListingEvent 变更事件载荷
type ListingEvent struct {
	ListingIDs []string  `json:"listing_ids"`
	Slug       string    `json:"slug,omitempty"`
	UserID     string    `json:"user_id"`
	Count      int64     `json:"count,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Publisher 事件发布
type Publisher interface {
	Publish(ctx context.Context, subject string, data interface{}) error
	Close()
}

// NATSPublisher 基于 NATS 的发布者
type NATSPublisher struct {
	conn   *nats.Conn
	prefix string
}

// NewNATSPublisher 连接 NATS，prefix 会拼在主题前面
func NewNATSPublisher(url, prefix string) (*NATSPublisher, error) {
	conn, err := nats.Connect(url, nats.Name("boards-catalog"))
	if err != nil {
		return nil, fmt.Errorf("连接 nats 失败: %w", err)
	}
	return &NATSPublisher{conn: conn, prefix: prefix}, nil
}

func (p *NATSPublisher) subject(s string) string {
	if p.prefix == "" {
		return s
	}
	return p.prefix + "." + s
}

func (p *NATSPublisher) Publish(ctx context.Context, subject string, data interface{}) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	payload, err := json.Marshal(data)
	if err != nil {
		return err
	}
	return p.conn.Publish(p.subject(subject), payload)
}

func (p *NATSPublisher) Close() {
	_ = p.conn.Drain()
}

// NoopPublisher 未配置 NATS 时使用
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, string, interface{}) error { return nil }
func (NoopPublisher) Close() {}
