package cache

import (
	"context"
	"errors"
	"time"
)

// 缓存视图的作用域，写操作成功后按作用域整体失效
const (
	ScopePublicListings = "public:listings"
	ScopeAdminListings  = "admin:listings"
)

// DefaultTTL 默认缓存时长
const DefaultTTL = 5 * time.Minute

// ErrNotCacheable 值无法序列化
var ErrNotCacheable = errors.New("value is not cacheable")

// ViewCache 列表视图缓存
// 每个作用域有一个代数，Invalidate 使代数自增，旧代条目不再可见
type ViewCache interface {
	// Get 命中时把缓存内容解码到 dest 并返回 true
	Get(ctx context.Context, scope, key string, dest interface{}) (bool, error)
	// Set 写入当前代
	Set(ctx context.Context, scope, key string, value interface{}) error
	// Generation 读取作用域当前代数，回源前调用
	Generation(ctx context.Context, scope string) (int64, error)
	// SetAt 仅当作用域仍处于 gen 代时写入，否则丢弃
	SetAt(ctx context.Context, scope, key string, gen int64, value interface{}) error
	// Invalidate 使作用域下的全部条目失效
	Invalidate(ctx context.Context, scopes ...string) error
}
