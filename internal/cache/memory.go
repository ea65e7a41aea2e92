package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"
)

// memoryItem 缓存值、所属代数和过期时间
type memoryItem struct {
	data       []byte
	gen        int64
	expiration time.Time
}

// MemoryCache 进程内缓存，未配置 redis 时使用
type MemoryCache struct {
	items sync.Map
	ttl   time.Duration
	now   func() time.Time

	mu   sync.Mutex
	gens map[string]int64
}

// NewMemoryCache 创建进程内缓存
func NewMemoryCache(ttl time.Duration) *MemoryCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemoryCache{ttl: ttl, now: time.Now, gens: make(map[string]int64)}
}

func memoryKey(scope, key string) string {
	return scope + "|" + key
}

func (c *MemoryCache) currentGen(scope string) int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gens[scope]
}

func (c *MemoryCache) Get(_ context.Context, scope, key string, dest interface{}) (bool, error) {
	k := memoryKey(scope, key)
	val, ok := c.items.Load(k)
	if !ok {
		return false, nil
	}
	item := val.(*memoryItem)

	// 懒删除：过期或属于旧代
	if c.now().After(item.expiration) || item.gen != c.currentGen(scope) {
		c.items.CompareAndDelete(k, val)
		return false, nil
	}
	if err := json.Unmarshal(item.data, dest); err != nil {
		return false, fmt.Errorf("解码缓存失败: %w", err)
	}
	return true, nil
}

func (c *MemoryCache) Set(ctx context.Context, scope, key string, value interface{}) error {
	return c.SetAt(ctx, scope, key, c.currentGen(scope), value)
}

func (c *MemoryCache) Generation(_ context.Context, scope string) (int64, error) {
	return c.currentGen(scope), nil
}

func (c *MemoryCache) SetAt(_ context.Context, scope, key string, gen int64, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNotCacheable, err)
	}
	if gen != c.currentGen(scope) {
		return nil
	}
	// 检查与写入之间发生的失效由 Get 的代数比较兜住
	c.items.Store(memoryKey(scope, key), &memoryItem{
		data:       data,
		gen:        gen,
		expiration: c.now().Add(c.ttl),
	})
	return nil
}

func (c *MemoryCache) Invalidate(_ context.Context, scopes ...string) error {
	c.mu.Lock()
	for _, scope := range scopes {
		c.gens[scope]++
	}
	c.mu.Unlock()

	for _, scope := range scopes {
		prefix := scope + "|"
		c.items.Range(func(k, _ interface{}) bool {
			if strings.HasPrefix(k.(string), prefix) {
				c.items.Delete(k)
			}
			return true
		})
	}
	return nil
}
