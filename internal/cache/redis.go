package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisOptions redis 连接参数
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
}

// NewRedisClient 创建客户端并检查连通性
func NewRedisClient(ctx context.Context, opts RedisOptions) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("连接 redis 失败: %w", err)
	}
	return client, nil
}

// RedisCache 基于 redis 的视图缓存
// 每个作用域维护一个代数计数器，失效时自增，旧代的 key 自然过期
type RedisCache struct {
	client    redis.UniversalClient
	ttl       time.Duration
	keyPrefix string
}

// NewRedisCache 创建 redis 视图缓存
func NewRedisCache(client redis.UniversalClient, ttl time.Duration) *RedisCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisCache{client: client, ttl: ttl, keyPrefix: "boards:view:"}
}

func (c *RedisCache) generationKey(scope string) string {
	return c.keyPrefix + "gen:" + scope
}

func (c *RedisCache) generation(ctx context.Context, scope string) (int64, error) {
	gen, err := c.client.Get(ctx, c.generationKey(scope)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return gen, err
}

func (c *RedisCache) entryKey(scope, key string, gen int64) string {
	return fmt.Sprintf("%s%s:%d:%s", c.keyPrefix, scope, gen, key)
}

func (c *RedisCache) Get(ctx context.Context, scope, key string, dest interface{}) (bool, error) {
	gen, err := c.generation(ctx, scope)
	if err != nil {
		return false, err
	}
	data, err := c.client.Get(ctx, c.entryKey(scope, key, gen)).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return false, fmt.Errorf("解码缓存失败: %w", err)
	}
	return true, nil
}

func (c *RedisCache) Set(ctx context.Context, scope, key string, value interface{}) error {
	gen, err := c.generation(ctx, scope)
	if err != nil {
		return err
	}
	return c.SetAt(ctx, scope, key, gen, value)
}

func (c *RedisCache) Generation(ctx context.Context, scope string) (int64, error) {
	return c.generation(ctx, scope)
}

// SetAt 旧代写入直接丢弃；检查之后才发生的失效会让该 key 不再被读到
func (c *RedisCache) SetAt(ctx context.Context, scope, key string, gen int64, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNotCacheable, err)
	}
	current, err := c.generation(ctx, scope)
	if err != nil {
		return err
	}
	if current != gen {
		return nil
	}
	return c.client.Set(ctx, c.entryKey(scope, key, gen), data, c.ttl).Err()
}

func (c *RedisCache) Invalidate(ctx context.Context, scopes ...string) error {
	if len(scopes) == 0 {
		return nil
	}
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, scope := range scopes {
			pipe.Incr(ctx, c.generationKey(scope))
		}
		return nil
	})
	return err
}
