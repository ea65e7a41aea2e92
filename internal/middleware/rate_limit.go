package middleware

import (
	"fmt"
	"math"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// ==================== CooldownLimiter 冷却限流器 ====================

// CooldownLimiter 同一 key 在冷却间隔内只允许执行一次
// 用于手动触发的重任务（如缓存预热），防止频繁触发
type CooldownLimiter struct {
	locks sync.Map // key -> *lockEntry
	now   func() time.Time
}

// lockEntry 锁条目
type lockEntry struct {
	lastTime time.Time
	mu       sync.Mutex
}

// NewCooldownLimiter 创建限流器
func NewCooldownLimiter() *CooldownLimiter {
	return &CooldownLimiter{now: time.Now}
}

// CheckResult 检查结果
type CheckResult struct {
	Allowed    bool          // 是否允许
	RetryAfter time.Duration // 剩余冷却时间
}

// Check 检查是否允许执行，允许时记录本次执行时间
func (r *CooldownLimiter) Check(key string, interval time.Duration) CheckResult {
	actual, _ := r.locks.LoadOrStore(key, &lockEntry{})
	entry := actual.(*lockEntry)

	entry.mu.Lock()
	defer entry.mu.Unlock()

	now := r.now()
	elapsed := now.Sub(entry.lastTime)
	if !entry.lastTime.IsZero() && elapsed < interval {
		return CheckResult{
			Allowed:    false,
			RetryAfter: interval - elapsed,
		}
	}

	entry.lastTime = now
	return CheckResult{Allowed: true}
}

// Reset 重置指定 key
func (r *CooldownLimiter) Reset(key string) {
	r.locks.Delete(key)
}

// CooldownKey 按用户与动作生成 key，未登录时使用全局 key
func CooldownKey(userID, action string) string {
	if userID == "" {
		return "global:" + action
	}
	return fmt.Sprintf("user:%s:%s", userID, action)
}

// ==================== 中间件 ====================

// Cooldown 冷却限流中间件，需放在认证中间件之后
func Cooldown(limiter *CooldownLimiter, action string, interval time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := ""
		if p := GetPrincipal(c); p != nil {
			userID = p.UserID
		}

		result := limiter.Check(CooldownKey(userID, action), interval)
		if !result.Allowed {
			retryAfter := int(math.Ceil(result.RetryAfter.Seconds()))
			c.Header("Retry-After", fmt.Sprintf("%d", retryAfter))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"success":     false,
				"error":       "Too many requests",
				"message":     formatRetryMessage(result.RetryAfter),
				"retry_after": retryAfter,
			})
			return
		}
		c.Next()
	}
}

func formatRetryMessage(d time.Duration) string {
	if d >= time.Minute {
		return fmt.Sprintf("Please retry in %d minute(s).", int(math.Ceil(d.Minutes())))
	}
	return fmt.Sprintf("Please retry in %d second(s).", int(math.Ceil(d.Seconds())))
}

// ==================== 令牌桶限流 ====================

// DefaultClientIdleTTL 客户端令牌桶闲置多久后回收
const DefaultClientIdleTTL = 10 * time.Minute

// ClientRateLimiter 按客户端（登录用户或 IP）分配令牌桶
// 闲置超过 idleTTL 的令牌桶在后续请求中被顺带回收
type ClientRateLimiter struct {
	limiters  sync.Map // key -> *clientEntry
	limit     rate.Limit
	burst     int
	idleTTL   time.Duration
	lastSweep atomic.Int64
	now       func() time.Time
}

type clientEntry struct {
	limiter  *rate.Limiter
	lastSeen atomic.Int64 // unix nano
}

// NewClientRateLimiter perSecond 为每秒补充的令牌数
func NewClientRateLimiter(perSecond float64, burst int) *ClientRateLimiter {
	if burst < 1 {
		burst = 1
	}
	l := &ClientRateLimiter{
		limit:   rate.Limit(perSecond),
		burst:   burst,
		idleTTL: DefaultClientIdleTTL,
		now:     time.Now,
	}
	l.lastSweep.Store(l.now().UnixNano())
	return l
}

// Allow 消耗一个令牌
func (l *ClientRateLimiter) Allow(key string) bool {
	now := l.now()
	l.maybeSweep(now)

	actual, _ := l.limiters.LoadOrStore(key, &clientEntry{limiter: rate.NewLimiter(l.limit, l.burst)})
	entry := actual.(*clientEntry)
	entry.lastSeen.Store(now.UnixNano())
	return entry.limiter.AllowN(now, 1)
}

// maybeSweep 距上次回收超过 idleTTL 时由一个请求执行回收
func (l *ClientRateLimiter) maybeSweep(now time.Time) {
	last := l.lastSweep.Load()
	if now.UnixNano()-last < int64(l.idleTTL) {
		return
	}
	if !l.lastSweep.CompareAndSwap(last, now.UnixNano()) {
		return
	}
	l.sweep(now)
}

// sweep 删除闲置的令牌桶，返回删除数量
func (l *ClientRateLimiter) sweep(now time.Time) int {
	removed := 0
	cutoff := now.Add(-l.idleTTL).UnixNano()
	l.limiters.Range(func(k, v interface{}) bool {
		if v.(*clientEntry).lastSeen.Load() < cutoff && l.limiters.CompareAndDelete(k, v) {
			removed++
		}
		return true
	})
	return removed
}

// RateLimit 令牌桶限流中间件，超限返回 429
func RateLimit(l *ClientRateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := "ip:" + c.ClientIP()
		if p := GetPrincipal(c); p != nil {
			key = "user:" + p.UserID
		}
		if !l.Allow(key) {
			c.Header("Retry-After", "1")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"success": false,
				"error":   "Too many requests",
			})
			return
		}
		c.Next()
	}
}
