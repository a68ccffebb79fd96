package ratelimit

import (
	"context"
	"sync"
	"time"
)

// RateLimiter 速率限制器接口
type RateLimiter interface {
	Wait(ctx context.Context) error
	Allow() bool
}

// TokenBucket 令牌桶：容量 capacity，每秒补充 refillRate 个
type TokenBucket struct {
	capacity   float64
	tokens     float64
	refillRate float64
	lastRefill time.Time
	now        func() time.Time
	mu         sync.Mutex
}

// NewTokenBucket 创建令牌桶（初始为满）
func NewTokenBucket(capacity int, refillRate float64) *TokenBucket {
	return &TokenBucket{
		capacity:   float64(capacity),
		tokens:     float64(capacity),
		refillRate: refillRate,
		lastRefill: time.Now(),
		now:        time.Now,
	}
}

func (tb *TokenBucket) refill() {
	now := tb.now()
	elapsed := now.Sub(tb.lastRefill).Seconds()
	if elapsed <= 0 {
		return
	}
	tb.tokens += elapsed * tb.refillRate
	if tb.tokens > tb.capacity {
		tb.tokens = tb.capacity
	}
	tb.lastRefill = now
}

// Allow 有令牌则消耗一个并返回 true
func (tb *TokenBucket) Allow() bool {
	_, ok := tb.reserve()
	return ok
}

// reserve 尝试取令牌；失败时返回需要等待的时间
func (tb *TokenBucket) reserve() (time.Duration, bool) {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	tb.refill()
	if tb.tokens >= 1 {
		tb.tokens--
		return 0, true
	}
	if tb.refillRate <= 0 {
		return time.Second, false
	}
	return time.Duration((1 - tb.tokens) / tb.refillRate * float64(time.Second)), false
}

// Wait 阻塞直到取得令牌或 ctx 结束
func (tb *TokenBucket) Wait(ctx context.Context) error {
	for {
		wait, ok := tb.reserve()
		if ok {
			return nil
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// Manager 按端点分组的限速器
type Manager struct {
	mu       sync.RWMutex
	limiters map[string]RateLimiter
	fallback RateLimiter
}

// 端点名称
const (
	EndpointOrderPost    = "clob:order:post"
	EndpointBookGet      = "clob:book:get"
	EndpointMarketGet    = "clob:markets:get"
	EndpointPositionsGet = "data:positions:get"
	EndpointGammaMarket  = "gamma:markets:get"
)

// NewManager 创建带 Polymarket 公开限额的管理器（按 10 秒窗口折算为每秒）
func NewManager() *Manager {
	return &Manager{
		limiters: map[string]RateLimiter{
			EndpointOrderPost:    NewTokenBucket(240, 24), // 2400/10s 突发 240
			EndpointBookGet:      NewTokenBucket(50, 20),  // 200/10s
			EndpointMarketGet:    NewTokenBucket(25, 10),
			EndpointPositionsGet: NewTokenBucket(20, 20), // 200/10s
			EndpointGammaMarket:  NewTokenBucket(12, 12), // 125/10s
		},
		fallback: NewTokenBucket(100, 50),
	}
}

// Set 覆盖某端点的限速器
func (m *Manager) Set(endpoint string, l RateLimiter) {
	m.mu.Lock()
	m.limiters[endpoint] = l
	m.mu.Unlock()
}

// Limiter 获取端点限速器，未知端点使用通用限速器
func (m *Manager) Limiter(endpoint string) RateLimiter {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if l, ok := m.limiters[endpoint]; ok {
		return l
	}
	return m.fallback
}

// Wait 等待端点配额
func (m *Manager) Wait(ctx context.Context, endpoint string) error {
	return m.Limiter(endpoint).Wait(ctx)
}
