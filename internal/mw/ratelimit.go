package mw

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// KeyFunc 决定请求落进哪个令牌桶。
type KeyFunc func(c *gin.Context) string

// ByClient 按客户端地址分桶，用于 websocket 握手：同一地址反复重连共享一个桶。
func ByClient(c *gin.Context) string { return c.ClientIP() }

// ByClientRoute 按客户端地址加路由模板分桶。
// /rooms/:id/messages 下所有房间共用一个桶，换房间 id 猜密码拿不到新令牌。
func ByClientRoute(c *gin.Context) string {
	route := c.FullPath()
	if route == "" {
		route = c.Request.URL.Path
	}
	return c.ClientIP() + " " + route
}

type bucket struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

// Buckets 是按 key 懒创建的令牌桶集合。空闲超过 idle 的桶会被回收，回收后重新满桶。
type Buckets struct {
	limit rate.Limit
	burst int
	idle  time.Duration

	mu     sync.Mutex
	byKey  map[string]*bucket
	closed chan struct{}
	once   sync.Once
}

// NewBuckets 创建桶集合并启动后台回收，回收间隔为 idle 的一半。
func NewBuckets(limit rate.Limit, burst int, idle time.Duration) *Buckets {
	b := &Buckets{limit: limit, burst: burst, idle: idle, byKey: make(map[string]*bucket), closed: make(chan struct{})}
	go b.janitor(idle / 2)
	return b
}

func (b *Buckets) allow(key string, now time.Time) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	bk, ok := b.byKey[key]
	if !ok {
		bk = &bucket{lim: rate.NewLimiter(b.limit, b.burst)}
		b.byKey[key] = bk
	}
	bk.lastSeen = now
	return bk.lim.AllowN(now, 1)
}

// Allow 消耗 key 对应桶里的一个令牌。
func (b *Buckets) Allow(key string) bool { return b.allow(key, time.Now()) }

// evictIdle 删除 now 之前空闲超过 idle 的桶，返回删除的个数。
func (b *Buckets) evictIdle(now time.Time) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for k, bk := range b.byKey {
		if now.Sub(bk.lastSeen) > b.idle {
			delete(b.byKey, k)
			n++
		}
	}
	return n
}

func (b *Buckets) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.byKey)
}

func (b *Buckets) janitor(every time.Duration) {
	if every <= 0 {
		every = time.Second
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-b.closed:
			return
		case now := <-ticker.C:
			b.evictIdle(now)
		}
	}
}

// Close 停止后台回收，可重复调用。
func (b *Buckets) Close() {
	b.once.Do(func() { close(b.closed) })
}

// RateLimit 返回令牌桶限速中间件，桶耗尽时返回 429。
func RateLimit(b *Buckets, key KeyFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !b.Allow(key(c)) {
			c.Header("Retry-After", "1")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "too many requests"})
			return
		}
		c.Next()
	}
}
