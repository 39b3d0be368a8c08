package middleware

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/anoixa/image-shelf/api/common"
	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

type clientLimiter struct {
	limiter  *rate.Limiter
	mu       sync.Mutex
	lastSeen time.Time
}

func (cl *clientLimiter) touch(now time.Time) {
	cl.mu.Lock()
	cl.lastSeen = now
	cl.mu.Unlock()
}

func (cl *clientLimiter) idleSince(now time.Time) time.Duration {
	cl.mu.Lock()
	defer cl.mu.Unlock()
	return now.Sub(cl.lastSeen)
}

// IPRateLimiter 按客户端 IP 的令牌桶限流
type IPRateLimiter struct {
	rps        float64       // 每秒请求数
	burst      int           // 令牌桶的容量
	expireTime time.Duration // 过期时间
	limiterMap *sync.Map
	stopOnce   sync.Once
	stopChan   chan struct{}
}

// NewIPRateLimiter Create new IP-based rate limits
func NewIPRateLimiter(rps float64, burst int, expireTime time.Duration) *IPRateLimiter {
	if burst <= 0 {
		burst = 1
	}
	if expireTime <= 0 {
		expireTime = 10 * time.Minute
	}
	limiter := &IPRateLimiter{
		rps:        rps,
		burst:      burst,
		expireTime: expireTime,
		limiterMap: &sync.Map{},
		stopChan:   make(chan struct{}),
	}

	// 启动后台清理 goroutine
	go limiter.cleanupStaleClients()

	return limiter
}

// Allow 判断该 IP 是否还有令牌
func (rl *IPRateLimiter) Allow(ip string) bool {
	now := time.Now()
	val, ok := rl.limiterMap.Load(ip)
	if !ok {
		val, _ = rl.limiterMap.LoadOrStore(ip, &clientLimiter{
			limiter:  rate.NewLimiter(rate.Limit(rl.rps), rl.burst),
			lastSeen: now,
		})
	}

	client := val.(*clientLimiter)
	client.touch(now)
	return client.limiter.Allow()
}

// Middleware Return a Gin middleware handler
func (rl *IPRateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !rl.Allow(getClientIP(c)) {
			common.RespondErrorAbort(c, http.StatusTooManyRequests, "Too many requests")
			return
		}
		c.Next()
	}
}

// StopCleanup 停止后台清理，可重复调用
func (rl *IPRateLimiter) StopCleanup() {
	rl.stopOnce.Do(func() { close(rl.stopChan) })
}

func (rl *IPRateLimiter) cleanupStaleClients() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.evict(time.Now())
		case <-rl.stopChan:
			return
		}
	}
}

func (rl *IPRateLimiter) evict(now time.Time) {
	rl.limiterMap.Range(func(key, value interface{}) bool {
		if value.(*clientLimiter).idleSince(now) > rl.expireTime {
			rl.limiterMap.Delete(key)
		}
		return true
	})
}

// getClientIP Get the client's real IP address
func getClientIP(c *gin.Context) string {
	if ip := c.GetHeader("X-Forwarded-For"); ip != "" {
		ips := strings.Split(ip, ",")
		if len(ips) > 0 {
			return strings.TrimSpace(ips[0])
		}
	}
	if ip := c.GetHeader("X-Real-IP"); ip != "" {
		return ip
	}
	return c.ClientIP()
}
