package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/anoixa/image-shelf/api/common"
	"github.com/gin-gonic/gin"
	"golang.org/x/sync/semaphore"
)

// defaultQueueTimeout MiddlewareWithBlock 未指定超时时的等待上限
const defaultQueueTimeout = 30 * time.Second

// ConcurrencyLimiter 基于信号量的并发上限
type ConcurrencyLimiter struct {
	sem *semaphore.Weighted
}

// NewConcurrencyLimiter 并发限制器
func NewConcurrencyLimiter(maxConcurrency int64) *ConcurrencyLimiter {
	if maxConcurrency <= 0 {
		maxConcurrency = 100
	}
	return &ConcurrencyLimiter{
		sem: semaphore.NewWeighted(maxConcurrency),
	}
}

// Middleware 超出并发时立即返回 503
func (cl *ConcurrencyLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !cl.sem.TryAcquire(1) {
			common.RespondErrorAbort(c, http.StatusServiceUnavailable, "Server is busy, please try again later")
			return
		}
		defer cl.sem.Release(1)
		c.Next()
	}
}

// MiddlewareWithBlock 排队等待至多 timeout，上传接口使用
func (cl *ConcurrencyLimiter) MiddlewareWithBlock(timeout time.Duration) gin.HandlerFunc {
	if timeout <= 0 {
		timeout = defaultQueueTimeout
	}
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), timeout)
		defer cancel()

		if err := cl.sem.Acquire(ctx, 1); err != nil {
			common.RespondErrorAbort(c, http.StatusServiceUnavailable, "Upload queue is full, please try again later")
			return
		}
		defer cl.sem.Release(1)
		c.Next()
	}
}
