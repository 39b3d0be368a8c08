package core

import (
	"context"
	"net/http"
	"time"

	"github.com/anoixa/image-shelf/cache"
	"github.com/anoixa/image-shelf/config"
	"github.com/anoixa/image-shelf/database"
	"github.com/anoixa/image-shelf/storage"
	"github.com/gin-gonic/gin"
)

var startTime = time.Now()

const healthCheckTimeout = 3 * time.Second

// HealthHandler 健康检查
type HealthHandler struct {
	db      *database.Factory
	cache   cache.Provider
	storage *storage.Factory
}

// NewHealthHandler 创建健康检查处理器
func NewHealthHandler(db *database.Factory, cacheProvider cache.Provider, storageFactory *storage.Factory) *HealthHandler {
	return &HealthHandler{db: db, cache: cacheProvider, storage: storageFactory}
}

// Handle 任一依赖不可用时返回 503
// @Summary      Health check
// @Tags         system
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Failure      503  {object}  map[string]interface{}
// @Router       /health [get]
func (h *HealthHandler) Handle(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthCheckTimeout)
	defer cancel()

	checks := gin.H{
		"database": checkDatabaseHealth(h.db),
		"cache":    checkCacheHealth(ctx, h.cache),
		"storage":  checkStorageHealth(ctx, h.storage),
	}

	status := "ok"
	httpStatus := http.StatusOK
	for _, result := range checks {
		if result != "ok" {
			status = "degraded"
			httpStatus = http.StatusServiceUnavailable
			break
		}
	}

	c.JSON(httpStatus, gin.H{
		"status":  status,
		"uptime":  time.Since(startTime).Round(time.Second).String(),
		"version": config.Version,
		"checks":  checks,
	})
}

func checkDatabaseHealth(factory *database.Factory) string {
	if factory == nil {
		return "not initialized"
	}
	if err := factory.Ping(); err != nil {
		return "unavailable: " + err.Error()
	}
	return "ok"
}

func checkCacheHealth(ctx context.Context, provider cache.Provider) string {
	if provider == nil {
		return "not initialized"
	}
	// redis 支持主动探测，内存缓存始终可用
	if checker, ok := provider.(interface{ Health(context.Context) error }); ok {
		if err := checker.Health(ctx); err != nil {
			return "unavailable: " + err.Error()
		}
	}
	return "ok"
}

func checkStorageHealth(ctx context.Context, factory *storage.Factory) string {
	if factory == nil {
		return "not initialized"
	}

	provider := factory.GetDefault()
	if provider == nil {
		return "error: no default storage provider"
	}
	if err := provider.Health(ctx); err != nil {
		return "error: " + err.Error()
	}
	return "ok"
}
