package core

import (
	"net/http"
	"time"

	"github.com/anoixa/image-shelf/api/middleware"
	"github.com/anoixa/image-shelf/config"
	"github.com/anoixa/image-shelf/internal/app"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// setupRouter 创建 gin 引擎并注册全部路由，返回的函数用于停止限流器的清理协程
func setupRouter(container *app.Container) (*gin.Engine, func()) {
	cfg := container.GetConfig()
	router := gin.New()

	// 仅在开发版本时启用 gin 日志
	if config.IsDevelopment() {
		router.Use(gin.Logger())
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{cfg.BaseURL()},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Length", "Content-Type", "Authorization", middleware.RequestIDHeader},
		ExposeHeaders:    []string{middleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	_ = router.SetTrustedProxies(nil)

	router.MaxMultipartMemory = cfg.UploadMaxBytes()

	concurrencyLimiter := middleware.NewConcurrencyLimiter(cfg.ServerMaxInFlight)
	router.Use(concurrencyLimiter.Middleware())

	// 请求体上限为批量总上限的两倍，multipart 边界和表单字段也算在内
	requestBodyLimit := cfg.UploadMaxBatchBytes() * 2
	if requestBodyLimit < 100<<20 {
		requestBodyLimit = 100 << 20
	}
	router.Use(middleware.MaxBytesReader(requestBodyLimit))

	router.Use(middleware.RequestID())
	router.Use(middleware.Metrics())

	authRateLimiter := middleware.NewIPRateLimiter(cfg.RateLimitAuthRPS, cfg.RateLimitAuthBurst, cfg.RateLimitExpireTime)
	apiRateLimiter := middleware.NewIPRateLimiter(cfg.RateLimitApiRPS, cfg.RateLimitApiBurst, cfg.RateLimitExpireTime)
	imageRateLimiter := middleware.NewIPRateLimiter(cfg.RateLimitImageRPS, cfg.RateLimitImageBurst, cfg.RateLimitExpireTime)
	cleanup := func() {
		authRateLimiter.StopCleanup()
		apiRateLimiter.StopCleanup()
		imageRateLimiter.StopCleanup()
	}

	RegisterRoutes(router, &RouterDependencies{
		Container:        container,
		AuthRateLimiter:  authRateLimiter,
		APIRateLimiter:   apiRateLimiter,
		ImageRateLimiter: imageRateLimiter,
		UploadLimiter:    middleware.NewConcurrencyLimiter(cfg.UploadMaxConcurrent),
	})

	return router, cleanup
}

// StartServer 创建 http.Server
func StartServer(container *app.Container) (*http.Server, func()) {
	cfg := container.GetConfig()
	router, cleanup := setupRouter(container)

	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.ServerReadTimeout,
		WriteTimeout: cfg.ServerWriteTimeout,
		IdleTimeout:  cfg.ServerIdleTimeout,
	}

	return srv, cleanup
}
