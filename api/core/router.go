package core

import (
	"net/http"

	"github.com/anoixa/image-shelf/api"
	"github.com/anoixa/image-shelf/api/common"
	"github.com/anoixa/image-shelf/api/handler/events"
	"github.com/anoixa/image-shelf/api/handler/folders"
	"github.com/anoixa/image-shelf/api/handler/images"
	"github.com/anoixa/image-shelf/api/handler/profile"
	"github.com/anoixa/image-shelf/api/handler/public"
	"github.com/anoixa/image-shelf/api/middleware"
	"github.com/anoixa/image-shelf/config"
	"github.com/anoixa/image-shelf/database/models"
	"github.com/anoixa/image-shelf/docs"
	"github.com/anoixa/image-shelf/internal/app"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// RouterDependencies 路由注册依赖
type RouterDependencies struct {
	Container        *app.Container
	AuthRateLimiter  *middleware.IPRateLimiter
	APIRateLimiter   *middleware.IPRateLimiter
	ImageRateLimiter *middleware.IPRateLimiter
	UploadLimiter    *middleware.ConcurrencyLimiter
}

// RegisterRoutes 注册所有路由
func RegisterRoutes(router *gin.Engine, deps *RouterDependencies) {
	registerBasicRoutes(router, deps)
	registerPublicRoutes(router, deps)
	registerAPIRoutes(router, deps)
}

// registerBasicRoutes 健康检查、版本、指标和接口文档
func registerBasicRoutes(router *gin.Engine, deps *RouterDependencies) {
	c := deps.Container

	healthHandler := NewHealthHandler(c.GetDatabaseFactory(), c.GetCacheProvider(), c.GetStorageFactory())
	router.GET("/health", healthHandler.Handle)

	router.GET("/version", func(context *gin.Context) {
		common.RespondSuccess(context, gin.H{
			"version": config.Version,
			"commit":  config.CommitHash,
		})
	})

	router.GET("/metrics", middleware.JWTAuth(c.Identity.JWT()), middleware.RequireRole(models.RoleAdmin), func(context *gin.Context) {
		metrics := gin.H{"http": middleware.GetMetrics()}
		if pool := c.GetPool(); pool != nil {
			stats := pool.GetStats()
			metrics["worker"] = gin.H{
				"workers":   stats.WorkerCount,
				"queue_len": stats.QueueLen,
				"queue_cap": stats.QueueCap,
				"submitted": stats.Submitted,
				"dropped":   stats.Dropped,
				"executed":  stats.Executed,
				"failed":    stats.Failed,
			}
		}
		context.JSON(http.StatusOK, metrics)
	})

	docs.SwaggerInfo.Version = config.Version
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
}

// registerPublicRoutes 公开访问：文件、缩略图、短链和按文件名跳转
func registerPublicRoutes(router *gin.Engine, deps *RouterDependencies) {
	c := deps.Container
	validator := c.Identity.JWT()

	publicHandler := public.NewHandler(public.Options{
		Images:     c.Images,
		Thumbnails: c.Thumbnails,
		Fetcher:    c.Fetcher,
		Importer:   c,
		Hub:        c.GetHub(),
	})

	publicGroup := router.Group("")
	publicGroup.Use(deps.ImageRateLimiter.Middleware())
	publicGroup.Use(middleware.OptionalAuth(validator))
	{
		publicGroup.GET("/files/*key", publicHandler.ServeFile)              // GET /files/{key}
		publicGroup.GET("/thumbnails/:filename", publicHandler.GetThumbnail) // GET /thumbnails/{filename}?w=
		publicGroup.GET("/s/:code", publicHandler.RedirectByShortCode)       // GET /s/{code}
		publicGroup.GET("/:filename", publicHandler.RedirectByFilename)      // GET /{filename}
	}
}

// registerAPIRoutes 注册 API 路由
func registerAPIRoutes(router *gin.Engine, deps *RouterDependencies) {
	c := deps.Container
	cfg := c.GetConfig()
	validator := c.Identity.JWT()

	loginHandler := api.NewLoginHandler(c.Identity)
	imageHandler := images.NewHandler(images.Options{
		Images:        c.Images,
		Metadata:      c.Metadata,
		Uploads:       c,
		Workspaces:    c,
		Hub:           c.GetHub(),
		BaseURL:       cfg.BaseURL(),
		MaxBatchBytes: cfg.UploadMaxBatchBytes(),
	})
	folderHandler := folders.NewHandler(c.Metadata, c)
	profileHandler := profile.NewHandler(c.Metadata)
	eventsHandler := events.NewHandler(c.GetHub(), cfg.BaseURL())

	// 上传排队等待，超时返回 503
	uploadGate := func(ctx *gin.Context) { ctx.Next() }
	if deps.UploadLimiter != nil {
		uploadGate = deps.UploadLimiter.MiddlewareWithBlock(cfg.UploadQueueTimeout)
	}

	apiGroup := router.Group("/api")
	apiGroup.Use(middleware.NoStore())
	{
		authGroup := apiGroup.Group("/auth")
		authGroup.Use(deps.AuthRateLimiter.Middleware())
		{
			authGroup.POST("/signin", loginHandler.SignIn)                         // POST /api/auth/signin
			authGroup.POST("/signup", loginHandler.SignUp)                         // POST /api/auth/signup
			authGroup.POST("/refresh", loginHandler.Refresh)                       // POST /api/auth/refresh
			authGroup.POST("/signout", loginHandler.SignOut)                       // POST /api/auth/signout
			authGroup.POST("/password/reset", loginHandler.RequestPasswordReset)   // POST /api/auth/password/reset
			authGroup.POST("/password/confirm", loginHandler.ConfirmPasswordReset) // POST /api/auth/password/confirm
		}

		v1 := apiGroup.Group("/v1")
		v1.Use(deps.APIRateLimiter.Middleware())
		v1.Use(middleware.JWTAuth(validator))
		{
			imagesGroup := v1.Group("/images")
			{
				imagesGroup.GET("", imageHandler.ListImages)                       // GET /api/v1/images
				imagesGroup.POST("/upload", uploadGate, imageHandler.UploadImages) // POST /api/v1/images/upload
				imagesGroup.POST("/delete", imageHandler.DeleteImages)             // POST /api/v1/images/delete
				imagesGroup.GET("/:id", imageHandler.GetImage)                     // GET /api/v1/images/{id}
				imagesGroup.DELETE("/:id", imageHandler.DeleteImage)               // DELETE /api/v1/images/{id}
				imagesGroup.PATCH("/:id/access", imageHandler.UpdateAccess)        // PATCH /api/v1/images/{id}/access
			}

			foldersGroup := v1.Group("/folders")
			{
				foldersGroup.GET("", folderHandler.ListFolders)                      // GET /api/v1/folders
				foldersGroup.POST("", folderHandler.CreateFolder)                    // POST /api/v1/folders
				foldersGroup.GET("/:id", folderHandler.GetFolder)                    // GET /api/v1/folders/{id}
				foldersGroup.PATCH("/:id", folderHandler.UpdateFolder)               // PATCH /api/v1/folders/{id}
				foldersGroup.DELETE("/:id", folderHandler.DeleteFolder)              // DELETE /api/v1/folders/{id}
				foldersGroup.GET("/:id/images", folderHandler.ListFolderImages)      // GET /api/v1/folders/{id}/images
				foldersGroup.POST("/:id/images", folderHandler.AddFolderImages)      // POST /api/v1/folders/{id}/images
				foldersGroup.DELETE("/:id/images", folderHandler.RemoveFolderImages) // DELETE /api/v1/folders/{id}/images
				foldersGroup.POST("/:id/drop", folderHandler.DropOnFolder)           // POST /api/v1/folders/{id}/drop
			}

			v1.GET("/profile", profileHandler.GetProfile)      // GET /api/v1/profile
			v1.PATCH("/profile", profileHandler.UpdateProfile) // PATCH /api/v1/profile
		}

		// 浏览器建立 websocket 时无法设置请求头
		apiGroup.GET("/v1/events",
			deps.APIRateLimiter.Middleware(),
			middleware.TokenFromQuery("access_token"),
			middleware.JWTAuth(validator),
			eventsHandler.Stream,
		) // GET /api/v1/events
	}
}
