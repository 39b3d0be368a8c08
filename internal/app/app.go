package app

import (
	"context"
	"fmt"
	"time"

	"github.com/anoixa/image-shelf/cache"
	"github.com/anoixa/image-shelf/config"
	"github.com/anoixa/image-shelf/database"
	"github.com/anoixa/image-shelf/database/repo/accounts"
	"github.com/anoixa/image-shelf/database/repo/folders"
	"github.com/anoixa/image-shelf/database/repo/images"
	"github.com/anoixa/image-shelf/internal/auth"
	"github.com/anoixa/image-shelf/internal/events"
	"github.com/anoixa/image-shelf/internal/library"
	"github.com/anoixa/image-shelf/internal/metadata"
	imageSvc "github.com/anoixa/image-shelf/internal/services/image"
	"github.com/anoixa/image-shelf/internal/session"
	"github.com/anoixa/image-shelf/internal/upload"
	"github.com/anoixa/image-shelf/internal/worker"
	"github.com/anoixa/image-shelf/storage"
	"github.com/anoixa/image-shelf/utils"
)

// Container 依赖注入容器 - 管理所有服务的生命周期
type Container struct {
	config          *config.Config
	databaseFactory *database.Factory
	storageFactory  *storage.Factory
	cacheProvider   cache.Provider
	cacheHelper     *cache.Helper
	pool            *worker.Pool
	notifier        *session.Notifier
	hub             *events.Hub
	unbridge        func()

	AccountsRepo *accounts.Repository
	ImagesRepo   *images.Repository
	FoldersRepo  *folders.Repository

	Metadata   *metadata.Client
	Identity   *auth.IdentityService
	Images     *imageSvc.Service
	Thumbnails *imageSvc.ThumbnailService
	Fetcher    *imageSvc.HTTPFetcher
}

// NewContainer 创建新的依赖注入容器
func NewContainer(cfg *config.Config) *Container {
	return &Container{config: cfg}
}

// Init 数据库和服务一起初始化
func (c *Container) Init() error {
	if err := c.InitDatabase(); err != nil {
		return err
	}
	return c.InitServices()
}

// InitDatabase 数据库、仓库和元数据客户端
func (c *Container) InitDatabase() error {
	utils.LogIfDev("Initializing DI container...")

	factory, err := database.NewFactory(c.config)
	if err != nil {
		return fmt.Errorf("failed to initialize database factory: %w", err)
	}
	c.databaseFactory = factory
	c.initRepositories()

	utils.LogIfDev("DI container initialized successfully")
	return nil
}

// UseDatabase 使用已打开的数据库，测试和迁移工具使用
func (c *Container) UseDatabase(provider database.Provider) {
	c.databaseFactory = database.NewFactoryWithProvider(provider)
	c.initRepositories()
}

func (c *Container) initRepositories() {
	provider := c.databaseFactory.GetProvider()
	c.AccountsRepo = accounts.NewRepository(provider)
	c.ImagesRepo = images.NewRepository(provider)
	c.FoldersRepo = folders.NewRepository(provider)
	c.Metadata = metadata.NewClient(c.ImagesRepo, c.FoldersRepo, c.AccountsRepo)
	utils.LogIfDev("Repositories initialized")
}

// InitServices 存储、缓存、协程池、认证和图片服务
func (c *Container) InitServices() error {
	if c.databaseFactory == nil {
		return fmt.Errorf("database not initialized")
	}

	storageFactory, err := storage.NewFactory(c.config)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	c.storageFactory = storageFactory

	cacheProvider, err := cache.NewProvider(c.config)
	if err != nil {
		return fmt.Errorf("failed to initialize cache: %w", err)
	}
	c.cacheProvider = cacheProvider
	c.cacheHelper = cache.NewHelper(cacheProvider, cache.HelperConfig{
		ImageTTL:     time.Duration(c.config.CacheImageMetaTTL) * time.Second,
		ThumbnailTTL: time.Duration(c.config.CacheThumbnailTTL) * time.Second,
	})

	c.pool = worker.InitGlobalPool(c.config.GetWorkerCount(), c.config.WorkerQueueSize)

	jwtService, err := auth.NewJWTService(c.config)
	if err != nil {
		return fmt.Errorf("failed to initialize JWT: %w", err)
	}
	c.notifier = session.NewNotifier()
	c.Identity = auth.NewIdentityService(c.AccountsRepo, jwtService, c.notifier, c.config.ResetTokenTTL)

	c.hub = events.NewHub()
	c.unbridge = events.BridgeSessions(c.hub, c.notifier)

	c.Images = imageSvc.NewService(c.Metadata, c.storageFactory, c.cacheHelper, c.pool)
	c.Thumbnails = imageSvc.NewThumbnailService(c.Images, c.cacheHelper, imageSvc.ThumbnailConfig{
		MaxWidth:    c.config.ThumbnailMaxWidth,
		Quality:     c.config.ThumbnailQuality,
		MemoryCheck: c.config.CheckMemoryLimit,
	})
	c.Fetcher = imageSvc.NewHTTPFetcher(imageSvc.FetcherConfig{
		MaxSize:   c.config.UploadMaxBytes(),
		Timeout:   c.config.ImportTimeout,
		UserAgent: c.config.ImportUserAgent,
	})

	utils.LogIfDev("Services initialized")
	return nil
}

// NewOrchestrator 按配置创建上传编排器
func (c *Container) NewOrchestrator(resolver upload.Resolver, observers ...upload.Observer) *upload.Orchestrator {
	return upload.NewOrchestrator(upload.Options{
		Metadata:  c.Metadata,
		Blobs:     c.storageFactory,
		Resolver:  resolver,
		MaxSize:   c.config.UploadMaxBytes(),
		TempDir:   c.config.TempDir(),
		Observers: observers,
	})
}

// NewImporter URL 导入用的编排器，不做同名检测
func (c *Container) NewImporter(observers ...upload.Observer) *upload.Orchestrator {
	return upload.NewOrchestrator(upload.Options{
		Metadata:        c.Metadata,
		Blobs:           c.storageFactory,
		MaxSize:         c.config.UploadMaxBytes(),
		TempDir:         c.config.TempDir(),
		Observers:       observers,
		AllowDuplicates: true,
	})
}

// NewWorkspace 为用户创建浏览工作区
func (c *Container) NewWorkspace(owner uint, view library.ViewState) *library.Workspace {
	return library.NewWorkspace(library.WorkspaceOptions{
		Owner:      owner,
		Source:     c.Images,
		Deleter:    c.Images,
		Membership: library.NewIndex(c.Metadata, owner),
		View:       view,
	})
}

// CleanupExpiredSessions 定时任务使用
func (c *Container) CleanupExpiredSessions(ctx context.Context) (int64, error) {
	return c.Identity.CleanupExpiredSessions(ctx)
}

// GetConfig 获取配置
func (c *Container) GetConfig() *config.Config {
	return c.config
}

// GetDatabaseFactory 获取数据库工厂
func (c *Container) GetDatabaseFactory() *database.Factory {
	return c.databaseFactory
}

// GetStorageFactory 获取存储工厂
func (c *Container) GetStorageFactory() *storage.Factory {
	return c.storageFactory
}

// GetCacheHelper 获取缓存辅助工具
func (c *Container) GetCacheHelper() *cache.Helper {
	return c.cacheHelper
}

// GetCacheProvider 获取缓存提供者
func (c *Container) GetCacheProvider() cache.Provider {
	return c.cacheProvider
}

// GetHub 获取 websocket 事件中心
func (c *Container) GetHub() *events.Hub {
	return c.hub
}

// GetPool 获取异步协程池
func (c *Container) GetPool() *worker.Pool {
	return c.pool
}

// Close 关闭所有服务
func (c *Container) Close() error {
	utils.LogIfDev("Closing DI container...")

	if c.unbridge != nil {
		c.unbridge()
	}
	if c.hub != nil {
		c.hub.Close()
	}
	if c.pool != nil {
		worker.StopGlobalPool()
	}
	if c.cacheProvider != nil {
		if err := c.cacheProvider.Close(); err != nil {
			utils.LogIfDev("Error closing cache provider: %v", err)
		}
	}
	if c.databaseFactory != nil {
		if err := c.databaseFactory.Close(); err != nil {
			utils.LogIfDev("Error closing database factory: %v", err)
		}
	}

	utils.LogIfDev("DI container closed")
	return nil
}
