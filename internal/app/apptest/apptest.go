// Package apptest 处理器和命令测试使用的完整容器：内存 SQLite、临时目录本地存储、内存缓存
package apptest

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/anoixa/image-shelf/config"
	"github.com/anoixa/image-shelf/database/dbtest"
	"github.com/anoixa/image-shelf/database/models"
	"github.com/anoixa/image-shelf/internal/app"
	"github.com/stretchr/testify/require"
)

// BaseURL 测试配置的对外地址
const BaseURL = "http://localhost:8080"

// Config 测试默认配置，存储和暂存目录位于 t.TempDir()
func Config(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	return &config.Config{
		ServerHost:            "localhost",
		ServerPort:            8080,
		ServerMaxInFlight:     100,
		CacheType:             "memory",
		CacheMaxSizeMB:        16,
		CacheImageMetaTTL:     60,
		CacheThumbnailTTL:     60,
		StorageType:           "local",
		StorageLocalPath:      filepath.Join(dir, "files"),
		JWTSecret:             "test-secret-key-at-least-32-characters-long",
		JWTAccessTTL:          30 * time.Minute,
		JWTRefreshTTL:         24 * time.Hour,
		ResetTokenTTL:         time.Hour,
		RateLimitApiRPS:       1000,
		RateLimitApiBurst:     1000,
		RateLimitImageRPS:     1000,
		RateLimitImageBurst:   1000,
		RateLimitAuthRPS:      1000,
		RateLimitAuthBurst:    1000,
		RateLimitExpireTime:   time.Minute,
		UploadMaxSizeMB:       5,
		UploadMaxBatchTotalMB: 10,
		UploadTempDir:         filepath.Join(dir, "temp"),
		UploadMaxConcurrent:   4,
		UploadQueueTimeout:    5 * time.Second,
		ImportTimeout:         5 * time.Second,
		ThumbnailMaxWidth:     1024,
		ThumbnailQuality:      80,
		WorkerCount:           2,
		WorkerQueueSize:       100,
	}
}

// NewContainer 初始化完成的容器，测试结束时关闭
func NewContainer(t *testing.T) *app.Container {
	t.Helper()
	return NewContainerWithConfig(t, Config(t))
}

// NewContainerWithConfig 使用给定配置
func NewContainerWithConfig(t *testing.T, cfg *config.Config) *app.Container {
	t.Helper()
	require.NoError(t, os.MkdirAll(cfg.TempDir(), 0o755))

	c := app.NewContainer(cfg)
	c.UseDatabase(dbtest.NewProvider(t))
	require.NoError(t, c.InitServices())
	t.Cleanup(func() { _ = c.Close() })
	return c
}

// User 创建用户并签发访问令牌
func User(t *testing.T, c *app.Container, email string) (uint, string) {
	t.Helper()
	return userWithRole(t, c, email, models.RoleUser)
}

// Admin 创建管理员并签发访问令牌
func Admin(t *testing.T, c *app.Container, email string) (uint, string) {
	t.Helper()
	return userWithRole(t, c, email, models.RoleAdmin)
}

func userWithRole(t *testing.T, c *app.Container, email, role string) (uint, string) {
	t.Helper()
	user, err := c.Identity.CreateUser(context.Background(), email, "password123", "", role)
	require.NoError(t, err)
	token, _, err := c.Identity.JWT().GenerateAccessToken(user.Email, user.ID, user.Role)
	require.NoError(t, err)
	return user.ID, token
}
