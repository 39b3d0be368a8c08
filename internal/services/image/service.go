// Package image 图片的删除、访问控制、重定向查找、URL 拉取和缩略图。
package image

import (
	"context"
	"log"

	"github.com/anoixa/image-shelf/cache"
	"github.com/anoixa/image-shelf/database/models"
	"github.com/anoixa/image-shelf/internal/apperr"
	"github.com/anoixa/image-shelf/internal/metadata"
	"github.com/anoixa/image-shelf/internal/worker"
	"github.com/anoixa/image-shelf/storage"
	"github.com/anoixa/image-shelf/utils"
	"golang.org/x/sync/singleflight"
)

// Service 图片服务
type Service struct {
	meta        *metadata.Client
	blobs       *storage.Factory
	cacheHelper *cache.Helper
	pool        *worker.Pool
	group       singleflight.Group
}

// NewService 创建图片服务，pool 为 nil 时缓存清理同步执行
func NewService(meta *metadata.Client, blobs *storage.Factory, cacheHelper *cache.Helper, pool *worker.Pool) *Service {
	if cacheHelper == nil {
		cacheHelper = cache.NewHelper(nil, cache.HelperConfig{})
	}
	return &Service{
		meta:        meta,
		blobs:       blobs,
		cacheHelper: cacheHelper,
		pool:        pool,
	}
}

// List 列出用户的全部图片
func (s *Service) List(ctx context.Context, owner uint) ([]*models.Image, error) {
	return s.meta.ListImages(ctx, owner)
}

// ListImages 实现 library.ImageSource
func (s *Service) ListImages(ctx context.Context, owner uint) ([]*models.Image, error) {
	return s.List(ctx, owner)
}

// Get 获取单张图片，非所有者返回 NotFound
func (s *Service) Get(ctx context.Context, id, owner uint) (*models.Image, error) {
	img, err := s.meta.GetImage(ctx, id)
	if err != nil {
		return nil, err
	}
	if !img.IsOwnedBy(owner) {
		return nil, apperr.NotFound("GetImage", "image not found or access denied")
	}
	return img, nil
}

// SetAccess 修改访问类型，成功后清除缓存
func (s *Service) SetAccess(ctx context.Context, id, owner uint, isAdmin bool, access models.AccessType) (*models.Image, error) {
	img, err := s.meta.UpdateImageAccess(ctx, id, owner, isAdmin, access)
	if err != nil {
		return nil, err
	}
	s.Invalidate(img)
	return img, nil
}

// Delete 先尽力删除对象，再删除元数据。元数据删除成功即视为成功。
func (s *Service) Delete(ctx context.Context, id, owner uint) error {
	img, err := s.Get(ctx, id, owner)
	if err != nil {
		return err
	}

	provider, perr := s.blobs.Get(img.StorageDriver)
	if perr != nil {
		log.Printf("[Image] Storage %q unavailable, blob %s left behind: %v", img.StorageDriver, utils.SanitizeLogMessage(img.Filename), perr)
	} else {
		(&worker.BlobDeleteTask{Provider: provider, Key: img.Filename}).Execute()
	}

	if _, err := s.meta.DeleteImage(ctx, id, owner); err != nil {
		return err
	}

	s.Invalidate(img)
	utils.LogIfDev("[Image] Deleted image %d (%s)", img.ID, img.Filename)
	return nil
}

// PublicURL 图片的公开访问地址
func (s *Service) PublicURL(img *models.Image) string {
	return s.blobs.URLFor(img.Filename)
}

// Blobs 存储工厂
func (s *Service) Blobs() *storage.Factory {
	return s.blobs
}

// Invalidate 异步清除缓存，队列满时同步执行
func (s *Service) Invalidate(img *models.Image) {
	task := &worker.CacheInvalidateTask{Helper: s.cacheHelper, Filename: img.Filename, ShortCode: img.ShortURL}
	if s.pool != nil && s.pool.Submit(task) {
		return
	}
	task.Execute()
}
