package image

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/anoixa/image-shelf/database/models"
	"github.com/anoixa/image-shelf/internal/apperr"
	"github.com/anoixa/image-shelf/utils"
)

var (
	// ErrTemporaryFailure 查询超时，可重试
	ErrTemporaryFailure = errors.New("temporary failure, should be retried")

	metaFetchTimeout = 10 * time.Second
)

// CanView 公开和共享图片任何人可见，私有图片只有所有者可见
func CanView(img *models.Image, viewer *uint) bool {
	if img.AccessType != models.AccessPrivate {
		return true
	}
	return viewer != nil && img.IsOwnedBy(*viewer)
}

// ResolveFilename 按文件名查找，带缓存、空值缓存和 singleflight
func (s *Service) ResolveFilename(ctx context.Context, filename string) (*models.Image, error) {
	if s.cacheHelper.IsEmptyValue(ctx, filename) {
		return nil, apperr.NotFound("ResolveFilename", "image not found")
	}
	if img, err := s.cacheHelper.GetCachedImage(ctx, filename); err == nil {
		return img, nil
	}

	return s.load(ctx, "f:"+filename, func(ctx context.Context) (*models.Image, error) {
		img, err := s.meta.GetImageByFilename(ctx, filename)
		if apperr.IsNotFound(err) {
			if cacheErr := s.cacheHelper.CacheEmptyValue(context.Background(), filename); cacheErr != nil {
				utils.LogIfDev("[Lookup] Failed to cache empty value for %s: %v", filename, cacheErr)
			}
		}
		return img, err
	})
}

// ResolveShortCode 按短码查找
func (s *Service) ResolveShortCode(ctx context.Context, code string) (*models.Image, error) {
	if filename, err := s.cacheHelper.GetCachedFilename(ctx, code); err == nil {
		return s.ResolveFilename(ctx, filename)
	}

	return s.load(ctx, "s:"+code, func(ctx context.Context) (*models.Image, error) {
		return s.meta.GetImageByShortURL(ctx, code)
	})
}

// ResolveVisible 查找并检查可见性，不可见时与不存在一样返回 NotFound
func (s *Service) ResolveVisible(ctx context.Context, filename string, viewer *uint) (*models.Image, error) {
	img, err := s.ResolveFilename(ctx, filename)
	if err != nil {
		return nil, err
	}
	if !CanView(img, viewer) {
		return nil, apperr.NotFound("ResolveVisible", "image not found")
	}
	return img, nil
}

func (s *Service) load(ctx context.Context, key string, fetch func(context.Context) (*models.Image, error)) (*models.Image, error) {
	resultChan := s.group.DoChan(key, func() (interface{}, error) {
		fetchCtx, cancel := context.WithTimeout(context.Background(), metaFetchTimeout)
		defer cancel()

		img, err := fetch(fetchCtx)
		if err != nil {
			return nil, err
		}

		if cacheErr := s.cacheHelper.CacheImage(fetchCtx, img); cacheErr != nil {
			log.Printf("[Lookup] Failed to cache image metadata for '%s': %v", utils.SanitizeLogMessage(img.Filename), cacheErr)
		}
		return img, nil
	})

	select {
	case result := <-resultChan:
		if result.Err != nil {
			if apperr.IsRemote(result.Err) {
				s.group.Forget(key)
			}
			return nil, result.Err
		}
		return result.Val.(*models.Image), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(metaFetchTimeout):
		s.group.Forget(key)
		return nil, ErrTemporaryFailure
	}
}

// ForgetEmpty 新文件写入后清除空值缓存
func (s *Service) ForgetEmpty(ctx context.Context, filename string) {
	_ = s.cacheHelper.DeleteEmptyValue(ctx, filename)
}
