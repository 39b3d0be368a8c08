package cache

import (
	"context"
	"math/rand"
	"strconv"
	"time"

	"github.com/anoixa/image-shelf/database/models"
)

const (
	DefaultImageCacheExpiration      = time.Hour
	DefaultThumbnailCacheExpiration  = 24 * time.Hour
	DefaultEmptyValueCacheExpiration = 5 * time.Minute

	// MaxCacheableThumbnailSize 超过此大小的缩略图不进缓存
	MaxCacheableThumbnailSize = 2 << 20
)

// ThumbnailWidths 缩略图宽度档位，请求宽度会向上取整到其中之一
var ThumbnailWidths = []int{128, 256, 512, 1024}

// addJitter ±10% 抖动，防止同时过期
func addJitter(d time.Duration) time.Duration {
	if d <= 0 {
		return d
	}
	return d + time.Duration(rand.Int63n(int64(d)/10+1))
}

// HelperConfig 缓存辅助工具配置
type HelperConfig struct {
	ImageTTL     time.Duration
	ThumbnailTTL time.Duration
}

// Helper 按业务对象封装缓存读写，provider 为 nil 时全部变为空操作
type Helper struct {
	provider Provider
	cfg      HelperConfig
}

// NewHelper 创建缓存辅助工具
func NewHelper(provider Provider, cfg HelperConfig) *Helper {
	if cfg.ImageTTL <= 0 {
		cfg.ImageTTL = DefaultImageCacheExpiration
	}
	if cfg.ThumbnailTTL <= 0 {
		cfg.ThumbnailTTL = DefaultThumbnailCacheExpiration
	}
	return &Helper{provider: provider, cfg: cfg}
}

// CacheImage 同时写入文件名和短码两个键
func (h *Helper) CacheImage(ctx context.Context, image *models.Image) error {
	if h.provider == nil {
		return nil
	}
	ttl := addJitter(h.cfg.ImageTTL)
	if err := h.provider.Set(ctx, ImageByFilename.Build(image.Filename), image, ttl); err != nil {
		return err
	}
	_ = h.provider.Delete(ctx, Empty.Build(image.Filename))
	return h.provider.Set(ctx, ImageByShortCode.Build(image.ShortURL), image.Filename, ttl)
}

// GetCachedImage 按文件名读取
func (h *Helper) GetCachedImage(ctx context.Context, filename string) (*models.Image, error) {
	if h.provider == nil {
		return nil, ErrCacheMiss
	}
	var image models.Image
	if err := h.provider.Get(ctx, ImageByFilename.Build(filename), &image); err != nil {
		return nil, err
	}
	return &image, nil
}

// GetCachedFilename 短码换文件名
func (h *Helper) GetCachedFilename(ctx context.Context, code string) (string, error) {
	if h.provider == nil {
		return "", ErrCacheMiss
	}
	var filename string
	if err := h.provider.Get(ctx, ImageByShortCode.Build(code), &filename); err != nil {
		return "", err
	}
	return filename, nil
}

// DeleteCachedImage 删除图片相关的全部缓存
func (h *Helper) DeleteCachedImage(ctx context.Context, filename, code string) error {
	if h.provider == nil {
		return nil
	}
	_ = h.provider.Delete(ctx, ImageByShortCode.Build(code))
	for _, w := range ThumbnailWidths {
		_ = h.provider.Delete(ctx, Thumbnail.Build(filename, strconv.Itoa(w)))
	}
	return h.provider.Delete(ctx, ImageByFilename.Build(filename))
}

// CacheEmptyValue 记录不存在的键
func (h *Helper) CacheEmptyValue(ctx context.Context, key string) error {
	if h.provider == nil {
		return nil
	}
	return h.provider.Set(ctx, Empty.Build(key), true, DefaultEmptyValueCacheExpiration)
}

// IsEmptyValue 是否命中空值缓存
func (h *Helper) IsEmptyValue(ctx context.Context, key string) bool {
	if h.provider == nil {
		return false
	}
	ok, err := h.provider.Exists(ctx, Empty.Build(key))
	return err == nil && ok
}

// DeleteEmptyValue 新建同名对象后清除空值标记
func (h *Helper) DeleteEmptyValue(ctx context.Context, key string) error {
	if h.provider == nil {
		return nil
	}
	return h.provider.Delete(ctx, Empty.Build(key))
}

// CacheThumbnail 缓存缩略图字节
func (h *Helper) CacheThumbnail(ctx context.Context, filename string, width int, data []byte) error {
	if h.provider == nil || len(data) > MaxCacheableThumbnailSize {
		return nil
	}
	return h.provider.Set(ctx, Thumbnail.Build(filename, strconv.Itoa(width)), data, addJitter(h.cfg.ThumbnailTTL))
}

// GetCachedThumbnail 读取缩略图
func (h *Helper) GetCachedThumbnail(ctx context.Context, filename string, width int) ([]byte, error) {
	if h.provider == nil {
		return nil, ErrCacheMiss
	}
	var data []byte
	if err := h.provider.Get(ctx, Thumbnail.Build(filename, strconv.Itoa(width)), &data); err != nil {
		return nil, err
	}
	return data, nil
}
