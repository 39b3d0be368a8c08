package image

import (
	"bytes"
	"context"
	"fmt"
	"image/png"
	"io"
	"log"

	"github.com/anoixa/image-shelf/cache"
	"github.com/anoixa/image-shelf/database/models"
	"github.com/anoixa/image-shelf/internal/apperr"
	"github.com/anoixa/image-shelf/utils"
	"github.com/disintegration/imaging"
	"golang.org/x/sync/semaphore"
)

// ThumbnailConfig 缩略图配置
type ThumbnailConfig struct {
	MaxWidth      int
	Quality       int
	MaxConcurrent int64
	// MemoryCheck 解码原图前调用，返回错误时放弃生成
	MemoryCheck func() error
}

// Thumbnail 生成结果
type Thumbnail struct {
	Data     []byte
	MimeType string
	Width    int
	Cached   bool
}

// ThumbnailService 按需生成缩略图并缓存
type ThumbnailService struct {
	images      *Service
	cacheHelper *cache.Helper
	cfg         ThumbnailConfig
	sem         *semaphore.Weighted
}

// NewThumbnailService 创建缩略图服务
func NewThumbnailService(images *Service, cacheHelper *cache.Helper, cfg ThumbnailConfig) *ThumbnailService {
	if cfg.MaxWidth <= 0 {
		cfg.MaxWidth = 1024
	}
	if cfg.Quality <= 0 || cfg.Quality > 100 {
		cfg.Quality = 80
	}
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = 4
	}
	if cacheHelper == nil {
		cacheHelper = cache.NewHelper(nil, cache.HelperConfig{})
	}
	return &ThumbnailService{
		images:      images,
		cacheHelper: cacheHelper,
		cfg:         cfg,
		sem:         semaphore.NewWeighted(cfg.MaxConcurrent),
	}
}

// SnapWidth 请求宽度向上取整到档位，超过上限时取上限内最大档位
func (s *ThumbnailService) SnapWidth(requested int) int {
	best := 0
	for _, w := range cache.ThumbnailWidths {
		if w > s.cfg.MaxWidth {
			break
		}
		best = w
		if requested <= w {
			return w
		}
	}
	if best == 0 {
		return s.cfg.MaxWidth
	}
	return best
}

// Get 获取缩略图，viewer 为 nil 表示匿名访问
func (s *ThumbnailService) Get(ctx context.Context, filename string, requested int, viewer *uint) (*Thumbnail, error) {
	img, err := s.images.ResolveVisible(ctx, filename, viewer)
	if err != nil {
		return nil, err
	}
	if !utils.IsImageMimeType(img.Mime()) {
		return nil, apperr.Validation("Thumbnail", "not an image")
	}

	width := s.SnapWidth(requested)
	mimeType := thumbnailMime(img.Mime())

	if data, err := s.cacheHelper.GetCachedThumbnail(ctx, img.Filename, width); err == nil {
		return &Thumbnail{Data: data, MimeType: mimeType, Width: width, Cached: true}, nil
	}

	if err := s.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer s.sem.Release(1)

	data, err := s.generate(ctx, img, width)
	if err != nil {
		return nil, err
	}

	if err := s.cacheHelper.CacheThumbnail(ctx, img.Filename, width, data); err != nil {
		log.Printf("[Thumbnail] Failed to cache thumbnail for %s: %v", utils.SanitizeLogMessage(img.Filename), err)
	}
	return &Thumbnail{Data: data, MimeType: mimeType, Width: width}, nil
}

func (s *ThumbnailService) generate(ctx context.Context, img *models.Image, width int) ([]byte, error) {
	if s.cfg.MemoryCheck != nil {
		if err := s.cfg.MemoryCheck(); err != nil {
			return nil, apperr.Remote("Thumbnail", err)
		}
	}

	provider, err := s.images.Blobs().Get(img.StorageDriver)
	if err != nil {
		return nil, apperr.Remote("Thumbnail", err)
	}

	reader, err := provider.GetWithContext(ctx, img.Filename)
	if err != nil {
		return nil, apperr.Remote("Thumbnail", err)
	}
	if closer, ok := reader.(io.Closer); ok {
		defer closeQuietly(closer)
	}

	src, err := imaging.Decode(reader, imaging.AutoOrientation(true))
	if err != nil {
		return nil, apperr.Validation("Thumbnail", fmt.Sprintf("cannot decode image: %v", err))
	}

	if src.Bounds().Dx() > width {
		src = imaging.Resize(src, width, 0, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if thumbnailMime(img.Mime()) == "image/png" {
		err = imaging.Encode(&buf, src, imaging.PNG, imaging.PNGCompressionLevel(png.BestSpeed))
	} else {
		err = imaging.Encode(&buf, src, imaging.JPEG, imaging.JPEGQuality(s.cfg.Quality))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to encode thumbnail: %w", err)
	}
	return buf.Bytes(), nil
}

// thumbnailMime 可能带透明通道的格式输出 PNG，其余输出 JPEG
func thumbnailMime(source string) string {
	switch utils.NormalizeMimeType(source) {
	case "image/png", "image/gif", "image/webp":
		return "image/png"
	default:
		return "image/jpeg"
	}
}
