package public

import (
	"github.com/anoixa/image-shelf/internal/events"
	imageSvc "github.com/anoixa/image-shelf/internal/services/image"
	"github.com/anoixa/image-shelf/internal/upload"
)

// Importer 创建 URL 导入编排器，app.Container 实现
type Importer interface {
	NewImporter(observers ...upload.Observer) *upload.Orchestrator
}

// Handler 无需登录即可访问的接口：重定向、文件、缩略图和 URL 导入
type Handler struct {
	images     *imageSvc.Service
	thumbnails *imageSvc.ThumbnailService
	fetcher    upload.Fetcher
	importer   Importer
	hub        *events.Hub
}

// Options 公共接口依赖
type Options struct {
	Images     *imageSvc.Service
	Thumbnails *imageSvc.ThumbnailService
	Fetcher    upload.Fetcher
	Importer   Importer
	Hub        *events.Hub
}

// NewHandler 创建公共接口处理器
func NewHandler(opts Options) *Handler {
	return &Handler{
		images:     opts.Images,
		thumbnails: opts.Thumbnails,
		fetcher:    opts.Fetcher,
		importer:   opts.Importer,
		hub:        opts.Hub,
	}
}
