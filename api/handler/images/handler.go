package images

import (
	"strconv"
	"strings"
	"time"

	"github.com/anoixa/image-shelf/database/models"
	"github.com/anoixa/image-shelf/internal/events"
	"github.com/anoixa/image-shelf/internal/library"
	"github.com/anoixa/image-shelf/internal/metadata"
	imageSvc "github.com/anoixa/image-shelf/internal/services/image"
	"github.com/anoixa/image-shelf/internal/upload"
)

// Uploads 创建上传编排器，app.Container 实现
type Uploads interface {
	NewOrchestrator(resolver upload.Resolver, observers ...upload.Observer) *upload.Orchestrator
}

// Workspaces 创建浏览工作区，app.Container 实现
type Workspaces interface {
	NewWorkspace(owner uint, view library.ViewState) *library.Workspace
}

// Handler 图片处理器
type Handler struct {
	images        *imageSvc.Service
	meta          *metadata.Client
	uploads       Uploads
	workspaces    Workspaces
	hub           *events.Hub
	baseURL       string
	maxBatchBytes int64
}

// Options 图片处理器依赖
type Options struct {
	Images        *imageSvc.Service
	Metadata      *metadata.Client
	Uploads       Uploads
	Workspaces    Workspaces
	Hub           *events.Hub
	BaseURL       string
	MaxBatchBytes int64
}

// NewHandler 图片处理器
func NewHandler(opts Options) *Handler {
	return &Handler{
		images:        opts.Images,
		meta:          opts.Metadata,
		uploads:       opts.Uploads,
		workspaces:    opts.Workspaces,
		hub:           opts.Hub,
		baseURL:       strings.TrimRight(opts.BaseURL, "/"),
		maxBatchBytes: opts.MaxBatchBytes,
	}
}

// ImageResponse 图片返回格式
type ImageResponse struct {
	ID           uint              `json:"id"`
	Filename     string            `json:"filename"`
	OriginalName string            `json:"original_name"`
	FileSize     *int64            `json:"file_size"`
	MimeType     *string           `json:"mime_type"`
	Width        int               `json:"width,omitempty"`
	Height       int               `json:"height,omitempty"`
	AccessType   models.AccessType `json:"access_type"`
	URL          string            `json:"url"`
	ShortURL     string            `json:"short_url"`
	ShortLink    string            `json:"short_link"`
	UploadedAt   time.Time         `json:"uploaded_at"`
}

func (h *Handler) toResponse(img *models.Image) ImageResponse {
	return ImageResponse{
		ID:           img.ID,
		Filename:     img.Filename,
		OriginalName: img.OriginalName,
		FileSize:     img.FileSize,
		MimeType:     img.MimeType,
		Width:        img.Width,
		Height:       img.Height,
		AccessType:   img.AccessType,
		URL:          h.images.PublicURL(img),
		ShortURL:     img.ShortURL,
		ShortLink:    h.baseURL + "/s/" + img.ShortURL,
		UploadedAt:   img.UploadedAt,
	}
}

func (h *Handler) toResponses(images []*models.Image) []ImageResponse {
	out := make([]ImageResponse, 0, len(images))
	for _, img := range images {
		out = append(out, h.toResponse(img))
	}
	return out
}

func parseID(raw string) (uint, bool) {
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}
