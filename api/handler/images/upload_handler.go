package images

import (
	"context"
	"fmt"
	"mime/multipart"
	"net/http"

	"github.com/anoixa/image-shelf/api/common"
	"github.com/anoixa/image-shelf/api/middleware"
	"github.com/anoixa/image-shelf/database/models"
	"github.com/anoixa/image-shelf/internal/apperr"
	"github.com/anoixa/image-shelf/internal/events"
	"github.com/anoixa/image-shelf/internal/upload"
	"github.com/gin-gonic/gin"
)

// maxFilesPerBatch 单次请求最多文件数
const maxFilesPerBatch = 50

// UploadResult 单个上传项的结果
type UploadResult struct {
	Index      int            `json:"index"`
	Name       string         `json:"name"`
	State      upload.State   `json:"state"`
	Error      string         `json:"error,omitempty"`
	Image      *ImageResponse `json:"image,omitempty"`
	ExistingID uint           `json:"existing_id,omitempty"`
}

type uploadResponse struct {
	Total        int            `json:"total"`
	SuccessCount int            `json:"success_count"`
	SkippedCount int            `json:"skipped_count"`
	ErrorCount   int            `json:"error_count"`
	Items        []UploadResult `json:"items"`
}

// UploadImages 批量上传
// @Summary      Upload images
// @Description  Upload one or more files. Items are processed in order; a name collision needs on_conflict=overwrite|skip, otherwise the item fails with 409.
// @Tags         images
// @Accept       multipart/form-data
// @Produce      json
// @Param        files        formData  file    true   "Image files"
// @Param        access_type  formData  string  false  "public | private | shared (default public)"
// @Param        on_conflict  formData  string  false  "overwrite | skip"
// @Success      200          {object}  common.Response{data=uploadResponse}
// @Failure      400          {object}  common.Response  "Invalid form data"
// @Failure      409          {object}  common.Response{data=uploadResponse}  "Name collision without a decision"
// @Failure      413          {object}  common.Response  "Batch too large"
// @Security     BearerAuth
// @Router       /api/v1/images/upload [post]
func (h *Handler) UploadImages(c *gin.Context) {
	userID := c.GetUint(middleware.ContextUserIDKey)

	form, err := c.MultipartForm()
	if err != nil {
		common.RespondError(c, http.StatusBadRequest, "Invalid form data")
		return
	}

	files := form.File["files"]
	if len(files) == 0 {
		files = form.File["file"]
	}
	if len(files) == 0 {
		common.RespondError(c, http.StatusBadRequest, "At least one file is required under the 'files' key")
		return
	}
	if len(files) > maxFilesPerBatch {
		common.RespondError(c, http.StatusBadRequest, fmt.Sprintf("Maximum %d files allowed per upload", maxFilesPerBatch))
		return
	}

	var totalSize int64
	for _, f := range files {
		totalSize += f.Size
	}
	if h.maxBatchBytes > 0 && totalSize > h.maxBatchBytes {
		common.RespondError(c, http.StatusRequestEntityTooLarge, fmt.Sprintf("Total size of all files (%.2f MB) exceeds maximum allowed (%d MB)", float64(totalSize)/1024/1024, h.maxBatchBytes>>20))
		return
	}

	access, ok := models.ParseAccessType(c.PostForm("access_type"), models.AccessPublic)
	if !ok {
		common.RespondError(c, http.StatusBadRequest, "access_type must be public, private or shared")
		return
	}
	resolution, ok := upload.ParseResolution(c.PostForm("on_conflict"))
	if !ok {
		common.RespondError(c, http.StatusBadRequest, "on_conflict must be overwrite or skip")
		return
	}

	sources := make([]upload.Source, 0, len(files))
	for _, fh := range files {
		sources = append(sources, multipartSource{header: fh})
	}

	var observers []upload.Observer
	if h.hub != nil {
		observers = append(observers, events.UploadObserver(h.hub, userID))
	}
	orchestrator := h.uploads.NewOrchestrator(upload.StaticResolver(resolution), observers...)
	items := orchestrator.Run(c.Request.Context(), &userID, sources, access)

	resp := uploadResponse{Total: len(items), Items: make([]UploadResult, 0, len(items))}
	var firstErr error
	for _, it := range items {
		if it.Replaced != nil {
			h.images.Invalidate(it.Replaced)
		}

		result := UploadResult{Index: it.Index, Name: it.Name, State: it.State, Error: it.Message()}
		if it.Existing != nil {
			result.ExistingID = it.Existing.ID
		}
		switch it.State {
		case upload.StateSuccess:
			resp.SuccessCount++
			img := h.toResponse(it.Image)
			result.Image = &img
		case upload.StateSkipped:
			resp.SkippedCount++
		default:
			resp.ErrorCount++
			if firstErr == nil {
				firstErr = it.Err
			}
		}
		resp.Items = append(resp.Items, result)
	}

	// 全部失败时按第一个错误的类别返回
	if resp.ErrorCount == len(items) {
		common.Respond(c, common.StatusFor(firstErr, http.StatusInternalServerError), "error", apperr.Message(firstErr), resp)
		return
	}
	common.RespondSuccessMessage(c, "Upload completed", resp)
}

// multipartSource 延迟打开 multipart 文件，处理完即关闭
type multipartSource struct {
	header *multipart.FileHeader
}

func (s multipartSource) DisplayName() string {
	return s.header.Filename
}

func (s multipartSource) Open(ctx context.Context) (*upload.Payload, error) {
	f, err := s.header.Open()
	if err != nil {
		return nil, apperr.Remote("OpenUpload", err)
	}
	return upload.ReaderSource{
		Name:     s.header.Filename,
		MimeType: s.header.Header.Get("Content-Type"),
		Reader:   f,
	}.Open(ctx)
}
