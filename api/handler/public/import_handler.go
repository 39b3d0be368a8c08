package public

import (
	"net/http"

	"github.com/anoixa/image-shelf/api/common"
	"github.com/anoixa/image-shelf/api/middleware"
	"github.com/anoixa/image-shelf/database/models"
	"github.com/anoixa/image-shelf/internal/apperr"
	"github.com/anoixa/image-shelf/internal/events"
	imageSvc "github.com/anoixa/image-shelf/internal/services/image"
	"github.com/anoixa/image-shelf/internal/upload"
	"github.com/gin-gonic/gin"
)

type importRequest struct {
	ImageURL   string `json:"imageUrl" binding:"required,max=2048"`
	AccessType string `json:"access_type"`
}

// ImportResponse URL 导入结果
type ImportResponse struct {
	Filename     string `json:"filename"`
	OriginalName string `json:"original_name"`
	FileSize     int64  `json:"file_size"`
	MimeType     string `json:"mime_type"`
	URL          string `json:"url"`
	ShortURL     string `json:"short_url"`
}

// ImportFromURL 服务端拉取远程图片并保存
// @Summary      Import image from URL
// @Description  Fetches an http(s) URL server-side and stores it under a generated filename. With a bearer token the image belongs to the caller; anonymous imports are public and owner-less.
// @Tags         public
// @Accept       json
// @Produce      json
// @Param        request  body      importRequest     true  "Remote URL"
// @Success      200      {object}  ImportResponse
// @Failure      400      {object}  common.ErrorBody  "Bad URL, not an image or too large"
// @Failure      502      {object}  common.ErrorBody  "Remote fetch failed"
// @Router       /api/import [post]
func (h *Handler) ImportFromURL(c *gin.Context) {
	var req importRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondErrorBody(c, http.StatusBadRequest, "imageUrl is required")
		return
	}
	if _, err := imageSvc.ValidateURL(req.ImageURL); err != nil {
		common.RespondErrorBody(c, http.StatusBadRequest, apperr.Message(err))
		return
	}

	access, ok := models.ParseAccessType(req.AccessType, models.AccessPublic)
	if !ok {
		common.RespondErrorBody(c, http.StatusBadRequest, "access_type must be public, private or shared")
		return
	}

	owner := middleware.CurrentUser(c)
	if owner == nil {
		access = models.AccessPublic
	}
	var observers []upload.Observer
	if owner != nil && h.hub != nil {
		observers = append(observers, events.UploadObserver(h.hub, *owner))
	}

	source := upload.URLSource{URL: req.ImageURL, Fetcher: h.fetcher}
	items := h.importer.NewImporter(observers...).Run(c.Request.Context(), owner, []upload.Source{source}, access)
	item := items[0]
	if item.State != upload.StateSuccess {
		status := common.StatusFor(item.Err, http.StatusBadGateway)
		if status == http.StatusInternalServerError {
			status = http.StatusBadGateway
		}
		common.RespondErrorBody(c, status, apperr.Message(item.Err))
		return
	}

	img := item.Image
	h.images.ForgetEmpty(c.Request.Context(), img.Filename)
	c.JSON(http.StatusOK, ImportResponse{
		Filename:     img.Filename,
		OriginalName: img.OriginalName,
		FileSize:     img.Size(),
		MimeType:     img.Mime(),
		URL:          h.images.PublicURL(img),
		ShortURL:     img.ShortURL,
	})
}
