package public

import (
	"net/http"
	"strconv"

	"github.com/anoixa/image-shelf/api/common"
	"github.com/anoixa/image-shelf/api/middleware"
	"github.com/anoixa/image-shelf/internal/apperr"
	"github.com/anoixa/image-shelf/storage"
	"github.com/gin-gonic/gin"
)

// GetThumbnail 按宽度返回缩略图，宽度取最接近的预设档位
// @Summary      Get thumbnail
// @Tags         public
// @Produce      image/jpeg,image/png
// @Param        filename  path   string  true   "Stored filename"
// @Param        w         query  int     false  "Requested width"
// @Success      200
// @Failure      400  {object}  common.ErrorBody  "Not an image or bad width"
// @Failure      404  {object}  common.ErrorBody  "Image not found"
// @Router       /thumbnails/{filename} [get]
func (h *Handler) GetThumbnail(c *gin.Context) {
	filename := c.Param("filename")
	if !storage.IsValidKey(filename) {
		common.RespondErrorBody(c, http.StatusNotFound, "Image not found")
		return
	}

	width := 0
	if raw := c.Query("w"); raw != "" {
		w, err := strconv.Atoi(raw)
		if err != nil || w <= 0 {
			common.RespondErrorBody(c, http.StatusBadRequest, "w must be a positive integer")
			return
		}
		width = w
	}

	viewer := middleware.CurrentUser(c)
	thumb, err := h.thumbnails.Get(c.Request.Context(), filename, width, viewer)
	if err != nil {
		status := common.StatusFor(err, http.StatusInternalServerError)
		if status >= http.StatusInternalServerError {
			common.RespondErrorBody(c, status, "Failed to generate thumbnail")
			return
		}
		common.RespondErrorBody(c, status, apperr.Message(err))
		return
	}

	if viewer == nil {
		c.Header("Cache-Control", "public, max-age=86400")
	} else {
		c.Header("Cache-Control", "private, max-age=3600")
	}
	c.Header("X-Thumbnail-Width", strconv.Itoa(thumb.Width))
	if thumb.Cached {
		c.Header("X-Cache", "HIT")
	} else {
		c.Header("X-Cache", "MISS")
	}
	c.Data(http.StatusOK, thumb.MimeType, thumb.Data)
}
