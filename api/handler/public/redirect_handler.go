package public

import (
	"errors"
	"log"
	"net/http"

	"github.com/anoixa/image-shelf/api/common"
	"github.com/anoixa/image-shelf/api/middleware"
	"github.com/anoixa/image-shelf/database/models"
	"github.com/anoixa/image-shelf/internal/apperr"
	imageSvc "github.com/anoixa/image-shelf/internal/services/image"
	"github.com/anoixa/image-shelf/storage"
	"github.com/anoixa/image-shelf/utils"
	"github.com/gin-gonic/gin"
)

// RedirectByFilename 302 到存储的公开地址
// @Summary      Redirect to image
// @Description  Private images only redirect for their owner; everyone else gets 404.
// @Tags         public
// @Produce      json
// @Param        filename  path  string  true  "Stored filename"
// @Success      302
// @Failure      404  {object}  common.ErrorBody  "Image not found"
// @Router       /{filename} [get]
func (h *Handler) RedirectByFilename(c *gin.Context) {
	filename := c.Param("filename")
	if !storage.IsValidKey(filename) {
		common.RespondErrorBody(c, http.StatusNotFound, "Image not found")
		return
	}

	img, err := h.images.ResolveVisible(c.Request.Context(), filename, middleware.CurrentUser(c))
	h.redirect(c, img, err)
}

// RedirectByShortCode 短链重定向
// @Summary      Redirect short link
// @Tags         public
// @Produce      json
// @Param        code  path  string  true  "Short code"
// @Success      302
// @Failure      404  {object}  common.ErrorBody  "Image not found"
// @Router       /s/{code} [get]
func (h *Handler) RedirectByShortCode(c *gin.Context) {
	img, err := h.images.ResolveShortCode(c.Request.Context(), c.Param("code"))
	if err == nil && !imageSvc.CanView(img, middleware.CurrentUser(c)) {
		err = apperr.NotFound("RedirectByShortCode", "image not found")
	}
	h.redirect(c, img, err)
}

func (h *Handler) redirect(c *gin.Context, img *models.Image, err error) {
	if err != nil {
		switch {
		case apperr.IsNotFound(err):
			common.RespondErrorBody(c, http.StatusNotFound, "Image not found")
		case errors.Is(err, imageSvc.ErrTemporaryFailure):
			common.RespondErrorBody(c, http.StatusServiceUnavailable, "Temporarily unavailable, please retry")
		default:
			log.Printf("[Redirect] Lookup failed for %s: %v", utils.SanitizeLogMessage(c.Request.URL.Path), err)
			common.RespondErrorBody(c, http.StatusInternalServerError, "Internal server error")
		}
		return
	}

	if img.AccessType == models.AccessPrivate {
		c.Header("Cache-Control", "private, no-store")
	}
	c.Redirect(http.StatusFound, h.images.PublicURL(img))
}
