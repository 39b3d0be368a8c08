package public

import (
	"io"
	"net/http"
	"strings"

	"github.com/anoixa/image-shelf/api/common"
	"github.com/anoixa/image-shelf/api/middleware"
	"github.com/anoixa/image-shelf/database/models"
	"github.com/anoixa/image-shelf/storage"
	"github.com/gin-gonic/gin"
)

// ServeFile 本地存储的文件访问
// @Summary      Serve a locally stored file
// @Tags         public
// @Produce      octet-stream
// @Param        key  path  string  true  "Storage key"
// @Success      200
// @Failure      404  {object}  common.ErrorBody  "File not found"
// @Router       /files/{key} [get]
func (h *Handler) ServeFile(c *gin.Context) {
	key := strings.TrimPrefix(c.Param("key"), "/")
	if !storage.IsValidKey(key) {
		common.RespondErrorBody(c, http.StatusNotFound, "File not found")
		return
	}

	ctx := c.Request.Context()
	img, err := h.images.ResolveVisible(ctx, key, middleware.CurrentUser(c))
	if err != nil {
		common.RespondErrorBody(c, http.StatusNotFound, "File not found")
		return
	}

	provider, err := h.images.Blobs().Get(img.StorageDriver)
	if err != nil {
		common.RespondErrorBody(c, http.StatusNotFound, "File not found")
		return
	}
	body, err := provider.GetWithContext(ctx, key)
	if err != nil {
		common.RespondErrorBody(c, http.StatusNotFound, "File not found")
		return
	}
	if closer, ok := body.(io.Closer); ok {
		defer func() { _ = closer.Close() }()
	}

	if mime := img.Mime(); mime != "" {
		c.Header("Content-Type", mime)
	}
	if img.AccessType == models.AccessPrivate {
		c.Header("Cache-Control", "private, max-age=300")
	} else {
		c.Header("Cache-Control", "public, max-age=31536000, immutable")
	}
	http.ServeContent(c.Writer, c.Request, key, img.UpdatedAt, body)
}
