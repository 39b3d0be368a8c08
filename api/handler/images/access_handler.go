package images

import (
	"net/http"

	"github.com/anoixa/image-shelf/api/common"
	"github.com/anoixa/image-shelf/api/middleware"
	"github.com/anoixa/image-shelf/database/models"
	"github.com/gin-gonic/gin"
)

type accessRequest struct {
	AccessType string `json:"access_type" binding:"required"`
}

// GetImage 获取自己的单张图片
// @Summary      Get image
// @Tags         images
// @Produce      json
// @Param        id   path      int  true  "Image ID"
// @Success      200  {object}  common.Response{data=ImageResponse}
// @Failure      404  {object}  common.Response  "Image not found"
// @Security     BearerAuth
// @Router       /api/v1/images/{id} [get]
func (h *Handler) GetImage(c *gin.Context) {
	userID := c.GetUint(middleware.ContextUserIDKey)
	id, ok := parseID(c.Param("id"))
	if !ok {
		common.RespondError(c, http.StatusBadRequest, "Invalid image ID")
		return
	}

	img, err := h.images.Get(c.Request.Context(), id, userID)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}
	common.RespondSuccess(c, h.toResponse(img))
}

// UpdateAccess 修改访问类型
// @Summary      Set image access type
// @Description  Owners can change their own images; admins can change any image.
// @Tags         images
// @Accept       json
// @Produce      json
// @Param        id       path      int            true  "Image ID"
// @Param        request  body      accessRequest  true  "public | private | shared"
// @Success      200      {object}  common.Response{data=ImageResponse}
// @Failure      400      {object}  common.Response  "Invalid access type"
// @Failure      404      {object}  common.Response  "Image not found"
// @Security     BearerAuth
// @Router       /api/v1/images/{id}/access [patch]
func (h *Handler) UpdateAccess(c *gin.Context) {
	userID := c.GetUint(middleware.ContextUserIDKey)
	id, ok := parseID(c.Param("id"))
	if !ok {
		common.RespondError(c, http.StatusBadRequest, "Invalid image ID")
		return
	}

	var req accessRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondError(c, http.StatusBadRequest, err.Error())
		return
	}
	access, ok := models.ParseAccessType(req.AccessType, "")
	if !ok || access == "" {
		common.RespondError(c, http.StatusBadRequest, "access_type must be public, private or shared")
		return
	}

	img, err := h.images.SetAccess(c.Request.Context(), id, userID, middleware.IsAdmin(c), access)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}
	common.RespondSuccessMessage(c, "Access type updated", h.toResponse(img))
}
