package images

import (
	"net/http"

	"github.com/anoixa/image-shelf/api/common"
	"github.com/anoixa/image-shelf/api/middleware"
	"github.com/anoixa/image-shelf/internal/events"
	"github.com/anoixa/image-shelf/internal/library"
	"github.com/gin-gonic/gin"
)

type deleteRequest struct {
	IDs []uint `json:"ids" binding:"required,min=1,max=500"`
}

type deleteResponse struct {
	Deleted  []uint `json:"deleted"`
	NotFound []uint `json:"not_found,omitempty"`
	Errors   string `json:"errors,omitempty"`
}

// DeleteImage 删除单张图片
// @Summary      Delete image
// @Description  Removes the stored object (best effort) and then the metadata row with its folder memberships.
// @Tags         images
// @Produce      json
// @Param        id   path      int  true  "Image ID"
// @Success      200  {object}  common.Response  "Image deleted"
// @Failure      400  {object}  common.Response  "Invalid image ID"
// @Failure      404  {object}  common.Response  "Image not found"
// @Security     BearerAuth
// @Router       /api/v1/images/{id} [delete]
func (h *Handler) DeleteImage(c *gin.Context) {
	userID := c.GetUint(middleware.ContextUserIDKey)
	id, ok := parseID(c.Param("id"))
	if !ok {
		common.RespondError(c, http.StatusBadRequest, "Invalid image ID")
		return
	}

	if err := h.images.Delete(c.Request.Context(), id, userID); err != nil {
		common.RespondAppError(c, err)
		return
	}
	h.notifyDeleted(userID, []uint{id})

	common.RespondSuccessMessage(c, "Image deleted successfully", gin.H{"id": id})
}

// DeleteImages 批量删除选中的图片
// @Summary      Delete selected images
// @Description  Selects the given ids among the caller's images and deletes them one by one. A failing item does not stop the others.
// @Tags         images
// @Accept       json
// @Produce      json
// @Param        request  body      deleteRequest  true  "Image IDs"
// @Success      200      {object}  common.Response{data=deleteResponse}
// @Failure      400      {object}  common.Response  "Invalid request body"
// @Security     BearerAuth
// @Router       /api/v1/images/delete [post]
func (h *Handler) DeleteImages(c *gin.Context) {
	userID := c.GetUint(middleware.ContextUserIDKey)

	var req deleteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondError(c, http.StatusBadRequest, "Invalid request body. 'ids' with at least one image id is required.")
		return
	}

	ctx := c.Request.Context()
	ws := h.workspaces.NewWorkspace(userID, library.DefaultViewState())
	if err := ws.Reload(ctx); err != nil {
		common.RespondAppError(c, err)
		return
	}
	loaded := imageIDs(ws)
	ws.WithSelection(func(s *library.Selection) {
		for _, id := range req.IDs {
			s.Select(id)
		}
		// 选择集只保留已加载的图片
		s.Prune(loaded)
	})

	selected := make(map[uint]struct{})
	for _, id := range ws.SelectedIDs() {
		selected[id] = struct{}{}
	}

	resp := deleteResponse{}
	for _, id := range req.IDs {
		if _, ok := selected[id]; !ok {
			resp.NotFound = append(resp.NotFound, id)
		}
	}

	deleted, err := ws.DeleteSelected(ctx)
	resp.Deleted = deleted
	if err != nil {
		resp.Errors = err.Error()
	}
	h.notifyDeleted(userID, deleted)

	common.RespondSuccessMessage(c, "Delete request processed successfully.", resp)
}

func imageIDs(ws *library.Workspace) []uint {
	images := ws.Images()
	ids := make([]uint, len(images))
	for i, img := range images {
		ids[i] = img.ID
	}
	return ids
}

func (h *Handler) notifyDeleted(userID uint, ids []uint) {
	if h.hub == nil || len(ids) == 0 {
		return
	}
	h.hub.Publish(userID, events.MsgImageDeleted, gin.H{"ids": ids})
}
