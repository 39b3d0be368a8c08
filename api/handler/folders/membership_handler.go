package folders

import (
	"net/http"

	"github.com/anoixa/image-shelf/api/common"
	"github.com/anoixa/image-shelf/api/middleware"
	"github.com/anoixa/image-shelf/internal/library"
	"github.com/gin-gonic/gin"
)

type imageIDsRequest struct {
	ImageIDs []uint `json:"image_ids" binding:"required,min=1,max=500"`
}

type membershipResponse struct {
	FolderID uint   `json:"folder_id"`
	ImageIDs []uint `json:"image_ids"`
}

// ListFolderImages 文件夹内的图片 id
// @Summary      List folder members
// @Tags         folders
// @Produce      json
// @Param        id   path      int  true  "Folder ID"
// @Success      200  {object}  common.Response{data=membershipResponse}
// @Failure      404  {object}  common.Response  "Folder not found"
// @Security     BearerAuth
// @Router       /api/v1/folders/{id}/images [get]
func (h *Handler) ListFolderImages(c *gin.Context) {
	userID := c.GetUint(middleware.ContextUserIDKey)
	id, ok := parseID(c.Param("id"))
	if !ok {
		common.RespondError(c, http.StatusBadRequest, "Invalid folder ID")
		return
	}

	ids, err := library.NewIndex(h.meta, userID).ListImageIDs(c.Request.Context(), id)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}
	if ids == nil {
		ids = []uint{}
	}
	common.RespondSuccess(c, membershipResponse{FolderID: id, ImageIDs: ids})
}

// AddFolderImages 把图片加入文件夹
// @Summary      Add images to folder
// @Description  Idempotent; ids already in the folder are ignored.
// @Tags         folders
// @Accept       json
// @Produce      json
// @Param        id       path      int              true  "Folder ID"
// @Param        request  body      imageIDsRequest  true  "Image IDs"
// @Success      200      {object}  common.Response{data=membershipResponse}
// @Failure      400      {object}  common.Response  "Unknown image"
// @Failure      404      {object}  common.Response  "Folder not found"
// @Security     BearerAuth
// @Router       /api/v1/folders/{id}/images [post]
func (h *Handler) AddFolderImages(c *gin.Context) {
	h.changeMembership(c, func(x *library.Index, c *gin.Context, folderID uint, ids []uint) error {
		return x.Add(c.Request.Context(), folderID, ids)
	})
}

// RemoveFolderImages 从文件夹移除图片
// @Summary      Remove images from folder
// @Tags         folders
// @Accept       json
// @Produce      json
// @Param        id       path      int              true  "Folder ID"
// @Param        request  body      imageIDsRequest  true  "Image IDs"
// @Success      200      {object}  common.Response{data=membershipResponse}
// @Failure      404      {object}  common.Response  "Folder not found"
// @Security     BearerAuth
// @Router       /api/v1/folders/{id}/images [delete]
func (h *Handler) RemoveFolderImages(c *gin.Context) {
	h.changeMembership(c, func(x *library.Index, c *gin.Context, folderID uint, ids []uint) error {
		return x.Remove(c.Request.Context(), folderID, ids)
	})
}

func (h *Handler) changeMembership(c *gin.Context, apply func(*library.Index, *gin.Context, uint, []uint) error) {
	userID := c.GetUint(middleware.ContextUserIDKey)
	id, ok := parseID(c.Param("id"))
	if !ok {
		common.RespondError(c, http.StatusBadRequest, "Invalid folder ID")
		return
	}
	var req imageIDsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondError(c, http.StatusBadRequest, "Invalid request body. 'image_ids' is required.")
		return
	}

	index := library.NewIndex(h.meta, userID)
	if err := apply(index, c, id, req.ImageIDs); err != nil {
		common.RespondAppError(c, err)
		return
	}

	ids, err := index.ListImageIDs(c.Request.Context(), id)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}
	if ids == nil {
		ids = []uint{}
	}
	common.RespondSuccess(c, membershipResponse{FolderID: id, ImageIDs: ids})
}

// DropOnFolder 拖放到文件夹
// @Summary      Drop dragged images on a folder
// @Description  Starts a drag with the given ids and drops it on the folder. The drag ends whether or not the add succeeds.
// @Tags         folders
// @Accept       json
// @Produce      json
// @Param        id       path      int              true  "Folder ID"
// @Param        request  body      imageIDsRequest  true  "Dragged image IDs"
// @Success      200      {object}  common.Response
// @Failure      400      {object}  common.Response  "Unknown image"
// @Failure      404      {object}  common.Response  "Folder not found"
// @Security     BearerAuth
// @Router       /api/v1/folders/{id}/drop [post]
func (h *Handler) DropOnFolder(c *gin.Context) {
	userID := c.GetUint(middleware.ContextUserIDKey)
	id, ok := parseID(c.Param("id"))
	if !ok {
		common.RespondError(c, http.StatusBadRequest, "Invalid folder ID")
		return
	}
	var req imageIDsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondError(c, http.StatusBadRequest, "Invalid request body. 'image_ids' is required.")
		return
	}

	ws := h.workspaces.NewWorkspace(userID, library.DefaultViewState())
	ws.Drag().StartDrag(req.ImageIDs)
	added, err := ws.DropOnFolder(c.Request.Context(), id)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}
	common.RespondSuccessMessage(c, "Images added to folder", gin.H{"folder_id": id, "added": added})
}
