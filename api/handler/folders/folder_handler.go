package folders

import (
	"net/http"

	"github.com/anoixa/image-shelf/api/common"
	"github.com/anoixa/image-shelf/api/middleware"
	"github.com/anoixa/image-shelf/database/models"
	"github.com/anoixa/image-shelf/internal/metadata"
	"github.com/gin-gonic/gin"
)

type createFolderRequest struct {
	Name       string `json:"name" binding:"required,max=100"`
	Color      string `json:"color" binding:"max=16"`
	AccessType string `json:"access_type"`
}

type updateFolderRequest struct {
	Name       *string `json:"name" binding:"omitempty,max=100"`
	Color      *string `json:"color" binding:"omitempty,max=16"`
	AccessType *string `json:"access_type"`
}

// ListFolders 列出当前用户的文件夹
// @Summary      List folders
// @Tags         folders
// @Produce      json
// @Success      200  {object}  common.Response{data=[]models.Folder}
// @Security     BearerAuth
// @Router       /api/v1/folders [get]
func (h *Handler) ListFolders(c *gin.Context) {
	userID := c.GetUint(middleware.ContextUserIDKey)
	list, err := h.meta.ListFolders(c.Request.Context(), userID)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}
	common.RespondSuccess(c, list)
}

// CreateFolder 创建文件夹
// @Summary      Create folder
// @Tags         folders
// @Accept       json
// @Produce      json
// @Param        request  body      createFolderRequest  true  "Folder"
// @Success      200      {object}  common.Response{data=models.Folder}
// @Failure      400      {object}  common.Response  "Invalid name, color or access type"
// @Failure      409      {object}  common.Response  "Folder name already used"
// @Security     BearerAuth
// @Router       /api/v1/folders [post]
func (h *Handler) CreateFolder(c *gin.Context) {
	userID := c.GetUint(middleware.ContextUserIDKey)
	var req createFolderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondError(c, http.StatusBadRequest, err.Error())
		return
	}

	folder := models.Folder{
		Name:       req.Name,
		Color:      req.Color,
		AccessType: models.AccessType(req.AccessType),
		UserID:     userID,
	}
	if err := h.meta.CreateFolder(c.Request.Context(), &folder); err != nil {
		common.RespondAppError(c, err)
		return
	}
	common.RespondSuccessMessage(c, "Folder created", folder)
}

// GetFolder 文件夹详情
// @Summary      Get folder
// @Tags         folders
// @Produce      json
// @Param        id   path      int  true  "Folder ID"
// @Success      200  {object}  common.Response{data=models.Folder}
// @Failure      404  {object}  common.Response  "Folder not found"
// @Security     BearerAuth
// @Router       /api/v1/folders/{id} [get]
func (h *Handler) GetFolder(c *gin.Context) {
	userID := c.GetUint(middleware.ContextUserIDKey)
	id, ok := parseID(c.Param("id"))
	if !ok {
		common.RespondError(c, http.StatusBadRequest, "Invalid folder ID")
		return
	}
	folder, err := h.meta.GetFolder(c.Request.Context(), id, userID)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}
	common.RespondSuccess(c, folder)
}

// UpdateFolder 重命名、改色或修改访问类型
// @Summary      Update folder
// @Tags         folders
// @Accept       json
// @Produce      json
// @Param        id       path      int                  true  "Folder ID"
// @Param        request  body      updateFolderRequest  true  "Fields to change"
// @Success      200      {object}  common.Response{data=models.Folder}
// @Failure      400      {object}  common.Response  "Invalid field"
// @Failure      404      {object}  common.Response  "Folder not found"
// @Failure      409      {object}  common.Response  "Folder name already used"
// @Security     BearerAuth
// @Router       /api/v1/folders/{id} [patch]
func (h *Handler) UpdateFolder(c *gin.Context) {
	userID := c.GetUint(middleware.ContextUserIDKey)
	id, ok := parseID(c.Param("id"))
	if !ok {
		common.RespondError(c, http.StatusBadRequest, "Invalid folder ID")
		return
	}
	var req updateFolderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondError(c, http.StatusBadRequest, err.Error())
		return
	}

	patch := metadata.FolderPatch{Name: req.Name, Color: req.Color}
	if req.AccessType != nil {
		access := models.AccessType(*req.AccessType)
		patch.AccessType = &access
	}

	folder, err := h.meta.UpdateFolder(c.Request.Context(), id, userID, patch)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}
	common.RespondSuccessMessage(c, "Folder updated", folder)
}

// DeleteFolder 删除文件夹，图片保留
// @Summary      Delete folder
// @Description  Removes the folder and its memberships. Images are kept.
// @Tags         folders
// @Produce      json
// @Param        id   path      int  true  "Folder ID"
// @Success      200  {object}  common.Response
// @Failure      404  {object}  common.Response  "Folder not found"
// @Security     BearerAuth
// @Router       /api/v1/folders/{id} [delete]
func (h *Handler) DeleteFolder(c *gin.Context) {
	userID := c.GetUint(middleware.ContextUserIDKey)
	id, ok := parseID(c.Param("id"))
	if !ok {
		common.RespondError(c, http.StatusBadRequest, "Invalid folder ID")
		return
	}
	if err := h.meta.DeleteFolder(c.Request.Context(), id, userID); err != nil {
		common.RespondAppError(c, err)
		return
	}
	common.RespondSuccessMessage(c, "Folder deleted", nil)
}
