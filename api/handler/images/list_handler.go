package images

import (
	"context"
	"log"
	"net/http"

	"github.com/anoixa/image-shelf/api/common"
	"github.com/anoixa/image-shelf/api/middleware"
	"github.com/anoixa/image-shelf/internal/library"
	"github.com/gin-gonic/gin"
)

type listQuery struct {
	Search    string `form:"search" binding:"max=255"`
	FolderID  *uint  `form:"folder_id"`
	SortField string `form:"sort_field"`
	SortDir   string `form:"sort_dir"`
	ViewMode  string `form:"view_mode"`
	Page      int    `form:"page" binding:"min=0"`
	PageSize  int    `form:"page_size" binding:"min=0"`
}

type listResponse struct {
	Items      []ImageResponse `json:"items"`
	Total      int             `json:"total"`
	Page       int             `json:"page"`
	TotalPages int             `json:"total_pages"`
	View       viewResponse    `json:"view"`
}

type viewResponse struct {
	Mode      library.ViewMode  `json:"view_mode"`
	SortField library.SortField `json:"sort_field"`
	SortDir   library.SortDir   `json:"sort_dir"`
	PageSize  int               `json:"page_size"`
	Columns   int               `json:"columns"`
}

// ListImages 列出当前用户的图片
// @Summary      List images
// @Description  Filter by name and folder, sort and paginate the caller's images. Missing view parameters fall back to the saved preferences.
// @Tags         images
// @Produce      json
// @Param        search      query     string  false  "Case-insensitive name filter"
// @Param        folder_id   query     int     false  "Only images in this folder"
// @Param        sort_field  query     string  false  "name | date | size | mimeType"
// @Param        sort_dir    query     string  false  "asc | desc"
// @Param        page        query     int     false  "Page number, starts at 1"
// @Param        page_size   query     int     false  "Items per page"
// @Success      200         {object}  common.Response{data=listResponse}
// @Failure      400         {object}  common.Response  "Invalid query"
// @Failure      404         {object}  common.Response  "Folder not found"
// @Security     BearerAuth
// @Router       /api/v1/images [get]
func (h *Handler) ListImages(c *gin.Context) {
	userID := c.GetUint(middleware.ContextUserIDKey)

	var q listQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		common.RespondError(c, http.StatusBadRequest, err.Error())
		return
	}

	ctx := c.Request.Context()
	view := h.savedView(ctx, userID)
	applyQuery(&view, q)

	ws := h.workspaces.NewWorkspace(userID, view)
	if err := ws.Reload(ctx); err != nil {
		common.RespondAppError(c, err)
		return
	}
	page, err := ws.Visible(ctx)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}

	v := ws.View()
	common.RespondSuccess(c, listResponse{
		Items:      h.toResponses(page.Items),
		Total:      page.Total,
		Page:       page.Page,
		TotalPages: page.TotalPages,
		View: viewResponse{
			Mode:      v.Mode,
			SortField: v.SortField,
			SortDir:   v.SortDir,
			PageSize:  v.PageSize,
			Columns:   v.Columns,
		},
	})
}

// savedView 读取用户保存的视图偏好，失败时使用默认值
func (h *Handler) savedView(ctx context.Context, userID uint) library.ViewState {
	profile, err := h.meta.GetProfile(ctx, userID)
	if err != nil {
		return library.DefaultViewState()
	}
	view, err := library.ViewStateFromPreferences(profile.Preferences)
	if err != nil {
		log.Printf("[Images] Ignoring invalid preferences for user %d: %v", userID, err)
	}
	return view
}

func applyQuery(view *library.ViewState, q listQuery) {
	view.Search = q.Search
	view.FolderID = q.FolderID
	if q.SortField != "" {
		view.SortField = library.SortField(q.SortField)
	}
	if q.SortDir != "" {
		view.SortDir = library.SortDir(q.SortDir)
	}
	if q.ViewMode != "" {
		view.Mode = library.ViewMode(q.ViewMode)
	}
	if q.PageSize > 0 {
		view.PageSize = q.PageSize
	}
	view.Page = q.Page
	view.Normalize()
}
