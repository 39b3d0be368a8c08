package profile

import (
	"net/http"

	"github.com/anoixa/image-shelf/api/common"
	"github.com/anoixa/image-shelf/api/middleware"
	"github.com/anoixa/image-shelf/database/models"
	"github.com/anoixa/image-shelf/internal/library"
	"github.com/anoixa/image-shelf/internal/metadata"
	"github.com/gin-gonic/gin"
)

// Handler 用户资料处理器
type Handler struct {
	meta *metadata.Client
}

// NewHandler 创建用户资料处理器
func NewHandler(meta *metadata.Client) *Handler {
	return &Handler{meta: meta}
}

type updateRequest struct {
	DisplayName *string                `json:"display_name" binding:"omitempty,max=100"`
	Preferences map[string]interface{} `json:"preferences"`
}

type profileResponse struct {
	UserID      uint                   `json:"user_id"`
	Email       string                 `json:"email"`
	Role        string                 `json:"role"`
	DisplayName string                 `json:"display_name"`
	Preferences map[string]interface{} `json:"preferences"`
	View        map[string]interface{} `json:"view"`
}

// GetProfile 当前用户资料
// @Summary      Get profile
// @Tags         profile
// @Produce      json
// @Success      200  {object}  common.Response{data=profileResponse}
// @Security     BearerAuth
// @Router       /api/v1/profile [get]
func (h *Handler) GetProfile(c *gin.Context) {
	userID := c.GetUint(middleware.ContextUserIDKey)
	profile, err := h.meta.GetProfile(c.Request.Context(), userID)
	if err != nil {
		common.RespondAppError(c, err)
		return
	}
	common.RespondSuccess(c, toResponse(c, profile))
}

// UpdateProfile 修改显示名称和偏好，偏好按键合并，值为 null 的键被删除
// @Summary      Update profile
// @Description  Preferences are merged key by key; a null value removes the key. View keys (view_mode, sort_field, sort_dir, page_size, columns) are validated.
// @Tags         profile
// @Accept       json
// @Produce      json
// @Param        request  body      updateRequest  true  "Changes"
// @Success      200      {object}  common.Response{data=profileResponse}
// @Failure      400      {object}  common.Response  "Invalid preferences"
// @Security     BearerAuth
// @Router       /api/v1/profile [patch]
func (h *Handler) UpdateProfile(c *gin.Context) {
	userID := c.GetUint(middleware.ContextUserIDKey)
	var req updateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondError(c, http.StatusBadRequest, err.Error())
		return
	}

	if len(req.Preferences) > 0 {
		if _, err := library.ViewStateFromPreferences(withoutNulls(req.Preferences)); err != nil {
			common.RespondError(c, http.StatusBadRequest, err.Error())
			return
		}
	}

	profile, err := h.meta.UpdateProfile(c.Request.Context(), userID, metadata.ProfilePatch{
		DisplayName: req.DisplayName,
		Preferences: req.Preferences,
	})
	if err != nil {
		common.RespondAppError(c, err)
		return
	}
	common.RespondSuccessMessage(c, "Profile updated", toResponse(c, profile))
}

func toResponse(c *gin.Context, profile *models.Profile) profileResponse {
	prefs := map[string]interface{}(profile.Preferences)
	if prefs == nil {
		prefs = map[string]interface{}{}
	}
	view, _ := library.ViewStateFromPreferences(prefs)
	return profileResponse{
		UserID:      profile.UserID,
		Email:       c.GetString(middleware.ContextEmailKey),
		Role:        c.GetString(middleware.ContextRoleKey),
		DisplayName: profile.DisplayName,
		Preferences: prefs,
		View:        view.Preferences(),
	}
}

func withoutNulls(prefs map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(prefs))
	for k, v := range prefs {
		if v != nil {
			out[k] = v
		}
	}
	return out
}
