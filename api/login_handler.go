package api

import (
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/anoixa/image-shelf/api/common"
	"github.com/anoixa/image-shelf/config"
	"github.com/anoixa/image-shelf/database/repo/accounts"
	"github.com/anoixa/image-shelf/internal/auth"
	"github.com/gin-gonic/gin"
)

const (
	refreshCookieName = "refresh_token"
	refreshCookiePath = "/api/auth/"
)

// LoginHandler 认证处理器
type LoginHandler struct {
	identity *auth.IdentityService
	secure   bool
}

// NewLoginHandler 创建认证处理器
func NewLoginHandler(identity *auth.IdentityService) *LoginHandler {
	return &LoginHandler{
		identity: identity,
		secure:   config.IsProduction(),
	}
}

type signInRequest struct {
	Email    string `json:"email" binding:"required,max=255"`
	Password string `json:"password" binding:"required,max=128"`
}

type signUpRequest struct {
	Email       string `json:"email" binding:"required,max=255"`
	Password    string `json:"password" binding:"required,max=128"`
	DisplayName string `json:"display_name" binding:"max=100"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type resetRequest struct {
	Email string `json:"email" binding:"required,max=255"`
}

type resetConfirmRequest struct {
	Token       string `json:"token" binding:"required"`
	NewPassword string `json:"new_password" binding:"required,max=128"`
}

type userResponse struct {
	ID    uint   `json:"id"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

type sessionResponse struct {
	SessionID          string       `json:"session_id"`
	AccessToken        string       `json:"access_token"`
	AccessTokenExpiry  int64        `json:"access_token_expiry"`
	RefreshToken       string       `json:"refresh_token"`
	RefreshTokenExpiry int64        `json:"refresh_token_expiry"`
	User               userResponse `json:"user"`
}

// SignIn 邮箱密码登录
// @Summary      Sign in
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request  body      signInRequest  true  "Credentials"
// @Success      200      {object}  common.Response{data=sessionResponse}
// @Failure      400      {object}  common.Response  "Invalid request body"
// @Failure      401      {object}  common.Response  "Invalid credentials"
// @Router       /api/auth/signin [post]
func (h *LoginHandler) SignIn(c *gin.Context) {
	var req signInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondError(c, http.StatusBadRequest, err.Error())
		return
	}

	sess, err := h.identity.SignIn(c.Request.Context(), req.Email, req.Password, clientInfo(c))
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			common.RespondError(c, http.StatusUnauthorized, "Invalid credentials")
			return
		}
		log.Printf("[Auth] Sign in failed: %v", err)
		common.RespondError(c, http.StatusInternalServerError, "Internal server error")
		return
	}

	h.respondSession(c, "Login successful", sess)
}

// SignUp 注册并直接登录
// @Summary      Sign up
// @Description  Creates the account and its profile, then issues a session.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request  body      signUpRequest  true  "Account"
// @Success      200      {object}  common.Response{data=sessionResponse}
// @Failure      400      {object}  common.Response  "Invalid email or weak password"
// @Failure      409      {object}  common.Response  "Email already registered"
// @Router       /api/auth/signup [post]
func (h *LoginHandler) SignUp(c *gin.Context) {
	var req signUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondError(c, http.StatusBadRequest, err.Error())
		return
	}

	sess, err := h.identity.SignUp(c.Request.Context(), req.Email, req.Password, req.DisplayName, clientInfo(c))
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrInvalidEmail), errors.Is(err, auth.ErrWeakPassword):
			common.RespondError(c, http.StatusBadRequest, err.Error())
		case errors.Is(err, accounts.ErrEmailTaken):
			common.RespondError(c, http.StatusConflict, err.Error())
		default:
			log.Printf("[Auth] Sign up failed: %v", err)
			common.RespondError(c, http.StatusInternalServerError, "Internal server error")
		}
		return
	}

	h.respondSession(c, "Sign up successful", sess)
}

// Refresh 轮换刷新令牌
// @Summary      Refresh session
// @Description  Reads the refresh token from the cookie or the JSON body and rotates it.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request  body      refreshRequest  false  "Refresh token when no cookie is sent"
// @Success      200      {object}  common.Response{data=sessionResponse}
// @Failure      401      {object}  common.Response  "Invalid refresh token"
// @Router       /api/auth/refresh [post]
func (h *LoginHandler) Refresh(c *gin.Context) {
	token := refreshToken(c)
	if token == "" {
		common.RespondError(c, http.StatusUnauthorized, "Refresh token not found")
		return
	}

	sess, err := h.identity.Refresh(c.Request.Context(), token)
	if err != nil {
		if !errors.Is(err, auth.ErrInvalidRefreshToken) {
			log.Printf("[Auth] Refresh failed: %v", err)
		}
		h.clearCookie(c)
		common.RespondError(c, http.StatusUnauthorized, "Invalid refresh token")
		return
	}

	h.respondSession(c, "Refresh token successful", sess)
}

// SignOut 删除会话
// @Summary      Sign out
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request  body      refreshRequest  false  "Refresh token when no cookie is sent"
// @Success      200      {object}  common.Response
// @Router       /api/auth/signout [post]
func (h *LoginHandler) SignOut(c *gin.Context) {
	token := refreshToken(c)
	if token != "" {
		if err := h.identity.SignOut(c.Request.Context(), token); err != nil {
			log.Printf("[Auth] Sign out failed: %v", err)
		}
	}
	h.clearCookie(c)
	common.RespondSuccessMessage(c, "Logout successful", nil)
}

// RequestPasswordReset 申请重置密码，总是返回成功
// @Summary      Request password reset
// @Description  Always succeeds so account existence is not revealed. Without a mailer the token is written to the server log.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request  body      resetRequest  true  "Email"
// @Success      200      {object}  common.Response
// @Router       /api/auth/password/reset [post]
func (h *LoginHandler) RequestPasswordReset(c *gin.Context) {
	var req resetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondError(c, http.StatusBadRequest, err.Error())
		return
	}

	if _, err := h.identity.RequestPasswordReset(c.Request.Context(), req.Email); err != nil {
		log.Printf("[Auth] Password reset request failed: %v", err)
	}
	common.RespondSuccessMessage(c, "If the account exists, a reset token has been issued", nil)
}

// ConfirmPasswordReset 使用重置令牌设置新密码
// @Summary      Confirm password reset
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request  body      resetConfirmRequest  true  "Token and new password"
// @Success      200      {object}  common.Response
// @Failure      400      {object}  common.Response  "Invalid token or weak password"
// @Router       /api/auth/password/confirm [post]
func (h *LoginHandler) ConfirmPasswordReset(c *gin.Context) {
	var req resetConfirmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondError(c, http.StatusBadRequest, err.Error())
		return
	}

	err := h.identity.ConfirmPasswordReset(c.Request.Context(), req.Token, req.NewPassword)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrWeakPassword), errors.Is(err, accounts.ErrResetTokenInvalid):
			common.RespondError(c, http.StatusBadRequest, err.Error())
		default:
			log.Printf("[Auth] Password reset failed: %v", err)
			common.RespondError(c, http.StatusInternalServerError, "Internal server error")
		}
		return
	}
	common.RespondSuccessMessage(c, "Password updated, please sign in again", nil)
}

func (h *LoginHandler) respondSession(c *gin.Context, message string, sess *auth.Session) {
	h.setCookie(c, sess.RefreshToken, int(time.Until(sess.RefreshTokenExpiry).Seconds()))
	common.RespondSuccessMessage(c, message, sessionResponse{
		SessionID:          sess.ID,
		AccessToken:        sess.AccessToken,
		AccessTokenExpiry:  sess.AccessTokenExpiry.Unix(),
		RefreshToken:       sess.RefreshToken,
		RefreshTokenExpiry: sess.RefreshTokenExpiry.Unix(),
		User: userResponse{
			ID:    sess.User.ID,
			Email: sess.User.Email,
			Role:  sess.User.Role,
		},
	})
}

// refreshToken 优先读取 cookie，其次读取请求体
func refreshToken(c *gin.Context) string {
	if token, err := c.Cookie(refreshCookieName); err == nil && token != "" {
		return token
	}
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err == nil {
		return req.RefreshToken
	}
	return ""
}

func clientInfo(c *gin.Context) auth.ClientInfo {
	return auth.ClientInfo{
		UserAgent: c.Request.UserAgent(),
		IP:        c.ClientIP(),
	}
}

// setCookie 设置 refresh_token 的 HttpOnly cookie
func (h *LoginHandler) setCookie(c *gin.Context, token string, maxAge int) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     refreshCookieName,
		Value:    token,
		MaxAge:   maxAge,
		Path:     refreshCookiePath,
		Secure:   h.secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// clearCookie MaxAge 为 -1 让浏览器删除 cookie
func (h *LoginHandler) clearCookie(c *gin.Context) {
	h.setCookie(c, "", -1)
}
