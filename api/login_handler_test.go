package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/anoixa/image-shelf/database/dbtest"
	"github.com/anoixa/image-shelf/database/repo/accounts"
	"github.com/anoixa/image-shelf/internal/auth"
	"github.com/anoixa/image-shelf/internal/session"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sessionEnvelope struct {
	Status string          `json:"status"`
	Data   sessionResponse `json:"data"`
}

func setupTest(t *testing.T) (*gin.Engine, *auth.IdentityService) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	jwtService, err := auth.NewJWTServiceWithConfig(auth.TokenConfig{
		Secret:           []byte("test-secret-key-at-least-32-characters-long"),
		ExpiresIn:        30 * time.Minute,
		RefreshExpiresIn: 24 * time.Hour,
	})
	require.NoError(t, err)

	repo := accounts.NewRepository(dbtest.NewProvider(t))
	identity := auth.NewIdentityService(repo, jwtService, session.NewNotifier(), time.Hour)
	h := NewLoginHandler(identity)

	router := gin.New()
	group := router.Group("/api/auth")
	group.POST("/signin", h.SignIn)
	group.POST("/signup", h.SignUp)
	group.POST("/refresh", h.Refresh)
	group.POST("/signout", h.SignOut)
	group.POST("/password/reset", h.RequestPasswordReset)
	group.POST("/password/confirm", h.ConfirmPasswordReset)
	return router, identity
}

func postJSON(router *gin.Engine, path string, body interface{}, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		_ = json.NewEncoder(&buf).Encode(b)
	}
	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func refreshCookie(w *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range w.Result().Cookies() {
		if c.Name == refreshCookieName {
			return c
		}
	}
	return nil
}

func TestLoginHandler_InvalidJSON(t *testing.T) {
	router, _ := setupTest(t)

	w := postJSON(router, "/api/auth/signin", "invalid json")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = postJSON(router, "/api/auth/signin", gin.H{"email": "a@example.com"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLoginHandler_SignUpSignIn(t *testing.T) {
	router, _ := setupTest(t)

	w := postJSON(router, "/api/auth/signup", gin.H{"email": "alice@example.com", "password": "password123", "display_name": "Alice"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp sessionEnvelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "success", resp.Status)
	assert.NotEmpty(t, resp.Data.AccessToken)
	assert.Equal(t, "alice@example.com", resp.Data.User.Email)
	assert.Equal(t, "user", resp.Data.User.Role)

	cookie := refreshCookie(w)
	require.NotNil(t, cookie)
	assert.True(t, cookie.HttpOnly)
	assert.Equal(t, refreshCookiePath, cookie.Path)
	assert.Equal(t, resp.Data.RefreshToken, cookie.Value)

	w = postJSON(router, "/api/auth/signup", gin.H{"email": "alice@example.com", "password": "password123"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = postJSON(router, "/api/auth/signup", gin.H{"email": "not-an-email", "password": "password123"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = postJSON(router, "/api/auth/signup", gin.H{"email": "bob@example.com", "password": "short"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = postJSON(router, "/api/auth/signin", gin.H{"email": "alice@example.com", "password": "password123"})
	assert.Equal(t, http.StatusOK, w.Code)

	w = postJSON(router, "/api/auth/signin", gin.H{"email": "alice@example.com", "password": "wrong-password"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestLoginHandler_RefreshRotatesToken(t *testing.T) {
	router, _ := setupTest(t)

	w := postJSON(router, "/api/auth/signup", gin.H{"email": "alice@example.com", "password": "password123"})
	require.Equal(t, http.StatusOK, w.Code)
	first := refreshCookie(w)
	require.NotNil(t, first)

	// cookie 优先
	w = postJSON(router, "/api/auth/refresh", nil, first)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	second := refreshCookie(w)
	require.NotNil(t, second)
	assert.NotEqual(t, first.Value, second.Value)

	// 旧令牌已失效
	w = postJSON(router, "/api/auth/refresh", gin.H{"refresh_token": first.Value})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// 请求体也可以携带令牌
	w = postJSON(router, "/api/auth/refresh", gin.H{"refresh_token": second.Value})
	assert.Equal(t, http.StatusOK, w.Code)

	w = postJSON(router, "/api/auth/refresh", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestLoginHandler_SignOut(t *testing.T) {
	router, _ := setupTest(t)

	w := postJSON(router, "/api/auth/signup", gin.H{"email": "alice@example.com", "password": "password123"})
	require.Equal(t, http.StatusOK, w.Code)
	cookie := refreshCookie(w)

	w = postJSON(router, "/api/auth/signout", nil, cookie)
	assert.Equal(t, http.StatusOK, w.Code)
	cleared := refreshCookie(w)
	require.NotNil(t, cleared)
	assert.Empty(t, cleared.Value)

	w = postJSON(router, "/api/auth/refresh", nil, cookie)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// 没有令牌也返回成功
	w = postJSON(router, "/api/auth/signout", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestLoginHandler_PasswordReset(t *testing.T) {
	router, identity := setupTest(t)

	w := postJSON(router, "/api/auth/signup", gin.H{"email": "alice@example.com", "password": "password123"})
	require.Equal(t, http.StatusOK, w.Code)

	// 不存在的账号同样返回成功
	w = postJSON(router, "/api/auth/password/reset", gin.H{"email": "nobody@example.com"})
	assert.Equal(t, http.StatusOK, w.Code)

	token, err := identity.RequestPasswordReset(context.Background(), "alice@example.com")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	w = postJSON(router, "/api/auth/password/confirm", gin.H{"token": "bogus", "new_password": "newpassword456"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = postJSON(router, "/api/auth/password/confirm", gin.H{"token": token, "new_password": "newpassword456"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	// 令牌只能使用一次
	w = postJSON(router, "/api/auth/password/confirm", gin.H{"token": token, "new_password": "another-password"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = postJSON(router, "/api/auth/signin", gin.H{"email": "alice@example.com", "password": "password123"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	w = postJSON(router, "/api/auth/signin", gin.H{"email": "alice@example.com", "password": "newpassword456"})
	assert.Equal(t, http.StatusOK, w.Code)
}
