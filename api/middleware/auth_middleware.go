package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/anoixa/image-shelf/api/common"
	"github.com/anoixa/image-shelf/database/models"
	"github.com/anoixa/image-shelf/internal/auth"
	"github.com/gin-gonic/gin"
)

const (
	ContextUserIDKey = "user_id"
	ContextEmailKey  = "email"
	ContextRoleKey   = "role"
	AuthTypeKey      = "auth_type"

	AuthTypeJWT = "jwt"
)

var (
	errNoAuthHeader      = errors.New("No Authorization request header")
	errBadAuthHeader     = errors.New("Authorization field format error")
	errUnsupportedScheme = errors.New("Unsupported authentication scheme")
)

// TokenValidator 校验访问令牌
type TokenValidator interface {
	ValidateAccessToken(token string) (*auth.TokenClaims, error)
}

// JWTAuth 必须携带有效的 Bearer 令牌
func JWTAuth(validator TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := bearerToken(c.GetHeader("Authorization"))
		if err != nil {
			status := http.StatusUnauthorized
			if errors.Is(err, errBadAuthHeader) {
				status = http.StatusBadRequest
			}
			common.RespondErrorAbort(c, status, err.Error())
			return
		}

		if err := authenticate(c, validator, token); err != nil {
			common.RespondErrorAbort(c, http.StatusUnauthorized, "invalid or expired token")
			return
		}
		c.Next()
	}
}

// OptionalAuth 令牌存在且有效时写入用户信息，否则按匿名处理
func OptionalAuth(validator TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token, err := bearerToken(c.GetHeader("Authorization")); err == nil {
			_ = authenticate(c, validator, token)
		}
		c.Next()
	}
}

func bearerToken(header string) (string, error) {
	if header == "" {
		return "", errNoAuthHeader
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || strings.TrimSpace(parts[1]) == "" {
		return "", errBadAuthHeader
	}
	if !strings.EqualFold(parts[0], "Bearer") {
		return "", errUnsupportedScheme
	}
	return strings.TrimSpace(parts[1]), nil
}

func authenticate(c *gin.Context, validator TokenValidator, token string) error {
	if validator == nil {
		return errors.New("JWT service not initialized")
	}
	claims, err := validator.ValidateAccessToken(token)
	if err != nil {
		return err
	}

	role := claims.Role
	if role == "" {
		role = models.RoleUser
	}

	c.Set(ContextUserIDKey, claims.UserID)
	c.Set(ContextEmailKey, claims.Email)
	c.Set(ContextRoleKey, role)
	c.Set(AuthTypeKey, AuthTypeJWT)
	return nil
}

// CurrentUser 已认证用户 id，匿名返回 nil
func CurrentUser(c *gin.Context) *uint {
	id := c.GetUint(ContextUserIDKey)
	if id == 0 {
		return nil
	}
	return &id
}

// IsAdmin 当前用户是否为管理员
func IsAdmin(c *gin.Context) bool {
	return c.GetString(ContextRoleKey) == models.RoleAdmin
}

// TokenFromQuery 浏览器的 websocket 无法设置请求头，从查询参数读取令牌
func TokenFromQuery(param string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetHeader("Authorization") == "" {
			if token := c.Query(param); token != "" {
				c.Request.Header.Set("Authorization", "Bearer "+token)
			}
		}
		c.Next()
	}
}
