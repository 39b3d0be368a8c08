package middleware

import (
	"net/http"

	"github.com/anoixa/image-shelf/api/common"
	"github.com/gin-gonic/gin"
)

// RequireRole 检查用户是否具有指定的角色
func RequireRole(allowedRoles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		roleVal, exists := c.Get(ContextRoleKey)
		if !exists {
			common.RespondErrorAbort(c, http.StatusForbidden, "Access denied. Role information not found.")
			return
		}

		role, ok := roleVal.(string)
		if !ok {
			common.RespondErrorAbort(c, http.StatusInternalServerError, "Internal error: invalid role type in context.")
			return
		}

		for _, allowed := range allowedRoles {
			if role == allowed {
				c.Next()
				return
			}
		}

		common.RespondErrorAbort(c, http.StatusForbidden, "Access denied. You do not have the required role to access this resource.")
	}
}
