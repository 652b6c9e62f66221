package middlewares

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RequireGlobalAdmin must run after RequireAuth.
func RequireGlobalAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		u, ok := CurrentUser(c)

		if !ok {
			unauthorized(c, "Missing identity context")
			return
		}
		if !u.IsAdmin {
			abort(c, http.StatusForbidden, "forbidden", "Admin privileges required")
			return
		}
		c.Next()
	}
}
