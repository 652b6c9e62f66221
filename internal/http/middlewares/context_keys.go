package middlewares

import "github.com/gin-gonic/gin"

// gin context keys
const (
	CtxRequestID = "request_id"
	ctxUserKey   = "auth.user"
	ctxClaimsKey = "auth.claims"
)

// abort writes the shared error envelope. It mirrors handlers.RespondError,
// which this package cannot import.
func abort(c *gin.Context, status int, code, message string) {
	reqID, _ := c.Get(CtxRequestID)
	id, _ := reqID.(string)

	body := gin.H{
		"code":    code,
		"message": message,
	}
	if id != "" {
		body["requestId"] = id
	}

	c.AbortWithStatusJSON(status, gin.H{"error": body})
}
