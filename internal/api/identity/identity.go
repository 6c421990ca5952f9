// Package identity resolves the calling user from the X-User-ID header the
// upstream gateway stamps after authentication. The service itself performs
// no authentication.
package identity

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// HeaderUserID is the header the gateway forwards the authenticated user in.
const HeaderUserID = "X-User-ID"

const contextKeyUserID = "user_id"

// Middleware rejects requests without a user identity and stores the user id
// on the request context for handlers.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := strings.TrimSpace(c.GetHeader(HeaderUserID))
		if userID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "X-User-ID header is required",
			})
			return
		}

		c.Set(contextKeyUserID, userID)
		c.Next()
	}
}

// UserID returns the authenticated user id set by Middleware.
func UserID(c *gin.Context) string {
	return c.GetString(contextKeyUserID)
}
