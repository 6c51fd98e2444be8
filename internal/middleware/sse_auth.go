package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
)

// SSEAuth handles authentication for SSE endpoints.
// Accepts token from either Authorization header or query parameter.
func (am *AuthMiddleware) SSEAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !am.Enabled() {
			c.Next()
			return
		}

		token := strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")

		// EventSource cannot set headers
		if token == "" {
			token = strings.TrimPrefix(c.Query("token"), "Bearer ")
		}

		if token == "" {
			abortUnauthorized(c, "No authentication token provided", nil)
			return
		}

		user, err := am.verifyToken(token)
		if err != nil {
			abortUnauthorized(c, "Invalid or expired token", err)
			return
		}

		c.Set(ContextUserKey, user)
		c.Next()
	}
}
