package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
)

// SourceTokenHeader carries the shared secret the payment provider is
// configured to send with every callback.
const SourceTokenHeader = "X-Source-Token"

// SourceAuth rejects callbacks that do not present the configured shared
// token. An empty token disables the check for local development.
func SourceAuth(token string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token == "" {
			c.Next()
			return
		}
		presented := c.GetHeader(SourceTokenHeader)
		if subtle.ConstantTimeCompare([]byte(presented), []byte(token)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid source token"})
			return
		}
		c.Next()
	}
}
