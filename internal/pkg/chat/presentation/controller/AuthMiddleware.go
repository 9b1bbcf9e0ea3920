package controller

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/ywutian/study-abroad-platform-sub014/internal/infrastructure/token"
)

// userIDKey is the gin context key holding the authenticated user id.
const userIDKey = "auth_user_id"

// RequireCredential verifies the bearer credential on REST endpoints. The
// same short-lived chat credential used on the websocket handshake works
// here, so the fallback path needs no second token.
func RequireCredential(verifier *token.Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := c.GetHeader("Authorization")
		cred := strings.TrimPrefix(raw, "Bearer ")
		if cred == raw {
			cred = ""
		}

		userID, err := verifier.Verify(cred)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or missing credential"})
			return
		}
		c.Set(userIDKey, userID)
		c.Next()
	}
}

// AuthedUserID returns the user id set by RequireCredential.
func AuthedUserID(c *gin.Context) string {
	return c.GetString(userIDKey)
}
