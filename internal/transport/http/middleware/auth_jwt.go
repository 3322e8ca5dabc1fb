package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"pinky-promise-api/internal/core/auth"
	resp "pinky-promise-api/internal/transport/http/response"
)

const (
	KeyUserID = "userId"
	KeyEmail  = "email"
)

// AuthJWT guards routes behind a valid access token.
func AuthJWT(j *auth.JWTer) gin.HandlerFunc {
	return func(c *gin.Context) {
		ah := c.GetHeader("Authorization")
		if !strings.HasPrefix(ah, "Bearer ") {
			resp.AbortErr(c, http.StatusUnauthorized, "Missing token")
			return
		}
		claims, err := j.ParseAccess(strings.TrimPrefix(ah, "Bearer "))
		if err != nil {
			resp.AbortErr(c, http.StatusUnauthorized, "Invalid token")
			return
		}
		c.Set(KeyUserID, claims.UserID)
		c.Set(KeyEmail, claims.Email)
		c.Next()
	}
}
