package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dadadevs/certserver/internal/auth"
)

// AdminAuth checks the admin token and, when a TOTP secret is configured,
// a valid second-factor code.
func AdminAuth(adminToken, totpSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.GetHeader("X-Admin-Token")

		if token == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":   "unauthorized",
				"message": "Admin token required",
			})
			c.Abort()
			return
		}

		if subtle.ConstantTimeCompare([]byte(token), []byte(adminToken)) != 1 {
			c.JSON(http.StatusForbidden, gin.H{
				"error":   "forbidden",
				"message": "Invalid admin token",
			})
			c.Abort()
			return
		}

		if totpSecret != "" {
			code := c.GetHeader("X-Admin-TOTP")
			if !auth.ValidateTOTP(totpSecret, code) {
				c.JSON(http.StatusForbidden, gin.H{
					"error":   "forbidden",
					"message": "Invalid TOTP code",
				})
				c.Abort()
				return
			}
		}

		c.Next()
	}
}
