package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dadadevs/certserver/internal/auth"
)

func protectedRouter(adminToken, totpSecret string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(AdminAuth(adminToken, totpSecret))
	router.GET("/protected", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	return router
}

func get(router *gin.Engine, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestAdminAuth(t *testing.T) {
	router := protectedRouter("secret-token", "")

	t.Run("missing token", func(t *testing.T) {
		w := get(router, nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("wrong token", func(t *testing.T) {
		w := get(router, map[string]string{"X-Admin-Token": "wrong"})
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("valid token", func(t *testing.T) {
		w := get(router, map[string]string{"X-Admin-Token": "secret-token"})
		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestAdminAuthWithTOTP(t *testing.T) {
	secret, err := auth.GenerateTOTPSecret()
	require.NoError(t, err)
	router := protectedRouter("secret-token", secret)

	t.Run("token alone is not enough", func(t *testing.T) {
		w := get(router, map[string]string{"X-Admin-Token": "secret-token"})
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("wrong code", func(t *testing.T) {
		w := get(router, map[string]string{
			"X-Admin-Token": "secret-token",
			"X-Admin-TOTP":  "000000",
		})
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("valid code", func(t *testing.T) {
		code, err := totp.GenerateCode(secret, time.Now())
		require.NoError(t, err)
		w := get(router, map[string]string{
			"X-Admin-Token": "secret-token",
			"X-Admin-TOTP":  code,
		})
		assert.Equal(t, http.StatusOK, w.Code)
	})
}
