package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dadadevs/certserver/internal/auth"
	"github.com/dadadevs/certserver/internal/config"
	"github.com/dadadevs/certserver/internal/engine"
)

// AdminHandler handles admin authentication
type AdminHandler struct {
	admin  config.AdminConfig
	engine *engine.Engine
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(admin config.AdminConfig, eng *engine.Engine) *AdminHandler {
	return &AdminHandler{admin: admin, engine: eng}
}

// LoginRequest carries admin credentials
type LoginRequest struct {
	Password string `json:"password" binding:"required"`
	TOTP     string `json:"totp"`
}

// Login exchanges admin credentials for the API token. Requires
// admin.password_hash to be configured; the TOTP code is checked when a
// secret is set.
// POST /api/v1/auth/login
func (h *AdminHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid_request", "password is required")
		return
	}

	if h.admin.PasswordHash == "" {
		respondError(c, http.StatusForbidden, "login_disabled", "Password login is not configured")
		return
	}

	if !auth.VerifyPassword(req.Password, h.admin.PasswordHash) {
		h.engine.RecordAuthFailure(c.ClientIP(), "invalid admin password")
		respondError(c, http.StatusUnauthorized, "invalid_credentials", "Invalid credentials")
		return
	}

	if h.admin.TOTPSecret != "" && !auth.ValidateTOTP(h.admin.TOTPSecret, req.TOTP) {
		h.engine.RecordAuthFailure(c.ClientIP(), "invalid TOTP code")
		respondError(c, http.StatusUnauthorized, "invalid_totp", "Invalid TOTP code")
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": h.admin.Token})
}

// Audit lists the audit trail, most recent first
// GET /api/v1/audit
func (h *AdminHandler) Audit(c *gin.Context) {
	entries, err := h.engine.AuditTrail()
	if err != nil {
		respondError(c, http.StatusInternalServerError, "audit_failed", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries})
}
