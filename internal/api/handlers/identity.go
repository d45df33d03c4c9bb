package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dadadevs/certserver/internal/auth"
	"github.com/dadadevs/certserver/internal/store"
)

// IdentityHandler handles student identity verification: proving control
// of the email on a certificate via a one-time token.
type IdentityHandler struct {
	verifier *auth.IdentityVerifier
	certs    *store.CertificateStore
	baseURL  string
}

// NewIdentityHandler creates a new identity handler
func NewIdentityHandler(verifier *auth.IdentityVerifier, certs *store.CertificateStore, baseURL string) *IdentityHandler {
	return &IdentityHandler{verifier: verifier, certs: certs, baseURL: baseURL}
}

// BeginRequest carries the email claimed by the certificate holder
type BeginRequest struct {
	Email string `json:"email" binding:"required"`
}

// Begin issues a verification token when the email matches the certificate
// POST /api/v1/certificates/:id/identity
func (h *IdentityHandler) Begin(c *gin.Context) {
	certID := c.Param("id")

	cert, err := h.certs.Get(certID)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "lookup_failed", err.Error())
		return
	}
	if cert == nil {
		respondError(c, http.StatusNotFound, "not_found", "Certificate not found")
		return
	}

	var req BeginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid_request", "email is required")
		return
	}
	if cert.Email == "" || req.Email != cert.Email {
		respondError(c, http.StatusForbidden, "email_mismatch", "Email does not match certificate record")
		return
	}

	token, err := h.verifier.Begin(req.Email, certID)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "token_failed", err.Error())
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"token":      token,
		"verify_url": h.baseURL + "/api/v1/certificates/" + certID + "/identity?token=" + token,
	})
}

// Confirm redeems a verification token
// GET /api/v1/certificates/:id/identity?token=...
func (h *IdentityHandler) Confirm(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		respondError(c, http.StatusBadRequest, "invalid_request", "token is required")
		return
	}

	record, err := h.verifier.Confirm(token, c.Param("id"))
	if err != nil {
		respondError(c, http.StatusInternalServerError, "confirm_failed", err.Error())
		return
	}
	if record == nil {
		respondError(c, http.StatusNotFound, "not_found", "Invalid or expired verification token")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"verified": true,
		"email":    record.Email,
	})
}
