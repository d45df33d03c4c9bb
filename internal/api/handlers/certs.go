package handlers

import (
	"encoding/base64"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dadadevs/certserver/internal/engine"
	"github.com/dadadevs/certserver/internal/models"
)

// CertHandler handles certificate issuance, verification and revocation
type CertHandler struct {
	engine *engine.Engine
}

// NewCertHandler creates a new certificate handler
func NewCertHandler(eng *engine.Engine) *CertHandler {
	return &CertHandler{engine: eng}
}

// IssueRequest represents a direct issuance request
type IssueRequest struct {
	Name     string            `json:"name" binding:"required"`
	Cohort   string            `json:"cohort"`
	Email    string            `json:"email"`
	Metadata map[string]string `json:"metadata"`
}

// IssueResponse carries the issued certificate and its rendered PDF
type IssueResponse struct {
	Certificate *models.Certificate `json:"certificate"`
	PDFBase64   string              `json:"pdf_base64"`
}

// Issue handles direct certificate issuance
// POST /api/v1/certificates
func (h *CertHandler) Issue(c *gin.Context) {
	var req IssueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid_request", "name is required")
		return
	}

	cert, pdfBytes, err := h.engine.Issue(c.Request.Context(), req.Name, req.Cohort, req.Email, req.Metadata)
	if err != nil {
		if errors.Is(err, engine.ErrNameRequired) {
			respondError(c, http.StatusBadRequest, "invalid_request", err.Error())
			return
		}
		respondError(c, http.StatusInternalServerError, "issue_failed", err.Error())
		return
	}

	c.JSON(http.StatusCreated, IssueResponse{
		Certificate: cert,
		PDFBase64:   base64.StdEncoding.EncodeToString(pdfBytes),
	})
}

// BulkIssue handles CSV bulk issuance
// POST /api/v1/certificates/bulk
func (h *CertHandler) BulkIssue(c *gin.Context) {
	file, _, err := c.Request.FormFile("file")
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid_request", "CSV file required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid_request", "failed to read CSV file")
		return
	}

	issued, err := h.engine.BulkIssue(c.Request.Context(), data)
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid_csv", err.Error())
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"issued":       len(issued),
		"certificates": issued,
	})
}

// Verify handles public certificate verification
// GET /api/v1/certificates/:id
func (h *CertHandler) Verify(c *gin.Context) {
	result, err := h.engine.Verify(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusInternalServerError, "verify_failed", err.Error())
		return
	}
	if result == nil {
		c.JSON(http.StatusNotFound, gin.H{"found": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{"found": true, "certificate": result})
}

// RevokeRequest carries a revocation reason
type RevokeRequest struct {
	Reason string `json:"reason"`
}

// Revoke handles certificate revocation
// POST /api/v1/certificates/:id/revoke
func (h *CertHandler) Revoke(c *gin.Context) {
	var req RevokeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		req.Reason = ""
	}
	if req.Reason == "" {
		req.Reason = "No reason provided"
	}

	cert, err := h.engine.Revoke(c.Param("id"), req.Reason)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "revoke_failed", err.Error())
		return
	}
	if cert == nil {
		respondError(c, http.StatusNotFound, "not_found", "Certificate not found")
		return
	}
	c.JSON(http.StatusOK, gin.H{"certificate": cert, "status": "revoked"})
}

// History lists issued certificates, newest first
// GET /api/v1/certificates
func (h *CertHandler) History(c *gin.Context) {
	certs, err := h.engine.ListHistory()
	if err != nil {
		respondError(c, http.StatusInternalServerError, "list_failed", err.Error())
		return
	}

	revoked := 0
	for _, cert := range certs {
		if cert.Revoked {
			revoked++
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"certificates": certs,
		"stats": gin.H{
			"total":   len(certs),
			"revoked": revoked,
			"active":  len(certs) - revoked,
		},
	})
}

// PDF re-renders and downloads the certificate PDF
// GET /api/v1/certificates/:id/pdf
func (h *CertHandler) PDF(c *gin.Context) {
	cert, pdfBytes, err := h.engine.RenderPDF(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusInternalServerError, "render_failed", err.Error())
		return
	}
	if cert == nil {
		respondError(c, http.StatusNotFound, "not_found", "Certificate not found")
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+cert.Artifacts.PDFFilename+`"`)
	c.Data(http.StatusOK, "application/pdf", pdfBytes)
}
