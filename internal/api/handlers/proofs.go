package handlers

import (
	"net/http"
	"os"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/dadadevs/certserver/internal/anchor"
)

// ProofHandler serves raw timestamp-proof artifacts
type ProofHandler struct {
	timestamper *anchor.CalendarClient
}

// NewProofHandler creates a new proof handler
func NewProofHandler(timestamper *anchor.CalendarClient) *ProofHandler {
	return &ProofHandler{timestamper: timestamper}
}

// Download serves the proof file for a certificate
// GET /proofs/<cert id>.ots
func (h *ProofHandler) Download(c *gin.Context) {
	certID := strings.TrimSuffix(c.Param("file"), ".ots")
	if certID == "" || strings.ContainsAny(certID, `/\`) || strings.Contains(certID, "..") {
		respondError(c, http.StatusNotFound, "not_found", "Proof not found")
		return
	}
	path := h.timestamper.ProofPath(certID)
	if _, err := os.Stat(path); err != nil {
		respondError(c, http.StatusNotFound, "not_found", "Proof not found")
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+certID+`.ots"`)
	c.File(path)
}
