package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dadadevs/certserver/internal/signer"
)

// CAHandler exposes the signing authority's public key
type CAHandler struct {
	signer *signer.Signer
}

// NewCAHandler creates a new CA handler
func NewCAHandler(s *signer.Signer) *CAHandler {
	return &CAHandler{signer: s}
}

// GetPublicKey returns the signing public key in PEM form
// GET /api/v1/ca/public-key
func (h *CAHandler) GetPublicKey(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"public_key":  h.signer.PublicKeyPEM(),
		"fingerprint": h.signer.Fingerprint(),
		"algorithm":   "ed25519",
	})
}
