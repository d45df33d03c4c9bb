package handlers

import (
	"encoding/base64"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dadadevs/certserver/internal/engine"
)

// RequestHandler handles the request/approval workflow
type RequestHandler struct {
	engine *engine.Engine
}

// NewRequestHandler creates a new request handler
func NewRequestHandler(eng *engine.Engine) *RequestHandler {
	return &RequestHandler{engine: eng}
}

// CreateRequest represents a public issuance request
type CreateRequest struct {
	Name     string            `json:"name" binding:"required"`
	Cohort   string            `json:"cohort"`
	Email    string            `json:"email"`
	Metadata map[string]string `json:"metadata"`
}

// Create records a pending certificate request
// POST /api/v1/requests
func (h *RequestHandler) Create(c *gin.Context) {
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid_request", "name is required")
		return
	}

	requestedBy := req.Email
	if requestedBy == "" {
		requestedBy = "public_web"
	}

	record, err := h.engine.RequestIssue(req.Name, req.Cohort, req.Email, req.Metadata, requestedBy, "public_web")
	if err != nil {
		if errors.Is(err, engine.ErrNameRequired) {
			respondError(c, http.StatusBadRequest, "invalid_request", err.Error())
			return
		}
		respondError(c, http.StatusInternalServerError, "request_failed", err.Error())
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"status":  "pending",
		"message": "Certificate request recorded. An admin must approve it before issuance.",
		"request": record,
	})
}

// List returns all requests, newest first
// GET /api/v1/requests
func (h *RequestHandler) List(c *gin.Context) {
	reqs, err := h.engine.ListRequests()
	if err != nil {
		respondError(c, http.StatusInternalServerError, "list_failed", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"requests": reqs})
}

// ApproveRequest names the approver
type ApproveRequest struct {
	Approver string `json:"approver"`
}

// Approve releases a pending request as a signed certificate
// POST /api/v1/requests/:id/approve
func (h *RequestHandler) Approve(c *gin.Context) {
	var body ApproveRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		body.Approver = ""
	}
	if body.Approver == "" {
		body.Approver = "admin"
	}

	cert, pdfBytes, err := h.engine.ApproveRequest(c.Request.Context(), c.Param("id"), body.Approver)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "approve_failed", err.Error())
		return
	}
	if cert == nil {
		respondError(c, http.StatusNotFound, "not_found", "Request not found or already processed")
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"certificate": cert,
		"pdf_base64":  base64.StdEncoding.EncodeToString(pdfBytes),
	})
}

// RejectBody carries the rejection reason
type RejectBody struct {
	Reviewer string `json:"reviewer"`
	Reason   string `json:"reason"`
}

// Reject marks a pending request rejected
// POST /api/v1/requests/:id/reject
func (h *RequestHandler) Reject(c *gin.Context) {
	var body RejectBody
	if err := c.ShouldBindJSON(&body); err != nil {
		body = RejectBody{}
	}
	if body.Reviewer == "" {
		body.Reviewer = "admin"
	}
	if body.Reason == "" {
		body.Reason = "No reason provided"
	}

	req, err := h.engine.RejectRequest(c.Param("id"), body.Reviewer, body.Reason)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "reject_failed", err.Error())
		return
	}
	if req == nil {
		respondError(c, http.StatusNotFound, "not_found", "Request not found or already processed")
		return
	}
	c.JSON(http.StatusOK, gin.H{"request": req})
}
