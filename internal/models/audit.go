package models

import "time"

// AuditEntry records a sensitive action against the certificate store.
type AuditEntry struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Action    string    `json:"action"`
	Actor     string    `json:"actor,omitempty"`
	Subject   string    `json:"subject,omitempty"` // certificate or request id
	Success   bool      `json:"success"`
	Details   string    `json:"details,omitempty"`
}

// Audit action constants
const (
	ActionIssue          = "cert_issue"
	ActionRevoke         = "cert_revoke"
	ActionRequest        = "cert_request"
	ActionApproveRequest = "request_approve"
	ActionRejectRequest  = "request_reject"
	ActionAuthFailed     = "auth_failed"
)
