package models

import "time"

// RequestStatus is the lifecycle state of a certificate request.
type RequestStatus string

const (
	RequestPending  RequestStatus = "pending"
	RequestApproved RequestStatus = "approved"
	RequestRejected RequestStatus = "rejected"
)

// CertificateRequest is a pending issuance awaiting administrative review.
// A request transitions exactly once from pending to approved or rejected;
// terminal states are never mutated again.
type CertificateRequest struct {
	RequestID string            `json:"request_id"`
	Name      string            `json:"name"`
	Cohort    string            `json:"cohort"`
	Email     string            `json:"email,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`

	RequestedBy string        `json:"requested_by"`
	Source      string        `json:"source"`
	Status      RequestStatus `json:"status"`
	RequestedAt time.Time     `json:"requested_at"`

	ReviewedBy      string     `json:"reviewed_by,omitempty"`
	ReviewedAt      *time.Time `json:"reviewed_at,omitempty"`
	RejectionReason string     `json:"rejection_reason,omitempty"`

	// CertificateID links an approved request to the certificate it produced.
	CertificateID string `json:"certificate_id,omitempty"`
}

// Terminal reports whether the request has reached a final state.
func (r *CertificateRequest) Terminal() bool {
	return r.Status == RequestApproved || r.Status == RequestRejected
}
