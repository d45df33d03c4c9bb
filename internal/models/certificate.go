package models

import "time"

// TimestampStatus is the outcome of a timestamp-anchor attempt.
type TimestampStatus string

const (
	TimestampStamped  TimestampStatus = "stamped"
	TimestampDisabled TimestampStatus = "disabled"
	TimestampError    TimestampStatus = "error"
)

// ProofStatus is the outcome of a timestamp-proof check.
type ProofStatus string

const (
	ProofVerified   ProofStatus = "verified"
	ProofUnverified ProofStatus = "unverified"
	ProofMissing    ProofStatus = "missing"
	ProofDisabled   ProofStatus = "disabled"
)

// Artifacts references rendered outputs attached to a certificate.
type Artifacts struct {
	PDFFilename string `json:"pdf_filename,omitempty"`
}

// Certificate is the signed record for a single issued credential.
//
// The signature covers exactly (ID, Name, Cohort, IssuedAt) in that order;
// those four fields must never change after issuance. Everything else is
// enrichment and may be appended without invalidating the signature.
type Certificate struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Cohort   string    `json:"cohort"`
	Email    string    `json:"email,omitempty"`
	IssuedAt time.Time `json:"issued_at"`

	Revoked          bool       `json:"revoked"`
	RevokedAt        *time.Time `json:"revoked_at,omitempty"`
	RevocationReason string     `json:"revocation_reason,omitempty"`

	Metadata  map[string]string `json:"metadata,omitempty"`
	Signature string            `json:"signature,omitempty"`

	VerifyURL string `json:"verify_url,omitempty"`
	ShareURL  string `json:"share_url,omitempty"`

	TimestampStatus  TimestampStatus `json:"ots_status,omitempty"`
	ProofPath        string          `json:"ots_proof_path,omitempty"`
	ContentCID       string          `json:"content_cid,omitempty"`
	PublicPayloadURL string          `json:"public_payload_url,omitempty"`

	Artifacts Artifacts `json:"artifacts,omitempty"`
}

// ProofVerification is the live result of checking a certificate's
// timestamp proof.
type ProofVerification struct {
	Status ProofStatus `json:"status"`
	Error  string      `json:"error,omitempty"`
}

// Verification is the public view returned by a verification lookup:
// the stored certificate plus the freshly recomputed checks.
type Verification struct {
	Certificate
	SignatureValid bool              `json:"signature_valid"`
	Proof          ProofVerification `json:"ots_verification"`
}
