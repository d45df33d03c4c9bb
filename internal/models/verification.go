package models

import "time"

// IdentityVerification binds an email address to a certificate through a
// one-time token. The token itself is stored hashed.
type IdentityVerification struct {
	TokenHash     string     `json:"token_hash"`
	Email         string     `json:"email"`
	CertificateID string     `json:"certificate_id"`
	Verified      bool       `json:"verified"`
	CreatedAt     time.Time  `json:"created_at"`
	VerifiedAt    *time.Time `json:"verified_at,omitempty"`
}
