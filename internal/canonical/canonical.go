// Package canonical derives the deterministic signing payload and the
// public export of a certificate. The payload format is a compatibility
// contract: changing the field order or delimiter invalidates every
// previously issued signature.
package canonical

import (
	"strings"
	"time"

	"github.com/dadadevs/certserver/internal/models"
)

const delimiter = "|"

// TimeFormat is the canonical rendering of issued_at. Certificates are
// issued at whole-second precision so this survives a JSON round-trip.
const TimeFormat = time.RFC3339

// Payload returns the exact string signed at issuance and recomputed at
// every verification: id, name, cohort and issued_at joined by "|", with
// empty strings for unset fields.
func Payload(cert *models.Certificate) string {
	issuedAt := ""
	if !cert.IssuedAt.IsZero() {
		issuedAt = cert.IssuedAt.UTC().Format(TimeFormat)
	}
	return strings.Join([]string{cert.ID, cert.Name, cert.Cohort, issuedAt}, delimiter)
}

// PublicExport strips internal fields from a certificate, keeping only what
// is safe to publish on a public content network.
type PublicExport struct {
	ID               string                 `json:"id"`
	Name             string                 `json:"name"`
	Cohort           string                 `json:"cohort"`
	IssuedAt         time.Time              `json:"issued_at"`
	Signature        string                 `json:"signature,omitempty"`
	VerifyURL        string                 `json:"verify_url,omitempty"`
	ShareURL         string                 `json:"share_url,omitempty"`
	TimestampStatus  models.TimestampStatus `json:"ots_status,omitempty"`
	Revoked          bool                   `json:"revoked"`
	RevokedAt        *time.Time             `json:"revoked_at,omitempty"`
	RevocationReason string                 `json:"revocation_reason,omitempty"`
}

// Export builds the public document for a certificate. Email, metadata and
// storage paths are deliberately excluded.
func Export(cert *models.Certificate) PublicExport {
	return PublicExport{
		ID:               cert.ID,
		Name:             cert.Name,
		Cohort:           cert.Cohort,
		IssuedAt:         cert.IssuedAt,
		Signature:        cert.Signature,
		VerifyURL:        cert.VerifyURL,
		ShareURL:         cert.ShareURL,
		TimestampStatus:  cert.TimestampStatus,
		Revoked:          cert.Revoked,
		RevokedAt:        cert.RevokedAt,
		RevocationReason: cert.RevocationReason,
	}
}
