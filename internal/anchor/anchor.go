// Package anchor holds the best-effort external proof clients: a timestamp
// authority and a content pinner. Anchoring failures are recorded on the
// certificate, never surfaced as issuance errors.
package anchor

import (
	"context"

	"github.com/dadadevs/certserver/internal/canonical"
	"github.com/dadadevs/certserver/internal/models"
)

// TimestampResult is the outcome of a stamp attempt.
type TimestampResult struct {
	Status    models.TimestampStatus
	ProofPath string
	Error     string
}

// Timestamper obtains and checks existence proofs for certificate payloads.
type Timestamper interface {
	// Stamp requests a timestamp proof over payload. It must not fail
	// issuance: errors come back as a status, not an error value.
	Stamp(ctx context.Context, certID, payload string) TimestampResult

	// Verify checks the stored proof for a certificate.
	Verify(certID string) models.ProofVerification
}

// Pinner publishes a certificate's public document to a content-addressed
// network. The document is always written locally; the returned remote
// address is empty when no remote is configured or reachable.
type Pinner interface {
	Pin(ctx context.Context, certID string, doc canonical.PublicExport) PinResult
}

// PinResult is the outcome of a pin attempt.
type PinResult struct {
	// CID is the locally computed content address of the document.
	CID string
	// RemoteURL is a gateway URL for the remotely pinned document, or empty.
	RemoteURL string
}
