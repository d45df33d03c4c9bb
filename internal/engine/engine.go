// Package engine orchestrates the certificate lifecycle: issuance (direct
// and via the request/approval workflow), revocation, verification and
// history. It owns no state of its own; every operation re-reads from the
// store so concurrent writers are always observed.
package engine

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/dadadevs/certserver/internal/anchor"
	"github.com/dadadevs/certserver/internal/canonical"
	"github.com/dadadevs/certserver/internal/models"
	"github.com/dadadevs/certserver/internal/pdf"
	"github.com/dadadevs/certserver/internal/signer"
	"github.com/dadadevs/certserver/internal/store"
)

// ErrNameRequired rejects issuance and requests with an empty name before
// any state changes.
var ErrNameRequired = errors.New("name is required")

const defaultCohort = "unspecified"

const linkedInShareBase = "https://www.linkedin.com/sharing/share-offsite/?url="

// Engine wires the store, signer, renderer and anchor clients behind the
// certificate operations. All dependencies are constructor-injected.
type Engine struct {
	certs       *store.CertificateStore
	requests    *store.RequestStore
	audit       *store.AuditStore
	signer      *signer.Signer
	renderer    pdf.Renderer
	timestamper anchor.Timestamper
	pinner      anchor.Pinner
	baseURL     string
	logger      zerolog.Logger
}

// New creates an Engine.
func New(
	certs *store.CertificateStore,
	requests *store.RequestStore,
	audit *store.AuditStore,
	sig *signer.Signer,
	renderer pdf.Renderer,
	timestamper anchor.Timestamper,
	pinner anchor.Pinner,
	baseURL string,
	logger zerolog.Logger,
) *Engine {
	return &Engine{
		certs:       certs,
		requests:    requests,
		audit:       audit,
		signer:      sig,
		renderer:    renderer,
		timestamper: timestamper,
		pinner:      pinner,
		baseURL:     baseURL,
		logger:      logger,
	}
}

// VerifyURL returns the public verification URL for a certificate id.
func (e *Engine) VerifyURL(certID string) string {
	return e.baseURL + "/verify/" + certID
}

// Issue runs the direct issuance pipeline: validate, sign, anchor, render,
// persist. Anchor failures are recorded on the certificate, never returned
// as errors. The returned bytes are the rendered PDF.
func (e *Engine) Issue(ctx context.Context, name, cohort, email string, metadata map[string]string) (*models.Certificate, []byte, error) {
	if name == "" {
		return nil, nil, ErrNameRequired
	}
	if cohort == "" {
		cohort = defaultCohort
	}

	cert := &models.Certificate{
		ID:       uuid.NewString(),
		Name:     name,
		Cohort:   cohort,
		Email:    email,
		IssuedAt: time.Now().UTC().Truncate(time.Second),
		Metadata: metadata,
	}

	payload := canonical.Payload(cert)
	cert.Signature = e.signer.Sign(payload)
	cert.VerifyURL = e.VerifyURL(cert.ID)
	cert.ShareURL = linkedInShareBase + url.QueryEscape(cert.VerifyURL)

	stamp := e.timestamper.Stamp(ctx, cert.ID, payload)
	cert.TimestampStatus = stamp.Status
	cert.ProofPath = stamp.ProofPath

	pin := e.pinner.Pin(ctx, cert.ID, canonical.Export(cert))
	cert.ContentCID = pin.CID
	cert.PublicPayloadURL = pin.RemoteURL

	pdfBytes, err := e.renderer.Render(cert)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to render certificate PDF: %w", err)
	}
	cert.Artifacts = models.Artifacts{PDFFilename: pdf.Filename(cert)}

	if err := e.certs.Save(cert); err != nil {
		return nil, nil, fmt.Errorf("failed to persist certificate: %w", err)
	}

	e.recordAudit(models.ActionIssue, "", cert.ID, true, "issued for "+cert.Name)
	e.logger.Info().Str("cert_id", cert.ID).Str("cohort", cert.Cohort).Msg("certificate issued")

	return cert, pdfBytes, nil
}

// RequestIssue records a pending certificate request. Nothing is signed or
// rendered until an approver releases it.
func (e *Engine) RequestIssue(name, cohort, email string, metadata map[string]string, requestedBy, source string) (*models.CertificateRequest, error) {
	if name == "" {
		return nil, ErrNameRequired
	}
	if cohort == "" {
		cohort = defaultCohort
	}

	req := &models.CertificateRequest{
		RequestID:   uuid.NewString(),
		Name:        name,
		Cohort:      cohort,
		Email:       email,
		Metadata:    metadata,
		RequestedBy: requestedBy,
		Source:      source,
		Status:      models.RequestPending,
		RequestedAt: time.Now().UTC().Truncate(time.Second),
	}

	if err := e.requests.Save(req); err != nil {
		return nil, fmt.Errorf("failed to persist request: %w", err)
	}

	e.recordAudit(models.ActionRequest, requestedBy, req.RequestID, true, "request for "+req.Name)
	return req, nil
}

// ApproveRequest releases a pending request through the issuance pipeline
// and marks it approved. Returns nils when the request is unknown or
// already processed; an already-approved or rejected request is never
// reprocessed.
//
// The certificate and the request live in separate collections with no
// cross-collection transaction. The certificate is persisted first; a crash
// before the request update leaves the request pending, and a later
// re-approval would issue a second certificate under a fresh id.
func (e *Engine) ApproveRequest(ctx context.Context, requestID, approver string) (*models.Certificate, []byte, error) {
	req, err := e.requests.Get(requestID)
	if err != nil {
		return nil, nil, err
	}
	if req == nil || req.Status != models.RequestPending {
		return nil, nil, nil
	}

	cert, pdfBytes, err := e.Issue(ctx, req.Name, req.Cohort, req.Email, req.Metadata)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to issue approved certificate: %w", err)
	}

	now := time.Now().UTC().Truncate(time.Second)
	req.Status = models.RequestApproved
	req.ReviewedBy = approver
	req.ReviewedAt = &now
	req.CertificateID = cert.ID
	if err := e.requests.Save(req); err != nil {
		// The certificate exists; losing the request transition here is the
		// documented crash window.
		return nil, nil, fmt.Errorf("certificate %s issued but request update failed: %w", cert.ID, err)
	}

	e.recordAudit(models.ActionApproveRequest, approver, requestID, true, "issued certificate "+cert.ID)
	return cert, pdfBytes, nil
}

// RejectRequest marks a pending request rejected with the given reason.
// Returns nil when the request is unknown or already processed.
func (e *Engine) RejectRequest(requestID, reviewer, reason string) (*models.CertificateRequest, error) {
	req, err := e.requests.Get(requestID)
	if err != nil {
		return nil, err
	}
	if req == nil || req.Status != models.RequestPending {
		return nil, nil
	}

	now := time.Now().UTC().Truncate(time.Second)
	req.Status = models.RequestRejected
	req.ReviewedBy = reviewer
	req.ReviewedAt = &now
	req.RejectionReason = reason
	if err := e.requests.Save(req); err != nil {
		return nil, fmt.Errorf("failed to persist rejection: %w", err)
	}

	e.recordAudit(models.ActionRejectRequest, reviewer, requestID, true, reason)
	return req, nil
}

// ListRequests returns all requests, newest first.
func (e *Engine) ListRequests() ([]models.CertificateRequest, error) {
	reqs, err := e.requests.List()
	if err != nil {
		return nil, err
	}
	sort.Slice(reqs, func(i, j int) bool {
		if reqs[i].RequestedAt.Equal(reqs[j].RequestedAt) {
			return reqs[i].RequestID > reqs[j].RequestID
		}
		return reqs[i].RequestedAt.After(reqs[j].RequestedAt)
	})
	return reqs, nil
}

// Revoke marks a certificate revoked. The signed fields are untouched and
// the first revocation's timestamp and reason win on repeat calls. Returns
// nil for an unknown id.
func (e *Engine) Revoke(id, reason string) (*models.Certificate, error) {
	cert, err := e.certs.Revoke(id, reason, time.Now())
	if err != nil {
		return nil, err
	}
	if cert == nil {
		return nil, nil
	}
	e.recordAudit(models.ActionRevoke, "", id, true, reason)
	e.logger.Info().Str("cert_id", id).Str("reason", reason).Msg("certificate revoked")
	return cert, nil
}

// Verify looks up a certificate and recomputes its checks: the signature is
// re-derived from the stored fields on every call (a stored record is never
// trusted as self-certifying) and the timestamp proof is queried live.
// Returns nil for an unknown id.
func (e *Engine) Verify(id string) (*models.Verification, error) {
	cert, err := e.certs.Get(id)
	if err != nil {
		return nil, err
	}
	if cert == nil {
		return nil, nil
	}

	payload := canonical.Payload(cert)
	return &models.Verification{
		Certificate:    *cert,
		SignatureValid: e.signer.Verify(payload, cert.Signature),
		Proof:          e.timestamper.Verify(id),
	}, nil
}

// ListHistory returns all certificates ordered by issuance time descending,
// with id as the tiebreak so the order is stable.
func (e *Engine) ListHistory() ([]models.Certificate, error) {
	certs, err := e.certs.List()
	if err != nil {
		return nil, err
	}
	sort.Slice(certs, func(i, j int) bool {
		if certs[i].IssuedAt.Equal(certs[j].IssuedAt) {
			return certs[i].ID > certs[j].ID
		}
		return certs[i].IssuedAt.After(certs[j].IssuedAt)
	})
	return certs, nil
}

// RenderPDF re-renders the PDF artifact for a stored certificate. Returns
// nil bytes for an unknown id.
func (e *Engine) RenderPDF(id string) (*models.Certificate, []byte, error) {
	cert, err := e.certs.Get(id)
	if err != nil {
		return nil, nil, err
	}
	if cert == nil {
		return nil, nil, nil
	}
	pdfBytes, err := e.renderer.Render(cert)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to render certificate PDF: %w", err)
	}
	return cert, pdfBytes, nil
}

// RecordAuthFailure notes a failed administrative authentication attempt
// in the audit trail.
func (e *Engine) RecordAuthFailure(actor, details string) {
	e.recordAudit(models.ActionAuthFailed, actor, "", false, details)
}

// AuditTrail returns the recorded audit entries, most recent first.
func (e *Engine) AuditTrail() ([]models.AuditEntry, error) {
	return e.audit.List()
}

// recordAudit appends to the audit trail. Audit failures are logged, never
// propagated.
func (e *Engine) recordAudit(action, actor, subject string, success bool, details string) {
	entry := &models.AuditEntry{
		ID:        uuid.NewString(),
		Timestamp: time.Now().UTC(),
		Action:    action,
		Actor:     actor,
		Subject:   subject,
		Success:   success,
		Details:   details,
	}
	if err := e.audit.Append(entry); err != nil {
		e.logger.Error().Err(err).Str("action", action).Msg("failed to append audit entry")
	}
}
