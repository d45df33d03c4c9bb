package store

import (
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/dadadevs/certserver/internal/models"
)

// CertificateStore persists issued certificates. Certificates are never
// deleted; revocation is an additive mutation.
type CertificateStore struct {
	col *collection[models.Certificate]
}

// NewCertificateStore creates a certificate store backed by certs.json
// under dataDir.
func NewCertificateStore(dataDir string, strict bool, logger zerolog.Logger) (*CertificateStore, error) {
	col, err := newCollection[models.Certificate](filepath.Join(dataDir, "certs.json"), strict, logger)
	if err != nil {
		return nil, err
	}
	return &CertificateStore{col: col}, nil
}

// Get returns the certificate with the given id, or nil if unknown.
func (s *CertificateStore) Get(id string) (*models.Certificate, error) {
	return s.col.Get(id)
}

// List returns all stored certificates.
func (s *CertificateStore) List() ([]models.Certificate, error) {
	return s.col.List()
}

// Save upserts a certificate by id.
func (s *CertificateStore) Save(cert *models.Certificate) error {
	return s.col.Save(cert.ID, *cert)
}

// Revoke marks the certificate revoked. The first revocation wins: an
// existing revoked_at and reason are preserved on repeat calls. Returns nil
// if the id is unknown.
func (s *CertificateStore) Revoke(id, reason string, at time.Time) (*models.Certificate, error) {
	return s.col.Update(id, func(cert *models.Certificate) {
		if cert.Revoked {
			return
		}
		cert.Revoked = true
		revokedAt := at.UTC()
		cert.RevokedAt = &revokedAt
		cert.RevocationReason = reason
	})
}
