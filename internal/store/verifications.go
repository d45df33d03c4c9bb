package store

import (
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/dadadevs/certserver/internal/models"
)

// VerificationStore persists identity-verification token bindings, keyed by
// token hash.
type VerificationStore struct {
	col *collection[models.IdentityVerification]
}

// NewVerificationStore creates a verification store backed by
// verifications.json under dataDir.
func NewVerificationStore(dataDir string, strict bool, logger zerolog.Logger) (*VerificationStore, error) {
	col, err := newCollection[models.IdentityVerification](filepath.Join(dataDir, "verifications.json"), strict, logger)
	if err != nil {
		return nil, err
	}
	return &VerificationStore{col: col}, nil
}

// Get returns the verification for a token hash, or nil if unknown.
func (s *VerificationStore) Get(tokenHash string) (*models.IdentityVerification, error) {
	return s.col.Get(tokenHash)
}

// List returns all verifications.
func (s *VerificationStore) List() ([]models.IdentityVerification, error) {
	return s.col.List()
}

// Save upserts a verification by its token hash.
func (s *VerificationStore) Save(v *models.IdentityVerification) error {
	return s.col.Save(v.TokenHash, *v)
}

// MarkVerified flips the verification for a token hash. Returns nil if the
// token hash is unknown.
func (s *VerificationStore) MarkVerified(tokenHash string, fn func(*models.IdentityVerification)) (*models.IdentityVerification, error) {
	return s.col.Update(tokenHash, fn)
}
