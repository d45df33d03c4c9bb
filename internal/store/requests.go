package store

import (
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/dadadevs/certserver/internal/models"
)

// RequestStore persists certificate requests awaiting review.
type RequestStore struct {
	col *collection[models.CertificateRequest]
}

// NewRequestStore creates a request store backed by requests.json under
// dataDir.
func NewRequestStore(dataDir string, strict bool, logger zerolog.Logger) (*RequestStore, error) {
	col, err := newCollection[models.CertificateRequest](filepath.Join(dataDir, "requests.json"), strict, logger)
	if err != nil {
		return nil, err
	}
	return &RequestStore{col: col}, nil
}

// Get returns the request with the given id, or nil if unknown.
func (s *RequestStore) Get(id string) (*models.CertificateRequest, error) {
	return s.col.Get(id)
}

// List returns all stored requests.
func (s *RequestStore) List() ([]models.CertificateRequest, error) {
	return s.col.List()
}

// Save upserts a request by id.
func (s *RequestStore) Save(req *models.CertificateRequest) error {
	return s.col.Save(req.RequestID, *req)
}

// Delete removes a request.
func (s *RequestStore) Delete(id string) error {
	return s.col.Delete(id)
}
