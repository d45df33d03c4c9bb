package store

import (
	"path/filepath"
	"sort"

	"github.com/rs/zerolog"

	"github.com/dadadevs/certserver/internal/models"
)

// AuditStore persists the audit trail of sensitive actions.
type AuditStore struct {
	col *collection[models.AuditEntry]
}

// NewAuditStore creates an audit store backed by audit.json under dataDir.
func NewAuditStore(dataDir string, strict bool, logger zerolog.Logger) (*AuditStore, error) {
	col, err := newCollection[models.AuditEntry](filepath.Join(dataDir, "audit.json"), strict, logger)
	if err != nil {
		return nil, err
	}
	return &AuditStore{col: col}, nil
}

// Append records an audit entry.
func (s *AuditStore) Append(entry *models.AuditEntry) error {
	return s.col.Save(entry.ID, *entry)
}

// List returns audit entries, most recent first.
func (s *AuditStore) List() ([]models.AuditEntry, error) {
	entries, err := s.col.List()
	if err != nil {
		return nil, err
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Timestamp.Equal(entries[j].Timestamp) {
			return entries[i].ID > entries[j].ID
		}
		return entries[i].Timestamp.After(entries[j].Timestamp)
	})
	return entries, nil
}
