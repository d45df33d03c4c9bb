package engine

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/dadadevs/certserver/internal/models"
)

// bulkRow is one parsed line of a bulk upload.
type bulkRow struct {
	name   string
	cohort string
	email  string
}

// parseRows reads a CSV with a header row containing at least a "name"
// column. Rows with an empty name are dropped; a short or ragged row never
// aborts the batch.
func parseRows(data []byte) ([]bulkRow, error) {
	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}

	cols := map[string]int{}
	for i, name := range header {
		cols[strings.ToLower(strings.TrimSpace(name))] = i
	}
	nameIdx, ok := cols["name"]
	if !ok {
		return nil, fmt.Errorf("CSV is missing a name column")
	}

	field := func(record []string, idx int, ok bool) string {
		if !ok || idx >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[idx])
	}

	cohortIdx, hasCohort := cols["cohort"]
	emailIdx, hasEmail := cols["email"]

	var rows []bulkRow
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			// Skip malformed rows, keep the batch going.
			continue
		}
		name := field(record, nameIdx, true)
		if name == "" {
			continue
		}
		rows = append(rows, bulkRow{
			name:   name,
			cohort: field(record, cohortIdx, hasCohort),
			email:  field(record, emailIdx, hasEmail),
		})
	}
	return rows, nil
}

// BulkIssue issues a certificate for every valid row of the CSV through the
// direct path. Per-row anchor failures are recorded on the record; a failed
// row is logged and skipped rather than failing the batch.
func (e *Engine) BulkIssue(ctx context.Context, data []byte) ([]models.Certificate, error) {
	rows, err := parseRows(data)
	if err != nil {
		return nil, err
	}

	issued := make([]models.Certificate, 0, len(rows))
	for _, row := range rows {
		cert, _, err := e.Issue(ctx, row.name, row.cohort, row.email, nil)
		if err != nil {
			e.logger.Error().Err(err).Str("name", row.name).Msg("bulk issue row failed")
			continue
		}
		issued = append(issued, *cert)
	}
	return issued, nil
}

// BulkRequest queues a pending request for every valid row of the CSV, for
// callers without direct-issue authority.
func (e *Engine) BulkRequest(data []byte, requestedBy, source string) ([]models.CertificateRequest, error) {
	rows, err := parseRows(data)
	if err != nil {
		return nil, err
	}

	queued := make([]models.CertificateRequest, 0, len(rows))
	for _, row := range rows {
		req, err := e.RequestIssue(row.name, row.cohort, row.email, nil, requestedBy, source)
		if err != nil {
			e.logger.Error().Err(err).Str("name", row.name).Msg("bulk request row failed")
			continue
		}
		queued = append(queued, *req)
	}
	return queued, nil
}
