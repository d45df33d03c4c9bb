package anchor

import (
	"bytes"
	"context"
	"crypto/sha256"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/rs/zerolog"

	"github.com/dadadevs/certserver/internal/models"
)

// otsMagic is the OpenTimestamps detached-proof header.
var otsMagic = []byte("\x00OpenTimestamps\x00\x00Proof\x00\xbf\x89\xe2\xe8\x84\xe8\x92\x94\x01")

// sha256Tag identifies the digest algorithm inside the proof.
const sha256Tag = 0x08

const disabledPlaceholder = "timestamping disabled for this deployment\n"

// CalendarClient anchors payload digests with OpenTimestamps-style calendar
// servers and keeps the returned proofs on disk, one file per certificate.
type CalendarClient struct {
	proofsDir string
	calendars []string
	enabled   bool
	client    *http.Client
	logger    zerolog.Logger
}

// NewCalendarClient creates a timestamp client writing proofs under
// proofsDir. With enabled false, or no calendars configured, every stamp
// records a disabled placeholder instead of contacting the network.
func NewCalendarClient(proofsDir string, calendars []string, enabled bool, timeout time.Duration, logger zerolog.Logger) (*CalendarClient, error) {
	if err := os.MkdirAll(proofsDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create proofs directory: %w", err)
	}
	return &CalendarClient{
		proofsDir: proofsDir,
		calendars: calendars,
		enabled:   enabled && len(calendars) > 0,
		client:    &http.Client{Timeout: timeout},
		logger:    logger,
	}, nil
}

// ProofPath returns the on-disk location of a certificate's proof file.
func (c *CalendarClient) ProofPath(certID string) string {
	return filepath.Join(c.proofsDir, certID+".ots")
}

// Stamp submits the sha256 digest of payload to the first reachable
// calendar and writes the proof file. Network failures degrade to an error
// status; the proof file then holds the failure note so the attempt stays
// inspectable.
func (c *CalendarClient) Stamp(ctx context.Context, certID, payload string) TimestampResult {
	proofPath := c.ProofPath(certID)

	if !c.enabled {
		if err := os.WriteFile(proofPath, []byte(disabledPlaceholder), 0o644); err != nil {
			c.logger.Error().Err(err).Str("cert_id", certID).Msg("failed to write placeholder proof")
		}
		return TimestampResult{Status: models.TimestampDisabled, ProofPath: proofPath}
	}

	digest := sha256.Sum256([]byte(payload))

	attestation, err := c.submit(ctx, digest[:])
	if err != nil {
		c.logger.Warn().Err(err).Str("cert_id", certID).Msg("timestamp stamp failed")
		if werr := os.WriteFile(proofPath, []byte("timestamp stamp failed: "+err.Error()+"\n"), 0o644); werr != nil {
			c.logger.Error().Err(werr).Str("cert_id", certID).Msg("failed to write failure note")
		}
		return TimestampResult{Status: models.TimestampError, ProofPath: proofPath, Error: err.Error()}
	}

	var proof bytes.Buffer
	proof.Write(otsMagic)
	proof.WriteByte(sha256Tag)
	proof.Write(digest[:])
	proof.Write(attestation)

	if err := os.WriteFile(proofPath, proof.Bytes(), 0o644); err != nil {
		return TimestampResult{Status: models.TimestampError, ProofPath: proofPath, Error: err.Error()}
	}
	return TimestampResult{Status: models.TimestampStamped, ProofPath: proofPath}
}

// submit posts the digest to each calendar in turn, retrying transient
// failures with a capped exponential backoff. The first calendar to answer
// wins.
func (c *CalendarClient) submit(ctx context.Context, digest []byte) ([]byte, error) {
	var lastErr error
	for _, calendar := range c.calendars {
		url := calendar + "/digest"
		body, err := backoff.Retry(ctx, func() ([]byte, error) {
			return c.post(ctx, url, digest)
		},
			backoff.WithBackOff(backoff.NewExponentialBackOff()),
			backoff.WithMaxTries(3),
			backoff.WithMaxElapsedTime(c.client.Timeout*3),
		)
		if err == nil {
			return body, nil
		}
		lastErr = err
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("no calendars configured")
	}
	return nil, lastErr
}

func (c *CalendarClient) post(ctx context.Context, url string, digest []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(digest))
	if err != nil {
		return nil, backoff.Permanent(err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("calendar returned %s", resp.Status)
		if resp.StatusCode >= 400 && resp.StatusCode < 500 {
			return nil, backoff.Permanent(err)
		}
		return nil, err
	}
	return io.ReadAll(io.LimitReader(resp.Body, 1<<20))
}

// Verify inspects the stored proof for a certificate. A missing file is
// "missing", a placeholder written while disabled is "disabled", a
// well-formed proof is "verified" and anything else is "unverified".
func (c *CalendarClient) Verify(certID string) models.ProofVerification {
	raw, err := os.ReadFile(c.ProofPath(certID))
	if os.IsNotExist(err) {
		return models.ProofVerification{Status: models.ProofMissing}
	}
	if err != nil {
		return models.ProofVerification{Status: models.ProofUnverified, Error: err.Error()}
	}
	if !c.enabled {
		return models.ProofVerification{Status: models.ProofDisabled}
	}
	if !bytes.HasPrefix(raw, otsMagic) {
		return models.ProofVerification{Status: models.ProofUnverified, Error: "proof file is not a timestamp proof"}
	}
	return models.ProofVerification{Status: models.ProofVerified}
}
