package anchor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multihash"
	"github.com/rs/zerolog"

	"github.com/dadadevs/certserver/internal/canonical"
)

// IPFSPinner writes a certificate's public document to the local public
// directory and, when a pinning API is configured, pushes it to the remote
// service. The local copy and its content address are produced regardless
// of remote availability.
type IPFSPinner struct {
	publicDir  string
	apiURL     string
	apiKey     string
	apiSecret  string
	gatewayURL string
	client     *http.Client
	logger     zerolog.Logger
}

// NewIPFSPinner creates a pinner writing local documents under publicDir.
// An empty apiURL disables the remote half.
func NewIPFSPinner(publicDir, apiURL, apiKey, apiSecret, gatewayURL string, timeout time.Duration, logger zerolog.Logger) (*IPFSPinner, error) {
	if err := os.MkdirAll(publicDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create public directory: %w", err)
	}
	return &IPFSPinner{
		publicDir:  publicDir,
		apiURL:     apiURL,
		apiKey:     apiKey,
		apiSecret:  apiSecret,
		gatewayURL: gatewayURL,
		client:     &http.Client{Timeout: timeout},
		logger:     logger,
	}, nil
}

// contentCID returns the CIDv1 (raw codec, sha2-256) of the document bytes.
func contentCID(data []byte) string {
	sum, err := multihash.Sum(data, multihash.SHA2_256, -1)
	if err != nil {
		// multihash.Sum cannot fail for sha2-256 with default length.
		return ""
	}
	return cid.NewCidV1(cid.Raw, sum).String()
}

// Pin writes the public document locally, computes its content address and
// attempts the remote pin. Remote failures are logged and swallowed; the
// result then carries no remote URL.
func (p *IPFSPinner) Pin(ctx context.Context, certID string, doc canonical.PublicExport) PinResult {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		p.logger.Error().Err(err).Str("cert_id", certID).Msg("failed to encode public document")
		return PinResult{}
	}

	localPath := filepath.Join(p.publicDir, certID+".json")
	if err := os.WriteFile(localPath, data, 0o644); err != nil {
		p.logger.Error().Err(err).Str("cert_id", certID).Msg("failed to write public document")
	}

	result := PinResult{CID: contentCID(data)}

	if p.apiURL == "" {
		return result
	}

	remoteCID, err := p.pinRemote(ctx, doc)
	if err != nil {
		p.logger.Warn().Err(err).Str("cert_id", certID).Msg("remote pin failed")
		return result
	}
	result.RemoteURL = p.gatewayURL + "/ipfs/" + remoteCID
	return result
}

// pinataResponse is the subset of the pinning API response we consume.
type pinataResponse struct {
	IpfsHash string `json:"IpfsHash"`
	CID      string `json:"cid"`
}

func (p *IPFSPinner) pinRemote(ctx context.Context, doc canonical.PublicExport) (string, error) {
	body, err := json.Marshal(map[string]any{"pinataContent": doc})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.apiURL, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	if p.apiKey != "" {
		req.Header.Set("pinata_api_key", p.apiKey)
	}
	if p.apiSecret != "" {
		req.Header.Set("pinata_secret_api_key", p.apiSecret)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("pin API returned %s", resp.Status)
	}

	var parsed pinataResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("failed to decode pin response: %w", err)
	}
	if parsed.IpfsHash != "" {
		return parsed.IpfsHash, nil
	}
	if parsed.CID != "" {
		return parsed.CID, nil
	}
	return "", fmt.Errorf("pin response contained no content id")
}
