// Package signer owns the platform's ed25519 keypair and produces the
// signatures embedded in issued certificates. The private key never leaves
// this package.
package signer

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"fmt"
	"os"
	"path/filepath"
)

// Signer signs canonical payloads and verifies signatures against the
// loaded public key.
type Signer struct {
	privateKey ed25519.PrivateKey
	publicKey  ed25519.PublicKey
	publicPEM  []byte
}

// LoadOrGenerate loads an existing ed25519 keypair from the given PEM files
// or generates a new one. A generated keypair is persisted (private key as
// unencrypted PKCS#8, public key as PKIX) before the signer is returned, so
// a crash cannot leave a signing key that was never written to disk.
func LoadOrGenerate(privatePath, publicPath string) (*Signer, error) {
	if _, err := os.Stat(privatePath); err == nil {
		return load(privatePath, publicPath)
	}
	return generate(privatePath, publicPath)
}

func load(privatePath, publicPath string) (*Signer, error) {
	privBytes, err := os.ReadFile(privatePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read private key: %w", err)
	}
	block, _ := pem.Decode(privBytes)
	if block == nil {
		return nil, fmt.Errorf("no PEM block in private key file %s", privatePath)
	}
	key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key: %w", err)
	}
	priv, ok := key.(ed25519.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("private key in %s is not ed25519", privatePath)
	}

	pub := priv.Public().(ed25519.PublicKey)
	pubPEM, err := marshalPublicPEM(pub)
	if err != nil {
		return nil, err
	}

	// Re-persist the public half if it went missing.
	if _, err := os.Stat(publicPath); os.IsNotExist(err) {
		if err := os.WriteFile(publicPath, pubPEM, 0o644); err != nil {
			return nil, fmt.Errorf("failed to restore public key: %w", err)
		}
	}

	return &Signer{privateKey: priv, publicKey: pub, publicPEM: pubPEM}, nil
}

func generate(privatePath, publicPath string) (*Signer, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("failed to generate ed25519 key: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(privatePath), 0o700); err != nil {
		return nil, fmt.Errorf("failed to create directory for private key: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(publicPath), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create directory for public key: %w", err)
	}

	privDER, err := x509.MarshalPKCS8PrivateKey(priv)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal private key: %w", err)
	}
	privPEM := pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: privDER})

	pubPEM, err := marshalPublicPEM(pub)
	if err != nil {
		return nil, err
	}

	if err := os.WriteFile(privatePath, privPEM, 0o600); err != nil {
		return nil, fmt.Errorf("failed to write private key: %w", err)
	}
	if err := os.WriteFile(publicPath, pubPEM, 0o644); err != nil {
		return nil, fmt.Errorf("failed to write public key: %w", err)
	}

	return &Signer{privateKey: priv, publicKey: pub, publicPEM: pubPEM}, nil
}

func marshalPublicPEM(pub ed25519.PublicKey) ([]byte, error) {
	pubDER, err := x509.MarshalPKIXPublicKey(pub)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal public key: %w", err)
	}
	return pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubDER}), nil
}

// Sign signs the payload and returns the signature base64-encoded.
func (s *Signer) Sign(payload string) string {
	sig := ed25519.Sign(s.privateKey, []byte(payload))
	return base64.StdEncoding.EncodeToString(sig)
}

// Verify reports whether sigB64 is a valid signature over payload. It never
// returns an error: malformed base64, wrong-length signatures and
// cryptographic mismatches all yield false.
func (s *Signer) Verify(payload, sigB64 string) bool {
	sig, err := base64.StdEncoding.DecodeString(sigB64)
	if err != nil || len(sig) != ed25519.SignatureSize {
		return false
	}
	return ed25519.Verify(s.publicKey, []byte(payload), sig)
}

// PublicKeyPEM returns the public key in PKIX PEM form for display and
// export.
func (s *Signer) PublicKeyPEM() string {
	return string(s.publicPEM)
}

// Fingerprint returns the SHA256 fingerprint of the raw public key in the
// usual "SHA256:<base64>" display form.
func (s *Signer) Fingerprint() string {
	sum := sha256.Sum256(s.publicKey)
	return "SHA256:" + base64.RawStdEncoding.EncodeToString(sum[:])
}
