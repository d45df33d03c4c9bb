package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/dadadevs/certserver/internal/models"
	"github.com/dadadevs/certserver/internal/store"
)

const tokenLength = 32 // 32 bytes = 256 bits

// GenerateToken generates a random URL-safe token.
func GenerateToken() (string, error) {
	bytes := make([]byte, tokenLength)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(bytes), nil
}

// HashToken hashes a token for storage.
func HashToken(token string) string {
	hash := sha256.Sum256([]byte(token))
	return base64.RawStdEncoding.EncodeToString(hash[:])
}

// VerifyToken verifies a token against its stored hash in constant time.
func VerifyToken(token, storedHash string) bool {
	actualHash := HashToken(token)
	return subtle.ConstantTimeCompare([]byte(actualHash), []byte(storedHash)) == 1
}

// IdentityVerifier lets a certificate holder prove control of the email on
// their certificate: a token is generated against the (email, cert) pair
// and marking it used flips the binding to verified.
type IdentityVerifier struct {
	verifications *store.VerificationStore
}

// NewIdentityVerifier creates an IdentityVerifier over the verification
// store.
func NewIdentityVerifier(verifications *store.VerificationStore) *IdentityVerifier {
	return &IdentityVerifier{verifications: verifications}
}

// Begin creates a verification token bound to the email and certificate.
// The returned token is shown to the holder once; only its hash persists.
func (v *IdentityVerifier) Begin(email, certID string) (string, error) {
	token, err := GenerateToken()
	if err != nil {
		return "", err
	}

	record := &models.IdentityVerification{
		TokenHash:     HashToken(token),
		Email:         email,
		CertificateID: certID,
		CreatedAt:     time.Now().UTC(),
	}
	if err := v.verifications.Save(record); err != nil {
		return "", fmt.Errorf("failed to persist verification: %w", err)
	}
	return token, nil
}

// Confirm marks the binding for a presented token verified. Returns nil for
// an unknown token or one bound to a different certificate.
func (v *IdentityVerifier) Confirm(token, certID string) (*models.IdentityVerification, error) {
	record, err := v.verifications.MarkVerified(HashToken(token), func(rec *models.IdentityVerification) {
		now := time.Now().UTC()
		rec.Verified = true
		rec.VerifiedAt = &now
	})
	if err != nil {
		return nil, err
	}
	if record == nil || record.CertificateID != certID {
		return nil, nil
	}
	return record, nil
}

// IsVerified reports whether the email has completed verification for the
// certificate.
func (v *IdentityVerifier) IsVerified(email, certID string) (bool, error) {
	records, err := v.verifications.List()
	if err != nil {
		return false, err
	}
	for _, rec := range records {
		if rec.Email == email && rec.CertificateID == certID && rec.Verified {
			return true, nil
		}
	}
	return false, nil
}
