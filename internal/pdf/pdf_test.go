package pdf

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dadadevs/certserver/internal/models"
)

func testCert() *models.Certificate {
	return &models.Certificate{
		ID:        "11111111-2222-3333-4444-555555555555",
		Name:      "Jane Doe",
		Cohort:    "2025-A",
		IssuedAt:  time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		Signature: "c2lnbmF0dXJl",
		VerifyURL: "http://localhost:8080/verify/11111111-2222-3333-4444-555555555555",
	}
}

func TestRender(t *testing.T) {
	gen := NewGenerator("Dada Devs", "Dada Devs Training Team")

	data, err := gen.Render(testCert())
	require.NoError(t, err)

	out := string(data)
	assert.True(t, len(data) > 500)
	assert.Equal(t, "%PDF-1.4", out[:8])
	assert.Contains(t, out, "Jane Doe")
	assert.Contains(t, out, "2025-A")
	assert.Contains(t, out, "Dada Devs")
	assert.Contains(t, out, "%%EOF")
}

func TestRenderEscapesNames(t *testing.T) {
	gen := NewGenerator("Dada Devs", "Dada Devs Training Team")

	cert := testCert()
	cert.Name = "O(Brien) \\ Jane"
	data, err := gen.Render(cert)
	require.NoError(t, err)

	// Parentheses and backslashes must not leak into the content stream
	// unescaped or the text operator is unbalanced.
	assert.Contains(t, string(data), `O\(Brien\) \\ Jane`)
}

func TestFilename(t *testing.T) {
	assert.Equal(t, "certificate-11111111-2222-3333-4444-555555555555.pdf", Filename(testCert()))
}
