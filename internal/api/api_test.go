package api

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dadadevs/certserver/internal/anchor"
	"github.com/dadadevs/certserver/internal/auth"
	"github.com/dadadevs/certserver/internal/config"
	"github.com/dadadevs/certserver/internal/engine"
	"github.com/dadadevs/certserver/internal/pdf"
	"github.com/dadadevs/certserver/internal/signer"
	"github.com/dadadevs/certserver/internal/store"
)

const testAdminToken = "test-admin-token"

func newTestServer(t *testing.T) *Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dir := t.TempDir()
	logger := zerolog.Nop()

	passwordHash, err := auth.HashPassword("admin-password")
	require.NoError(t, err)

	cfg := &config.Config{
		Server:  config.ServerConfig{ListenAddr: ":0", BaseURL: "http://localhost:8080"},
		Storage: config.StorageConfig{DataDir: dir},
		Signing: config.SigningConfig{
			PrivateKeyPath: filepath.Join(dir, "signing_key.pem"),
			PublicKeyPath:  filepath.Join(dir, "signing_key.pub"),
		},
		PDF:     config.PDFConfig{OrgName: "Dada Devs", Signatory: "Dada Devs Training Team"},
		Admin:   config.AdminConfig{Token: testAdminToken, PasswordHash: passwordHash},
		Logging: config.LoggingConfig{Level: "error", Format: "json"},
	}

	certs, err := store.NewCertificateStore(dir, false, logger)
	require.NoError(t, err)
	requests, err := store.NewRequestStore(dir, false, logger)
	require.NoError(t, err)
	audit, err := store.NewAuditStore(dir, false, logger)
	require.NoError(t, err)
	verifications, err := store.NewVerificationStore(dir, false, logger)
	require.NoError(t, err)

	sig, err := signer.LoadOrGenerate(cfg.Signing.PrivateKeyPath, cfg.Signing.PublicKeyPath)
	require.NoError(t, err)

	timestamper, err := anchor.NewCalendarClient(cfg.Storage.ProofsDir(), nil, false, time.Second, logger)
	require.NoError(t, err)
	pinner, err := anchor.NewIPFSPinner(cfg.Storage.PublicDir(), "", "", "", "https://ipfs.io", time.Second, logger)
	require.NoError(t, err)

	eng := engine.New(certs, requests, audit, sig,
		pdf.NewGenerator(cfg.PDF.OrgName, cfg.PDF.Signatory),
		timestamper, pinner, cfg.Server.BaseURL, logger)
	verifier := auth.NewIdentityVerifier(verifications)

	return NewServer(cfg, eng, sig, timestamper, verifier, certs, logger)
}

func doJSON(s *Server, method, path string, body any, admin bool) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if admin {
		req.Header.Set("X-Admin-Token", testAdminToken)
	}
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	w := doJSON(s, http.MethodGet, "/health", nil, false)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestPublicKeyEndpoint(t *testing.T) {
	s := newTestServer(t)
	w := doJSON(s, http.MethodGet, "/api/v1/ca/public-key", nil, false)
	require.Equal(t, http.StatusOK, w.Code)

	body := decode(t, w)
	assert.Contains(t, body["public_key"], "BEGIN PUBLIC KEY")
	assert.Contains(t, body["fingerprint"], "SHA256:")
	assert.Equal(t, "ed25519", body["algorithm"])
}

func TestAdminEndpointsRequireToken(t *testing.T) {
	s := newTestServer(t)

	w := doJSON(s, http.MethodPost, "/api/v1/certificates", gin.H{"name": "Jane Doe"}, false)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/certificates", nil)
	req.Header.Set("X-Admin-Token", "wrong-token")
	w2 := httptest.NewRecorder()
	s.Router().ServeHTTP(w2, req)
	assert.Equal(t, http.StatusForbidden, w2.Code)
}

func TestIssueAndVerify(t *testing.T) {
	s := newTestServer(t)

	w := doJSON(s, http.MethodPost, "/api/v1/certificates",
		gin.H{"name": "Jane Doe", "cohort": "2025-A", "email": "jane@example.com"}, true)
	require.Equal(t, http.StatusCreated, w.Code)

	body := decode(t, w)
	cert := body["certificate"].(map[string]any)
	certID := cert["id"].(string)
	assert.NotEmpty(t, certID)
	assert.NotEmpty(t, body["pdf_base64"])

	t.Run("public verification", func(t *testing.T) {
		w := doJSON(s, http.MethodGet, "/api/v1/certificates/"+certID, nil, false)
		require.Equal(t, http.StatusOK, w.Code)

		body := decode(t, w)
		assert.Equal(t, true, body["found"])
		verified := body["certificate"].(map[string]any)
		assert.Equal(t, true, verified["signature_valid"])
	})

	t.Run("unknown certificate", func(t *testing.T) {
		w := doJSON(s, http.MethodGet, "/api/v1/certificates/no-such-id", nil, false)
		require.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, false, decode(t, w)["found"])
	})

	t.Run("validation error", func(t *testing.T) {
		w := doJSON(s, http.MethodPost, "/api/v1/certificates", gin.H{"cohort": "2025-A"}, true)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestRevokeEndpoint(t *testing.T) {
	s := newTestServer(t)

	w := doJSON(s, http.MethodPost, "/api/v1/certificates", gin.H{"name": "Jane Doe"}, true)
	require.Equal(t, http.StatusCreated, w.Code)
	certID := decode(t, w)["certificate"].(map[string]any)["id"].(string)

	w = doJSON(s, http.MethodPost, "/api/v1/certificates/"+certID+"/revoke",
		gin.H{"reason": "issued in error"}, true)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "revoked", decode(t, w)["status"])

	t.Run("shows up in verification", func(t *testing.T) {
		w := doJSON(s, http.MethodGet, "/api/v1/certificates/"+certID, nil, false)
		require.Equal(t, http.StatusOK, w.Code)
		verified := decode(t, w)["certificate"].(map[string]any)
		assert.Equal(t, true, verified["revoked"])
	})

	t.Run("unknown certificate", func(t *testing.T) {
		w := doJSON(s, http.MethodPost, "/api/v1/certificates/no-such-id/revoke", gin.H{}, true)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestRequestWorkflowEndpoints(t *testing.T) {
	s := newTestServer(t)

	w := doJSON(s, http.MethodPost, "/api/v1/requests",
		gin.H{"name": "Jane Doe", "cohort": "2025-A", "email": "jane@example.com"}, false)
	require.Equal(t, http.StatusAccepted, w.Code)

	body := decode(t, w)
	assert.Equal(t, "pending", body["status"])
	requestID := body["request"].(map[string]any)["request_id"].(string)

	t.Run("listed for admins", func(t *testing.T) {
		w := doJSON(s, http.MethodGet, "/api/v1/requests", nil, true)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Len(t, decode(t, w)["requests"], 1)
	})

	t.Run("approve issues the certificate", func(t *testing.T) {
		w := doJSON(s, http.MethodPost, "/api/v1/requests/"+requestID+"/approve",
			gin.H{"approver": "admin"}, true)
		require.Equal(t, http.StatusCreated, w.Code)

		body := decode(t, w)
		assert.NotEmpty(t, body["pdf_base64"])
		cert := body["certificate"].(map[string]any)
		assert.Equal(t, "Jane Doe", cert["name"])
	})

	t.Run("second approval is rejected", func(t *testing.T) {
		w := doJSON(s, http.MethodPost, "/api/v1/requests/"+requestID+"/approve", gin.H{}, true)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("reject a fresh request", func(t *testing.T) {
		w := doJSON(s, http.MethodPost, "/api/v1/requests", gin.H{"name": "John Doe"}, false)
		require.Equal(t, http.StatusAccepted, w.Code)
		id := decode(t, w)["request"].(map[string]any)["request_id"].(string)

		w = doJSON(s, http.MethodPost, "/api/v1/requests/"+id+"/reject",
			gin.H{"reason": "not eligible"}, true)
		require.Equal(t, http.StatusOK, w.Code)

		req := decode(t, w)["request"].(map[string]any)
		assert.Equal(t, "rejected", req["status"])
	})
}

func TestBulkIssueEndpoint(t *testing.T) {
	s := newTestServer(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", "students.csv")
	require.NoError(t, err)
	_, err = part.Write([]byte("name,cohort\nJane Doe,2025-A\n,2025-A\nJohn Doe,2025-A\n"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/certificates/bulk", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("X-Admin-Token", testAdminToken)
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, float64(2), decode(t, w)["issued"])
}

func TestPDFDownload(t *testing.T) {
	s := newTestServer(t)

	w := doJSON(s, http.MethodPost, "/api/v1/certificates", gin.H{"name": "Jane Doe"}, true)
	require.Equal(t, http.StatusCreated, w.Code)
	certID := decode(t, w)["certificate"].(map[string]any)["id"].(string)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/certificates/"+certID+"/pdf", nil)
	req.Header.Set("X-Admin-Token", testAdminToken)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), certID)
	assert.True(t, strings.HasPrefix(rec.Body.String(), "%PDF-"))
}

func TestProofDownload(t *testing.T) {
	s := newTestServer(t)

	w := doJSON(s, http.MethodPost, "/api/v1/certificates", gin.H{"name": "Jane Doe"}, true)
	require.Equal(t, http.StatusCreated, w.Code)
	certID := decode(t, w)["certificate"].(map[string]any)["id"].(string)

	t.Run("serves the proof artifact", func(t *testing.T) {
		w := doJSON(s, http.MethodGet, "/proofs/"+certID+".ots", nil, false)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("unknown proof", func(t *testing.T) {
		w := doJSON(s, http.MethodGet, "/proofs/no-such-cert.ots", nil, false)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("rejects path traversal", func(t *testing.T) {
		w := doJSON(s, http.MethodGet, "/proofs/..%2Fcerts.json", nil, false)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestIdentityEndpoints(t *testing.T) {
	s := newTestServer(t)

	w := doJSON(s, http.MethodPost, "/api/v1/certificates",
		gin.H{"name": "Jane Doe", "email": "jane@example.com"}, true)
	require.Equal(t, http.StatusCreated, w.Code)
	certID := decode(t, w)["certificate"].(map[string]any)["id"].(string)

	t.Run("email must match the record", func(t *testing.T) {
		w := doJSON(s, http.MethodPost, "/api/v1/certificates/"+certID+"/identity",
			gin.H{"email": "impostor@example.com"}, false)
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("begin and confirm", func(t *testing.T) {
		w := doJSON(s, http.MethodPost, "/api/v1/certificates/"+certID+"/identity",
			gin.H{"email": "jane@example.com"}, false)
		require.Equal(t, http.StatusCreated, w.Code)
		token := decode(t, w)["token"].(string)
		require.NotEmpty(t, token)

		w = doJSON(s, http.MethodGet, "/api/v1/certificates/"+certID+"/identity?token="+token, nil, false)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, true, decode(t, w)["verified"])
	})

	t.Run("unknown certificate", func(t *testing.T) {
		w := doJSON(s, http.MethodPost, "/api/v1/certificates/no-such-id/identity",
			gin.H{"email": "jane@example.com"}, false)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestLoginEndpoint(t *testing.T) {
	s := newTestServer(t)

	t.Run("valid password returns the admin token", func(t *testing.T) {
		w := doJSON(s, http.MethodPost, "/api/v1/auth/login", gin.H{"password": "admin-password"}, false)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, testAdminToken, decode(t, w)["token"])
	})

	t.Run("wrong password", func(t *testing.T) {
		w := doJSON(s, http.MethodPost, "/api/v1/auth/login", gin.H{"password": "nope"}, false)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("failed logins land in the audit trail", func(t *testing.T) {
		w := doJSON(s, http.MethodGet, "/api/v1/audit", nil, true)
		require.Equal(t, http.StatusOK, w.Code)
		entries := decode(t, w)["entries"].([]any)
		require.NotEmpty(t, entries)

		found := false
		for _, e := range entries {
			if e.(map[string]any)["action"] == "auth_failed" {
				found = true
			}
		}
		assert.True(t, found)
	})
}

func TestHistoryEndpoint(t *testing.T) {
	s := newTestServer(t)

	for _, name := range []string{"First", "Second"} {
		w := doJSON(s, http.MethodPost, "/api/v1/certificates", gin.H{"name": name}, true)
		require.Equal(t, http.StatusCreated, w.Code)
	}

	w := doJSON(s, http.MethodGet, "/api/v1/certificates", nil, true)
	require.Equal(t, http.StatusOK, w.Code)

	body := decode(t, w)
	stats := body["stats"].(map[string]any)
	assert.Equal(t, float64(2), stats["total"])
	assert.Equal(t, float64(0), stats["revoked"])
	assert.Equal(t, float64(2), stats["active"])
	assert.Len(t, body["certificates"], 2)
}
