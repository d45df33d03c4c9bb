package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validYAML = `
server:
  listen_addr: ":9000"
  base_url: "https://certs.example.com"
storage:
  data_dir: "/var/lib/certserver"
signing:
  private_key_path: "/etc/certserver/signing_key.pem"
  public_key_path: "/etc/certserver/signing_key.pub"
anchor:
  timestamp:
    enabled: true
    calendars:
      - "https://alice.btc.calendar.opentimestamps.org"
    timeout: "5s"
admin:
  token: "secret-token"
logging:
  level: "debug"
  format: "text"
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	t.Run("valid config", func(t *testing.T) {
		cfg, err := Load(writeConfig(t, validYAML))
		require.NoError(t, err)

		assert.Equal(t, ":9000", cfg.Server.ListenAddr)
		assert.Equal(t, "https://certs.example.com", cfg.Server.BaseURL)
		assert.Equal(t, "/var/lib/certserver", cfg.Storage.DataDir)
		assert.False(t, cfg.Storage.Strict)
		assert.True(t, cfg.Anchor.Timestamp.Enabled)
		assert.Equal(t, 5*time.Second, cfg.TimestampTimeout())
		assert.Equal(t, filepath.Join("/var/lib/certserver", "ots"), cfg.Storage.ProofsDir())
		assert.Equal(t, filepath.Join("/var/lib/certserver", "public"), cfg.Storage.PublicDir())
	})

	t.Run("defaults fill unset fields", func(t *testing.T) {
		cfg, err := Load(writeConfig(t, `
storage:
  data_dir: "/tmp/data"
signing:
  private_key_path: "/tmp/key.pem"
  public_key_path: "/tmp/key.pub"
admin:
  token: "tok"
`))
		require.NoError(t, err)

		assert.Equal(t, ":8080", cfg.Server.ListenAddr)
		assert.Equal(t, "http://localhost:8080", cfg.Server.BaseURL)
		assert.Equal(t, "https://ipfs.io", cfg.Anchor.Pin.GatewayURL)
		assert.Equal(t, "Dada Devs", cfg.PDF.OrgName)
		assert.Equal(t, "info", cfg.Logging.Level)
		assert.Equal(t, "json", cfg.Logging.Format)
		assert.Equal(t, 10*time.Second, cfg.TimestampTimeout())
		assert.Equal(t, 10*time.Second, cfg.PinTimeout())
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.Error(t, err)
	})

	t.Run("malformed yaml", func(t *testing.T) {
		_, err := Load(writeConfig(t, "server: [not: a: mapping"))
		assert.Error(t, err)
	})
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(cfg *Config)
		errMsg string
	}{
		{"missing data dir", func(cfg *Config) { cfg.Storage.DataDir = "" }, "storage.data_dir"},
		{"missing private key", func(cfg *Config) { cfg.Signing.PrivateKeyPath = "" }, "signing.private_key_path"},
		{"missing public key", func(cfg *Config) { cfg.Signing.PublicKeyPath = "" }, "signing.public_key_path"},
		{"missing admin token", func(cfg *Config) { cfg.Admin.Token = "" }, "admin.token"},
		{"enabled timestamping without calendars", func(cfg *Config) { cfg.Anchor.Timestamp.Calendars = nil }, "anchor.timestamp.calendars"},
		{"bad timeout", func(cfg *Config) { cfg.Anchor.Timestamp.Timeout = "soon" }, "anchor.timestamp.timeout"},
		{"bad log level", func(cfg *Config) { cfg.Logging.Level = "loud" }, "logging.level"},
		{"bad log format", func(cfg *Config) { cfg.Logging.Format = "xml" }, "logging.format"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg, err := Load(writeConfig(t, validYAML))
			require.NoError(t, err)

			tc.mutate(cfg)
			err = cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.errMsg)
		})
	}
}

func TestLoadWithEnv(t *testing.T) {
	t.Setenv("CERT_DATA_DIR", "/override/data")
	t.Setenv("CERT_ADMIN_TOKEN", "env-token")
	t.Setenv("CERT_BASE_URL", "https://env.example.com")
	t.Setenv("CERT_PIN_API_URL", "https://api.pinata.cloud/pinning/pinJSONToIPFS")

	cfg, err := LoadWithEnv(writeConfig(t, validYAML))
	require.NoError(t, err)

	assert.Equal(t, "/override/data", cfg.Storage.DataDir)
	assert.Equal(t, "env-token", cfg.Admin.Token)
	assert.Equal(t, "https://env.example.com", cfg.Server.BaseURL)
	assert.Equal(t, "https://api.pinata.cloud/pinning/pinJSONToIPFS", cfg.Anchor.Pin.APIURL)
	// Fields without an override keep their file values.
	assert.Equal(t, ":9000", cfg.Server.ListenAddr)
}
