package config

import (
	"fmt"
	"path/filepath"
	"time"
)

// Config holds all configuration for the application
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Storage StorageConfig `yaml:"storage"`
	Signing SigningConfig `yaml:"signing"`
	Anchor  AnchorConfig  `yaml:"anchor"`
	PDF     PDFConfig     `yaml:"pdf"`
	Admin   AdminConfig   `yaml:"admin"`
	Logging LoggingConfig `yaml:"logging"`
}

// ServerConfig contains server configuration
type ServerConfig struct {
	ListenAddr string `yaml:"listen_addr"`
	BaseURL    string `yaml:"base_url"`
}

// StorageConfig contains the data directory holding the JSON collections
// and anchor artifacts. Strict turns storage corruption into a hard error
// instead of an empty collection.
type StorageConfig struct {
	DataDir string `yaml:"data_dir"`
	Strict  bool   `yaml:"strict"`
}

// ProofsDir is where timestamp proofs are written.
func (s StorageConfig) ProofsDir() string {
	return filepath.Join(s.DataDir, "ots")
}

// PublicDir is where pinned public documents are written.
func (s StorageConfig) PublicDir() string {
	return filepath.Join(s.DataDir, "public")
}

// SigningConfig contains the signing key locations
type SigningConfig struct {
	PrivateKeyPath string `yaml:"private_key_path"`
	PublicKeyPath  string `yaml:"public_key_path"`
}

// AnchorConfig groups the best-effort anchor clients
type AnchorConfig struct {
	Timestamp TimestampConfig `yaml:"timestamp"`
	Pin       PinConfig       `yaml:"pin"`
}

// TimestampConfig configures the OpenTimestamps calendar client
type TimestampConfig struct {
	Enabled   bool     `yaml:"enabled"`
	Calendars []string `yaml:"calendars"`
	Timeout   string   `yaml:"timeout"`
}

// PinConfig configures the content pinning client
type PinConfig struct {
	APIURL     string `yaml:"api_url"`
	APIKey     string `yaml:"api_key"`
	APISecret  string `yaml:"api_secret"`
	GatewayURL string `yaml:"gateway_url"`
	Timeout    string `yaml:"timeout"`
}

// PDFConfig contains certificate rendering branding
type PDFConfig struct {
	OrgName   string `yaml:"org_name"`
	Signatory string `yaml:"signatory"`
}

// AdminConfig contains admin credentials. Token gates the admin API;
// PasswordHash (bcrypt) gates CLI login; TOTPSecret, when set, requires a
// second factor on mutating admin endpoints.
type AdminConfig struct {
	Token        string `yaml:"token"`
	PasswordHash string `yaml:"password_hash"`
	TOTPSecret   string `yaml:"totp_secret"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.ListenAddr == "" {
		return fmt.Errorf("server.listen_addr is required")
	}
	if c.Server.BaseURL == "" {
		return fmt.Errorf("server.base_url is required")
	}

	if c.Storage.DataDir == "" {
		return fmt.Errorf("storage.data_dir is required")
	}

	if c.Signing.PrivateKeyPath == "" {
		return fmt.Errorf("signing.private_key_path is required")
	}
	if c.Signing.PublicKeyPath == "" {
		return fmt.Errorf("signing.public_key_path is required")
	}

	if c.Anchor.Timestamp.Enabled && len(c.Anchor.Timestamp.Calendars) == 0 {
		return fmt.Errorf("anchor.timestamp.calendars is required when timestamping is enabled")
	}
	if _, err := time.ParseDuration(nonEmpty(c.Anchor.Timestamp.Timeout, "10s")); err != nil {
		return fmt.Errorf("anchor.timestamp.timeout is invalid: %w", err)
	}
	if _, err := time.ParseDuration(nonEmpty(c.Anchor.Pin.Timeout, "10s")); err != nil {
		return fmt.Errorf("anchor.pin.timeout is invalid: %w", err)
	}

	if c.Admin.Token == "" {
		return fmt.Errorf("admin.token is required")
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error")
	}
	if c.Logging.Format != "json" && c.Logging.Format != "text" {
		return fmt.Errorf("logging.format must be 'json' or 'text'")
	}

	return nil
}

// TimestampTimeout returns the calendar client timeout as time.Duration
func (c *Config) TimestampTimeout() time.Duration {
	d, _ := time.ParseDuration(nonEmpty(c.Anchor.Timestamp.Timeout, "10s"))
	return d
}

// PinTimeout returns the pin client timeout as time.Duration
func (c *Config) PinTimeout() time.Duration {
	d, _ := time.ParseDuration(nonEmpty(c.Anchor.Pin.Timeout, "10s"))
	return d
}

func nonEmpty(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
