package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Load loads configuration from a YAML file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// LoadWithEnv loads configuration from a file and applies environment variable overrides
func LoadWithEnv(path string) (*Config, error) {
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}

	// Apply environment variable overrides
	if dataDir := os.Getenv("CERT_DATA_DIR"); dataDir != "" {
		cfg.Storage.DataDir = dataDir
	}

	if privateKey := os.Getenv("CERT_PRIVATE_KEY"); privateKey != "" {
		cfg.Signing.PrivateKeyPath = privateKey
	}

	if publicKey := os.Getenv("CERT_PUBLIC_KEY"); publicKey != "" {
		cfg.Signing.PublicKeyPath = publicKey
	}

	if adminToken := os.Getenv("CERT_ADMIN_TOKEN"); adminToken != "" {
		cfg.Admin.Token = adminToken
	}

	if listenAddr := os.Getenv("CERT_LISTEN_ADDR"); listenAddr != "" {
		cfg.Server.ListenAddr = listenAddr
	}

	if baseURL := os.Getenv("CERT_BASE_URL"); baseURL != "" {
		cfg.Server.BaseURL = baseURL
	}

	if pinAPIURL := os.Getenv("CERT_PIN_API_URL"); pinAPIURL != "" {
		cfg.Anchor.Pin.APIURL = pinAPIURL
	}
	if pinAPIKey := os.Getenv("CERT_PIN_API_KEY"); pinAPIKey != "" {
		cfg.Anchor.Pin.APIKey = pinAPIKey
	}
	if pinAPISecret := os.Getenv("CERT_PIN_API_SECRET"); pinAPISecret != "" {
		cfg.Anchor.Pin.APISecret = pinAPISecret
	}

	// Validate again after env overrides
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration after env overrides: %w", err)
	}

	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Server.ListenAddr == "" {
		cfg.Server.ListenAddr = ":8080"
	}
	if cfg.Server.BaseURL == "" {
		cfg.Server.BaseURL = "http://localhost:8080"
	}
	if cfg.Anchor.Pin.GatewayURL == "" {
		cfg.Anchor.Pin.GatewayURL = "https://ipfs.io"
	}
	if cfg.PDF.OrgName == "" {
		cfg.PDF.OrgName = "Dada Devs"
	}
	if cfg.PDF.Signatory == "" {
		cfg.PDF.Signatory = "Dada Devs Training Team"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
}
