package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dadadevs/certserver/internal/anchor"
	"github.com/dadadevs/certserver/internal/api"
	"github.com/dadadevs/certserver/internal/auth"
	"github.com/dadadevs/certserver/internal/config"
	"github.com/dadadevs/certserver/internal/engine"
	"github.com/dadadevs/certserver/internal/logger"
	"github.com/dadadevs/certserver/internal/pdf"
	"github.com/dadadevs/certserver/internal/signer"
	"github.com/dadadevs/certserver/internal/store"
)

var (
	// Version information (set via ldflags)
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func main() {
	configPath := flag.String("config", "/etc/certserver/config.yaml", "Path to configuration file")
	showVersion := flag.Bool("version", false, "Show version information")
	flag.Parse()

	if *showVersion {
		fmt.Printf("Certificate Server\n")
		fmt.Printf("Version:    %s\n", Version)
		fmt.Printf("Commit:     %s\n", Commit)
		fmt.Printf("Build Time: %s\n", BuildTime)
		os.Exit(0)
	}

	cfg, err := config.LoadWithEnv(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	log.Info().Str("version", Version).Str("commit", Commit).Msg("starting certificate server")

	// Stores: one JSON collection per entity, independent locks
	certs, err := store.NewCertificateStore(cfg.Storage.DataDir, cfg.Storage.Strict, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open certificate store")
	}
	requests, err := store.NewRequestStore(cfg.Storage.DataDir, cfg.Storage.Strict, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open request store")
	}
	verifications, err := store.NewVerificationStore(cfg.Storage.DataDir, cfg.Storage.Strict, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open verification store")
	}
	audit, err := store.NewAuditStore(cfg.Storage.DataDir, cfg.Storage.Strict, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open audit store")
	}

	// Load or generate the signing keypair
	sig, err := signer.LoadOrGenerate(cfg.Signing.PrivateKeyPath, cfg.Signing.PublicKeyPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load/generate signing keypair")
	}
	log.Info().Str("fingerprint", sig.Fingerprint()).Msg("signing keypair loaded")

	// Anchor clients
	timestamper, err := anchor.NewCalendarClient(
		cfg.Storage.ProofsDir(),
		cfg.Anchor.Timestamp.Calendars,
		cfg.Anchor.Timestamp.Enabled,
		cfg.TimestampTimeout(),
		log,
	)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create timestamp client")
	}
	pinner, err := anchor.NewIPFSPinner(
		cfg.Storage.PublicDir(),
		cfg.Anchor.Pin.APIURL,
		cfg.Anchor.Pin.APIKey,
		cfg.Anchor.Pin.APISecret,
		cfg.Anchor.Pin.GatewayURL,
		cfg.PinTimeout(),
		log,
	)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create pin client")
	}

	renderer := pdf.NewGenerator(cfg.PDF.OrgName, cfg.PDF.Signatory)
	eng := engine.New(certs, requests, audit, sig, renderer, timestamper, pinner, cfg.Server.BaseURL, log)
	verifier := auth.NewIdentityVerifier(verifications)

	server := api.NewServer(cfg, eng, sig, timestamper, verifier, certs, log)

	// Setup graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Info().Str("listen_addr", cfg.Server.ListenAddr).Msg("starting HTTP server")
		if err := server.Run(); err != nil {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	<-quit
	log.Info().Msg("shutting down")
}
