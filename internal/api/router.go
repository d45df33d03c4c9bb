package api

import (
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/dadadevs/certserver/internal/anchor"
	"github.com/dadadevs/certserver/internal/api/handlers"
	"github.com/dadadevs/certserver/internal/api/middleware"
	"github.com/dadadevs/certserver/internal/auth"
	"github.com/dadadevs/certserver/internal/config"
	"github.com/dadadevs/certserver/internal/engine"
	"github.com/dadadevs/certserver/internal/signer"
	"github.com/dadadevs/certserver/internal/store"
)

// Server represents the HTTP server
type Server struct {
	router *gin.Engine
	config *config.Config
}

// NewServer creates a new API server
func NewServer(
	cfg *config.Config,
	eng *engine.Engine,
	sig *signer.Signer,
	timestamper *anchor.CalendarClient,
	verifier *auth.IdentityVerifier,
	certs *store.CertificateStore,
	logger zerolog.Logger,
) *Server {
	if cfg.Logging.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Global middleware
	router.Use(gin.Recovery())
	router.Use(middleware.Logger(logger))

	// Create handlers
	caHandler := handlers.NewCAHandler(sig)
	certHandler := handlers.NewCertHandler(eng)
	requestHandler := handlers.NewRequestHandler(eng)
	identityHandler := handlers.NewIdentityHandler(verifier, certs, cfg.Server.BaseURL)
	proofHandler := handlers.NewProofHandler(timestamper)
	adminHandler := handlers.NewAdminHandler(cfg.Admin, eng)

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		// Public endpoints
		ca := v1.Group("/ca")
		{
			ca.GET("/public-key", caHandler.GetPublicKey)
		}

		v1.GET("/certificates/:id", certHandler.Verify)
		v1.POST("/requests", requestHandler.Create)
		v1.POST("/auth/login", adminHandler.Login)
		v1.POST("/certificates/:id/identity", identityHandler.Begin)
		v1.GET("/certificates/:id/identity", identityHandler.Confirm)

		// Admin endpoints (require admin token, plus TOTP when configured)
		admin := v1.Group("")
		admin.Use(middleware.AdminAuth(cfg.Admin.Token, cfg.Admin.TOTPSecret))
		{
			admin.POST("/certificates", certHandler.Issue)
			admin.POST("/certificates/bulk", certHandler.BulkIssue)
			admin.GET("/certificates", certHandler.History)
			admin.POST("/certificates/:id/revoke", certHandler.Revoke)
			admin.GET("/certificates/:id/pdf", certHandler.PDF)
			admin.GET("/requests", requestHandler.List)
			admin.POST("/requests/:id/approve", requestHandler.Approve)
			admin.POST("/requests/:id/reject", requestHandler.Reject)
			admin.GET("/audit", adminHandler.Audit)
		}
	}

	// Raw timestamp proofs
	router.GET("/proofs/:file", proofHandler.Download)

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status": "ok",
		})
	})

	return &Server{
		router: router,
		config: cfg,
	}
}

// Run starts the HTTP server
func (s *Server) Run() error {
	return s.router.Run(s.config.Server.ListenAddr)
}

// Router returns the underlying Gin router
func (s *Server) Router() *gin.Engine {
	return s.router
}
