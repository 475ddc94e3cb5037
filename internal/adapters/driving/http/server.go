package http

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/custodia-labs/dropbox-connector/internal/core/ports/driven"
	"github.com/custodia-labs/dropbox-connector/internal/core/ports/driving"
)

// DefaultMaxUploadSize is the largest body accepted by PUT /post.
const DefaultMaxUploadSize = 150 << 20

// Pinger is a simple health check interface
type Pinger interface {
	Ping(ctx context.Context) error
}

// Check is a named readiness dependency.
type Check struct {
	Name   string
	Pinger Pinger
}

// Server represents the HTTP server
type Server struct {
	httpServer *http.Server
	router     *http.ServeMux
	handler    http.Handler
	version    string
	logger     *slog.Logger

	// Services
	oauthService   driving.OAuthService
	accountService driving.AccountService
	syncEngine     driving.SyncEngine

	// Infrastructure
	deliveryQueue driven.DeliveryQueue // nil: deliveries are synced inline
	checks        []Check

	webhookSecret string // empty: signatures are not verified
	maxUploadSize int64
	secureCookies bool
}

// Config holds server configuration
type Config struct {
	Host    string
	Port    int
	Version string

	// WebhookSecret enables X-Dropbox-Signature verification when set.
	WebhookSecret string

	// MaxUploadSize bounds PUT /post bodies.
	MaxUploadSize int64

	// SecureCookies marks the OAuth binding cookie Secure.
	// Set it when the service is reached over https.
	SecureCookies bool

	Logger *slog.Logger
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Host:          "0.0.0.0",
		Port:          8080,
		Version:       "dev",
		MaxUploadSize: DefaultMaxUploadSize,
	}
}

// NewServer creates a new HTTP server.
// deliveryQueue may be nil, in which case webhook deliveries are synced
// before the response is written.
func NewServer(
	cfg Config,
	oauthService driving.OAuthService,
	accountService driving.AccountService,
	syncEngine driving.SyncEngine,
	deliveryQueue driven.DeliveryQueue,
	checks ...Check,
) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	maxUpload := cfg.MaxUploadSize
	if maxUpload <= 0 {
		maxUpload = DefaultMaxUploadSize
	}

	s := &Server{
		router:         http.NewServeMux(),
		version:        cfg.Version,
		logger:         logger,
		oauthService:   oauthService,
		accountService: accountService,
		syncEngine:     syncEngine,
		deliveryQueue:  deliveryQueue,
		checks:         checks,
		webhookSecret:  cfg.WebhookSecret,
		maxUploadSize:  maxUpload,
		secureCookies:  cfg.SecureCookies,
	}

	s.setupRoutes()

	s.handler = NewRecoveryMiddleware(logger).Handler(
		NewRequestIDMiddleware().Handler(
			NewLoggingMiddleware(logger).Handler(s.router)))

	s.httpServer = &http.Server{
		Addr:        fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:     s.handler,
		ReadTimeout: 5 * time.Minute, // uploads up to MaxUploadSize
		// Inline webhook deliveries hold the response while accounts sync
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	// Health endpoints
	s.router.HandleFunc("GET /health", s.handleHealth)
	s.router.HandleFunc("GET /ready", s.handleReady)
	s.router.HandleFunc("GET /version", s.handleVersion)
	s.router.HandleFunc("GET /swagger/doc.json", s.handleSwaggerDoc)

	// OAuth handoff (browser)
	s.router.HandleFunc("GET /connect", s.handleConnect)
	s.router.HandleFunc("GET /auth", s.handleAuthCallback)

	// Automation platform endpoints
	s.router.HandleFunc("POST /refresh", s.handleRefresh)
	s.router.HandleFunc("POST /events", s.handleEvents)
	s.router.HandleFunc("POST /actions", s.handleActions)
	s.router.HandleFunc("PUT /post", s.handleUpload)

	// Provider webhook
	s.router.HandleFunc("GET /webhook", s.handleWebhookChallenge)
	s.router.Handle("POST /webhook",
		NewSignatureMiddleware(s.webhookSecret).Verify(http.HandlerFunc(s.handleWebhook)))
}

// Handler returns the fully wrapped handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start starts the HTTP server with graceful shutdown
func (s *Server) Start() error {
	// Channel to listen for OS signals
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	// Start server in goroutine
	go func() {
		log.Printf("Starting server on %s", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Wait for shutdown signal
	<-stop
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	log.Println("Server stopped")
	return nil
}

// Stop stops the server
func (s *Server) Stop(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
