package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tobrk/lanscout/internal/dnssd"
	"github.com/tobrk/lanscout/internal/logging"
	"go.uber.org/zap"
)

// Config holds the server configuration
type Config struct {
	Host     string
	Port     int
	LogLevel string

	// MaxWindow caps the listening window a client may request
	MaxWindow time.Duration
}

// DefaultMaxWindow caps client-requested scan windows.
const DefaultMaxWindow = 60 * time.Second

// Scanner is the discovery capability the server exposes. Satisfied by
// *dnssd.Resolver; tests substitute a fake.
type Scanner interface {
	ResolveFunc(ctx context.Context, opts dnssd.Options, fn dnssd.HostFunc) (map[string]*dnssd.Host, error)
}

// Server exposes the discovery engine over HTTP: one-shot JSON scans and
// a WebSocket stream of hosts as they are aggregated.
type Server struct {
	config     *Config
	scanner    Scanner
	httpServer *http.Server
}

// New creates a new Server instance
func New(config *Config, scanner Scanner) (*Server, error) {
	// Initialize logging
	if err := logging.Initialize(config.LogLevel); err != nil {
		return nil, fmt.Errorf("failed to initialize logging: %w", err)
	}
	if config.MaxWindow <= 0 {
		config.MaxWindow = DefaultMaxWindow
	}

	s := &Server{
		config:  config,
		scanner: scanner,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/hosts", s.handleHosts)
	mux.HandleFunc("/ws", s.handleWebSocket)

	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", config.Host, config.Port),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return s, nil
}

// Start starts the server and blocks until shutdown
func (s *Server) Start() error {
	logging.Info("Starting lanscout discovery server",
		zap.String("addr", s.httpServer.Addr),
		zap.String("log_level", s.config.LogLevel),
	)

	// Set up signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	errChan := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- err
			return
		}
		errChan <- nil
	}()

	// Wait for shutdown signal or error
	select {
	case <-sigChan:
		logging.Info("Shutdown signal received, stopping server...")
		return s.Shutdown(context.Background())
	case err := <-errChan:
		return err
	}
}

// Handler returns the server's HTTP handler, for embedding in tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Shutdown gracefully stops the server
func (s *Server) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shut down http server: %w", err)
	}

	logging.Info("Server stopped")
	logging.Sync()
	return nil
}
