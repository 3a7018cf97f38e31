package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/knackw/ai-orchestra-gateway-sub003/pkg/config"
	"github.com/knackw/ai-orchestra-gateway-sub003/pkg/gateway"
)

// Server hosts the gateway API, the health endpoint, and optionally
// the Prometheus metrics endpoint.
type Server struct {
	cfg config.ServerConfig
	gw  *gateway.Gateway
	reg *prometheus.Registry

	httpServer    *http.Server
	metricsServer *http.Server

	shutdownOnce sync.Once
	mu           sync.RWMutex
	isRunning    bool
}

// NewServer creates a server. The registry may be nil when metrics
// are disabled.
func NewServer(cfg config.ServerConfig, gw *gateway.Gateway, reg *prometheus.Registry) *Server {
	return &Server{cfg: cfg, gw: gw, reg: reg}
}

// Start runs the listeners and blocks until ctx is canceled, a
// shutdown signal arrives, or a listener fails.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return fmt.Errorf("server is already running")
	}
	s.isRunning = true
	s.mu.Unlock()

	s.httpServer = &http.Server{
		Addr:         s.cfg.ListenAddr,
		Handler:      s.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 10 * time.Minute,
		IdleTimeout:  2 * time.Minute,
	}

	errChan := make(chan error, 2)
	go func() {
		slog.Info("starting gateway server", "address", s.cfg.ListenAddr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("gateway server error: %w", err)
		}
	}()

	if s.cfg.MetricsAddr != "" && s.reg != nil {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(s.reg, promhttp.HandlerOpts{}))
		s.metricsServer = &http.Server{
			Addr:         s.cfg.MetricsAddr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
		}
		go func() {
			slog.Info("starting metrics server", "address", s.cfg.MetricsAddr)
			if err := s.metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				errChan <- fmt.Errorf("metrics server error: %w", err)
			}
		}()
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case <-ctx.Done():
		slog.Info("context canceled, initiating shutdown")
		return s.Shutdown(context.Background())
	case sig := <-sigChan:
		slog.Info("received shutdown signal", "signal", sig.String())
		return s.Shutdown(context.Background())
	case err := <-errChan:
		return err
	}
}

// Shutdown stops the listeners gracefully within the configured
// timeout.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.mu.Lock()
		if !s.isRunning {
			s.mu.Unlock()
			return
		}
		s.mu.Unlock()

		slog.Info("initiating graceful shutdown", "timeout", s.cfg.ShutdownTimeout.String())

		shutdownCtx, cancel := context.WithTimeout(ctx, s.cfg.ShutdownTimeout)
		defer cancel()

		if s.httpServer != nil {
			if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
				slog.Error("gateway server shutdown failed", "error", err)
				shutdownErr = fmt.Errorf("server shutdown error: %w", err)
			}
		}
		if s.metricsServer != nil {
			if err := s.metricsServer.Shutdown(shutdownCtx); err != nil {
				slog.Error("metrics server shutdown failed", "error", err)
			}
		}

		s.mu.Lock()
		s.isRunning = false
		s.mu.Unlock()

		slog.Info("gateway server stopped")
	})

	return shutdownErr
}

// Handler returns the gateway API routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/chat", s.handleChat)
	mux.HandleFunc("/v1/vision", s.handleVision)
	mux.HandleFunc("/v1/audio/transcriptions", s.handleTranscribe)
	mux.HandleFunc("/v1/embeddings", s.handleEmbed)
	mux.HandleFunc("/health", s.handleHealth)
	return recoverMiddleware(mux)
}

// IsRunning returns true while the listeners are up.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}
