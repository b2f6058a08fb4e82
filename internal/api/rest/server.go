package rest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/invoicekit/invoice-studio/internal/infrastructure/config"
	"github.com/invoicekit/invoice-studio/internal/infrastructure/telemetry"
	"github.com/invoicekit/invoice-studio/internal/service/invoicing"
	"github.com/invoicekit/invoice-studio/internal/service/rendering"
)

// Server is the API server owning the HTTP surface and the session service.
type Server struct {
	config     *config.Config
	httpServer *http.Server
	handler    *Handler
	hub        *PreviewHub
	sessions   *invoicing.Service
	logger     *slog.Logger
}

// NewServer wires the session service, renderer, websocket hub, and
// middleware chain into a ready-to-start server.
func NewServer(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	sessions := invoicing.NewService(invoicing.Config{
		TTL:          cfg.Session.TTL,
		ReapInterval: cfg.Session.ReapInterval,
		MaxSessions:  cfg.Session.MaxSessions,
	}, logger)

	hub := NewPreviewHub(sessions, logger)
	sessions.SetNotifier(hub)

	handler := NewHandler(sessions, rendering.NewPDFRenderer(), logger, cfg.Session.MaxLogoBytes)

	registerSessionGauge(sessions)

	middlewares := []Middleware{
		requestIDMiddleware,
		loggingMiddleware,
		metricsMiddleware,
		tracingMiddleware(telemetry.Tracer("api.rest.server")),
		recoveryMiddleware,
		corsMiddleware(cfg.CORS.AllowedOrigins),
		rateLimitMiddleware(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.BurstSize),
	}

	server := &Server{
		config:   cfg,
		handler:  handler,
		hub:      hub,
		sessions: sessions,
		logger:   logger,
	}

	mux := server.setupRoutes()

	var h http.Handler = mux
	for i := len(middlewares) - 1; i >= 0; i-- {
		h = middlewares[i](h)
	}

	server.httpServer = &http.Server{
		Addr:           cfg.Server.Address,
		Handler:        h,
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		IdleTimeout:    cfg.Server.IdleTimeout,
		MaxHeaderBytes: 1 << 20, // 1MB
	}

	return server, nil
}

// setupRoutes configures all routes
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.Handle("/metrics", promhttp.Handler())

	v1 := http.NewServeMux()

	v1.HandleFunc("POST /sessions", s.handler.handleCreateSession)
	v1.HandleFunc("GET /sessions/{id}", s.handler.handleGetInvoice)
	v1.HandleFunc("PATCH /sessions/{id}", s.handler.handleUpdateInvoice)

	v1.HandleFunc("POST /sessions/{id}/items", s.handler.handleAddItem)
	v1.HandleFunc("PATCH /sessions/{id}/items/{itemID}", s.handler.handleUpdateItem)
	v1.HandleFunc("DELETE /sessions/{id}/items/{itemID}", s.handler.handleRemoveItem)

	v1.HandleFunc("GET /sessions/{id}/totals", s.handler.handleTotals)
	v1.HandleFunc("GET /sessions/{id}/preview", s.handler.handlePreview)
	v1.HandleFunc("GET /sessions/{id}/document", s.handler.handleDocument)

	v1.HandleFunc("POST /sessions/{id}/logo", s.handler.handleUploadLogo)
	v1.HandleFunc("DELETE /sessions/{id}/logo", s.handler.handleClearLogo)

	// Live preview stream
	v1.Handle("/ws", s.hub)

	mux.Handle("/api/v1/", http.StripPrefix("/api/v1", v1))

	return mux
}

// Start runs the server until an interrupt or error, then shuts down.
func (s *Server) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s.sessions.StartReaper(ctx)

	s.logger.Info("starting API server",
		"address", s.httpServer.Addr,
		"environment", s.config.Environment,
	)

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed to start: %w", err)
	case sig := <-sigCh:
		s.logger.Info("received shutdown signal", "signal", sig)
		return s.Shutdown()
	}
}

// Shutdown gracefully stops the server and closes preview streams.
func (s *Server) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), s.config.Server.ShutdownTimeout)
	defer cancel()

	s.logger.Info("shutting down server")

	s.hub.Close()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.Error("failed to shutdown server", "error", err)
		return err
	}

	s.logger.Info("server shutdown complete")
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, `{"status":"ok","active_sessions":%d}`, s.sessions.ActiveSessions())
}
