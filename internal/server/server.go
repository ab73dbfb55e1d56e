// Package server exposes the CT-e lookup and audit over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/guilhermeazulsbc-max/ISA-S-TRANSPORTES-ATRIBUTO/internal/audit"
	"github.com/guilhermeazulsbc-max/ISA-S-TRANSPORTES-ATRIBUTO/internal/config"
)

const shutdownTimeout = 10 * time.Second

// Server handles HTTP requests and manages the listener lifecycle
type Server struct {
	logger     zerolog.Logger
	httpServer *http.Server
	httpRouter *gin.Engine
}

// NewServer creates and configures a new HTTP server
func NewServer(logger zerolog.Logger, cfg config.ServerConfig, fetcher Fetcher, extractor audit.Extractor) *Server {
	logger = logger.With().Str("component", "http_server").Logger()

	httpRouter := gin.New()
	cteHandler := NewCTeHandler(logger, fetcher, extractor, cfg.MaxBodyBytes)
	setupRouter(logger, httpRouter, cteHandler, cfg.Version)

	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpRouter,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return &Server{
		logger:     logger,
		httpServer: httpServer,
		httpRouter: httpRouter,
	}
}

// Handler returns the router, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.httpRouter
}

// Start listens until Stop is called.
func (s *Server) Start() error {
	s.logger.Info().Str("addr", s.httpServer.Addr).Msg("Starting HTTP server")
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}
	return nil
}

// Stop gracefully shuts down the HTTP server.
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info().Msg("Stopping HTTP server")

	shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to stop HTTP server: %w", err)
	}
	return nil
}
