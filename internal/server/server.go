// Package server provides the HTTP API for Kotae.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/hyperjump/kotae/internal/config"
	"github.com/hyperjump/kotae/internal/ingest"
	"github.com/hyperjump/kotae/internal/service"
	"github.com/hyperjump/kotae/internal/storage"
	"github.com/hyperjump/kotae/internal/vector"
)

// Server is the HTTP server for the Kotae API.
type Server struct {
	queries   *service.QueryService
	ingestor  *ingest.Ingestor
	storage   storage.Storage
	index     vector.Index
	indexPath string
	config    *config.ServerConfig
	logger    *zap.Logger
	server    *http.Server
}

// NewServer creates a server with the given dependencies. indexPath is where
// the vector index is checkpointed at shutdown.
func NewServer(
	queries *service.QueryService,
	ingestor *ingest.Ingestor,
	store storage.Storage,
	index vector.Index,
	indexPath string,
	cfg *config.ServerConfig,
	logger *zap.Logger,
) *Server {
	return &Server{
		queries:   queries,
		ingestor:  ingestor,
		storage:   store,
		index:     index,
		indexPath: indexPath,
		config:    cfg,
		logger:    logger,
	}
}

// Router builds the chi router with all routes and middleware.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(middleware.Compress(5))

	r.Post("/api/v1/query", s.handleQuery)
	r.Get("/api/v1/documents", s.handleListDocuments)
	r.Post("/api/v1/documents", s.handleIngestDocument)
	r.Delete("/api/v1/documents/{id}", s.handleDeleteDocument)
	r.Get("/api/v1/metrics", s.handleMetrics)
	r.Get("/health", s.handleHealth)
	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.server = &http.Server{
		Addr:    addr,
		Handler: s.Router(),
	}
	s.logger.Info("starting server", zap.String("addr", addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server and checkpoints the vector index so
// nothing embedded since the last ingestion checkpoint is lost.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		if err := s.server.Shutdown(ctx); err != nil {
			return err
		}
	}
	if err := s.index.Save(s.indexPath); err != nil {
		return fmt.Errorf("save vector index: %w", err)
	}
	s.logger.Info("vector index checkpointed", zap.Int("vectors", s.index.Size()))
	return nil
}
