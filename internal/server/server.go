// Package server provides the HTTP API for document question answering.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/hyperjump/docqa/internal/answer"
	"github.com/hyperjump/docqa/internal/config"
	"github.com/hyperjump/docqa/internal/indexer"
	"github.com/hyperjump/docqa/internal/retrieval"
	"github.com/hyperjump/docqa/internal/storage"
	"go.uber.org/zap"
)

// Server is the HTTP server for the upload, search and ask API.
type Server struct {
	engine  *retrieval.Engine
	indexer *indexer.Indexer
	asker   *answer.Asker
	storage storage.Storage
	config  *config.Config
	logger  *zap.Logger
	server  *http.Server
}

// NewServer creates a server with the given dependencies. asker may be nil, in which
// case /ask answers 503.
func NewServer(
	engine *retrieval.Engine,
	idx *indexer.Indexer,
	asker *answer.Asker,
	store storage.Storage,
	cfg *config.Config,
	logger *zap.Logger,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		engine:  engine,
		indexer: idx,
		asker:   asker,
		storage: store,
		config:  cfg,
		logger:  logger,
	}
}

// Handler returns the routed HTTP handler with middleware applied.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(s.logger))
	r.Use(middleware.Recoverer)
	r.Use(cors(s.config.Server.AllowedOrigins))
	if d := s.config.Server.RequestTimeoutSeconds; d > 0 {
		r.Use(middleware.Timeout(time.Duration(d) * time.Second))
	}
	r.Use(middleware.Compress(5))

	r.Post("/upload", s.handleUpload)
	r.Post("/search", s.handleSearch)
	r.Post("/ask", s.handleAsk)
	r.Get("/uploads", s.handleListUploads)
	r.Get("/uploads/{id}", s.handleGetUpload)
	r.Get("/status", s.handleStatus)
	r.Get("/health", s.handleHealth)
	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("Starting server", zap.String("addr", addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
