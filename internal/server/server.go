// Package server provides the HTTP API and static file serving for the
// generated edition data.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/hyperjump/stemmaflat/internal/config"
	"github.com/hyperjump/stemmaflat/internal/models"
	"github.com/hyperjump/stemmaflat/internal/storage"
)

// Searcher answers section queries.
type Searcher interface {
	Search(ctx context.Context, query *models.SearchQuery) (*models.SearchResponse, error)
}

// DocCounter reports how many sections are indexed.
type DocCounter interface {
	DocCount() (uint64, error)
}

// Server is the HTTP server for the edition data.
type Server struct {
	engine     Searcher
	runs       storage.Storage
	root       string
	index      DocCounter
	statePaths []string
	config     *config.ServerConfig
	logger     *zap.Logger
	server     *http.Server
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithIndex reports the indexed section count on /api/v1/status.
func WithIndex(idx DocCounter) ServerOption {
	return func(s *Server) { s.index = idx }
}

// WithStatePaths reports the disk usage of these files or directories (run
// database, search index) on /api/v1/status.
func WithStatePaths(paths ...string) ServerOption {
	return func(s *Server) { s.statePaths = paths }
}

// NewServer creates a server serving the output root. engine and runs may be
// nil; their endpoints then answer 501.
func NewServer(engine Searcher, runs storage.Storage, root string, cfg *config.ServerConfig, logger *zap.Logger, opts ...ServerOption) *Server {
	s := &Server{
		engine: engine,
		runs:   runs,
		root:   root,
		config: cfg,
		logger: logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	return s
}

// Handler returns the router with all routes and middleware.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(middleware.Compress(5))

	r.Handle("/data/*", http.StripPrefix("/data/", http.FileServer(http.Dir(s.root))))
	r.Get("/api/v1/sections", s.handleSections)
	r.Post("/api/v1/search", s.handleSearch)
	r.Get("/api/v1/runs", s.handleListRuns)
	r.Get("/api/v1/runs/{id}", s.handleGetRun)
	r.Get("/api/v1/status", s.handleStatus)
	r.Get("/health", s.handleHealth)
	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("Starting server", zap.String("addr", addr), zap.String("root", s.root))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
