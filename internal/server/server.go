// Package server provides the HTTP API for fundermatch.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/openfunders/fundermatch/internal/config"
	"github.com/openfunders/fundermatch/internal/engine"
	"github.com/openfunders/fundermatch/internal/funderindex"
	"github.com/openfunders/fundermatch/internal/storage"
	"github.com/openfunders/fundermatch/internal/taxonomy"
)

// Server is the HTTP server for the fundermatch API.
type Server struct {
	engine   *engine.Engine
	storage  storage.Storage
	index    *funderindex.Index
	taxonomy *taxonomy.Store
	config   *config.Config
	logger   *zap.Logger
	server   *http.Server
}

// NewServer creates a server with the given dependencies.
func NewServer(
	eng *engine.Engine,
	store storage.Storage,
	index *funderindex.Index,
	tax *taxonomy.Store,
	cfg *config.Config,
	logger *zap.Logger,
) *Server {
	return &Server{
		engine:   eng,
		storage:  store,
		index:    index,
		taxonomy: tax,
		config:   cfg,
		logger:   logger,
	}
}

// Router builds the chi router with all API routes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(120 * time.Second))
	r.Use(middleware.Compress(5))

	r.Post("/api/v1/match", s.handleMatch)
	r.Get("/api/v1/funders", s.handleSearchFunders)
	r.Get("/api/v1/funders/{num}", s.handleGetFunder)
	r.Get("/api/v1/funders/{num}/history", s.handleGetHistory)
	r.Get("/api/v1/taxonomy/areas", s.handleListAreas)
	r.Get("/api/v1/taxonomy/causes", s.handleListCauses)
	r.Get("/api/v1/taxonomy/beneficiaries", s.handleListBeneficiaries)
	r.Get("/api/v1/taxonomy/tags", s.handleListTags)
	r.Get("/api/v1/status", s.handleStatus)
	r.Get("/health", s.handleHealth)

	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	s.server = &http.Server{
		Addr:    addr,
		Handler: s.Router(),
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
