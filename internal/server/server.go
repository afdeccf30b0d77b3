// Package server provides the HTTP API for embex.
package server

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/hyperjump/embex/internal/config"
	"github.com/hyperjump/embex/internal/service"
	"github.com/hyperjump/embex/pkg/utils"
)

// Version is the API version reported by GET /.
const Version = "1.0.0"

// Server is the HTTP server for the embex API.
type Server struct {
	svc    *service.Service
	config *config.Config
	logger *zap.Logger
	server *http.Server
}

// NewServer creates a server with the given dependencies.
func NewServer(svc *service.Service, cfg *config.Config, logger *zap.Logger) *Server {
	return &Server{
		svc:    svc,
		config: cfg,
		logger: utils.OrNop(logger),
	}
}

// Router builds the chi router with middleware and all routes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(s.config.Server.RequestTimeout))
	r.Use(middleware.Compress(5))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.config.Server.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/", s.handleRoot)
	r.Get("/health", s.handleHealth)

	r.Route(s.config.Server.APIPrefix, func(r chi.Router) {
		r.Get("/status", s.handleStatus)

		r.Route("/models", func(r chi.Router) {
			r.Get("/", s.handleListModels)
			r.Get("/{model_type}", s.handleGetModel)
			r.Get("/{model_type}/vocabulary", s.handleVocabulary)
			r.Get("/{model_type}/vocabulary/search", s.handleVocabularySearch)
			r.Get("/{model_type}/check-word", s.handleCheckWord)
		})

		r.Route("/similarity", func(r chi.Router) {
			r.Get("/word/{word}", s.handleSimilarWord)
			r.Get("/compare/{word}", s.handleCompare)
			r.Post("/batch", s.handleBatch)
		})

		r.Route("/embeddings", func(r chi.Router) {
			r.Delete("/cache", s.handleClearCache)
			r.Get("/{model_type}", s.handleEmbeddings)
			r.Get("/{model_type}/neighborhood/{word}", s.handleNeighborhood)
		})
	})
	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := s.config.Server.Addr()
	s.server = &http.Server{
		Addr:    addr,
		Handler: s.Router(),
	}
	s.logger.Info("Starting server", zap.String("addr", addr), zap.String("api_prefix", s.config.Server.APIPrefix))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
