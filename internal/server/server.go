package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/tclab/textbench/internal/cache"
	"github.com/tclab/textbench/internal/config"
	"github.com/tclab/textbench/internal/logger"
	"github.com/tclab/textbench/internal/pipeline"
	"go.uber.org/zap"
)

// Server exposes the classification pipeline over HTTP
type Server struct {
	config     *config.Config
	logger     *logger.Logger
	classifier *pipeline.Classifier
	features   *cache.FeatureCache
	router     *mux.Router
	server     *http.Server
}

// New creates a new classification server instance
func New(cfg *config.Config, log *logger.Logger, classifier *pipeline.Classifier, features *cache.FeatureCache) *Server {
	router := mux.NewRouter()

	server := &Server{
		config:     cfg,
		logger:     log.WithComponent("server"),
		classifier: classifier,
		features:   features,
		router:     router,
	}

	// Setup routes
	server.setupRoutes()

	// Create HTTP server
	server.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      server.router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	return server
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	// Health check endpoint
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")

	// Info endpoint
	s.router.HandleFunc("/info", s.handleInfo).Methods("GET")

	// Cache statistics endpoint
	s.router.HandleFunc("/stats", s.handleStats).Methods("GET")

	// Classification endpoint
	classifyRouter := s.router.PathPrefix("/classify").Subrouter()
	classifyRouter.Use(s.loggingMiddleware)
	classifyRouter.HandleFunc("", s.handleClassify).Methods("POST")
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.logger.Info("Starting classification server",
		zap.Int("port", s.config.Server.Port),
		zap.String("encoder", s.config.Encoder.Type),
	)

	return s.server.ListenAndServe()
}

// Stop gracefully stops the HTTP server
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Stopping classification server")
	return s.server.Shutdown(ctx)
}
