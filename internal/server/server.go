// Package server exposes the selection core over HTTP for operators:
// selection endpoints, registry and scenario administration, and the
// decision log / statistics views.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/tributary-ai/model-selector/internal/middleware"
	"github.com/tributary-ai/model-selector/internal/registry"
	"github.com/tributary-ai/model-selector/internal/scenario"
	"github.com/tributary-ai/model-selector/internal/security"
	"github.com/tributary-ai/model-selector/internal/selection"
)

// Server represents the HTTP server
type Server struct {
	registry   *registry.Registry
	store      *scenario.Store
	selector   *selection.Selector
	httpServer *http.Server
	logger     *logrus.Logger
	config     *ServerConfig
	auth       *security.AuthProvider
	validation *middleware.ValidationMiddleware
	validate   *validator.Validate
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port           string                       `yaml:"port"`
	ReadTimeout    time.Duration                `yaml:"read_timeout"`
	WriteTimeout   time.Duration                `yaml:"write_timeout"`
	MaxHeaderBytes int                          `yaml:"max_header_bytes"`
	Auth           *security.Config             `yaml:"auth"`
	Validation     *middleware.ValidationConfig `yaml:"validation"`
}

// NewServer creates a new server instance
func NewServer(reg *registry.Registry, store *scenario.Store, sel *selection.Selector, config *ServerConfig, logger *logrus.Logger) (*Server, error) {
	server := &Server{
		registry: reg,
		store:    store,
		selector: sel,
		logger:   logger,
		config:   config,
		validate: validator.New(),
	}

	if config.Auth != nil {
		server.auth = security.NewAuthProvider(config.Auth, logger)
	}

	if config.Validation != nil {
		validation, err := middleware.NewValidationMiddleware(config.Validation, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize validation middleware: %w", err)
		}
		server.validation = validation
	}

	return server, nil
}

// Start starts the HTTP server
func (s *Server) Start() error {
	r := s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:           ":" + s.config.Port,
		Handler:        r,
		ReadTimeout:    s.config.ReadTimeout,
		WriteTimeout:   s.config.WriteTimeout,
		MaxHeaderBytes: s.config.MaxHeaderBytes,
	}

	s.logger.WithField("port", s.config.Port).Info("Starting model selector server")
	return s.httpServer.ListenAndServe()
}

// Stop stops the HTTP server gracefully
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Stopping model selector server")
	return s.httpServer.Shutdown(ctx)
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() *mux.Router {
	r := mux.NewRouter()

	if s.auth != nil {
		r.Use(s.auth.Middleware())
	}
	if s.validation != nil {
		r.Use(s.validation.Middleware)
	}
	r.Use(s.loggingMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.contentTypeMiddleware)

	api := r.PathPrefix("/v1").Subrouter()

	// Selection endpoints
	api.HandleFunc("/select", s.handleSelect).Methods("POST")
	api.HandleFunc("/select/scenario", s.handleSelectForScenario).Methods("POST")
	api.HandleFunc("/select/fallback", s.handleSelectWithFallback).Methods("POST")

	// Registry administration
	api.HandleFunc("/models", s.handleListModels).Methods("GET")
	api.HandleFunc("/models", s.handleRegisterModel).Methods("POST")
	api.HandleFunc("/models/{name}", s.handleGetModel).Methods("GET")
	api.HandleFunc("/models/{name}/availability", s.handleSetAvailability).Methods("PUT")
	api.HandleFunc("/models/{name}/metrics", s.handleUpdateMetrics).Methods("PUT")
	api.HandleFunc("/models/{name}/health", s.handleSetHealth).Methods("PUT")

	// Scenario administration
	api.HandleFunc("/scenarios", s.handleListScenarios).Methods("GET")
	api.HandleFunc("/scenarios/reset", s.handleResetScenarios).Methods("POST")
	api.HandleFunc("/scenarios/{scenario}", s.handleGetScenario).Methods("GET")
	api.HandleFunc("/scenarios/{scenario}", s.handleUpdateScenario).Methods("PUT")

	// Observability
	api.HandleFunc("/decisions", s.handleGetDecisions).Methods("GET")
	api.HandleFunc("/decisions", s.handleClearDecisions).Methods("DELETE")
	api.HandleFunc("/statistics", s.handleGetStatistics).Methods("GET")

	api.HandleFunc("/health", s.handleHealthCheck).Methods("GET")
	r.HandleFunc("/health", s.handleHealthCheck).Methods("GET")

	s.setupSwaggerRoutes(r)

	return r
}

// Middleware

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		wrapped := &responseWriter{ResponseWriter: w, statusCode: 200}

		next.ServeHTTP(wrapped, r)

		s.logger.WithFields(logrus.Fields{
			"method":      r.Method,
			"path":        r.URL.Path,
			"status":      wrapped.statusCode,
			"duration_ms": time.Since(start).Milliseconds(),
			"remote_addr": r.RemoteAddr,
		}).Info("HTTP request")
	})
}

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-API-Key")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) contentTypeMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == "POST" || r.Method == "PUT" {
			contentType := r.Header.Get("Content-Type")
			if contentType != "application/json" && contentType != "" {
				s.writeErrorResponse(w, http.StatusUnsupportedMediaType, "Content-Type must be application/json")
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

// Helper functions

func (s *Server) writeJSON(w http.ResponseWriter, statusCode int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(payload)
}

func (s *Server) writeErrorResponse(w http.ResponseWriter, statusCode int, message string) {
	s.writeJSON(w, statusCode, map[string]interface{}{
		"error": map[string]interface{}{
			"message": message,
			"type":    "api_error",
			"code":    statusCode,
		},
		"timestamp": time.Now().Unix(),
	})
}

func (s *Server) decodeAndValidate(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		s.writeErrorResponse(w, http.StatusBadRequest, fmt.Sprintf("Invalid JSON: %v", err))
		return false
	}
	if err := s.validate.Struct(dst); err != nil {
		s.writeErrorResponse(w, http.StatusBadRequest, fmt.Sprintf("Invalid request: %v", err))
		return false
	}
	return true
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
