// Package http exposes the progress engine over REST. This is the
// in-process service boundary of the engine made remote: JSON encodings
// of the progress data model, identity supplied by the caller's service
// token. The engine performs no end-user authentication itself.
package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/eduverse/progress-engine/internal/application/command"
	"github.com/eduverse/progress-engine/internal/application/query"
	"github.com/eduverse/progress-engine/internal/domain/progress"
	"github.com/eduverse/progress-engine/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// SERVER CONFIGURATION
// ══════════════════════════════════════════════════════════════════════════════

// Config contains HTTP server configuration.
type Config struct {
	// Host is the address to bind.
	Host string

	// Port is the port to listen on.
	Port int

	// ReadTimeout bounds reading the entire request.
	ReadTimeout time.Duration

	// WriteTimeout bounds writing the response.
	WriteTimeout time.Duration

	// IdleTimeout bounds idle keep-alive connections.
	IdleTimeout time.Duration

	// RequestTimeout bounds one request's context.
	RequestTimeout time.Duration

	// ServiceTokens are bearer tokens accepted on the regular API routes.
	ServiceTokens []string

	// AdminTokens are bearer tokens accepted on the reset route.
	AdminTokens []string
}

// DefaultConfig returns default server configuration.
func DefaultConfig() Config {
	return Config{
		Host:           "0.0.0.0",
		Port:           8080,
		ReadTimeout:    15 * time.Second,
		WriteTimeout:   15 * time.Second,
		IdleTimeout:    60 * time.Second,
		RequestTimeout: 10 * time.Second,
	}
}

// Address returns the listen address.
func (c Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// ══════════════════════════════════════════════════════════════════════════════
// DEPENDENCIES
// ══════════════════════════════════════════════════════════════════════════════

// Dependencies contains everything the HTTP handlers need.
type Dependencies struct {
	CompleteQuiz *command.CompleteQuizHandler
	StudySet     *command.StudyFlashcardSetHandler
	Reset        *command.ResetProgressHandler
	GetProgress  *query.GetProgressHandler

	// Store is pinged by the health endpoint.
	Store progress.Store

	Logger *logger.Logger
}

// ══════════════════════════════════════════════════════════════════════════════
// SERVER
// ══════════════════════════════════════════════════════════════════════════════

// Server is the HTTP server for the progress engine.
type Server struct {
	config     Config
	deps       Dependencies
	httpServer *http.Server
	log        *logger.Logger
}

// NewServer creates a configured server with all routes registered.
func NewServer(config Config, deps Dependencies) *Server {
	log := deps.Logger
	if log == nil {
		log = logger.Default()
	}

	s := &Server{config: config, deps: deps, log: log}

	api := &progressAPI{deps: deps, log: log}
	auth := newTokenAuth(config.ServiceTokens)
	adminAuth := newTokenAuth(config.AdminTokens)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", api.handleHealth)
	mux.Handle("GET /v1/users/{id}/progress",
		auth.middleware(http.HandlerFunc(api.handleGetProgress)))
	mux.Handle("POST /v1/users/{id}/quiz-completions",
		auth.middleware(http.HandlerFunc(api.handleCompleteQuiz)))
	mux.Handle("POST /v1/users/{id}/study-sessions",
		auth.middleware(http.HandlerFunc(api.handleStudySession)))
	mux.Handle("POST /v1/users/{id}/progress/reset",
		adminAuth.middleware(http.HandlerFunc(api.handleReset)))

	handler := chain(mux,
		recoveryMiddleware(log),
		loggingMiddleware(log),
		timeoutMiddleware(config.RequestTimeout),
	)

	s.httpServer = &http.Server{
		Addr:         config.Address(),
		Handler:      handler,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
		IdleTimeout:  config.IdleTimeout,
	}

	return s
}

// Handler returns the root handler, for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start runs the server until it fails or is shut down.
func (s *Server) Start() error {
	s.log.Info("http server starting", logger.String("addr", s.config.Address()))
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown gracefully drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("http server shutting down")
	return s.httpServer.Shutdown(ctx)
}

// chain applies middleware outermost-first.
func chain(h http.Handler, mw ...func(http.Handler) http.Handler) http.Handler {
	for i := len(mw) - 1; i >= 0; i-- {
		h = mw[i](h)
	}
	return h
}
