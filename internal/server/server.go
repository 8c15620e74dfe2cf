// Copyright © 2026 ソニーレベル <C7kali3@gmail.com>
// HTTP control panel

package server

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/sony-level/tfpanel/internal/history"
	"github.com/sony-level/tfpanel/internal/session"
)

// DefaultShutdownTimeout bounds graceful shutdown when none is configured
const DefaultShutdownTimeout = 15 * time.Second

// RunLister reads recorded runs
type RunLister interface {
	List(ctx context.Context, workspace string, limit int) ([]history.Run, error)
}

// Config wires the server to the application
type Config struct {
	Addr            string
	ShutdownTimeout time.Duration
	Manager         *session.Manager
	Runs            RunLister // nil when run history is disabled
	Logger          *zap.Logger
	Version         string
}

// Server serves the panel page and its JSON API
type Server struct {
	router    *mux.Router
	manager   *session.Manager
	runs      RunLister
	logger    *zap.Logger
	templates *template.Template
	config    Config
}

// New creates a server with its routes registered
func New(config Config) (*Server, error) {
	if config.Manager == nil {
		return nil, fmt.Errorf("session manager is required")
	}
	if config.ShutdownTimeout <= 0 {
		config.ShutdownTimeout = DefaultShutdownTimeout
	}
	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	templates, err := parseTemplates()
	if err != nil {
		return nil, err
	}

	s := &Server{
		router:    mux.NewRouter(),
		manager:   config.Manager,
		runs:      config.Runs,
		logger:    logger.Named("http"),
		templates: templates,
		config:    config,
	}
	s.routes()
	return s, nil
}

// routes sets up the panel routes
func (s *Server) routes() {
	s.router.HandleFunc("/", s.indexHandler).Methods(http.MethodGet)

	api := s.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/health", s.healthHandler).Methods(http.MethodGet)
	api.HandleFunc("/catalog", s.catalogHandler).Methods(http.MethodGet)

	api.HandleFunc("/sessions", s.listSessionsHandler).Methods(http.MethodGet)
	api.HandleFunc("/sessions", s.createSessionHandler).Methods(http.MethodPost)
	api.HandleFunc("/sessions/{id}", s.getSessionHandler).Methods(http.MethodGet)
	api.HandleFunc("/sessions/{id}", s.deleteSessionHandler).Methods(http.MethodDelete)
	api.HandleFunc("/sessions/{id}/form", s.updateFormHandler).Methods(http.MethodPut)
	api.HandleFunc("/sessions/{id}/generate", s.generateHandler).Methods(http.MethodPost)
	api.HandleFunc("/sessions/{id}/run/{action}", s.runHandler).Methods(http.MethodPost)
	api.HandleFunc("/sessions/{id}/cancel", s.cancelHandler).Methods(http.MethodPost)
	api.HandleFunc("/sessions/{id}/log", s.logHandler).Methods(http.MethodGet)
	api.HandleFunc("/sessions/{id}/log/stream", s.logStreamHandler).Methods(http.MethodGet)
	api.HandleFunc("/sessions/{id}/log/reset", s.resetLogHandler).Methods(http.MethodPost)

	api.HandleFunc("/workspaces", s.listWorkspacesHandler).Methods(http.MethodGet)
	api.HandleFunc("/workspaces/{id}/history", s.workspaceHistoryHandler).Methods(http.MethodGet)
	api.HandleFunc("/workspaces/{id}/runs", s.workspaceRunsHandler).Methods(http.MethodGet)
	api.HandleFunc("/workspaces/{id}/state", s.workspaceStateHandler).Methods(http.MethodGet)

	api.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "no such endpoint")
	})
	api.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	s.router.Use(s.loggingMiddleware)
}

// Handler returns the root HTTP handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.config.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.config.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on an existing listener until ctx is cancelled
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("control panel listening", zap.String("addr", "http://"+ln.Addr().String()))
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down control panel")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down: %w", err)
	}
	return nil
}

// statusRecorder captures the response status for access logs
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Unwrap lets http.ResponseController reach the Flusher underneath
func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

// loggingMiddleware logs incoming requests
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Debug("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("duration", time.Since(start)),
		)
	})
}
