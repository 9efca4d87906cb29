package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"campusbite/internal/logger"
)

// Server wraps the HTTP server with request logging and lifecycle
// management.
type Server struct {
	httpServer *http.Server
	logger     *logger.Logger
}

// New creates an HTTP server around the given handler
func New(port int, handler http.Handler, log *logger.Logger) *Server {
	return &Server{
		httpServer: &http.Server{
			Addr:         fmt.Sprintf(":%d", port),
			Handler:      WithLogging(handler, log),
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 60 * time.Second,
			IdleTimeout:  120 * time.Second,
		},
		logger: log,
	}
}

// Start begins listening for requests. Blocks until the server stops.
func (s *Server) Start() error {
	s.logger.Info("server_started",
		fmt.Sprintf("HTTP server listening on %s", s.httpServer.Addr),
		"startup", map[string]interface{}{"addr": s.httpServer.Addr})

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("server_stopping", "HTTP server shutting down", "shutdown", nil)
	return s.httpServer.Shutdown(ctx)
}

// Health handles GET /health
func Health(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// responseWriter captures the status code for request logging
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// WithLogging logs every request with its status and duration
func WithLogging(next http.Handler, log *logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		log.Debug("http_request", fmt.Sprintf("%s %s", r.Method, r.URL.Path), "",
			map[string]interface{}{
				"method":      r.Method,
				"path":        r.URL.Path,
				"status":      wrapped.statusCode,
				"duration_ms": time.Since(start).Milliseconds(),
				"remote_addr": r.RemoteAddr,
			})
	})
}
