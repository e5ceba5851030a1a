// Package web provides the HTTP sink: a Board holding the latest view per
// entry and a chi server that renders it as a tabbed page and as JSON.
package web

import (
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/JonMunkholm/capview/internal/config"
	"github.com/JonMunkholm/capview/internal/history"
	"github.com/JonMunkholm/capview/internal/web/middleware"
)

// RunLister lists recorded runs, newest first.
type RunLister interface {
	Recent(ctx context.Context, limit int) ([]history.Run, error)
}

// Server is the HTTP server for the web sink.
type Server struct {
	board  *Board
	runs   RunLister
	cfg    *config.Config
	router *chi.Mux
	server *http.Server
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithHistory enables /api/history.
func WithHistory(runs RunLister) ServerOption {
	return func(s *Server) { s.runs = runs }
}

// NewServer creates a Server that renders board.
func NewServer(board *Board, cfg *config.Config, opts ...ServerOption) *Server {
	s := &Server{
		board:  board,
		cfg:    cfg,
		router: chi.NewRouter(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

// setupMiddleware configures middleware for all routes.
func (s *Server) setupMiddleware() {
	s.router.Use(chimw.RequestID)
	s.router.Use(middleware.TrustedRealIP(s.cfg.Security.TrustedProxies))
	s.router.Use(middleware.Logger)
	s.router.Use(chimw.Recoverer)
	s.router.Use(chimw.Compress(5))
	s.router.Use(chimw.Timeout(s.cfg.Server.RequestTimeout))
	s.router.Use(securityHeaders)
	s.router.Use(middleware.APIKeyAuth(&s.cfg.Security, "/healthz"))
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	s.router.Get("/healthz", s.handleHealth)

	// Pages
	s.router.Get("/", s.handleIndex)
	s.router.Get("/view/{entry}", s.handleView)

	s.router.Route("/api", func(r chi.Router) {
		r.Get("/views", s.handleListViews)
		r.Get("/views/{entry}", s.handleGetView)
		r.Get("/report", s.handleReport)
		r.Get("/history", s.handleHistory)
	})
}

// Start listens on the configured address and serves until Shutdown.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.cfg.Server.Addr())
	if err != nil {
		return err
	}
	return s.Serve(ln)
}

// Serve serves on an existing listener until Shutdown.
func (s *Server) Serve(ln net.Listener) error {
	s.server = &http.Server{
		Handler:      s.router,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
		IdleTimeout:  s.cfg.Server.IdleTimeout,
	}

	slog.Info("web sink listening", "addr", ln.Addr().String())
	return s.server.Serve(ln)
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Router returns the underlying chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// securityHeaders adds security headers to all responses.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")

		// Styles are inline; the page loads no scripts.
		w.Header().Set("Content-Security-Policy", "default-src 'self'; script-src 'none'; style-src 'self' 'unsafe-inline'; img-src 'self' data:")

		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		next.ServeHTTP(w, r)
	})
}

// writeJSON encodes v as JSON and writes it to w.
// Logs encoding errors since headers are already sent.
func writeJSON(w http.ResponseWriter, r *http.Request, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode error", "path", r.URL.Path, "error", err)
	}
}
