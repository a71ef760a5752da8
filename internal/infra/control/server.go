package control

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"speak-translate/internal/application"
	"speak-translate/internal/domain"
)

// Controller is the part of application.Controller the HTTP surface drives.
type Controller interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Snapshot() domain.Snapshot
}

type Options struct {
	AuthToken string
	// RateLimit is requests per minute per client IP. Zero disables it.
	RateLimit int
	// Capture, when set, is mounted under /capture.
	Capture http.Handler
}

// Server exposes the two buttons and the two text fields over HTTP.
type Server struct {
	addr       string
	controller Controller
	hub        *Hub
	opts       Options
	logger     *slog.Logger
	router     chi.Router
}

func NewServer(addr string, controller Controller, hub *Hub, opts Options, logger *slog.Logger) *Server {
	s := &Server{
		addr:       addr,
		controller: controller,
		hub:        hub,
		opts:       opts,
		logger:     logger,
	}
	s.router = s.routes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Auth-Token"},
	}))

	r.Get("/health", s.handleHealth)

	r.Group(func(pr chi.Router) {
		pr.Use(s.authenticate)
		if s.opts.RateLimit > 0 {
			pr.Use(NewRateLimiter(s.opts.RateLimit, time.Minute).Middleware)
		}

		pr.Post("/start", s.handleStart)
		pr.Post("/stop", s.handleStop)
		pr.Get("/state", s.handleState)
		pr.Get("/ws", s.hub.ServeWS)

		if s.opts.Capture != nil {
			pr.Mount("/capture", http.StripPrefix("/capture", s.opts.Capture))
		}
	})

	return r
}

// Run serves until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	server := &http.Server{
		Addr:         s.addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("control server starting", "addr", s.addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("control server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		s.logger.Warn("graceful shutdown failed, forcing close", "error", err)
		if err := server.Close(); err != nil {
			return fmt.Errorf("closing control server: %w", err)
		}
	}
	return nil
}

func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.opts.AuthToken == "" {
			next.ServeHTTP(w, r)
			return
		}

		token := r.Header.Get("X-Auth-Token")
		if token == "" {
			token = r.URL.Query().Get("token")
		}
		if token != s.opts.AuthToken {
			s.logger.Warn("unauthorized request", "path", r.URL.Path, "remote_addr", r.RemoteAddr)
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	s.press(w, r, "start", s.controller.Start)
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	s.press(w, r, "stop", s.controller.Stop)
}

func (s *Server) press(w http.ResponseWriter, r *http.Request, button string, action func(context.Context) error) {
	if err := action(r.Context()); err != nil {
		s.logger.Warn("button press failed", "button", button, "error", err)
		writeJSON(w, statusFor(err), map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, s.controller.Snapshot())
}

func (s *Server) handleState(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.controller.Snapshot())
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, application.ErrCaptureUnavailable), errors.Is(err, application.ErrNotRunning):
		return http.StatusServiceUnavailable
	case errors.Is(err, application.ErrRecognizerBusy):
		return http.StatusConflict
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusRequestTimeout
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
