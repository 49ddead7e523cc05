// Package server exposes the book over HTTP: the reader shell, the
// rendered fragments, a JSON API, and the websocket reader sessions.
package server

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"physbook/internal/book"
	"physbook/internal/content"
	"physbook/internal/events"
	"physbook/internal/history"
	"physbook/internal/settings"
)

// Config holds server configuration.
type Config struct {
	Port       int
	BookID     string
	ContentDir string // directory holding rendered fragments
	StaticDir  string // reader shell assets, optional
	AllowAll   bool   // allow all CORS origins (dev mode)

	// LockDuration overrides the per-session navigation lock window.
	LockDuration time.Duration
}

// Server serves one book to any number of concurrent reader sessions.
type Server struct {
	cfg        Config
	manifest   *book.Manifest
	settings   *settings.Store
	broadcast  *events.Bus
	history    *history.Store
	fetcher    content.Fetcher
	router     chi.Router
	httpServer *http.Server
}

// New creates a server with all dependencies. The broadcast bus carries
// cross-session notifications such as settings updates; it must be the
// same bus the settings store publishes on.
func New(cfg Config, m *book.Manifest, st *settings.Store, broadcast *events.Bus, hs *history.Store, f content.Fetcher) *Server {
	s := &Server{
		cfg:       cfg,
		manifest:  m,
		settings:  st,
		broadcast: broadcast,
		history:   hs,
		fetcher:   f,
	}
	s.router = s.buildRouter()
	return s
}

// buildRouter creates and configures the chi router with all routes.
func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	corsOpts := cors.Options{
		AllowedOrigins:   []string{"http://localhost:*", "http://127.0.0.1:*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}
	if s.cfg.AllowAll {
		corsOpts.AllowedOrigins = []string{"*"}
	}
	r.Use(cors.Handler(corsOpts))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	r.Get("/"+book.ContentMount+"/*", s.handleFragment)
	r.Get("/ws", s.handleWebSocket)
	s.registerAPI(r)

	if s.cfg.StaticDir != "" {
		r.Handle("/*", http.FileServer(http.Dir(s.cfg.StaticDir)))
	}

	return r
}

// handleFragment serves a rendered fragment. Fragments are always served
// uncacheable: the client appends a cache-busting query parameter and the
// server backs it up with no-store.
func (s *Server) handleFragment(w http.ResponseWriter, r *http.Request) {
	rel := chi.URLParam(r, "*")
	rel = filepath.Clean("/" + rel) // collapses any ../ escape
	if strings.HasSuffix(rel, "/") || rel == "/" {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	http.ServeFile(w, r, filepath.Join(s.cfg.ContentDir, rel))
}

// Router returns the chi router, used by tests and for registering
// additional routes.
func (s *Server) Router() chi.Router { return s.router }

// Start begins listening on the configured port.
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.cfg.Port)
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Printf("physbook server listening on %s", addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}
