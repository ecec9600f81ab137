// Package api exposes the draft review queue over HTTP for the operator UI.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/sirupsen/logrus"

	"github.com/piccplatform/ar-collections/internal/domain"
	"github.com/piccplatform/ar-collections/internal/service/queue"
)

// RebuildFunc regenerates the draft batch from the current source workbooks.
type RebuildFunc func(ctx context.Context) ([]domain.Draft, error)

// Server is the review API server.
type Server struct {
	queue   *queue.Service
	rebuild RebuildFunc
	server  *http.Server
	handler http.Handler
	log     *logrus.Entry
}

// NewServer creates the review API over the given queue service. rebuild may
// be nil, in which case queue regeneration returns 503.
func NewServer(q *queue.Service, rebuild RebuildFunc) *Server {
	s := &Server{
		queue:   q,
		rebuild: rebuild,
		log:     logrus.WithField("component", "api"),
	}
	s.handler = s.routes()
	return s
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestID)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", s.handleHealth)

	r.Route("/api/queue", func(r chi.Router) {
		r.Get("/", s.handleList)
		r.Get("/summary", s.handleSummary)
		r.Post("/approve-all", s.handleApproveAll)
		r.Post("/reject-all", s.handleRejectAll)
		r.Post("/regenerate", s.handleRegenerate)

		r.Route("/{draftID}", func(r chi.Router) {
			r.Get("/", s.handleGet)
			r.Get("/audit", s.handleAudit)
			r.Post("/approve", s.handleApprove)
			r.Post("/reject", s.handleReject)
		})
	})

	return r
}

// Handler returns the assembled HTTP handler, mainly for tests.
func (s *Server) Handler() http.Handler { return s.handler }

// ListenAndServe starts the HTTP server.
func (s *Server) ListenAndServe(addr string) error {
	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	s.log.WithField("addr", addr).Info("review API listening")
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Response helpers

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
