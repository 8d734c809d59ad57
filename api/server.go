/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the chi router, middleware stack and route definitions.
  The wiring layer between URLs and handlers, nothing more.

MIDDLEWARE STACK:
  1. Logger:     request logging
  2. Recoverer:  panic recovery (500 instead of crash)
  3. RequestID:  unique id per request for tracing
  4. CORS:       cross-origin requests from the ops frontend

SECURITY NOTE:
  No authentication middleware here. The triggering transport and its
  authentication are external collaborators in front of this service.
*/
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a router with all bestdoc routes configured.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
	}))

	r.Route("/api/bestdoc", func(r chi.Router) {
		r.Post("/process", h.Process)
		r.Get("/pending", h.Pending)
		r.Get("/records", h.Records)
	})

	// Health check for the hosting platform.
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	return r
}
