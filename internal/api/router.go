// Package api provides the REST API for tgcalld
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates and configures the API router
func NewRouter(deps *Dependencies) chi.Router {
	r := chi.NewRouter()

	// Middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// CORS configuration: the API fronts a home-automation controller on
	// the local network
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	callHandler := NewCallHandler(deps)
	historyHandler := NewHistoryHandler(deps)

	// Health endpoints
	healthHandler := NewHealthHandler("0.1.0")
	r.Get("/health", healthHandler.Health)
	r.Get("/api/health", healthHandler.Health)
	r.Get("/api/live", healthHandler.Live)

	r.Route("/api", func(r chi.Router) {
		r.Use(AuthMiddleware(deps))

		r.Post("/call", callHandler.Place)
		r.Post("/hangup", callHandler.Hangup)
		r.Get("/state", callHandler.State)

		r.Route("/calls", func(r chi.Router) {
			r.Get("/", historyHandler.List)
			r.Get("/stats", historyHandler.GetStats)
			r.Get("/{id}", historyHandler.Get)
		})
	})

	return r
}
