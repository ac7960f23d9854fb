package api

import (
	"net/http"
	"travel-route-service/internal/api/handlers"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// NewRouter wires HTTP handlers and returns an http.Handler.
// Handlers stay unaware of concrete adapters.
func NewRouter(trips *handlers.TripHandler) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/health", handlers.Health)
	r.Post("/routes", trips.Route)
	r.Post("/eligibility", trips.Eligibility)

	r.Route("/drafts/{key}", func(r chi.Router) {
		r.Post("/submit", trips.Submit)
		r.Get("/decision", trips.Decision)
		r.Post("/confirm-air", trips.ConfirmAir)
		r.Post("/override", trips.Override)
		r.Post("/cancel", trips.Cancel)
		r.Post("/persist", trips.Persist)
		r.Get("/audit", trips.AuditLog)
	})

	return r
}
