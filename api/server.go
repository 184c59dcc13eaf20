/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

ROUTER: chi
  Chi was chosen for:
  - Lightweight and fast
  - Context-based
  - Middleware support
  - RESTful route patterns

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for dashboards

ROUTE GROUPS:
  /api/runs/*          Pipeline run management
  /api/dimensions/*    Dimension version history
  /api/facts/*         Fact tables
  /api/calendar        Calendar dimension
  /api/quality         Referential health of the latest run

SECURITY NOTE:
  No authentication middleware currently. All endpoints are public;
  run this behind a trusted network boundary.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	// API routes
	r.Route("/api", func(r chi.Router) {
		// Run routes
		r.Route("/runs", func(r chi.Router) {
			r.Post("/", h.TriggerRun)
			r.Get("/", h.ListRuns)
			r.Get("/{id}", h.GetRun)
		})

		// Dimension routes
		r.Get("/dimensions/{name}", h.GetDimension)

		// Fact routes
		r.Route("/facts", func(r chi.Router) {
			r.Get("/portfolio-value", h.GetPortfolioValues)
			r.Get("/transactions", h.GetTransactions)
			r.Get("/market-prices", h.GetMarketPrices)
		})

		r.Get("/calendar", h.GetCalendar)
		r.Get("/quality", h.GetQuality)
	})

	return r
}
