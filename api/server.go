/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request for tracing
  2. Logger:     zap request logging
  3. Recoverer:  Panic recovery (500 instead of crash)
  4. CORS:       Cross-origin requests for frontend

ROUTE GROUPS:
  /health               Store liveness
  /api/slots/*          Scheduling, state, enrollment, expiry
  /api/enrollments/*    Cancellation
  /api/clubs/*          Club rules
  /api/users/*          Credit, points, history
  /api/scenarios/*      Demo scenarios (reset the store)

SECURITY NOTE:
  No authentication middleware. All endpoints are public.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/warp/slot-engine/logging"
)

// RouterOptions configures NewRouter.
type RouterOptions struct {
	AllowedOrigins []string
	// Scenarios mounts the demo scenario routes.
	Scenarios bool
}

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, opts RouterOptions) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(logging.RequestLogger(h.log))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Retry-After"},
		AllowCredentials: true,
	}))

	r.Get("/health", h.Health)

	r.Route("/api", func(r chi.Router) {
		r.Route("/slots", func(r chi.Router) {
			r.Post("/", h.ScheduleSlot)
			r.Get("/{id}", h.GetSlot)
			r.Post("/{id}/enrollments", h.Enroll)
			r.Post("/{id}/expire", h.ExpireSlot)
		})

		r.Route("/enrollments", func(r chi.Router) {
			r.Delete("/{id}", h.CancelEnrollment)
		})

		r.Route("/clubs", func(r chi.Router) {
			r.Get("/{id}/config", h.GetClubConfig)
			r.Put("/{id}/config", h.PutClubConfig)
		})

		r.Route("/users", func(r chi.Router) {
			r.Post("/{id}/deposits", h.Deposit)
			r.Get("/{id}/balance", h.GetBalance)
			r.Get("/{id}/entries", h.GetEntries)
			r.Get("/{id}/point-transactions", h.GetPointTransactions)
		})

		if opts.Scenarios {
			r.Route("/scenarios", func(r chi.Router) {
				r.Get("/", h.ListScenarios)
				r.Post("/load", h.LoadScenario)
				r.Post("/multimodal", h.LoadMultimodal)
				r.Post("/reset", h.ResetStore)
			})
		}
	})

	return r
}
