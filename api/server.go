/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request for tracing
  2. Logger:     Request logging
  3. Recoverer:  Panic recovery (500 instead of crash)
  4. CORS:       Cross-origin requests for frontend

ROUTE GROUPS:
  /api/expenses/*       Expense lifecycle (create, revise, settle, delete, versions, audit)
  /api/users/*          Per-user listings, balances and statements
  /api/groups/*         Per-group listings
  /api/splits/preview   Split calculator, no writes
  /api/scenarios/*      Demo scenarios (only with a ResetFunc)
  /api/admin/reset      Store reset (only with a ResetFunc)
  /healthz              Liveness

IDENTITY:
  No authentication middleware. The caller's participant id arrives in the
  X-Participant-ID header and is recorded as the actor of each write.

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
func NewRouter(h *Handler, allowedOrigins []string) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", ParticipantHeader},
		AllowCredentials: true,
	}))

	r.Get("/healthz", h.Health)

	// API routes
	r.Route("/api", func(r chi.Router) {
		r.Route("/expenses", func(r chi.Router) {
			r.Post("/", h.CreateExpense)
			r.Get("/{id}", h.GetExpense)
			r.Delete("/{id}", h.DeleteExpense)
			r.Post("/{id}/complete", h.CompleteExpense)
			r.Post("/{id}/revisions", h.ReviseExpense)
			r.Get("/{id}/versions", h.ListVersions)
			r.Get("/{id}/versions/{version}", h.GetVersion)
			r.Post("/{id}/settle", h.SettleExpense)
			r.Get("/{id}/audit", h.GetExpenseAudit)
		})

		r.Route("/users", func(r chi.Router) {
			r.Get("/{id}/expenses", h.ListUserExpenses)
			r.Get("/{id}/balances", h.GetUserBalances)
			r.Get("/{id}/statement", h.GetUserStatement)
		})

		r.Get("/groups/{id}/expenses", h.ListGroupExpenses)
		r.Post("/splits/preview", h.PreviewSplit)

		if h.Reset != nil {
			r.Route("/scenarios", func(r chi.Router) {
				r.Get("/", h.ListScenarios)
				r.Get("/current", h.GetCurrentScenario)
				r.Post("/load", h.LoadScenario)
			})
			r.Post("/admin/reset", h.ResetStore)
		}
	})

	return r
}
