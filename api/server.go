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
  4. CORS:       Cross-origin requests for frontend

ROUTE GROUPS:
  /api/apply, /api/approve, ...  Request lifecycle
  /api/staff/*                   Staff schedule and cancellation
  /api/manager/*                 Manager decision views
  /api/employees/*               Directory
  /api/admin/*                   Admin operations

SECURITY NOTE:
  No authentication middleware currently. All endpoints are public.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, allowedOrigins []string) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Route("/api", func(r chi.Router) {
		// Request lifecycle
		r.Post("/apply", h.Apply)
		r.Post("/approve", h.Decide)
		r.Post("/approve_recurring", h.DecideRecurring)
		r.Post("/withdraw", h.Withdraw)
		r.Post("/withdraw/decision", h.DecideWithdrawal)

		r.Route("/requests", func(r chi.Router) {
			r.Get("/{requestID}", h.GetRequest)
			r.Get("/{requestID}/logs", h.GetRequestLogs)
		})

		// Staff routes
		r.Route("/staff/{staffID}", func(r chi.Router) {
			r.Get("/requests", h.StaffRequests)
			r.Put("/cancel/{requestID}/{date}", h.CancelPending)
		})

		// Manager routes
		r.Get("/manager/{managerID}/requests", h.ManagerRequests)

		// Directory routes
		r.Route("/employees", func(r chi.Router) {
			r.Get("/", h.ListEmployees)
			r.Get("/{staffID}", h.GetEmployee)
			r.Get("/{staffID}/team", h.GetTeam)
		})

		// Admin routes
		r.Route("/admin", func(r chi.Router) {
			r.Post("/auto_reject", h.AutoReject)
		})
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	return r
}
