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
  /api/records/*              Daily attendance records
  /api/persons/{personID}/months/{yearMonth}  Monthly aggregates and workflow
  /api/clients, /api/contracts Admin registration
  /api/contracts/*            What-if payment and calendar
  /healthz                    Liveness probe

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
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	// API routes
	r.Route("/api", func(r chi.Router) {
		// Daily record routes
		r.Route("/records", func(r chi.Router) {
			r.Post("/", h.CreateRecord)
			r.Put("/{id}", h.UpdateRecord)
			r.Delete("/{id}", h.DeleteRecord)
		})

		// Month routes
		r.Route("/persons/{personID}/months/{yearMonth}", func(r chi.Router) {
			r.Get("/", h.GetMonthAggregate)
			r.Get("/detail", h.GetMonthDetail)
			r.Post("/submit", h.SubmitMonth)
			r.Post("/approve", h.ApproveMonth)
			r.Post("/reject", h.RejectMonth)
			r.Post("/withdraw", h.WithdrawMonth)
		})

		// Admin routes
		r.Post("/clients", h.CreateClient)
		r.Post("/contracts", h.CreateContract)

		// Contract routes
		r.Route("/contracts/{id}", func(r chi.Router) {
			r.Get("/payment", h.GetContractPayment)
			r.Get("/calendar/{yearMonth}", h.GetContractCalendar)
		})

		// Scenario routes (dev/demo only)
		r.Route("/scenarios", func(r chi.Router) {
			r.Get("/", h.ListScenarios)
			r.Post("/load", h.LoadScenario)
			r.Post("/reset", h.ResetDatabase)
		})
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	return r
}
