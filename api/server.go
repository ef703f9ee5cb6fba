/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:     Unique ID per request for tracing
  2. RequestLogger: slog line per request, level by status
  3. Recoverer:     Panic recovery (500 instead of crash)
  4. CORS:          Cross-origin requests for the frontend

ROUTE GROUPS:
  /api/collaborators/*  Collaborators, their tasks and eligibility
  /api/tasks/*          Task lifecycle
  /api/payroll/*        Admin payroll table, issuance and scheduler status
  /api/receipts/*       Receipt history and monthly totals
  /api/scenarios/*      Demo scenarios
  /healthz              Liveness

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net/http"
	"slices"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// RouterOptions configures NewRouter.
type RouterOptions struct {
	AllowedOrigins []string
}

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, opts RouterOptions) *chi.Mux {
	r := chi.NewRouter()

	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:5173", "http://localhost:8080"}
	}
	// Browsers reject a wildcard origin on credentialed requests.
	credentials := !slices.Contains(origins, "*")

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(h.Logger))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: credentials,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Route("/collaborators", func(r chi.Router) {
			r.Get("/", h.ListCollaborators)
			r.Post("/", h.CreateCollaborator)
			r.Get("/{id}", h.GetCollaborator)
			r.Get("/{id}/tasks", h.ListCollaboratorTasks)
			r.Get("/{id}/eligibility", h.GetEligibility)
		})

		r.Route("/tasks", func(r chi.Router) {
			r.Get("/", h.ListTasks)
			r.Post("/", h.CreateTask)
			r.Post("/{id}/complete", h.CompleteTask)
			r.Post("/{id}/reopen", h.ReopenTask)
			r.Delete("/{id}", h.DeleteTask)
		})

		r.Route("/payroll", func(r chi.Router) {
			r.Get("/", h.GetPayroll)
			r.Get("/scheduler", h.GetSchedulerStatus)
			r.Post("/{id}/issue", h.IssueReceipt)
		})

		r.Route("/receipts", func(r chi.Router) {
			r.Get("/", h.ListReceipts)
			r.Get("/summary", h.GetReceiptSummary)
		})

		r.Route("/scenarios", func(r chi.Router) {
			r.Get("/", h.ListScenarios)
			r.Get("/current", h.GetCurrentScenario)
			r.Post("/load", h.LoadScenario)
		})
	})

	return r
}
