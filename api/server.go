/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for frontend

ROUTE GROUPS:
  /api/practitioners/{id}/dashboard   Metrics snapshot + cache control
  /api/practitioners/{id}/templates   Ranked suggestions, usage, export/import
  /api/practitioners/{id}/*           Record intake (matters, invoices, ...)
  /api/templates/{id}                 Custom template mutation

SECURITY NOTE:
  No authentication middleware. The practitioner id in the URL is trusted;
  production deployments put a gateway in front.

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
		r.Route("/practitioners/{id}", func(r chi.Router) {
			// Dashboard
			r.Get("/dashboard", h.GetDashboard)
			r.Delete("/dashboard/cache", h.ClearDashboardCache)

			// Templates
			r.Route("/templates", func(r chi.Router) {
				r.Get("/", h.ListTemplates)
				r.Get("/all", h.ListAllTemplates)
				r.Post("/usage", h.RecordTemplateUsage)
				r.Get("/export", h.ExportTemplates)
				r.Post("/import", h.ImportTemplates)
			})

			// Record intake
			r.Post("/matters", h.CreateMatter)
			r.Post("/invoices", h.CreateInvoice)
			r.Post("/proformas", h.CreateProforma)
			r.Post("/payments", h.CreatePayment)
			r.Post("/amendments", h.CreateAmendment)
			r.Post("/activity", h.CreateActivity)
		})

		// Template mutation is keyed by template id alone; ownership checks
		// happen in the ranker.
		r.Route("/templates", func(r chi.Router) {
			r.Put("/{id}", h.RenameTemplate)
			r.Delete("/{id}", h.DeleteTemplate)
		})

		r.Post("/seed", h.SeedDemoBook)
	})

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`<!DOCTYPE html>
<html>
<head><title>Practice Engine</title></head>
<body style="font-family: system-ui; max-width: 800px; margin: 50px auto; padding: 20px;">
<h1>Practice Engine API</h1>
<ul>
<li><code>GET /api/practitioners/{id}/dashboard</code> - Dashboard metrics</li>
<li><code>GET /api/practitioners/{id}/templates</code> - Ranked quick-brief templates</li>
</ul>
</body>
</html>`))
	})

	return r
}
