package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wadjakorntonsri/shortlink-admin/pkg/config"
	"github.com/wadjakorntonsri/shortlink-admin/pkg/ports"
)

// NewRouter creates and configures the main application router
func NewRouter(cfg *config.Config, service ports.LinkService, tagService ports.TagService, ruleService ports.RedirectRuleService) http.Handler {
	// Initialize Handlers
	h := NewHTTPHandler(service, cfg.BaseURL)
	th := NewTagHandler(tagService)
	rh := NewRedirectRuleHandler(ruleService)

	// Initialize Middleware
	mw := NewMiddleware(cfg)

	// Initialize Auth Handler
	authHandler := NewAuthHandler(cfg)

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(RequestLogger)
	r.Use(chimiddleware.Recoverer)

	// Public Routes
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"message": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/auth/google/login", authHandler.Login)
	r.Get("/auth/google/callback", authHandler.Callback)
	r.Get("/auth/logout", authHandler.Logout)

	r.Group(func(r chi.Router) {
		r.Use(httprate.LimitByIP(cfg.RateLimitPerMinute, time.Minute))
		r.Get("/", h.BaseURL)
		r.Get("/open/{short_code}", h.Redirect)
		r.Get("/open/{short_code}/track", h.Track)
	})
	r.NotFound(h.NotFound)

	// Protected Routes (API & Dashboard)
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(mw.AuthMiddleware)

		r.Get("/dashboard", h.Dashboard)
		r.Get("/domains", h.Domains)
		r.Get("/visits/overview", h.VisitsOverview)

		r.Route("/links", func(r chi.Router) {
			r.Post("/", h.Create)
			r.Get("/", h.List)
			r.Get("/export", h.ExportLinks)
			r.Get("/lookup", h.Lookup)

			r.Route("/{id}", func(r chi.Router) {
				r.Put("/", h.Update)
				r.Delete("/", h.Delete)
				r.Get("/stats", h.Stats)
				r.Get("/visits", h.visitsJSON(false))
				r.Get("/visits/export", h.visitsCSV(false))

				r.Get("/redirect-rules", rh.GetRules)
				r.Put("/redirect-rules", rh.SetRules)
				r.Post("/redirect-rules/{index}/up", rh.MoveUp())
				r.Post("/redirect-rules/{index}/down", rh.MoveDown())
			})
		})

		r.Route("/orphan-visits", func(r chi.Router) {
			r.Get("/", h.visitsJSON(true))
			r.Get("/stats", h.OrphanStats)
			r.Get("/export", h.visitsCSV(true))
		})

		r.Route("/tags", func(r chi.Router) {
			r.Get("/", th.ListTags)
			r.Put("/{tag}", th.Rename)
			r.Delete("/{tag}", th.Delete)
			r.Put("/{tag}/color", th.SetColor)
		})
	})

	return r
}
