package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/good-yellow-bee/jpapi/internal/api/middleware"
	"github.com/good-yellow-bee/jpapi/internal/api/render"
	"github.com/good-yellow-bee/jpapi/internal/catalog"
)

// setupRouter creates and configures the chi router with all routes.
func (s *Server) setupRouter() *chi.Mux {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestLogger(s.log, s.config.Verbose))
	r.Use(middleware.PrometheusMiddleware)
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.CORS)
	r.Use(middleware.Recoverer)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		WriteError(w, render.FormatFromPath(r.URL.Path), ErrNotFound)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		render.Error(w, render.FormatFromPath(r.URL.Path), http.StatusMethodNotAllowed,
			ErrCodeBadRequest, "Only GET requests are supported")
	})

	h := &recordsHandler{
		catalog: s.catalog,
		dataset: s.dataset,
		opts:    s.config.Query,
		now:     s.now,
	}

	r.Route("/v1", func(r chi.Router) {
		r.Use(middleware.APIKeyAuth(s.keys))
		r.Use(middleware.RateLimitByKey(s.limiter))

		r.Get("/people_groups.{format}", h.list(catalog.PeopleGroups))
		r.Get("/people_groups/daily_unreached.{format}", h.dailyUnreached)
		r.Get("/people_groups/{id}", h.showPeopleGroup)

		r.Get("/countries.{format}", h.list(catalog.Countries))
		r.Get("/countries/{id}", h.show(catalog.Countries))

		r.Get("/languages.{format}", h.list(catalog.Languages))
		r.Get("/languages/{id}", h.show(catalog.Languages))
		r.Get("/languages/{id}/resources.{format}", h.languageResources)
	})

	// Health checks (public, no rate limit)
	r.Get("/health", s.healthHandler.Health)
	r.Get("/health/live", s.healthHandler.Live)
	r.Get("/health/ready", s.healthHandler.Ready)

	return r
}
