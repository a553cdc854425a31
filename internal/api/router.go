package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/JeevaByte/auricite-startup-scorer-sub003/internal/events"
	"github.com/JeevaByte/auricite-startup-scorer-sub003/internal/store"
)

// RouterConfig carries the request-surface tunables.
type RouterConfig struct {
	AdminToken         string
	RateLimit          int
	DefaultMaxAttempts int
}

func NewRouter(s store.Store, ev events.Client, cfg RouterConfig, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.RequestID)
	r.Use(RequestLogger(logger))
	r.Use(RateLimitMiddleware(cfg.RateLimit))

	assessments := NewAssessmentsHandler(s, ev, cfg.DefaultMaxAttempts)
	jobs := NewJobsHandler(s)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/assessments", assessments.Create)
		r.Get("/assessments/{id}", assessments.Get)
		r.Get("/assessments/{id}/score", assessments.GetScore)

		r.Group(func(r chi.Router) {
			r.Use(AdminAuthMiddleware(cfg.AdminToken))
			r.Get("/jobs", jobs.List)
			r.Get("/jobs/{id}", jobs.Get)
			r.Post("/jobs/{id}/retry", jobs.Retry)
			r.Get("/queue/stats", jobs.Stats)
		})
	})

	return r
}

func NewMetricsRouter() http.Handler {
	r := chi.NewRouter()
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())
	return r
}
