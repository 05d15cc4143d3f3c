package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/pratik-mahalle/cloudops/internal/api/handlers"
	"github.com/pratik-mahalle/cloudops/internal/api/middleware"
	"github.com/pratik-mahalle/cloudops/internal/config"
	"github.com/pratik-mahalle/cloudops/internal/pkg/logger"
	"github.com/pratik-mahalle/cloudops/internal/pkg/metrics"
)

type Handlers struct {
	Health  *handlers.HealthHandler
	Anomaly *handlers.AnomalyHandler
	Cost    *handlers.CostHandler
	Metric  *handlers.MetricHandler
	Alert   *handlers.AlertHandler
	Insight *handlers.InsightHandler
}

func New(cfg *config.Config, log *logger.Logger, h *Handlers, limiter *middleware.RateLimiter) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(log))
	r.Use(middleware.Recovery(log))
	r.Use(middleware.SecurityHeaders)
	r.Use(metrics.Middleware)
	r.Use(middleware.DefaultCORS(cfg.Server.FrontendURL))
	r.Use(middleware.RateLimit(limiter))

	// Public routes
	r.Group(func(r chi.Router) {
		r.Get("/swagger/*", httpSwagger.WrapHandler)
		r.Handle("/metrics", metrics.Handler())

		r.Get("/health", h.Health.Healthz)
		r.Get("/healthz", h.Health.Healthz)
		r.Get("/readyz", h.Health.Readyz)
	})

	// API routes, key-protected when API_KEY is set
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.APIKey(cfg.Server.APIKey))

		r.Route("/anomalies", func(r chi.Router) {
			r.Post("/detect", h.Anomaly.Detect)
			r.Route("/{accountId}", func(r chi.Router) {
				r.Get("/", h.Anomaly.List)
				r.Get("/summary", h.Anomaly.Summary)
				r.Post("/detect/{metricType}", h.Anomaly.DetectForMetric)
				r.Get("/{anomalyId}", h.Anomaly.Get)
				r.Patch("/{anomalyId}/status", h.Anomaly.UpdateStatus)
			})
		})

		r.Route("/costs/{accountId}", func(r chi.Router) {
			r.Get("/", h.Cost.List)
			r.Post("/", h.Cost.Record)
			r.Post("/analyze", h.Cost.Analyze)
			r.Get("/trend", h.Cost.Trend)
			r.Get("/top-services", h.Cost.TopServices)
			r.Post("/forecast", h.Cost.Forecast)
			r.Get("/forecast", h.Cost.ForecastSeries)
			r.Get("/forecasts", h.Cost.ListForecasts)
			r.Post("/sync", h.Cost.Sync)
		})

		r.Route("/metrics/{accountId}", func(r chi.Router) {
			r.Get("/", h.Metric.Query)
			r.Post("/", h.Metric.Ingest)
			r.Post("/collect", h.Metric.Collect)
			r.Get("/types", h.Metric.Types)
		})

		r.Route("/alerts/{accountId}", func(r chi.Router) {
			r.Get("/", h.Alert.List)
			r.Post("/", h.Alert.Send)
			r.Patch("/{alertId}/status", h.Alert.UpdateStatus)
		})

		r.Get("/insights/{accountId}", h.Insight.Get)
	})

	return r
}
