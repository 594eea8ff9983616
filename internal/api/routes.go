package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/lichviet/amlich-api/internal/config"
)

// SetupRoutes configures all HTTP routes and returns the router.
//
// Route structure:
//
//	GET  /health
//	GET  /metrics
//	GET  /api/v1/lunar/today
//	GET  /api/v1/lunar/date/{date}
//	GET  /api/v1/lunar/range?start=&end=
//	GET  /api/v1/solar?year=&month=&day=&leap=
//	GET  /api/v1/canchi/{date}?hour=&ascii=
//	GET  /api/v1/almanac/{date}
//	GET  /api/v1/years/{year}/months
//
//	X-API-Key required:
//	GET    /api/v1/events
//	POST   /api/v1/events
//	GET    /api/v1/events/{id}
//	PUT    /api/v1/events/{id}
//	DELETE /api/v1/events/{id}
//	GET    /api/v1/events/{id}/occurrences?start=&end=
func SetupRoutes(handlers *Handlers, cfg *config.Config, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RealIP)
	r.Use(RecoveryMiddleware(logger))
	r.Use(RequestIDMiddleware())
	r.Use(LoggingMiddleware(logger))
	r.Use(CORSMiddleware())
	if handlers.metrics != nil {
		r.Use(MetricsMiddleware(handlers.metrics))
	}
	if cfg.RequestTimeout > 0 {
		r.Use(middleware.Timeout(cfg.RequestTimeout))
	}

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		WriteNotFound(w, "Route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		WriteError(w, http.StatusMethodNotAllowed, "Method not allowed", "METHOD_NOT_ALLOWED")
	})

	// ==========================================================================
	// Public routes
	// ==========================================================================
	r.Get("/health", handlers.HealthCheck)
	if handlers.metrics != nil {
		r.Method(http.MethodGet, "/metrics", handlers.metrics.Handler())
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/lunar/today", handlers.GetToday)
		r.Get("/lunar/date/{date}", handlers.GetLunarDate)
		r.Get("/lunar/range", handlers.GetLunarRange)
		r.Get("/solar", handlers.GetSolarDate)
		r.Get("/canchi/{date}", handlers.GetCanChi)
		r.Get("/almanac/{date}", handlers.GetAlmanac)
		r.Get("/years/{year}/months", handlers.GetYearMonths)

		// ======================================================================
		// Event routes (authenticated)
		// ======================================================================
		r.Group(func(r chi.Router) {
			r.Use(AuthMiddleware(cfg, logger))

			r.Get("/events", handlers.ListEvents)
			r.Post("/events", handlers.CreateEvent)
			r.Get("/events/{id}", handlers.GetEvent)
			r.Put("/events/{id}", handlers.UpdateEvent)
			r.Delete("/events/{id}", handlers.DeleteEvent)
			r.Get("/events/{id}/occurrences", handlers.GetEventOccurrences)
		})
	})

	return r
}
