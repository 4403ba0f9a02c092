package http

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/seatgrid/reservation-engine/internal/observability"
	"github.com/seatgrid/reservation-engine/internal/rateLimit"
)

// SetupRouter mounts the engine surface. rl may be nil when no redis is
// configured; the idempotency gate follows the handlers' store.
func SetupRouter(h *Handlers, logger observability.Logger, rl *rateLimit.RateLimiter) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(RequestIDMiddleware)
	r.Use(LoggerMiddleware(logger))
	r.Use(TracingMiddleware)
	if rl != nil {
		r.Use(RateLimitMiddleware(rl))
	}
	if h.idemp != nil {
		r.Use(IdempotencyKeyMiddleware)
	}

	r.Post("/v1/reservations", h.CreateReservation)
	r.Get("/v1/reservations", h.ListReservations)
	r.Get("/v1/reservations/{id}", h.GetReservation)
	r.Post("/v1/reservations/{id}/confirm", h.ConfirmReservation)
	r.Post("/v1/reservations/{id}/cancel", h.CancelReservation)
	r.Get("/v1/units", h.ListUnits)
	r.Get("/v1/healthz", h.Healthz)
	r.Get("/v1/readyz", h.Readyz)
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	return r
}
