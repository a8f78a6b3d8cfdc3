package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"go.uber.org/zap"
)

// RouterConfig параметры HTTP-слоя
type RouterConfig struct {
	AdminAPIKey        string
	RateLimitPerMinute int
	// Health проверяет зависимости для /healthz; nil означает "всегда здоров"
	Health func(ctx context.Context) error
}

// NewRouter собирает chi-роутер со всеми маршрутами
func NewRouter(cfg RouterConfig, h *Handler, logger *zap.Logger) *chi.Mux {
	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(RequestLogger(logger))
	router.Use(middleware.Recoverer)

	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", HeaderAPIKey},
		MaxAge:         300,
	}))

	if cfg.RateLimitPerMinute > 0 {
		router.Use(httprate.Limit(
			cfg.RateLimitPerMinute,
			time.Minute,
			httprate.WithKeyFuncs(httprate.KeyByIP),
			httprate.WithLimitHandler(rateLimited),
		))
	}

	router.Get("/healthz", healthz(cfg.Health, logger))

	router.Route("/api/v1", func(r chi.Router) {
		r.Get("/availability", h.GetAvailability)
		r.Post("/bookings", h.CreateBooking)

		r.Route("/admin", func(r chi.Router) {
			r.Use(RequireAPIKey(cfg.AdminAPIKey, logger))

			r.Get("/schedule", h.GetSchedule)
			r.Put("/schedule", h.UpdateSchedule)

			r.Get("/blocked-ranges", h.ListBlockedRanges)
			r.Post("/blocked-ranges", h.CreateBlockedRange)
			r.Delete("/blocked-ranges/{id}", h.DeleteBlockedRange)

			r.Route("/bookings", func(r chi.Router) {
				r.Get("/", h.ListBookings)
				r.Get("/{id}", h.GetBooking)
				r.Post("/{id}/cancel", h.CancelBooking)
				r.Post("/{id}/status", h.SetBookingStatus)
				r.Post("/{id}/reschedule", h.RescheduleBooking)
			})
		})
	})

	return router
}

func healthz(check func(ctx context.Context) error, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if check != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()

			if err := check(ctx); err != nil {
				logger.Warn("Health check failed", zap.Error(err))
				writeErrorCode(w, http.StatusServiceUnavailable, "unavailable", "dependencies are not reachable")
				return
			}
		}
		writeSuccess(w, http.StatusOK, "ok", nil)
	}
}
