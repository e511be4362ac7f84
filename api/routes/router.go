package routes

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/omarvelez/fleetdriver-app/api/controllers"
	"github.com/omarvelez/fleetdriver-app/api/middleware"
	"github.com/omarvelez/fleetdriver-app/pkg/config"
	"github.com/omarvelez/fleetdriver-app/pkg/logger"
)

type pinger interface {
	Ping(ctx context.Context) error
}

// NewRouter builds the local status surface consumed by the rendering layer.
func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	redisClient pinger,
	state controllers.StateSource,
	gatherer prometheus.Gatherer,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, redisClient))
	})

	r.Get("/status", controllers.Status(state))

	if gatherer != nil {
		r.Method(http.MethodGet, "/metrics",
			promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	return r
}
