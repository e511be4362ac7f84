package controllers

import (
	"context"
	"net/http"

	"github.com/omarvelez/fleetdriver-app/api/responses"
	"github.com/omarvelez/fleetdriver-app/pkg/config"
	pkgerrors "github.com/omarvelez/fleetdriver-app/pkg/errors"
	"github.com/omarvelez/fleetdriver-app/pkg/logger"
)

type pinger interface {
	Ping(ctx context.Context) error
}

// HealthLive reports process liveness only.
func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		responses.WriteSuccess(w, map[string]string{
			"status": "ok",
			"env":    cfg.App.Env,
		})
	}
}

// HealthReady reports readiness: the redis connection backing the session
// store and the change feed must answer a ping.
func HealthReady(cfg *config.Config, logg *logger.Logger, redisClient pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if redisClient == nil {
			responses.WriteError(ctx, logg, w,
				pkgerrors.New(pkgerrors.CodeInternal, "redis client not wired"))
			return
		}
		if err := redisClient.Ping(ctx); err != nil {
			responses.WriteError(ctx, logg, w,
				pkgerrors.Wrap(pkgerrors.CodeNetwork, err, "redis ping failed"))
			return
		}
		responses.WriteSuccess(w, map[string]string{
			"status": "ready",
			"env":    cfg.App.Env,
		})
	}
}
