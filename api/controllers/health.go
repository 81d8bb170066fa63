package controllers

import (
	"net/http"

	"github.com/kalamandir/kalamandir-backend/api/responses"
	"github.com/kalamandir/kalamandir-backend/pkg/config"
	"github.com/kalamandir/kalamandir-backend/pkg/db"
	pkgerrors "github.com/kalamandir/kalamandir-backend/pkg/errors"
	"github.com/kalamandir/kalamandir-backend/pkg/logger"
	"github.com/kalamandir/kalamandir-backend/pkg/redis"
)

const envHeader = "X-Kalamandir-Env"

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady pings every hard dependency; any failure flips readiness.
func HealthReady(cfg *config.Config, logg *logger.Logger, dbP db.Pinger, redisP redis.Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		w.Header().Set(envHeader, cfg.App.Env)

		if dbP != nil {
			if err := dbP.Ping(ctx); err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "database unavailable"))
				return
			}
		}
		if redisP != nil {
			if err := redisP.Ping(ctx); err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "redis unavailable"))
				return
			}
		}

		responses.WriteSuccess(w, map[string]string{"status": "ready"})
	}
}
