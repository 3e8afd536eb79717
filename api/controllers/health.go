package controllers

import (
	"net/http"

	"go.uber.org/multierr"

	"github.com/lukamarin/gearbox-backend/api/responses"
	"github.com/lukamarin/gearbox-backend/pkg/config"
	"github.com/lukamarin/gearbox-backend/pkg/db"
	pkgerrors "github.com/lukamarin/gearbox-backend/pkg/errors"
	"github.com/lukamarin/gearbox-backend/pkg/logger"
	"github.com/lukamarin/gearbox-backend/pkg/redis"
)

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Gearbox-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady pings the datasources; any failure flips the response to 503.
func HealthReady(cfg *config.Config, logg *logger.Logger, dbP db.Pinger, redisP redis.Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Gearbox-Env", cfg.App.Env)

		var failures error
		if dbP != nil {
			if err := dbP.Ping(r.Context()); err != nil {
				failures = multierr.Append(failures, err)
			}
		}
		if redisP != nil {
			if err := redisP.Ping(r.Context()); err != nil {
				failures = multierr.Append(failures, err)
			}
		}

		if failures != nil {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.Wrap(pkgerrors.CodeDependency, failures, "readiness check failed"))
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "ready"})
	}
}
