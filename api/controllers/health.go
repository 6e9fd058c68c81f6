package controllers

import (
	"context"
	"net/http"

	"github.com/tablewise-app/tablewise-backend/api/responses"
	"github.com/tablewise-app/tablewise-backend/pkg/config"
	pkgerrors "github.com/tablewise-app/tablewise-backend/pkg/errors"
	"github.com/tablewise-app/tablewise-backend/pkg/logger"
)

// Pinger is the readiness slice of a backing dependency.
type Pinger interface {
	Ping(ctx context.Context) error
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Tablewise-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

func HealthReady(cfg *config.Config, logg *logger.Logger, redisP, mongoP Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Tablewise-Env", cfg.App.Env)

		checks := map[string]Pinger{
			"redis": redisP,
			"mongo": mongoP,
		}
		for name, p := range checks {
			if p == nil {
				continue
			}
			if err := p.Ping(r.Context()); err != nil {
				responses.WriteError(r.Context(), logg, w,
					pkgerrors.Wrap(pkgerrors.CodeDependency, err, "dependency not ready").
						WithDetails(map[string]any{"dependency": name}))
				return
			}
		}

		responses.WriteSuccess(w, map[string]string{"status": "ready"})
	}
}
