package controllers

import (
	"context"
	"net/http"

	"github.com/visionkart/storefront-backend/api/responses"
	"github.com/visionkart/storefront-backend/pkg/config"
	pkgerrors "github.com/visionkart/storefront-backend/pkg/errors"
	"github.com/visionkart/storefront-backend/pkg/logger"
)

// Pinger verifies connectivity to a dependency.
type Pinger interface {
	Ping(ctx context.Context) error
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-VisionKart-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

func HealthReady(cfg *config.Config, logg *logger.Logger, redisP, commerceP Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-VisionKart-Env", cfg.App.Env)

		checks := map[string]Pinger{
			"redis":    redisP,
			"commerce": commerceP,
		}
		status := map[string]string{}
		healthy := true
		for name, pinger := range checks {
			if pinger == nil {
				status[name] = "skipped"
				continue
			}
			if err := pinger.Ping(r.Context()); err != nil {
				status[name] = "unavailable"
				healthy = false
				if logg != nil {
					logg.Error(r.Context(), "readiness check failed: "+name, err)
				}
				continue
			}
			status[name] = "ok"
		}

		if !healthy {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.New(pkgerrors.CodeDependency, "dependencies unavailable").WithDetails(status))
			return
		}
		responses.WriteSuccess(w, status)
	}
}
