package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/dressing-intelligent/wardrobe-backend/api/responses"
	"github.com/dressing-intelligent/wardrobe-backend/pkg/config"
	pkgerrors "github.com/dressing-intelligent/wardrobe-backend/pkg/errors"
	"github.com/dressing-intelligent/wardrobe-backend/pkg/logger"
)

const readinessTimeout = 5 * time.Second

// Pinger reports whether a backing dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// NamedPinger pairs a dependency label with its health probe.
type NamedPinger struct {
	Name   string
	Pinger Pinger
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Dressing-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady probes every registered dependency and reports per-dependency
// status. Any failure turns the response into a 503.
func HealthReady(cfg *config.Config, logg *logger.Logger, pingers ...NamedPinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Dressing-Env", cfg.App.Env)

		ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
		defer cancel()

		checks := map[string]string{}
		healthy := true
		for _, p := range pingers {
			if p.Pinger == nil {
				continue
			}
			if err := p.Pinger.Ping(ctx); err != nil {
				healthy = false
				checks[p.Name] = "unreachable"
				if logg != nil {
					logg.Error(r.Context(), "health.check.failed", err)
				}
				continue
			}
			checks[p.Name] = "ok"
		}

		if !healthy {
			err := pkgerrors.New(pkgerrors.CodeDependency, "dependency unavailable").WithDetails(checks)
			responses.WriteError(r.Context(), nil, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{"status": "ready", "checks": checks})
	}
}
