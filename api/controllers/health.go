package controllers

import (
	"context"
	"errors"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/interviewprep-backend/api/responses"
	"github.com/angelmondragon/interviewprep-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/interviewprep-backend/pkg/errors"
	"github.com/angelmondragon/interviewprep-backend/pkg/logger"
)

const (
	envHeader    = "X-InterviewPrep-Env"
	probeTimeout = 2 * time.Second
	probeTTL     = 30 * time.Second
)

// Pinger is anything readiness can check.
type Pinger interface {
	Ping(ctx context.Context) error
}

// CacheProber is the redis surface the cache probe needs.
type CacheProber interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
	ProbeKey(id string) string
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady pings every dependency. Any failure turns the probe into a 503
// naming the failing dependencies.
func HealthReady(cfg *config.Config, deps map[string]Pinger, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)

		checks := make(map[string]string, len(deps))
		var failed []string
		for name, dep := range deps {
			ctx, cancel := context.WithTimeout(r.Context(), probeTimeout)
			err := errors.New("not configured")
			if dep != nil {
				err = dep.Ping(ctx)
			}
			cancel()
			if err != nil {
				checks[name] = "down"
				failed = append(failed, name)
				if logg != nil {
					logg.Warn(logg.WithFields(r.Context(), map[string]any{"dependency": name, "error": err.Error()}), "health.ready.failed")
				}
				continue
			}
			checks[name] = "up"
		}

		if len(failed) > 0 {
			sort.Strings(failed)
			responses.SendError(w, http.StatusServiceUnavailable, "not ready: "+strings.Join(failed, ", "))
			return
		}
		responses.WriteSuccess(w, map[string]any{"status": "ready", "checks": checks})
	}
}

// HealthCache writes, reads back and deletes a probe key.
func HealthCache(cfg *config.Config, cache CacheProber, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)
		if cache == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeDependency, "cache not configured"))
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), probeTimeout)
		defer cancel()

		token := uuid.NewString()
		key := cache.ProbeKey(token)
		start := time.Now()

		if err := cache.Set(ctx, key, token, probeTTL); err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cache write"))
			return
		}
		got, err := cache.Get(ctx, key)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cache read"))
			return
		}
		if got != token {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeDependency, "cache returned a stale value"))
			return
		}
		if err := cache.Del(ctx, key); err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cache delete"))
			return
		}

		responses.WriteSuccess(w, map[string]any{
			"status":     "ok",
			"latency_ms": time.Since(start).Milliseconds(),
		})
	}
}
