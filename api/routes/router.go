package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/interviewprep-backend/api/controllers"
	"github.com/angelmondragon/interviewprep-backend/api/middleware"
	"github.com/angelmondragon/interviewprep-backend/api/responses"
	"github.com/angelmondragon/interviewprep-backend/internal/practice"
	"github.com/angelmondragon/interviewprep-backend/pkg/config"
	"github.com/angelmondragon/interviewprep-backend/pkg/db"
	"github.com/angelmondragon/interviewprep-backend/pkg/logger"
	"github.com/angelmondragon/interviewprep-backend/pkg/metrics"
	pkgredis "github.com/angelmondragon/interviewprep-backend/pkg/redis"
)

// RedisStore is the slice of the redis client the HTTP surface relies on.
type RedisStore interface {
	controllers.Pinger
	controllers.CacheProber
	pkgredis.IdempotencyStore
	IncrWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error)
	RateLimitKey(scope string) string
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisStore RedisStore,
	practiceService practice.Service,
	httpMetrics *metrics.HTTPMetrics,
	metricsHandler http.Handler,
) http.Handler {
	proxies, err := middleware.ParseTrustedProxies(cfg.RateLimit.TrustedProxies)
	if err != nil {
		logg.Warn(logg.WithField(context.Background(), "error", err.Error()), "trusted proxies ignored")
		proxies = nil
	}

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.Metrics(httpMetrics),
		middleware.CORS(cfg.App.CORSOrigins),
		middleware.NewIPRateLimiter(cfg.RateLimit.RequestsPerMinute, cfg.RateLimit.Burst, proxies).Handler(logg),
	)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		responses.SendError(w, http.StatusNotFound, "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		responses.SendError(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	readiness := map[string]controllers.Pinger{"database": dbP, "redis": nil}
	var cacheProbe controllers.CacheProber
	if redisStore != nil {
		readiness["redis"] = redisStore
		cacheProbe = redisStore
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, readiness, logg))
		r.Get("/cache", controllers.HealthCache(cfg, cacheProbe, logg))
	})
	if metricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", metricsHandler)
	}

	tokenPolicy := middleware.NewAuthRateLimitPolicy(
		"token",
		cfg.RateLimit.TokenWindow,
		cfg.RateLimit.TokenIPLimit,
		cfg.RateLimit.TokenUserLimit,
	)
	tokenLimiter := middleware.AuthRateLimit(tokenPolicy, redisStore, proxies, logg)

	r.Route("/api", func(r chi.Router) {
		if !cfg.App.IsProd() {
			r.With(tokenLimiter).Post("/auth/token", controllers.AuthDevToken(cfg.JWT, logg))
		}

		r.Route("/practice", func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, logg))
			idempotent := middleware.Idempotency(redisStore, logg)

			r.With(idempotent).Post("/questions", controllers.PracticeGenerateQuestions(practiceService, logg))
			r.With(idempotent).Post("/response", controllers.PracticeSubmitResponse(practiceService, logg))
			r.Get("/session/{sessionId}", controllers.PracticeGetSession(practiceService, logg))
			r.Post("/session/{sessionId}/end", controllers.PracticeEndSession(practiceService, logg))
			r.Get("/history", controllers.PracticeHistory(practiceService, logg))
		})
	})

	return r
}
