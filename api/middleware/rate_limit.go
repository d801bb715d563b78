package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/angelmondragon/interviewprep-backend/api/responses"
	pkgerrors "github.com/angelmondragon/interviewprep-backend/pkg/errors"
	"github.com/angelmondragon/interviewprep-backend/pkg/logger"
)

const (
	limiterIdleTTL       = 10 * time.Minute
	limiterSweepInterval = time.Minute
)

type ipLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// IPRateLimiter keeps an in-process token bucket per client IP.
type IPRateLimiter struct {
	rpm       int
	burst     int
	proxies   TrustedProxies
	mu        sync.Mutex
	ips       map[string]*ipLimiter
	lastSweep time.Time
	now       func() time.Time
}

// NewIPRateLimiter allows rpm requests per minute per IP with the given burst.
// Forwarded headers are honored only from proxies.
func NewIPRateLimiter(rpm, burst int, proxies TrustedProxies) *IPRateLimiter {
	if rpm <= 0 {
		rpm = 120
	}
	if burst <= 0 {
		burst = rpm
	}
	return &IPRateLimiter{
		rpm:     rpm,
		burst:   burst,
		proxies: proxies,
		ips:     map[string]*ipLimiter{},
		now:     time.Now,
	}
}

// Handler rejects over-limit requests with a 429 error envelope. Probe
// endpoints are never limited.
func (l *IPRateLimiter) Handler(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isProbePath(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}
			ip := l.proxies.ClientIP(r)
			if !l.allow(ip) {
				ctx := r.Context()
				if logg != nil {
					ctx = logg.WithField(ctx, "ip", ip)
				}
				w.Header().Set("Retry-After", strconv.Itoa(int((time.Minute / time.Duration(l.rpm)).Seconds())+1))
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeRateLimit, "Too many requests"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (l *IPRateLimiter) allow(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	entry, ok := l.ips[ip]
	if !ok {
		entry = &ipLimiter{
			limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(l.rpm)), l.burst),
		}
		l.ips[ip] = entry
	}
	entry.lastSeen = now
	l.sweepLocked(now)
	return entry.limiter.AllowN(now, 1)
}

// sweepLocked drops idle buckets at most once per limiterSweepInterval.
func (l *IPRateLimiter) sweepLocked(now time.Time) {
	if now.Sub(l.lastSweep) < limiterSweepInterval {
		return
	}
	l.lastSweep = now
	cutoff := now.Add(-limiterIdleTTL)
	for ip, entry := range l.ips {
		if entry.lastSeen.Before(cutoff) {
			delete(l.ips, ip)
		}
	}
}
