package middleware

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/soukly/platform/internal/apperr"
	"github.com/soukly/platform/internal/http/response"
	"github.com/soukly/platform/internal/observability"
)

// Limiter decides whether a keyed request fits the current window. retryAfter
// only carries meaning when allowed is false or err is non-nil.
type Limiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (allowed bool, retryAfter time.Duration, err error)
}

// FailureMode controls what happens when the limiter backend is unreachable.
// The gateway fails open so a Redis outage does not take the whole edge down;
// the auth routes fail closed.
type FailureMode string

const (
	FailOpen   FailureMode = "fail_open"
	FailClosed FailureMode = "fail_closed"
)

type RateLimiter struct {
	limiter Limiter
	limit   int
	window  time.Duration
	mode    FailureMode
	scope   string
	logger  *slog.Logger
}

func NewRateLimiter(limiter Limiter, limit int, window time.Duration, mode FailureMode, scope string, logger *slog.Logger) *RateLimiter {
	if scope == "" {
		scope = "api"
	}
	return &RateLimiter{
		limiter: limiter,
		limit:   limit,
		window:  window,
		mode:    mode,
		scope:   scope,
		logger:  logger,
	}
}

func (rl *RateLimiter) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := ClientIP(r)
			allowed, retryAfter, err := rl.limiter.Allow(r.Context(), key, rl.limit, rl.window)
			if err != nil {
				if rl.mode == FailOpen {
					rl.logger.WarnContext(r.Context(), "rate limiter backend unavailable, allowing request",
						"scope", rl.scope, "error", err)
					observability.RecordRateLimitDecision(r.Context(), rl.scope, "fail_open")
					next.ServeHTTP(w, r)
					return
				}
				observability.RecordRateLimitDecision(r.Context(), rl.scope, "fail_closed")
				rl.reject(w, r, rl.window)
				return
			}
			if !allowed {
				observability.RecordRateLimitDecision(r.Context(), rl.scope, "blocked")
				rl.reject(w, r, retryAfter)
				return
			}
			observability.RecordRateLimitDecision(r.Context(), rl.scope, "allowed")
			next.ServeHTTP(w, r)
		})
	}
}

func (rl *RateLimiter) reject(w http.ResponseWriter, r *http.Request, retryAfter time.Duration) {
	w.Header().Set("Retry-After", retryAfterSeconds(retryAfter))
	response.Error(r.Context(), w, rl.logger,
		apperr.New(apperr.KindRateLimit, "too many requests, try again later"))
}

type windowEntry struct {
	count   int
	started time.Time
}

// localFixedWindowLimiter is the in-process fallback used when no Redis is
// configured. Counts are per instance, so limits multiply across replicas.
type localFixedWindowLimiter struct {
	mu      sync.Mutex
	entries map[string]*windowEntry
	sweepAt time.Time
}

func NewLocalFixedWindowLimiter() Limiter {
	return &localFixedWindowLimiter{
		entries: make(map[string]*windowEntry),
		sweepAt: time.Now().Add(time.Minute),
	}
}

func (l *localFixedWindowLimiter) Allow(_ context.Context, key string, limit int, window time.Duration) (bool, time.Duration, error) {
	now := time.Now()
	l.mu.Lock()
	defer l.mu.Unlock()

	if now.After(l.sweepAt) {
		for k, e := range l.entries {
			if now.Sub(e.started) > 2*window {
				delete(l.entries, k)
			}
		}
		l.sweepAt = now.Add(window)
	}

	entry, ok := l.entries[key]
	if !ok || now.Sub(entry.started) >= window {
		l.entries[key] = &windowEntry{count: 1, started: now}
		return true, 0, nil
	}
	if entry.count >= limit {
		retryAfter := window - now.Sub(entry.started)
		if retryAfter < 0 {
			retryAfter = 0
		}
		return false, retryAfter, nil
	}
	entry.count++
	return true, 0, nil
}

// ClientIP strips the port from RemoteAddr. chi's RealIP middleware has
// already folded X-Forwarded-For into RemoteAddr where trusted.
func ClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil && host != "" {
		return host
	}
	return r.RemoteAddr
}

func retryAfterSeconds(d time.Duration) string {
	seconds := int(d.Round(time.Second).Seconds())
	if seconds <= 0 {
		seconds = 1
	}
	return strconv.Itoa(seconds)
}
