package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/efilo-ai/compliance-engine/internal/infrastructure/monitoring/logging"
)

// CounterStore is the slice of the redis cache the limiter needs.
type CounterStore interface {
	Incr(ctx context.Context, key string) (int64, error)
	Expire(ctx context.Context, key string, ttl time.Duration) error
	TTL(ctx context.Context, key string) (time.Duration, error)
}

// RateLimitRecorder counts rejected requests, typically backed by the
// prometheus rejection counter.
type RateLimitRecorder func(scope string)

// RateLimitConfig describes one per-user request budget.
type RateLimitConfig struct {
	// Scope names the budget ("general", "search") for keys and metrics.
	Scope string
	// Limit is the request budget per window.
	Limit int
	// Window is the budget period.
	Window time.Duration
	// Disabled bypasses the limiter entirely (development environments).
	Disabled bool
}

// GeneralRateLimit is the default budget for all authenticated traffic.
func GeneralRateLimit(limit int) RateLimitConfig {
	return RateLimitConfig{Scope: "general", Limit: limit, Window: time.Hour}
}

// SearchRateLimit is the tighter budget for the search endpoint.
func SearchRateLimit(limit int) RateLimitConfig {
	return RateLimitConfig{Scope: "search", Limit: limit, Window: time.Minute}
}

// RateLimiter enforces per-user request budgets against a shared counter
// store so limits hold across API server replicas.
type RateLimiter struct {
	store    CounterStore
	recorder RateLimitRecorder
	logger   logging.Logger
	now      func() time.Time
}

// NewRateLimiter creates a RateLimiter.  recorder may be nil.
func NewRateLimiter(store CounterStore, recorder RateLimitRecorder, logger logging.Logger) *RateLimiter {
	return &RateLimiter{
		store:    store,
		recorder: recorder,
		logger:   logger.Named("ratelimit"),
		now:      time.Now,
	}
}

// Limit returns middleware enforcing the given budget.  The counter keys on
// the authenticated user, falling back to the client address for anonymous
// requests.  A store failure fails open: availability beats strictness for
// a deadline-tracking tool.
func (l *RateLimiter) Limit(cfg RateLimitConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if cfg.Disabled || cfg.Limit <= 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := l.counterKey(cfg, r)

			count, err := l.store.Incr(r.Context(), key)
			if err != nil {
				l.logger.Warn("rate limit store unavailable, allowing request",
					logging.String("scope", cfg.Scope), logging.Err(err))
				next.ServeHTTP(w, r)
				return
			}
			if count == 1 {
				if err := l.store.Expire(r.Context(), key, cfg.Window); err != nil {
					l.logger.Warn("failed to set rate limit window",
						logging.String("key", key), logging.Err(err))
				}
			}

			remaining := int64(cfg.Limit) - count
			if remaining < 0 {
				remaining = 0
			}
			resetIn := cfg.Window
			if ttl, err := l.store.TTL(r.Context(), key); err == nil && ttl > 0 {
				resetIn = ttl
			}

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(cfg.Limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(l.now().Add(resetIn).Unix(), 10))

			if count > int64(cfg.Limit) {
				if l.recorder != nil {
					l.recorder(cfg.Scope)
				}
				retryAfter := int(resetIn.Seconds())
				if retryAfter < 1 {
					retryAfter = 1
				}
				w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
				w.Header().Set("Content-Type", "application/json; charset=utf-8")
				w.WriteHeader(http.StatusTooManyRequests)
				w.Write([]byte(`{"detail":"rate limit exceeded, retry later"}`))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// counterKey builds the window counter key for one caller and scope.
// Buckets are aligned to wall-clock windows so all replicas agree.
func (l *RateLimiter) counterKey(cfg RateLimitConfig, r *http.Request) string {
	caller := ContextGetUserID(r.Context())
	if caller == "" {
		caller = "ip:" + clientAddr(r)
	}
	window := l.now().Unix() / int64(cfg.Window.Seconds())
	return fmt.Sprintf("ratelimit:%s:%s:%d", cfg.Scope, caller, window)
}

// clientAddr extracts the originating client address for anonymous keys.
func clientAddr(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		return xff
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	return r.RemoteAddr
}
