package middleware

import (
	"context"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/northwest-community/marketplace-backend/api/responses"
	pkgerrors "github.com/northwest-community/marketplace-backend/pkg/errors"
	"github.com/northwest-community/marketplace-backend/pkg/logger"
)

// WriteLimiter counts requests per scope inside a fixed window.
type WriteLimiter interface {
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

// WriteRateLimitPolicy throttles mutating requests per caller.
type WriteRateLimitPolicy struct {
	Window time.Duration
	Limit  int
}

// DefaultWriteRateLimitPolicy allows a burst of writes per caller per minute.
func DefaultWriteRateLimitPolicy() WriteRateLimitPolicy {
	return WriteRateLimitPolicy{Window: time.Minute, Limit: 60}
}

func (p WriteRateLimitPolicy) enabled() bool {
	return p.Window > 0 && p.Limit > 0
}

// WriteRateLimit throttles POST/PATCH/DELETE traffic per member, falling back
// to the client IP when the request carries no identity. Counter errors fail
// open: a degraded Redis must not take checkout down with it.
func WriteRateLimit(policy WriteRateLimitPolicy, limiter WriteLimiter, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !policy.enabled() || limiter == nil {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodPost, http.MethodPatch, http.MethodDelete:
			default:
				next.ServeHTTP(w, r)
				return
			}

			ctx := r.Context()
			scope := "member:" + MemberIDFromContext(ctx)
			if scope == "member:" {
				scope = "ip:" + clientIP(r)
			}

			allowed, count, err := limiter.FixedWindowAllow(ctx, scope, int64(policy.Limit), policy.Window)
			if err != nil {
				logg.Warn(logg.WithField(ctx, "error", err.Error()), "rate_limit.counter_unavailable")
				next.ServeHTTP(w, r)
				return
			}
			if !allowed {
				logCtx := logg.WithFields(ctx, map[string]any{
					"scope":          scope,
					"attempts":       count,
					"limit":          policy.Limit,
					"window_seconds": int(policy.Window.Seconds()),
				})
				logg.Warn(logCtx, "rate_limit.blocked")
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeRateLimit, "rate limit exceeded"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func clientIP(r *http.Request) string {
	if header := r.Header.Get("X-Forwarded-For"); header != "" {
		for _, part := range strings.Split(header, ",") {
			if ip := strings.TrimSpace(part); ip != "" {
				return ip
			}
		}
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil && host != "" {
		return host
	}
	return r.RemoteAddr
}
