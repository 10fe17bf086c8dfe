package middleware

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/northwest-community/marketplace-backend/pkg/logger"
)

type fakeWriteLimiter struct {
	counts map[string]int64
	err    error
}

func (f *fakeWriteLimiter) FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error) {
	if f.err != nil {
		return false, 0, f.err
	}
	if f.counts == nil {
		f.counts = map[string]int64{}
	}
	f.counts[scope]++
	count := f.counts[scope]
	return count <= limit, count, nil
}

func newRateLimitHandler(t *testing.T, policy WriteRateLimitPolicy, limiter WriteLimiter) http.Handler {
	t.Helper()
	logg := logger.New(logger.Options{ServiceName: "rate-limit-test", Output: io.Discard})
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	return WriteRateLimit(policy, limiter, logg)(inner)
}

func TestWriteRateLimitBlocksOverLimit(t *testing.T) {
	limiter := &fakeWriteLimiter{}
	handler := newRateLimitHandler(t, WriteRateLimitPolicy{Window: time.Minute, Limit: 2}, limiter)
	memberID := uuid.NewString()

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/offers", nil)
		req = req.WithContext(WithMemberID(req.Context(), memberID))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusNoContent {
			t.Fatalf("request %d should pass, got %d", i+1, rec.Code)
		}
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/offers", nil)
	req = req.WithContext(WithMemberID(req.Context(), memberID))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}
}

func TestWriteRateLimitIgnoresReads(t *testing.T) {
	limiter := &fakeWriteLimiter{}
	handler := newRateLimitHandler(t, WriteRateLimitPolicy{Window: time.Minute, Limit: 1}, limiter)

	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/orders", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusNoContent {
			t.Fatalf("reads should never be throttled, got %d", rec.Code)
		}
	}
	if len(limiter.counts) != 0 {
		t.Fatalf("reads should not touch the counter, got %v", limiter.counts)
	}
}

func TestWriteRateLimitFailsOpenOnCounterError(t *testing.T) {
	limiter := &fakeWriteLimiter{err: context.DeadlineExceeded}
	handler := newRateLimitHandler(t, DefaultWriteRateLimitPolicy(), limiter)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout", nil)
	req = req.WithContext(WithMemberID(req.Context(), uuid.NewString()))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("counter failure should not block the request, got %d", rec.Code)
	}
}

func TestWriteRateLimitScopesAnonymousByIP(t *testing.T) {
	limiter := &fakeWriteLimiter{}
	handler := newRateLimitHandler(t, WriteRateLimitPolicy{Window: time.Minute, Limit: 1}, limiter)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout", nil)
	req.RemoteAddr = "203.0.113.9:4431"
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if _, ok := limiter.counts["ip:203.0.113.9"]; !ok {
		t.Fatalf("expected ip-scoped counter, got %v", limiter.counts)
	}
}
