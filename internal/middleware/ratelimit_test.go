// AngelaMos | 2026
// ratelimit_test.go

package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

// unreachableRedis returns a client whose server is already gone, so every
// limiter decision is made by the in-process fallback.
func unreachableRedis(t *testing.T) *redis.Client {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{
		Addr:        mr.Addr(),
		MaxRetries:  -1,
		DialTimeout: 100 * time.Millisecond,
	})
	t.Cleanup(func() { _ = rdb.Close() })
	mr.Close()
	return rdb
}

func hit(h http.Handler, remoteAddr string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/v1/auth/login", nil)
	req.RemoteAddr = remoteAddr
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRateLimiter_LoginWindow(t *testing.T) {
	rl := NewRateLimiter(unreachableRedis(t), RateLimitConfig{
		Name:  "login",
		Limit: PerWindow(5, 15*time.Minute),
	})
	h := rl.Handler(okHandler())

	for i := range 5 {
		rec := hit(h, "203.0.113.7:5000")
		require.Equal(t, http.StatusOK, rec.Code, "attempt %d", i+1)
	}

	rec := hit(h, "203.0.113.7:5000")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
	assert.Contains(t, rec.Body.String(), "RATE_LIMITED")

	rec = hit(h, "198.51.100.2:5000")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRateLimiter_NamesSeparateBuckets(t *testing.T) {
	rdb := unreachableRedis(t)

	login := NewRateLimiter(rdb, RateLimitConfig{
		Name:  "login",
		Limit: PerWindow(1, time.Hour),
	}).Handler(okHandler())
	register := NewRateLimiter(rdb, RateLimitConfig{
		Name:  "register",
		Limit: PerWindow(1, time.Hour),
	}).Handler(okHandler())

	assert.Equal(t, http.StatusOK, hit(login, "203.0.113.7:1").Code)
	assert.Equal(t, http.StatusOK, hit(register, "203.0.113.7:1").Code)
	assert.Equal(t, http.StatusTooManyRequests, hit(login, "203.0.113.7:1").Code)
}

func TestKeyByUserAndEndpoint(t *testing.T) {
	req := httptest.NewRequest(
		http.MethodGet,
		"/v1/supplier/orders/0b7a5e5e-6f0e-4c39-9a43-5e1f0f1a2b3c",
		nil,
	)
	req.RemoteAddr = "203.0.113.7:1"
	assert.Equal(t,
		"ratelimit:ip:203.0.113.7:endpoint:/v1/supplier/orders/{id}",
		KeyByUserAndEndpoint(req),
	)

	ctx := context.WithValue(req.Context(), UserIDKey, "u-1")
	assert.Equal(t,
		"ratelimit:user:u-1:endpoint:/v1/supplier/orders/{id}",
		KeyByUserAndEndpoint(req.WithContext(ctx)),
	)
}

func TestClientIPUsesLastForwardedHop(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Forwarded-For", "10.0.0.1, 198.51.100.9")
	assert.Equal(t, "ratelimit:ip:198.51.100.9", KeyByIP(req))
}
