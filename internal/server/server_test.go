// AngelaMos | 2026
// server_test.go

package server

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dulaksha-Siriwardana/ssd-assignment/internal/config"
	"github.com/Dulaksha-Siriwardana/ssd-assignment/internal/health"
)

func newTestServer(t *testing.T) (*Server, *health.Handler, *bytes.Buffer) {
	t.Helper()

	var logs bytes.Buffer
	hh := health.NewHandler()
	srv := New(Config{
		ServerConfig: config.ServerConfig{
			Host:            "127.0.0.1",
			Port:            0,
			ShutdownTimeout: time.Second,
		},
		HealthHandler: hh,
		Logger:        slog.New(slog.NewJSONHandler(&logs, nil)),
	})
	hh.RegisterRoutes(srv.Router())
	return srv, hh, &logs
}

func TestServer_RecoversPanics(t *testing.T) {
	srv, _, logs := newTestServer(t)
	srv.Router().Get("/boom", func(http.ResponseWriter, *http.Request) {
		panic("boom")
	})

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), `"success":false`)
	assert.NotContains(t, rec.Body.String(), "boom")
	assert.Contains(t, logs.String(), "panic recovered")
}

func TestServer_ShutdownFailsReadiness(t *testing.T) {
	srv, _, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	require.NoError(t, srv.Shutdown(context.Background(), time.Millisecond))

	rec = httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "shutting_down")
}

func TestServer_ShutdownHonoursContext(t *testing.T) {
	srv, _, _ := newTestServer(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := srv.Shutdown(ctx, time.Hour)
	assert.ErrorIs(t, err, context.Canceled)
}
