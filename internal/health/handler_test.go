// AngelaMos | 2026
// handler_test.go

package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pinger func(ctx context.Context) error

func (p pinger) Ping(ctx context.Context) error { return p(ctx) }

var (
	up   = pinger(func(context.Context) error { return nil })
	down = pinger(func(context.Context) error { return errors.New("connection refused") })
)

func get(t *testing.T, h *Handler, path string) (int, map[string]any) {
	t.Helper()

	r := chi.NewRouter()
	h.RegisterRoutes(r)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return rec.Code, body
}

func TestReadiness(t *testing.T) {
	tests := []struct {
		name       string
		deps       []Dependency
		wantStatus int
		wantBody   string
	}{
		{
			name: "all dependencies up",
			deps: []Dependency{
				{Name: "database", Checker: up},
				{Name: "redis", Checker: up},
				{Name: "broker", Checker: up},
			},
			wantStatus: http.StatusOK,
			wantBody:   "ok",
		},
		{
			name: "redis down",
			deps: []Dependency{
				{Name: "database", Checker: up},
				{Name: "redis", Checker: down},
			},
			wantStatus: http.StatusServiceUnavailable,
			wantBody:   "degraded",
		},
		{
			name:       "unconfigured checker",
			deps:       []Dependency{{Name: "database"}},
			wantStatus: http.StatusServiceUnavailable,
			wantBody:   "degraded",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, body := get(t, NewHandler(tt.deps...), "/readyz")
			assert.Equal(t, tt.wantStatus, code)
			assert.Equal(t, tt.wantBody, body["status"])

			checks := body["checks"].([]any)
			require.Len(t, checks, len(tt.deps))
			for i, c := range checks {
				assert.Equal(t, tt.deps[i].Name, c.(map[string]any)["name"])
			}
		})
	}
}

func TestShutdownFailsProbes(t *testing.T) {
	h := NewHandler(Dependency{Name: "database", Checker: up})

	code, _ := get(t, h, "/livez")
	assert.Equal(t, http.StatusOK, code)

	h.SetShutdown(true)

	for _, path := range []string{"/healthz", "/livez", "/readyz"} {
		code, body := get(t, h, path)
		assert.Equal(t, http.StatusServiceUnavailable, code, path)
		assert.Equal(t, "shutting_down", body["status"], path)
	}
}

func TestNotReady(t *testing.T) {
	h := NewHandler(Dependency{Name: "database", Checker: up})
	h.SetReady(false)

	code, body := get(t, h, "/readyz")
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "not_ready", body["status"])
}
