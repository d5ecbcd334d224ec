// AngelaMos | 2026
// handler_test.go

package admin

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dulaksha-Siriwardana/ssd-assignment/internal/supplier"
)

type lockedCount struct {
	n   int
	err error
}

func (c lockedCount) CountLocked(context.Context) (int, error) { return c.n, c.err }

type statusCount map[supplier.Status]int

func (c statusCount) CountByStatus(context.Context) (map[supplier.Status]int, error) {
	return c, nil
}

func serve(t *testing.T, h *Handler) *httptest.ResponseRecorder {
	t.Helper()

	r := chi.NewRouter()
	h.RegisterRoutes(r)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/stats", nil))
	return rec
}

func TestGetStats(t *testing.T) {
	h := NewHandler(HandlerConfig{
		DBStats:  func() sql.DBStats { return sql.DBStats{OpenConnections: 3, InUse: 1} },
		Accounts: lockedCount{n: 2},
		Orders:   statusCount{supplier.StatusPending: 4, supplier.StatusAccepted: 1},
	})

	rec := serve(t, h)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Data StatsResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))

	assert.Equal(t, 2, body.Data.Accounts.Locked)
	assert.Equal(t, map[string]int{
		"PENDING":  4,
		"ACCEPTED": 1,
		"DECLINED": 0,
		"EXPIRED":  0,
	}, body.Data.Orders)
	require.NotNil(t, body.Data.Database)
	assert.Equal(t, 3, body.Data.Database.OpenConnections)
	assert.Nil(t, body.Data.Redis)
	assert.NotEmpty(t, body.Data.Runtime.GoVersion)
}

func TestGetStats_StoreFailure(t *testing.T) {
	h := NewHandler(HandlerConfig{
		Accounts: lockedCount{err: errors.New("db down")},
		Orders:   statusCount{},
	})

	rec := serve(t, h)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "db down")
}
