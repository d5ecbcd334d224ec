// AngelaMos | 2026
// handler.go

package admin

import (
	"context"
	"database/sql"
	"net/http"
	"runtime"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"

	"github.com/Dulaksha-Siriwardana/ssd-assignment/internal/core"
	"github.com/Dulaksha-Siriwardana/ssd-assignment/internal/supplier"
)

type AccountCounter interface {
	CountLocked(ctx context.Context) (int, error)
}

type OrderCounter interface {
	CountByStatus(ctx context.Context) (map[supplier.Status]int, error)
}

type Handler struct {
	dbStats    func() sql.DBStats
	redisStats func() *redis.PoolStats
	accounts   AccountCounter
	orders     OrderCounter
}

type HandlerConfig struct {
	DBStats    func() sql.DBStats
	RedisStats func() *redis.PoolStats
	Accounts   AccountCounter
	Orders     OrderCounter
}

func NewHandler(cfg HandlerConfig) *Handler {
	return &Handler{
		dbStats:    cfg.DBStats,
		redisStats: cfg.RedisStats,
		accounts:   cfg.Accounts,
		orders:     cfg.Orders,
	}
}

// RegisterRoutes expects the caller to have applied authentication and
// the admin role check.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/stats", h.GetStats)
}

func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	locked, err := h.accounts.CountLocked(ctx)
	if err != nil {
		core.InternalServerError(w, err)
		return
	}

	byStatus, err := h.orders.CountByStatus(ctx)
	if err != nil {
		core.InternalServerError(w, err)
		return
	}

	orders := make(map[string]int, len(byStatus))
	for _, s := range []supplier.Status{
		supplier.StatusPending,
		supplier.StatusAccepted,
		supplier.StatusDeclined,
		supplier.StatusExpired,
	} {
		orders[string(s)] = byStatus[s]
	}

	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	core.OK(w, StatsResponse{
		Accounts: AccountStats{Locked: locked},
		Orders:   orders,
		Database: h.getDBStats(),
		Redis:    h.getRedisStats(),
		Runtime: RuntimeStats{
			GoVersion:    runtime.Version(),
			NumGoroutine: runtime.NumGoroutine(),
			MemAlloc:     memStats.Alloc,
			NumGC:        memStats.NumGC,
		},
	})
}

func (h *Handler) getDBStats() *DBPoolStats {
	if h.dbStats == nil {
		return nil
	}

	stats := h.dbStats()
	return &DBPoolStats{
		MaxOpenConnections: stats.MaxOpenConnections,
		OpenConnections:    stats.OpenConnections,
		InUse:              stats.InUse,
		Idle:               stats.Idle,
		WaitCount:          stats.WaitCount,
		WaitDuration:       stats.WaitDuration.String(),
	}
}

func (h *Handler) getRedisStats() *RedisPoolStats {
	if h.redisStats == nil {
		return nil
	}

	stats := h.redisStats()
	return &RedisPoolStats{
		Hits:       stats.Hits,
		Misses:     stats.Misses,
		Timeouts:   stats.Timeouts,
		TotalConns: stats.TotalConns,
		IdleConns:  stats.IdleConns,
	}
}

type StatsResponse struct {
	Accounts AccountStats    `json:"accounts"`
	Orders   map[string]int  `json:"supplier_orders"`
	Database *DBPoolStats    `json:"database,omitempty"`
	Redis    *RedisPoolStats `json:"redis,omitempty"`
	Runtime  RuntimeStats    `json:"runtime"`
}

type AccountStats struct {
	Locked int `json:"locked"`
}

type DBPoolStats struct {
	MaxOpenConnections int    `json:"max_open_connections"`
	OpenConnections    int    `json:"open_connections"`
	InUse              int    `json:"in_use"`
	Idle               int    `json:"idle"`
	WaitCount          int64  `json:"wait_count"`
	WaitDuration       string `json:"wait_duration"`
}

type RedisPoolStats struct {
	Hits       uint32 `json:"hits"`
	Misses     uint32 `json:"misses"`
	Timeouts   uint32 `json:"timeouts"`
	TotalConns uint32 `json:"total_conns"`
	IdleConns  uint32 `json:"idle_conns"`
}

type RuntimeStats struct {
	GoVersion    string `json:"go_version"`
	NumGoroutine int    `json:"num_goroutine"`
	MemAlloc     uint64 `json:"mem_alloc_bytes"`
	NumGC        uint32 `json:"num_gc"`
}
