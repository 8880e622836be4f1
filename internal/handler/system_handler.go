package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/proctorhub/proctorhub-backend/internal/config"
	"github.com/proctorhub/proctorhub-backend/internal/response"
	"github.com/redis/go-redis/v9"
)

// SystemHandler exposes liveness and readiness probes.
type SystemHandler struct {
	pool      *pgxpool.Pool
	rdb       *redis.Client
	startTime time.Time
}

// NewSystemHandler creates a new SystemHandler.
func NewSystemHandler(pool *pgxpool.Pool, rdb *redis.Client) *SystemHandler {
	return &SystemHandler{pool: pool, rdb: rdb, startTime: time.Now()}
}

// Health godoc
// GET /health
// Pings PostgreSQL and Redis and reports the audit queue depth.
func (h *SystemHandler) Health(c *gin.Context) {
	ctx := c.Request.Context()
	status := http.StatusOK

	dbStatus := "ok"
	if err := h.pool.Ping(ctx); err != nil {
		dbStatus = "unreachable"
		status = http.StatusServiceUnavailable
	}

	redisStatus := "ok"
	var queueDepth int64
	if err := h.rdb.Ping(ctx).Err(); err != nil {
		redisStatus = "unreachable"
		status = http.StatusServiceUnavailable
	} else {
		queueDepth, _ = h.rdb.LLen(ctx, config.WorkerKey.PersistAuditQueue).Result()
	}

	response.Success(c, status, gin.H{
		"status":            map[bool]string{true: "ok", false: "degraded"}[status == http.StatusOK],
		"database":          dbStatus,
		"redis":             redisStatus,
		"audit_queue_depth": queueDepth,
		"uptime_seconds":    int(time.Since(h.startTime).Seconds()),
	})
}
