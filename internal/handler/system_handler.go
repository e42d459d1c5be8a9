package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
)

// SystemHandler serves health, readiness and metrics endpoints.
type SystemHandler struct {
	db       *sqlx.DB
	redis    *redis.Client
	registry *prometheus.Registry
	started  time.Time
	version  string
}

func NewSystemHandler(db *sqlx.DB, redisClient *redis.Client, registry *prometheus.Registry, version string) *SystemHandler {
	return &SystemHandler{
		db:       db,
		redis:    redisClient,
		registry: registry,
		started:  time.Now(),
		version:  version,
	}
}

// Health reports process liveness.
func (h *SystemHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"version": h.version,
		"uptime":  time.Since(h.started).String(),
	})
}

// Ready verifies the database and, when configured, redis.
func (h *SystemHandler) Ready(c *gin.Context) {
	ctx := c.Request.Context()
	checks := gin.H{}
	healthy := true

	if err := h.db.PingContext(ctx); err != nil {
		checks["database"] = err.Error()
		healthy = false
	} else {
		checks["database"] = "ok"
	}
	if h.redis != nil {
		if err := h.redis.Ping(ctx).Err(); err != nil {
			checks["redis"] = err.Error()
		} else {
			checks["redis"] = "ok"
		}
	}

	status := http.StatusOK
	if !healthy {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, gin.H{"checks": checks})
}

// Metrics serves the prometheus registry.
func (h *SystemHandler) Metrics() gin.HandlerFunc {
	handler := promhttp.HandlerFor(h.registry, promhttp.HandlerOpts{})
	return func(c *gin.Context) {
		handler.ServeHTTP(c.Writer, c.Request)
	}
}
