package modules

import (
	"expvar"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/oksasatya/go-media-identity/internal/interface/middleware"
)

// DebugModule exposes expvar counters and a liveness probe.
type DebugModule struct {
	RDB     *redis.Client
	Metrics bool
}

func NewDebugModule(rdb *redis.Client, metrics bool) *DebugModule {
	return &DebugModule{RDB: rdb, Metrics: metrics}
}

func (m *DebugModule) Register(rg *gin.RouterGroup) {
	rg.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	if !m.Metrics {
		return
	}
	// expvar counters; in-cluster scrapers skip the per-IP limit
	rl := middleware.RateLimit(m.RDB, 120, time.Minute, middleware.KeyByIP(), middleware.AllowPrivateIP())
	rg.GET("/debug/vars", rl, gin.WrapH(expvar.Handler()))
}
