package handlers

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
)

// SystemInfo contains basic runtime and dependency status.
type SystemInfo struct {
	Status       string    `json:"status"`
	Version      string    `json:"version"`
	Uptime       string    `json:"uptime"`
	StartTime    time.Time `json:"start_time"`
	CurrentTime  time.Time `json:"current_time"`
	GoVersion    string    `json:"go_version"`
	NumGoroutine int       `json:"num_goroutine"`
	NumCPU       int       `json:"num_cpu"`
	DBStatus     string    `json:"db_status"`
	RedisStatus  string    `json:"redis_status"`
}

// Version can be injected at build time with -ldflags.
var Version = "0.1.0"

// Pinger is satisfied by the database and Redis checks.
type Pinger func(ctx context.Context) error

type HealthHandler struct {
	db        Pinger
	redis     Pinger
	startTime time.Time
}

// NewHealthHandler builds the health endpoints. A nil redis pinger reports
// Redis as disabled.
func NewHealthHandler(db, redis Pinger) *HealthHandler {
	return &HealthHandler{db: db, redis: redis, startTime: time.Now()}
}

// HealthCheck is the liveness probe.
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"time":   time.Now().Format(time.RFC3339),
	})
}

// SystemStatus reports dependency health. It answers 503 when the database
// is unreachable.
func (h *HealthHandler) SystemStatus(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	info := SystemInfo{
		Status:       "ok",
		Version:      Version,
		Uptime:       time.Since(h.startTime).String(),
		StartTime:    h.startTime,
		CurrentTime:  time.Now(),
		GoVersion:    runtime.Version(),
		NumGoroutine: runtime.NumGoroutine(),
		NumCPU:       runtime.NumCPU(),
		DBStatus:     probe(ctx, h.db),
		RedisStatus:  probe(ctx, h.redis),
	}

	status := http.StatusOK
	if info.DBStatus != "ok" {
		info.Status = "degraded"
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, info)
}

func probe(ctx context.Context, p Pinger) string {
	if p == nil {
		return "disabled"
	}
	if err := p(ctx); err != nil {
		return "error"
	}
	return "ok"
}
