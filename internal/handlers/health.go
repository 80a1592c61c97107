// internal/handlers/health.go
package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"runtime"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/ammerola/pharmacy-pos/internal/core/ports"
	"github.com/ammerola/pharmacy-pos/internal/pkg/config"
)

// QueueInspector is the subset of asynq.Inspector used for health reporting
type QueueInspector interface {
	Queues() ([]string, error)
	GetQueueInfo(queue string) (*asynq.QueueInfo, error)
	Servers() ([]*asynq.ServerInfo, error)
}

// HealthHandler handles health check endpoints. Redis and the queue
// inspector are optional and skipped when nil.
type HealthHandler struct {
	db        ports.Database
	redis     redis.UniversalClient
	inspector QueueInspector
	config    *config.Config
	logger    *slog.Logger
	startTime time.Time
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(
	database ports.Database,
	redisClient redis.UniversalClient,
	inspector QueueInspector,
	cfg *config.Config,
	logger *slog.Logger,
) *HealthHandler {
	return &HealthHandler{
		db:        database,
		redis:     redisClient,
		inspector: inspector,
		config:    cfg,
		logger:    logger.With(slog.String("handler", "health")),
		startTime: time.Now(),
	}
}

// HealthStatus represents the health status of the application
type HealthStatus struct {
	Status      string                 `json:"status"`
	Version     string                 `json:"version"`
	Environment string                 `json:"environment"`
	Uptime      string                 `json:"uptime"`
	Timestamp   time.Time              `json:"timestamp"`
	Services    map[string]ServiceInfo `json:"services"`
	System      SystemInfo             `json:"system"`
}

// ServiceInfo represents the status of a service dependency
type ServiceInfo struct {
	Status       string         `json:"status"`
	Message      string         `json:"message,omitempty"`
	ResponseTime string         `json:"response_time,omitempty"`
	Details      map[string]any `json:"details,omitempty"`
}

// SystemInfo represents system-level information
type SystemInfo struct {
	GoVersion     string `json:"go_version"`
	NumGoroutines int    `json:"num_goroutines"`
	NumCPU        int    `json:"num_cpu"`
	MemoryAllocMB uint64 `json:"memory_alloc_mb"`
	NumGC         uint32 `json:"num_gc"`
}

// Health handles GET /health. A failing dependency degrades the report.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	health := HealthStatus{
		Status:      "healthy",
		Version:     h.config.App.Version,
		Environment: h.config.App.Environment,
		Uptime:      time.Since(h.startTime).Round(time.Second).String(),
		Timestamp:   time.Now().UTC(),
		Services:    make(map[string]ServiceInfo),
		System:      systemInfo(),
	}

	checks := map[string]func(context.Context) ServiceInfo{
		"database": h.checkDatabase,
	}
	if h.redis != nil {
		checks["redis"] = h.checkRedis
	}
	if h.inspector != nil {
		checks["queues"] = h.checkQueues
	}
	for name, check := range checks {
		info := check(ctx)
		health.Services[name] = info
		if info.Status != "healthy" {
			health.Status = "degraded"
		}
	}

	status := http.StatusOK
	if health.Status != "healthy" {
		status = http.StatusServiceUnavailable
	}
	h.writeNoCache(ctx, w, status, health)
}

// Readiness handles GET /ready
func (h *HealthHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	ready := true
	details := make(map[string]string)

	if err := h.db.Ping(ctx); err != nil {
		ready = false
		details["database"] = "not ready"
	} else {
		details["database"] = "ready"
	}

	if h.redis != nil {
		if err := h.redis.Ping(ctx).Err(); err != nil {
			ready = false
			details["redis"] = "not ready"
		} else {
			details["redis"] = "ready"
		}
	}

	status := http.StatusOK
	if !ready {
		status = http.StatusServiceUnavailable
	}
	h.writeNoCache(ctx, w, status, map[string]any{
		"ready":   ready,
		"details": details,
	})
}

func (h *HealthHandler) writeNoCache(ctx context.Context, w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.logger.ErrorContext(ctx, "failed to encode health response",
			slog.String("error", err.Error()))
	}
}

func (h *HealthHandler) checkDatabase(ctx context.Context) ServiceInfo {
	start := time.Now()
	if err := h.db.Ping(ctx); err != nil {
		h.logger.ErrorContext(ctx, "database health check failed",
			slog.String("error", err.Error()))
		return ServiceInfo{Status: "unhealthy", Message: err.Error()}
	}
	return ServiceInfo{
		Status:       "healthy",
		Details:      h.db.Health(ctx),
		ResponseTime: time.Since(start).String(),
	}
}

func (h *HealthHandler) checkRedis(ctx context.Context) ServiceInfo {
	start := time.Now()
	pong, err := h.redis.Ping(ctx).Result()
	if err != nil {
		h.logger.ErrorContext(ctx, "redis health check failed",
			slog.String("error", err.Error()))
		return ServiceInfo{Status: "unhealthy", Message: err.Error()}
	}

	stats := h.redis.PoolStats()
	return ServiceInfo{
		Status: "healthy",
		Details: map[string]any{
			"ping":        pong,
			"total_conns": stats.TotalConns,
			"idle_conns":  stats.IdleConns,
			"stale_conns": stats.StaleConns,
		},
		ResponseTime: time.Since(start).String(),
	}
}

func (h *HealthHandler) checkQueues(ctx context.Context) ServiceInfo {
	start := time.Now()
	queues, err := h.inspector.Queues()
	if err != nil {
		h.logger.ErrorContext(ctx, "queue health check failed",
			slog.String("error", err.Error()))
		return ServiceInfo{Status: "unhealthy", Message: err.Error()}
	}

	queueStats := make(map[string]any, len(queues))
	for _, queue := range queues {
		qInfo, err := h.inspector.GetQueueInfo(queue)
		if err != nil {
			continue
		}
		queueStats[queue] = map[string]any{
			"size":      qInfo.Size,
			"active":    qInfo.Active,
			"pending":   qInfo.Pending,
			"scheduled": qInfo.Scheduled,
			"retry":     qInfo.Retry,
			"archived":  qInfo.Archived,
			"completed": qInfo.Completed,
			"paused":    qInfo.Paused,
		}
	}

	details := map[string]any{"queues": queueStats}
	if servers, err := h.inspector.Servers(); err == nil {
		workers := 0
		for _, s := range servers {
			workers += len(s.ActiveWorkers)
		}
		details["servers"] = len(servers)
		details["active_workers"] = workers
	}

	return ServiceInfo{
		Status:       "healthy",
		Details:      details,
		ResponseTime: time.Since(start).String(),
	}
}

func systemInfo() SystemInfo {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	return SystemInfo{
		GoVersion:     runtime.Version(),
		NumGoroutines: runtime.NumGoroutine(),
		NumCPU:        runtime.NumCPU(),
		MemoryAllocMB: mem.Alloc / 1024 / 1024,
		NumGC:         mem.NumGC,
	}
}
