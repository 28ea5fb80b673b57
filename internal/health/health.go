package health

import (
	"context"
	"runtime"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"
)

// Pinger is anything that can prove its backend is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthChecker struct {
	db      Pinger
	driver  string
	redis   *redis.Client
	started time.Time
}

type HealthStatus struct {
	Status   string           `json:"status"`
	Database ComponentHealth  `json:"database"`
	Cache    *ComponentHealth `json:"cache,omitempty"`
}

type ComponentHealth struct {
	Status       string `json:"status"`
	Backend      string `json:"backend,omitempty"`
	ResponseTime int64  `json:"response_time_ms"`
}

// DetailedStatus adds host figures for the admin dashboard
type DetailedStatus struct {
	HealthStatus
	Uptime        string  `json:"uptime"`
	Goroutines    int     `json:"goroutines"`
	MemoryPercent float64 `json:"memory_percent"`
	MemoryUsed    uint64  `json:"memory_used_bytes"`
	MemoryTotal   uint64  `json:"memory_total_bytes"`
	DiskPercent   float64 `json:"disk_percent"`
}

// NewHealthChecker builds a checker; redisClient may be nil when the
// in-memory cache is used
func NewHealthChecker(db Pinger, driver string, redisClient *redis.Client) *HealthChecker {
	return &HealthChecker{db: db, driver: driver, redis: redisClient, started: time.Now()}
}

func (h *HealthChecker) CheckBasic(ctx context.Context) HealthStatus {
	dbHealth := h.checkDatabase(ctx)

	status := "healthy"
	if dbHealth.Status != "healthy" {
		status = "unhealthy"
	}

	result := HealthStatus{
		Status:   status,
		Database: dbHealth,
	}
	if h.redis != nil {
		cacheHealth := h.checkRedis(ctx)
		result.Cache = &cacheHealth
		// a broken cache degrades, it does not take the service down
		if cacheHealth.Status != "healthy" && status == "healthy" {
			result.Status = "degraded"
		}
	}
	return result
}

func (h *HealthChecker) CheckDetailed(ctx context.Context) DetailedStatus {
	status := DetailedStatus{
		HealthStatus: h.CheckBasic(ctx),
		Uptime:       time.Since(h.started).Round(time.Second).String(),
		Goroutines:   runtime.NumGoroutine(),
	}
	if memStats, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		status.MemoryPercent = memStats.UsedPercent
		status.MemoryUsed = memStats.Used
		status.MemoryTotal = memStats.Total
	}
	if diskStats, err := disk.UsageWithContext(ctx, "/"); err == nil {
		status.DiskPercent = diskStats.UsedPercent
	}
	return status
}

func (h *HealthChecker) checkDatabase(ctx context.Context) ComponentHealth {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	start := time.Now()
	err := h.db.Ping(ctx)
	responseTime := time.Since(start).Milliseconds()

	if err != nil {
		return ComponentHealth{Status: "unhealthy", Backend: h.driver, ResponseTime: responseTime}
	}
	return ComponentHealth{Status: "healthy", Backend: h.driver, ResponseTime: responseTime}
}

func (h *HealthChecker) checkRedis(ctx context.Context) ComponentHealth {
	ctx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()

	start := time.Now()
	err := h.redis.Ping(ctx).Err()
	responseTime := time.Since(start).Milliseconds()

	if err != nil {
		return ComponentHealth{Status: "unhealthy", Backend: "redis", ResponseTime: responseTime}
	}
	return ComponentHealth{Status: "healthy", Backend: "redis", ResponseTime: responseTime}
}
