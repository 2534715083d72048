package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/disk"
	"github.com/shirou/gopsutil/v4/mem"

	"github.com/ahrie-ai/backend/internal/database"
	"github.com/ahrie-ai/backend/internal/logger"
	"github.com/ahrie-ai/backend/internal/telegram"
)

const (
	statusHealthy       = "healthy"
	statusUnhealthy     = "unhealthy"
	statusDegraded      = "degraded"
	statusNotConfigured = "not_configured"

	probeTimeout = 3 * time.Second
)

// DatabaseProbe is the database view used by health checks.
type DatabaseProbe interface {
	HealthCheck(ctx context.Context) error
	PoolStats() database.PoolStats
}

// BotProbe is the Bot API view used by health checks.
type BotProbe interface {
	GetMe(ctx context.Context) (*telegram.User, error)
	GetWebhookInfo(ctx context.Context) (*telegram.WebhookInfo, error)
}

// ModelProbe describes the configured model chain.
type ModelProbe interface {
	Primary() string
	MonitoringEnabled() bool
}

// PersonaLister reports the loaded personas.
type PersonaLister interface {
	Names() []string
}

// HealthDeps are the components the detailed health check inspects. Nil fields are reported as not configured.
type HealthDeps struct {
	AppName    string
	AppVersion string
	DB         DatabaseProbe
	Redis      redis.Cmdable
	Team       PersonaLister
	Bot        BotProbe
	Models     ModelProbe
}

// HealthHandler serves liveness, readiness and detailed health
type HealthHandler struct {
	deps    HealthDeps
	started time.Time
	now     func() time.Time
	system  func(ctx context.Context) gin.H
}

// NewHealthHandler creates a new HealthHandler instance
func NewHealthHandler(deps HealthDeps) *HealthHandler {
	return &HealthHandler{
		deps:    deps,
		started: time.Now(),
		now:     time.Now,
		system:  systemStats,
	}
}

// RegisterRoutes registers the health routes
func (h *HealthHandler) RegisterRoutes(v1 *gin.RouterGroup) {
	health := v1.Group("/health")
	health.GET("", h.Health)
	health.GET("/", h.Health)
	health.GET("/detailed", h.Detailed)
	health.GET("/readiness", h.Readiness)
	health.GET("/liveness", h.Liveness)
}

func (h *HealthHandler) timestamp() string {
	return h.now().UTC().Format(time.RFC3339)
}

// Health is the basic probe.
func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": statusHealthy, "timestamp": h.timestamp()})
}

// Liveness reports that the process is serving.
func (h *HealthHandler) Liveness(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"alive": true, "timestamp": h.timestamp()})
}

// Readiness checks the database and the persona team. It answers 503 until both are usable.
func (h *HealthHandler) Readiness(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), probeTimeout)
	defer cancel()

	dbReady := h.deps.DB != nil && h.deps.DB.HealthCheck(ctx) == nil
	agentsReady := h.deps.Team != nil && len(h.deps.Team.Names()) > 0
	ready := dbReady && agentsReady

	status := http.StatusOK
	if !ready {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, gin.H{
		"ready":     ready,
		"timestamp": h.timestamp(),
		"checks": gin.H{
			"database": dbReady,
			"agents":   agentsReady,
		},
	})
}

// Detailed reports every dependency. It always answers 200; status is
// "degraded" when any configured service is unhealthy.
func (h *HealthHandler) Detailed(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), probeTimeout)
	defer cancel()

	services := gin.H{
		"database":     h.checkDatabase(ctx),
		"redis":        h.checkRedis(ctx),
		"agents":       h.checkAgents(),
		"telegram_bot": h.checkBot(ctx),
		"models":       h.checkModels(),
	}

	overall := statusHealthy
	for name, s := range services {
		if st := s.(gin.H)["status"]; st == statusUnhealthy {
			overall = statusDegraded
			logger.FromContext(ctx).Warn("service unhealthy", "service", name)
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"status":    overall,
		"timestamp": h.timestamp(),
		"application": gin.H{
			"name":           h.deps.AppName,
			"version":        h.deps.AppVersion,
			"uptime":         h.now().Sub(h.started).Truncate(time.Second).String(),
			"uptime_seconds": int64(h.now().Sub(h.started).Seconds()),
		},
		"system":   h.system(ctx),
		"services": services,
	})
}

func (h *HealthHandler) checkDatabase(ctx context.Context) gin.H {
	if h.deps.DB == nil {
		return gin.H{"status": statusUnhealthy, "error": "database not configured"}
	}
	start := time.Now()
	if err := h.deps.DB.HealthCheck(ctx); err != nil {
		return gin.H{"status": statusUnhealthy, "error": err.Error()}
	}
	stats := h.deps.DB.PoolStats()
	return gin.H{
		"status":           statusHealthy,
		"pool_size":        stats.MaxOpen,
		"pool_in_use":      stats.InUse,
		"pool_idle":        stats.Idle,
		"response_time_ms": time.Since(start).Milliseconds(),
	}
}

func (h *HealthHandler) checkRedis(ctx context.Context) gin.H {
	if h.deps.Redis == nil {
		return gin.H{"status": statusNotConfigured}
	}
	if err := h.deps.Redis.Ping(ctx).Err(); err != nil {
		return gin.H{"status": statusUnhealthy, "error": err.Error()}
	}
	return gin.H{"status": statusHealthy}
}

func (h *HealthHandler) checkAgents() gin.H {
	if h.deps.Team == nil {
		return gin.H{"status": statusUnhealthy, "error": "persona team not loaded", "personas": []string{}}
	}
	names := h.deps.Team.Names()
	status := statusHealthy
	if len(names) == 0 {
		status = statusUnhealthy
	}
	return gin.H{"status": status, "personas": names, "total_agents": len(names)}
}

func (h *HealthHandler) checkBot(ctx context.Context) gin.H {
	if h.deps.Bot == nil {
		return gin.H{"status": statusNotConfigured}
	}
	me, err := h.deps.Bot.GetMe(ctx)
	if err != nil {
		return gin.H{"status": statusUnhealthy, "error": err.Error()}
	}
	out := gin.H{"status": statusHealthy, "username": me.Username, "bot_id": me.ID}
	info, err := h.deps.Bot.GetWebhookInfo(ctx)
	if err != nil {
		out["status"] = statusUnhealthy
		out["error"] = err.Error()
		return out
	}
	out["webhook_url"] = info.URL
	out["webhook_set"] = info.URL != ""
	out["pending_updates"] = info.PendingUpdateCount
	return out
}

func (h *HealthHandler) checkModels() gin.H {
	if h.deps.Models == nil {
		return gin.H{"status": statusUnhealthy, "error": "no language model configured"}
	}
	return gin.H{
		"status":             statusHealthy,
		"primary":            h.deps.Models.Primary(),
		"monitoring_enabled": h.deps.Models.MonitoringEnabled(),
	}
}

const mib = 1024 * 1024

// systemStats samples host CPU, memory and root disk usage.
func systemStats(ctx context.Context) gin.H {
	out := gin.H{}
	if pct, err := cpu.PercentWithContext(ctx, 0, false); err == nil && len(pct) > 0 {
		out["cpu_percent"] = pct[0]
	}
	if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		out["memory"] = gin.H{
			"total_mb":     vm.Total / mib,
			"available_mb": vm.Available / mib,
			"percent":      vm.UsedPercent,
		}
	}
	if du, err := disk.UsageWithContext(ctx, "/"); err == nil {
		out["disk"] = gin.H{
			"total_gb": float64(du.Total) / (1024 * mib),
			"free_gb":  float64(du.Free) / (1024 * mib),
			"percent":  du.UsedPercent,
		}
	}
	return out
}
