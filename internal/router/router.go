// Package router assembles the HTTP routes and middleware chain.
package router

import (
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/ahrie-ai/backend/config"
	"github.com/ahrie-ai/backend/internal/api"
	"github.com/ahrie-ai/backend/internal/logger"
	"github.com/ahrie-ai/backend/internal/metrics"
	"github.com/ahrie-ai/backend/internal/middleware"
)

// Deps are the handlers and shared clients the router wires together.
type Deps struct {
	Config  *config.Config
	Metrics *metrics.Metrics
	// Redis backs the rate limiter; without it requests are not limited.
	Redis   redis.Cmdable
	Webhook *api.WebhookHandler
	Health  *api.HealthHandler
	Info    *api.InfoHandler
}

// SetupRouter configures the application routes
func SetupRouter(d Deps) *gin.Engine {
	if !d.Config.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	router.Use(
		middleware.RequestID(),
		middleware.AccessLog(),
		middleware.Recovery(),
		middleware.SecurityHeaders(),
		middleware.CORS(d.Config.AllowedOrigins),
		middleware.Metrics(d.Metrics),
	)
	if d.Redis != nil {
		limiter := middleware.NewRateLimiter(d.Redis, middleware.RateLimitConfig{
			Limit:  d.Config.RateLimitRequests,
			Window: d.Config.RateLimitPeriod,
		}, d.Metrics)
		router.Use(limiter.RateLimitMiddleware())
	}
	router.Use(middleware.ErrorHandler())

	var admin []gin.HandlerFunc
	if d.Config.AdminJWTSecret != "" {
		admin = append(admin, middleware.AdminAuth(d.Config.AdminJWTSecret))
	} else {
		logger.L().Warn("ADMIN_JWT_SECRET is not set, webhook management routes are unauthenticated")
	}

	d.Info.RegisterRoutes(router)
	if d.Metrics != nil {
		router.GET("/metrics", gin.WrapH(d.Metrics.Handler()))
	}

	v1 := router.Group("/api/v1")
	d.Health.RegisterRoutes(v1)
	d.Webhook.RegisterRoutes(v1, admin...)

	return router
}
