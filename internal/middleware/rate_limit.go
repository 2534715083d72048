package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/ahrie-ai/backend/internal/logger"
	"github.com/ahrie-ai/backend/internal/metrics"
)

// RateLimitConfig defines configuration for rate limiting
type RateLimitConfig struct {
	// Window is the time window for rate limiting
	Window time.Duration
	// Limit is the maximum number of requests allowed in the window
	Limit int
	// Key prefix for Redis keys
	KeyPrefix string
	// SkipPrefixes are request paths that are never limited
	SkipPrefixes []string
}

// DefaultRateLimitConfig allows 60 requests a minute per client and skips health probes.
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		Window:       time.Minute,
		Limit:        60,
		KeyPrefix:    "rate_limit",
		SkipPrefixes: []string{"/api/v1/health", "/health"},
	}
}

// RateLimiter handles rate limiting using Redis
type RateLimiter struct {
	redis   redis.Cmdable
	config  RateLimitConfig
	metrics *metrics.Metrics
	now     func() time.Time
}

// NewRateLimiter creates a new rate limiter instance. Zero config fields take the defaults.
func NewRateLimiter(redisClient redis.Cmdable, config RateLimitConfig, m *metrics.Metrics) *RateLimiter {
	def := DefaultRateLimitConfig()
	if config.Window <= 0 {
		config.Window = def.Window
	}
	if config.Limit <= 0 {
		config.Limit = def.Limit
	}
	if config.KeyPrefix == "" {
		config.KeyPrefix = def.KeyPrefix
	}
	if config.SkipPrefixes == nil {
		config.SkipPrefixes = def.SkipPrefixes
	}
	return &RateLimiter{
		redis:   redisClient,
		config:  config,
		metrics: m,
		now:     time.Now,
	}
}

// RateLimitMiddleware returns a Gin middleware that enforces a per-IP fixed window.
// When Redis is unreachable requests are let through.
func (rl *RateLimiter) RateLimitMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if rl.skip(c.Request.URL.Path) {
			c.Next()
			return
		}

		allowed, remaining, resetTime, err := rl.IsAllowed(c.Request.Context(), c.ClientIP())
		if err != nil {
			logger.FromContext(c.Request.Context()).Warn("rate limit check failed", "error", err)
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(rl.config.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(resetTime.Unix(), 10))

		if !allowed {
			retryAfter := int(resetTime.Sub(rl.now()).Seconds())
			if retryAfter < 1 {
				retryAfter = 1
			}
			rl.metrics.RateLimited()
			c.Header("Retry-After", strconv.Itoa(retryAfter))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":       "Rate limit exceeded",
				"message":     fmt.Sprintf("Too many requests. Limit is %d requests per %v", rl.config.Limit, rl.config.Window),
				"retry_after": retryAfter,
			})
			return
		}

		c.Next()
	}
}

func (rl *RateLimiter) skip(path string) bool {
	for _, p := range rl.config.SkipPrefixes {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}

// IsAllowed counts a request from client in the current window.
// Returns: allowed, remaining requests, reset time, error
func (rl *RateLimiter) IsAllowed(ctx context.Context, client string) (bool, int, time.Time, error) {
	windowStart := rl.now().Truncate(rl.config.Window)
	key := fmt.Sprintf("%s:%s:%d", rl.config.KeyPrefix, client, windowStart.Unix())

	pipe := rl.redis.TxPipeline()
	incrCmd := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, rl.config.Window)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, 0, time.Time{}, err
	}

	count := int(incrCmd.Val())
	remaining := rl.config.Limit - count
	if remaining < 0 {
		remaining = 0
	}
	return count <= rl.config.Limit, remaining, windowStart.Add(rl.config.Window), nil
}
