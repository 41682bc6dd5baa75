package middleware

import (
	"math"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	gocache "github.com/patrickmn/go-cache"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	appErrors "github.com/noah-isme/visit-intake-api/pkg/errors"
	"github.com/noah-isme/visit-intake-api/pkg/response"
)

// RateLimiterConfig tunes the per-client token bucket.
type RateLimiterConfig struct {
	Rate    rate.Limit
	Burst   int
	IdleTTL time.Duration
}

// RateLimiter throttles requests per client IP. Buckets of idle clients
// expire after IdleTTL.
type RateLimiter struct {
	config   RateLimiterConfig
	limiters *gocache.Cache
	mu       sync.Mutex
	logger   *zap.Logger
}

// NewRateLimiter constructs a limiter.
func NewRateLimiter(config RateLimiterConfig, logger *zap.Logger) *RateLimiter {
	if config.Burst <= 0 {
		config.Burst = 1
	}
	if config.IdleTTL <= 0 {
		config.IdleTTL = 10 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RateLimiter{
		config:   config,
		limiters: gocache.New(config.IdleTTL, config.IdleTTL),
		logger:   logger,
	}
}

func (rl *RateLimiter) limiterFor(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	if existing, ok := rl.limiters.Get(key); ok {
		rl.limiters.SetDefault(key, existing)
		return existing.(*rate.Limiter)
	}
	limiter := rate.NewLimiter(rl.config.Rate, rl.config.Burst)
	rl.limiters.SetDefault(key, limiter)
	return limiter
}

// RateLimit rejects requests above the configured rate with RATE_LIMITED.
func (rl *RateLimiter) RateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		limiter := rl.limiterFor(c.ClientIP())
		reservation := limiter.Reserve()
		if !reservation.OK() {
			response.Error(c, appErrors.ErrRateLimited)
			c.Abort()
			return
		}
		if delay := reservation.Delay(); delay > 0 {
			reservation.Cancel()
			rl.logger.Debug("request throttled", zap.String("client_ip", c.ClientIP()), zap.String("path", c.FullPath()))
			response.Error(c, appErrors.WithDetails(appErrors.ErrRateLimited, map[string]interface{}{
				"retryAfterSeconds": int(math.Ceil(delay.Seconds())),
			}))
			c.Abort()
			return
		}
		c.Next()
	}
}
