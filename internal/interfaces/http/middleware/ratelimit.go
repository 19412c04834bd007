package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/corates/billing/internal/infrastructure/ratelimit"
	"github.com/corates/billing/internal/shared/errors"
	"github.com/corates/billing/internal/shared/logger"
	"github.com/corates/billing/internal/shared/utils"
)

// RateLimiter enforces a per client IP budget through a shared limiter, so
// every instance sees the same counters.
type RateLimiter struct {
	limiter ratelimit.RateLimiter
	cfg     ratelimit.Config
	scope   string
	logger  logger.Interface
}

func NewRateLimiter(limiter ratelimit.RateLimiter, scope string, cfg ratelimit.Config, logger logger.Interface) *RateLimiter {
	return &RateLimiter{
		limiter: limiter,
		cfg:     cfg,
		scope:   scope,
		logger:  logger,
	}
}

// Limit returns a Gin middleware that enforces the rate limit per client IP.
// A limiter outage lets traffic through.
func (rl *RateLimiter) Limit() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := rl.scope + ":ip:" + c.ClientIP()

		allowed, err := rl.limiter.Allow(c.Request.Context(), key, rl.cfg)
		if err != nil {
			rl.logger.Warnw("rate limiter unavailable, allowing request", "scope", rl.scope, "error", err)
			c.Next()
			return
		}

		if !allowed {
			utils.ErrorResponseWithError(c, errors.NewRateLimitedError("rate limit exceeded, please try again later"))
			c.Abort()
			return
		}

		c.Next()
	}
}
