package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/corates/billing/internal/interfaces/http/handlers"
	"github.com/corates/billing/internal/interfaces/http/middleware"
)

// WebhookRouteConfig holds dependencies for the processor ingress.
type WebhookRouteConfig struct {
	WebhookHandler *handlers.WebhookHandler
	RateLimiter    *middleware.RateLimiter // may be nil
}

// SetupWebhookRoutes registers the unauthenticated Stripe webhook endpoint.
func SetupWebhookRoutes(engine *gin.Engine, cfg *WebhookRouteConfig) {
	chain := []gin.HandlerFunc{}
	if cfg.RateLimiter != nil {
		chain = append(chain, cfg.RateLimiter.Limit())
	}
	chain = append(chain, cfg.WebhookHandler.StripeWebhook)

	engine.POST("/api/billing/stripe/webhook", chain...)
}
