package http

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/corates/billing/internal/infrastructure/errorreport"
	"github.com/corates/billing/internal/interfaces/http/middleware"
	"github.com/corates/billing/internal/interfaces/http/routes"
	"github.com/corates/billing/internal/shared/utils"
)

// Router registers routes on the container's engine.
type Router struct {
	*Container
}

// NewRouter wraps a fully built container.
func NewRouter(c *Container) *Router {
	return &Router{Container: c}
}

// SetupRoutes installs the global middleware chain and every route.
func (r *Router) SetupRoutes() {
	utils.RegisterBindingValidators()

	r.engine.Use(middleware.Recovery(r.log))
	r.engine.Use(errorreport.GinMiddleware())
	r.engine.Use(middleware.RequestID())
	r.engine.Use(middleware.CustomLogger(r.log))
	r.engine.Use(middleware.ErrorHandler(r.log))
	r.engine.Use(middleware.CORS(r.cfg.Server.AllowedOrigins))
	r.engine.Use(middleware.SecurityHeaders())

	r.engine.GET("/health", r.hdlrs.healthHandler.HealthCheck)
	if r.cfg.Metrics.Enabled {
		r.engine.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	routes.SetupWebhookRoutes(r.engine, &routes.WebhookRouteConfig{
		WebhookHandler: r.hdlrs.webhookHandler,
		RateLimiter:    r.rateLimiter,
	})

	routes.SetupBillingRoutes(r.engine, &routes.BillingRouteConfig{
		BillingHandler:      r.hdlrs.billingHandler,
		SubscriptionHandler: r.hdlrs.subscriptionHandler,
		GrantHandler:        r.hdlrs.grantHandler,
		ReconcileHandler:    r.hdlrs.reconcileHandler,
		AuthMiddleware:      r.authMiddleware,
		Permissions:         r.permissions,
	})
}

// GetEngine returns the Gin engine
func (r *Router) GetEngine() *gin.Engine {
	return r.engine
}

// Run starts the HTTP server
func (r *Router) Run(addr string) error {
	return r.engine.Run(addr)
}
