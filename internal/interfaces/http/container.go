package http

import (
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	billingUsecases "github.com/corates/billing/internal/application/billing/usecases"
	"github.com/corates/billing/internal/domain/billing"
	"github.com/corates/billing/internal/infrastructure/auth"
	"github.com/corates/billing/internal/infrastructure/config"
	"github.com/corates/billing/internal/infrastructure/permission"
	"github.com/corates/billing/internal/infrastructure/stripe"
	"github.com/corates/billing/internal/interfaces/http/middleware"
	"github.com/corates/billing/internal/shared/biztime"
	"github.com/corates/billing/internal/shared/logger"
)

// Container holds the infrastructure components, repositories, use cases and
// handlers, and wires them together. Shutdown releases what it opened.
type Container struct {
	// Core infrastructure
	engine *gin.Engine
	db     *gorm.DB
	cfg    *config.Config
	log    logger.Interface
	redis  *redis.Client // nil when redis.host is empty
	clock  biztime.Clock

	// Repositories
	repos *repositories

	// Use cases
	ucs *allUseCases

	// Handlers
	hdlrs *allHandlers

	// Middlewares
	authMiddleware *middleware.AuthMiddleware
	rateLimiter    *middleware.RateLimiter // nil without redis
	billingGate    *middleware.BillingGate

	// Cross-cutting services
	catalog     *billing.Catalog
	jwtSvc      *auth.JWTService
	permissions *permission.Enforcer
	gateway     *stripe.Gateway
	notifier    *billingUsecases.ChangeNotifier
}

// NewContainer builds every component from cfg. The database must already be
// open and migrated.
func NewContainer(db *gorm.DB, cfg *config.Config, log logger.Interface) (*Container, error) {
	c := &Container{
		engine: gin.New(),
		db:     db,
		cfg:    cfg,
		log:    log,
		clock:  biztime.SystemClock{},
	}

	// Section 1: Infrastructure - Redis, repositories, auth, processor gateway
	if err := c.initInfrastructure(); err != nil {
		return nil, err
	}

	// Section 2: Notification sinks
	c.initNotifications()

	// Section 3: Use cases
	c.initUseCases()

	// Section 4: Handlers and request-time gates
	c.initHandlers()

	return c, nil
}

// Engine returns the gin engine routes are registered on.
func (c *Container) Engine() *gin.Engine {
	return c.engine
}

// BillingGate returns the entitlement and quota middleware for routes that
// sit in front of gated product features.
func (c *Container) BillingGate() *middleware.BillingGate {
	return c.billingGate
}

// Shutdown closes the Redis client. The database is owned by the caller.
func (c *Container) Shutdown() {
	if c.redis != nil {
		if err := c.redis.Close(); err != nil {
			c.log.Warnw("failed to close redis client", "error", err)
		}
	}
}
