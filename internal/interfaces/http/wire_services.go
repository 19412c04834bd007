package http

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	billingUsecases "github.com/corates/billing/internal/application/billing/usecases"
	"github.com/corates/billing/internal/domain/billing"
	"github.com/corates/billing/internal/infrastructure/auth"
	"github.com/corates/billing/internal/infrastructure/config"
	"github.com/corates/billing/internal/infrastructure/email"
	"github.com/corates/billing/internal/infrastructure/permission"
	"github.com/corates/billing/internal/infrastructure/pubsub"
	"github.com/corates/billing/internal/infrastructure/ratelimit"
	"github.com/corates/billing/internal/infrastructure/stripe"
	"github.com/corates/billing/internal/interfaces/http/middleware"
	"github.com/corates/billing/internal/shared/logger"
	"github.com/corates/billing/internal/shared/services/markdown"
)

// ============================================================
// Section 1: Infrastructure
// ============================================================

func (c *Container) initInfrastructure() error {
	cfg := c.cfg
	log := c.log

	redisClient, err := initRedis(cfg, log)
	if err != nil {
		return err
	}
	c.redis = redisClient

	c.repos = newRepositories(c.db, log)

	catalog, err := billing.LoadCatalog(cfg.Billing.CatalogFile)
	if err != nil {
		return fmt.Errorf("failed to load plan catalog: %w", err)
	}
	c.catalog = catalog
	log.Infow("plan catalog loaded", "version", catalog.Version(), "default_plan", catalog.DefaultPlan().ID)

	c.jwtSvc = auth.NewJWTService(cfg.Auth.JWT.Secret, cfg.Auth.JWT.Issuer, c.clock)
	c.authMiddleware = middleware.NewAuthMiddleware(c.jwtSvc, log.Named("auth"))

	c.permissions, err = permission.NewEnforcer(log.Named("permission"))
	if err != nil {
		return err
	}

	c.gateway = stripe.NewGateway(cfg.Stripe)

	if c.redis != nil {
		c.rateLimiter = middleware.NewRateLimiter(
			ratelimit.NewRedisRateLimiter(c.redis),
			"webhook",
			ratelimit.Config{RequestsPerMinute: cfg.RateLimit.WebhookRequestsPerMinute},
			log,
		)
	}
	return nil
}

// initRedis connects to Redis. An empty host disables every Redis-backed
// component instead of failing startup.
func initRedis(cfg *config.Config, log logger.Interface) (*redis.Client, error) {
	if cfg.Redis.Host == "" {
		log.Warnw("redis host not configured, change events and webhook rate limiting are disabled")
		return nil, nil
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.GetAddr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		_ = redisClient.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Redis.GetAddr(), err)
	}
	log.Infow("Redis connection established successfully")

	return redisClient, nil
}

// ============================================================
// Section 2: Notification sinks
// ============================================================

func (c *Container) initNotifications() {
	sinks := NotificationSinks(c.cfg, c.redis, c.log)
	c.notifier = billingUsecases.NewChangeNotifier(c.log.Named("notify"), sinks...)
}

// NotificationSinks builds the configured change-event sinks: the Redis bus
// when a client is given, and ops mail when recipients are set.
func NotificationSinks(cfg *config.Config, redisClient *redis.Client, log logger.Interface) []billingUsecases.NamedSink {
	var sinks []billingUsecases.NamedSink
	if redisClient != nil {
		sinks = append(sinks, billingUsecases.NamedSink{
			Name: "redis",
			Sink: pubsub.NewRedisChangeEventBus(redisClient, cfg.Notification.RedisChannel, log),
		})
	}
	if len(cfg.Notification.OpsRecipients) > 0 {
		mailer := email.NewSMTPMailer(cfg.Notification.SMTP, markdown.NewRenderer())
		sinks = append(sinks, billingUsecases.NamedSink{
			Name: "ops_email",
			Sink: email.NewOpsNotifier(mailer, cfg.Notification.OpsRecipients),
		})
	}
	return sinks
}
