// Package bootstrap loads configuration, logging and the database for the
// CLI subcommands.
package bootstrap

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/corates/billing/internal/infrastructure/config"
	"github.com/corates/billing/internal/infrastructure/database"
	"github.com/corates/billing/internal/shared/logger"
)

// Options are the flags every subcommand shares.
type Options struct {
	Env        string
	ConfigPath string
}

// ResolvedEnv resolves the environment, letting ENV override the flag.
func (o Options) ResolvedEnv() string {
	if v := os.Getenv("ENV"); v != "" {
		return v
	}
	return o.Env
}

// Load reads the config and initializes the global logger.
func Load(opts Options) (*config.Config, logger.Interface, error) {
	env := opts.ResolvedEnv()

	cfg, err := config.Load(GinMode(env), opts.ConfigPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	if err := logger.Init(&cfg.Logger, cfg.Server.Mode); err != nil {
		return nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	return cfg, logger.NewLogger().With("env", env), nil
}

// OpenDatabase initializes the process-wide connection.
func OpenDatabase(cfg *config.Config) (*gorm.DB, func(), error) {
	if err := database.Init(&cfg.Database); err != nil {
		return nil, nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	closeFn := func() { _ = database.Close() }
	return database.Get(), closeFn, nil
}

// OpenRedis connects and pings Redis. It returns nil without error when no
// host is configured.
func OpenRedis(ctx context.Context, cfg *config.Config) (*redis.Client, error) {
	if cfg.Redis.Host == "" {
		return nil, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.GetAddr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Redis.GetAddr(), err)
	}
	return client, nil
}

// GinMode maps an environment name onto gin's modes.
func GinMode(environment string) string {
	switch environment {
	case "production", "prod", "release":
		return "release"
	case "test", "testing":
		return "test"
	default:
		return "debug"
	}
}
