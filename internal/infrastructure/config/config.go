package config

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/spf13/viper"

	sharedConfig "github.com/corates/billing/internal/shared/config"
)

type Config struct {
	Server       sharedConfig.ServerConfig       `mapstructure:"server"`
	Database     sharedConfig.DatabaseConfig     `mapstructure:"database"`
	Logger       sharedConfig.LoggerConfig       `mapstructure:"logger"`
	Auth         sharedConfig.AuthConfig         `mapstructure:"auth"`
	Redis        sharedConfig.RedisConfig        `mapstructure:"redis"`
	Stripe       sharedConfig.StripeConfig       `mapstructure:"stripe"`
	Billing      sharedConfig.BillingConfig      `mapstructure:"billing"`
	Notification sharedConfig.NotificationConfig `mapstructure:"notification"`
	RateLimit    sharedConfig.RateLimitConfig    `mapstructure:"ratelimit"`
	Sentry       sharedConfig.SentryConfig       `mapstructure:"sentry"`
	Metrics      sharedConfig.MetricsConfig      `mapstructure:"metrics"`
}

var (
	appConfig   *Config
	appConfigMu sync.RWMutex
)

// Load loads configuration from file and environment variables. A missing
// config file is tolerated; defaults and BILLING_* variables still apply.
func Load(env string, configPath string) (*Config, error) {
	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath("../configs")
		v.AddConfigPath("../../configs")
	}

	v.SetEnvPrefix("BILLING")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configPath != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if env != "" && env != "default" {
		v.Set("server.mode", env)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	appConfigMu.Lock()
	appConfig = &config
	appConfigMu.Unlock()

	return &config, nil
}

// Get returns the loaded configuration
func Get() *Config {
	appConfigMu.RLock()
	defer appConfigMu.RUnlock()
	return appConfig
}

// Validate rejects settings the service cannot run with.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "mysql", "postgres", "sqlite":
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}
	if c.Billing.PastDueGraceHours < 0 {
		return fmt.Errorf("billing.past_due_grace_hours must be >= 0")
	}
	if c.Billing.ScanLimit < 1 {
		return fmt.Errorf("billing.scan_limit must be positive")
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.allowed_origins", []string{"http://localhost:5173"})

	v.SetDefault("database.driver", "mysql")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 3306)
	v.SetDefault("database.username", "root")
	v.SetDefault("database.password", "password")
	v.SetDefault("database.database", "billing_dev")
	v.SetDefault("database.max_idle_conns", 10)
	v.SetDefault("database.max_open_conns", 50)
	v.SetDefault("database.conn_max_lifetime", 60)

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.output_path", "stdout")

	v.SetDefault("auth.jwt.secret", "change-me-in-production")
	v.SetDefault("auth.jwt.issuer", "")

	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("stripe.secret_key", "")
	v.SetDefault("stripe.webhook_secret", "")

	v.SetDefault("billing.past_due_grace_hours", 0)
	v.SetDefault("billing.catalog_file", "")
	v.SetDefault("billing.incomplete_threshold_minutes", 30)
	v.SetDefault("billing.checkout_no_sub_threshold_minutes", 15)
	v.SetDefault("billing.processing_lag_threshold_minutes", 5)
	v.SetDefault("billing.scan_limit", 100)
	v.SetDefault("billing.external_check_concurrency", 4)
	v.SetDefault("billing.external_check_timeout_seconds", 10)
	v.SetDefault("billing.alert_cooldown_minutes", 60)

	v.SetDefault("notification.redis_channel", "billing:changes")
	v.SetDefault("notification.smtp.host", "localhost")
	v.SetDefault("notification.smtp.port", 1025)
	v.SetDefault("notification.smtp.from_address", "billing@corates.local")
	v.SetDefault("notification.smtp.from_name", "CoRATES Billing")

	v.SetDefault("ratelimit.webhook_requests_per_minute", 600)

	v.SetDefault("metrics.enabled", true)
}
