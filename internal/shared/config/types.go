package config

import (
	"fmt"
	"time"
)

type ServerConfig struct {
	Host           string   `mapstructure:"host"`
	Port           int      `mapstructure:"port"`
	Mode           string   `mapstructure:"mode"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

func (s *ServerConfig) GetAddr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

type DatabaseConfig struct {
	// Driver is one of mysql, postgres or sqlite.
	Driver          string `mapstructure:"driver"`
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	Username        string `mapstructure:"username"`
	Password        string `mapstructure:"password"`
	Database        string `mapstructure:"database"`
	SSLMode         string `mapstructure:"ssl_mode"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"`
}

// GetDSN builds the driver-specific connection string. For sqlite the
// Database field is the file path (or ":memory:").
func (d *DatabaseConfig) GetDSN() string {
	switch d.Driver {
	case "postgres":
		sslMode := d.SSLMode
		if sslMode == "" {
			sslMode = "disable"
		}
		return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s TimeZone=UTC",
			d.Host, d.Port, d.Username, d.Password, d.Database, sslMode)
	case "sqlite":
		return d.Database
	default:
		return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&collation=utf8mb4_general_ci&parseTime=true&loc=UTC",
			d.Username, d.Password, d.Host, d.Port, d.Database)
	}
}

type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	OutputPath string `mapstructure:"output_path"`
}

type JWTConfig struct {
	Secret string `mapstructure:"secret"`
	Issuer string `mapstructure:"issuer"`
}

type AuthConfig struct {
	JWT JWTConfig `mapstructure:"jwt"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

func (r *RedisConfig) GetAddr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

type StripeConfig struct {
	SecretKey     string `mapstructure:"secret_key"`
	WebhookSecret string `mapstructure:"webhook_secret"`
	// PricePlans maps Stripe price ids to catalog plan ids.
	PricePlans map[string]string `mapstructure:"price_plans"`
}

// BillingConfig holds resolution and reconciliation knobs.
type BillingConfig struct {
	// PastDueGraceHours caps how long a past_due subscription keeps granting
	// access after its period ends. Zero means no cap.
	PastDueGraceHours           int    `mapstructure:"past_due_grace_hours"`
	CatalogFile                 string `mapstructure:"catalog_file"`
	IncompleteThresholdMinutes  int    `mapstructure:"incomplete_threshold_minutes"`
	CheckoutNoSubThresholdMins  int    `mapstructure:"checkout_no_sub_threshold_minutes"`
	ProcessingLagThresholdMins  int    `mapstructure:"processing_lag_threshold_minutes"`
	ScanLimit                   int    `mapstructure:"scan_limit"`
	ExternalCheckConcurrency    int    `mapstructure:"external_check_concurrency"`
	ExternalCheckTimeoutSeconds int    `mapstructure:"external_check_timeout_seconds"`
	// AlertCooldownMinutes suppresses re-mailing a critical finding across
	// reconcile --notify runs. Needs Redis.
	AlertCooldownMinutes int `mapstructure:"alert_cooldown_minutes"`
}

func (b *BillingConfig) PastDueGrace() time.Duration {
	return time.Duration(b.PastDueGraceHours) * time.Hour
}

type SMTPConfig struct {
	Host        string `mapstructure:"host"`
	Port        int    `mapstructure:"port"`
	Username    string `mapstructure:"username"`
	Password    string `mapstructure:"password"`
	FromAddress string `mapstructure:"from_address"`
	FromName    string `mapstructure:"from_name"`
}

type NotificationConfig struct {
	RedisChannel  string     `mapstructure:"redis_channel"`
	OpsRecipients []string   `mapstructure:"ops_recipients"`
	SMTP          SMTPConfig `mapstructure:"smtp"`
}

type RateLimitConfig struct {
	WebhookRequestsPerMinute int `mapstructure:"webhook_requests_per_minute"`
}

type SentryConfig struct {
	DSN         string `mapstructure:"dsn"`
	Environment string `mapstructure:"environment"`
	Release     string `mapstructure:"release"`
}

type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
}
