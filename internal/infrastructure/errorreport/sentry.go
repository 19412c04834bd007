// Package errorreport forwards server-side failures to Sentry.
package errorreport

import (
	"fmt"
	"os"
	"time"

	"github.com/getsentry/sentry-go"
	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-gonic/gin"

	"github.com/corates/billing/internal/shared/config"
)

const serviceTag = "billing"

// Init configures the global Sentry client. It returns a flush func to defer,
// and reports false when no DSN is configured.
func Init(cfg config.SentryConfig) (func(), bool, error) {
	if cfg.DSN == "" {
		return func() {}, false, nil
	}

	opts := sentry.ClientOptions{
		Dsn:         cfg.DSN,
		Environment: cfg.Environment,
		Release:     cfg.Release,
	}
	if host, _ := os.Hostname(); host != "" {
		opts.ServerName = host
	}

	if err := sentry.Init(opts); err != nil {
		return func() {}, false, fmt.Errorf("sentry initialization failed: %w", err)
	}
	sentry.ConfigureScope(func(scope *sentry.Scope) {
		scope.SetTag("service", serviceTag)
	})

	return func() { sentry.Flush(2 * time.Second) }, true, nil
}

// GinMiddleware attaches a per-request hub and recovers panics into Sentry.
func GinMiddleware() gin.HandlerFunc {
	return sentrygin.New(sentrygin.Options{
		Repanic: true,
		Timeout: 2 * time.Second,
	})
}

// Capture reports err, enriched with request metadata when c is set.
func Capture(c *gin.Context, err error, extras map[string]interface{}) {
	if err == nil {
		return
	}

	hub := sentry.CurrentHub()
	if c != nil {
		if ctxHub := sentrygin.GetHubFromContext(c); ctxHub != nil {
			hub = ctxHub
		}
	}
	if hub == nil || hub.Client() == nil {
		return
	}

	hub.WithScope(func(scope *sentry.Scope) {
		scope.SetTag("service", serviceTag)
		if c != nil {
			scope.SetTag("http.method", c.Request.Method)
			scope.SetTag("http.path", c.FullPath())
			scope.SetExtra("client_ip", c.ClientIP())
		}
		for k, v := range extras {
			scope.SetExtra(k, v)
		}
		hub.CaptureException(err)
	})
}

// CapturePanic converts a recovered panic into a Sentry event.
func CapturePanic(location string, recovered interface{}) {
	if recovered == nil {
		return
	}
	Capture(nil, fmt.Errorf("panic recovered in %s: %v", location, recovered), map[string]interface{}{
		"location": location,
	})
}
