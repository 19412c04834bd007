package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/corates/billing/internal/application/billing/testutil"
	"github.com/corates/billing/internal/infrastructure/ratelimit"
	"github.com/corates/billing/internal/shared/errors"
)

type fakeLimiter struct {
	allow func(key string, cfg ratelimit.Config) (bool, error)
	keys  []string
}

func (f *fakeLimiter) Allow(_ context.Context, key string, cfg ratelimit.Config) (bool, error) {
	f.keys = append(f.keys, key)
	return f.allow(key, cfg)
}

func (f *fakeLimiter) Count(context.Context, string, time.Duration) (int64, error) { return 0, nil }

func (f *fakeLimiter) Reset(context.Context, string) error { return nil }

func TestRateLimiter_Limit(t *testing.T) {
	tests := []struct {
		name       string
		allow      func(string, ratelimit.Config) (bool, error)
		wantStatus int
	}{
		{"allowed", func(string, ratelimit.Config) (bool, error) { return true, nil }, http.StatusOK},
		{"exceeded", func(string, ratelimit.Config) (bool, error) { return false, nil }, http.StatusTooManyRequests},
		{"limiter down fails open", func(string, ratelimit.Config) (bool, error) { return false, assert.AnError }, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			limiter := &fakeLimiter{allow: tt.allow}
			rl := NewRateLimiter(limiter, "webhook", ratelimit.Config{RequestsPerMinute: 10}, testutil.NewMockLogger())

			engine := gin.New()
			engine.POST("/hook", rl.Limit(), func(c *gin.Context) { c.Status(http.StatusOK) })

			req := httptest.NewRequest(http.MethodPost, "/hook", nil)
			req.RemoteAddr = "203.0.113.7:4242"
			w := httptest.NewRecorder()
			engine.ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, []string{"webhook:ip:203.0.113.7"}, limiter.keys)
			if tt.wantStatus == http.StatusTooManyRequests {
				assert.Contains(t, w.Body.String(), errors.ReasonRateLimited)
			}
		})
	}
}
