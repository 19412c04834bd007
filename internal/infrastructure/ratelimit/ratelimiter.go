package ratelimit

import (
	"context"
	"time"
)

// Config caps requests per sliding window. Zero disables a window.
type Config struct {
	RequestsPerMinute int
	RequestsPerHour   int
}

// RateLimiter decides whether a caller identified by key may proceed.
type RateLimiter interface {
	Allow(ctx context.Context, key string, cfg Config) (bool, error)
	Count(ctx context.Context, key string, window time.Duration) (int64, error)
	Reset(ctx context.Context, key string) error
}
