package pubsub

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corates/billing/internal/domain/billing"
	"github.com/corates/billing/internal/shared/logger"
)

type fakePublisher struct {
	channel string
	payload []byte
	err     error
}

func (f *fakePublisher) Publish(_ context.Context, channel string, message interface{}) *redis.IntCmd {
	f.channel = channel
	f.payload, _ = message.([]byte)
	if f.err != nil {
		return redis.NewIntResult(0, f.err)
	}
	return redis.NewIntResult(1, nil)
}

func newTestBus(pub publisher, channel string) *RedisChangeEventBus {
	if channel == "" {
		channel = DefaultChangeChannel
	}
	return &RedisChangeEventBus{pub: pub, channel: channel, logger: logger.NewNopLogger()}
}

func TestRedisChangeEventBus_Notify(t *testing.T) {
	pub := &fakePublisher{}
	bus := newTestBus(pub, "")
	event := billing.ChangeEvent{
		OrgID:          "org-1",
		SubscriptionID: "sub_abc",
		Status:         "active",
		PlanID:         "team",
		Source:         billing.OriginWebhook,
		OccurredAt:     time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}

	require.NoError(t, bus.Notify(context.Background(), event))
	assert.Equal(t, DefaultChangeChannel, pub.channel)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(pub.payload, &decoded))
	assert.Equal(t, "org-1", decoded["orgId"])
	assert.Equal(t, "sub_abc", decoded["subscriptionId"])
	assert.Equal(t, "webhook", decoded["source"])
	assert.NotContains(t, decoded, "grantId")
}

func TestRedisChangeEventBus_NotifyError(t *testing.T) {
	bus := newTestBus(&fakePublisher{err: errors.New("connection refused")}, "custom")

	err := bus.Notify(context.Background(), billing.ChangeEvent{OrgID: "org-1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
	assert.Equal(t, "custom", bus.Channel())
}

func TestDecodeChangeEvent(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		wantErr bool
	}{
		{name: "valid", payload: `{"orgId":"org-1","status":"active","source":"admin","occurredAt":"2026-03-01T12:00:00Z"}`},
		{name: "missing org", payload: `{"status":"active"}`, wantErr: true},
		{name: "not json", payload: `nope`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			event, err := decodeChangeEvent(tt.payload)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "org-1", event.OrgID)
			assert.Equal(t, billing.OriginAdmin, event.Source)
		})
	}
}
