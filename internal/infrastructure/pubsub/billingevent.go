package pubsub

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/corates/billing/internal/domain/billing"
	"github.com/corates/billing/internal/shared/logger"
)

// DefaultChangeChannel is used when no channel is configured.
const DefaultChangeChannel = "billing:changes"

// ChangeEventHandler is called for each event received by Subscribe.
type ChangeEventHandler func(ctx context.Context, event billing.ChangeEvent)

type publisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// RedisChangeEventBus fans billing change events out over Redis Pub/Sub so
// other services can refresh cached access decisions.
type RedisChangeEventBus struct {
	client  *redis.Client
	pub     publisher
	channel string
	logger  logger.Interface
}

// NewRedisChangeEventBus creates a bus on channel, or DefaultChangeChannel when empty.
func NewRedisChangeEventBus(client *redis.Client, channel string, logger logger.Interface) *RedisChangeEventBus {
	if channel == "" {
		channel = DefaultChangeChannel
	}
	return &RedisChangeEventBus{
		client:  client,
		pub:     client,
		channel: channel,
		logger:  logger,
	}
}

func (b *RedisChangeEventBus) Channel() string {
	return b.channel
}

// Notify publishes event. Subscribers that are not listening miss it.
func (b *RedisChangeEventBus) Notify(ctx context.Context, event billing.ChangeEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	receivers, err := b.pub.Publish(ctx, b.channel, data).Result()
	if err != nil {
		b.logger.Errorw("failed to publish billing change event",
			"org_id", event.OrgID,
			"subscription_id", event.SubscriptionID,
			"grant_id", event.GrantID,
			"error", err,
		)
		return fmt.Errorf("failed to publish event: %w", err)
	}

	b.logger.Debugw("billing change event published",
		"org_id", event.OrgID,
		"status", event.Status,
		"receivers", receivers,
	)
	return nil
}

// Subscribe blocks delivering events to handler until ctx is done.
func (b *RedisChangeEventBus) Subscribe(ctx context.Context, handler ChangeEventHandler) error {
	sub := b.client.Subscribe(ctx, b.channel)
	defer sub.Close()

	// Wait for subscription confirmation
	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("failed to subscribe to channel: %w", err)
	}

	b.logger.Infow("subscribed to billing change events", "channel", b.channel)

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			b.logger.Infow("billing change subscriber stopped", "reason", ctx.Err())
			return ctx.Err()

		case msg, ok := <-ch:
			if !ok {
				b.logger.Warnw("billing change channel closed")
				return nil
			}

			event, err := decodeChangeEvent(msg.Payload)
			if err != nil {
				b.logger.Warnw("failed to unmarshal billing change event",
					"payload", msg.Payload,
					"error", err,
				)
				continue
			}
			handler(ctx, event)
		}
	}
}

func decodeChangeEvent(payload string) (billing.ChangeEvent, error) {
	var event billing.ChangeEvent
	if err := json.Unmarshal([]byte(payload), &event); err != nil {
		return billing.ChangeEvent{}, err
	}
	if event.OrgID == "" {
		return billing.ChangeEvent{}, fmt.Errorf("event without orgId")
	}
	return event, nil
}
