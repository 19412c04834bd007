// Package stripe verifies processor webhooks and reads live subscription state.
package stripe

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	stripelib "github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"

	"github.com/corates/billing/internal/shared/config"
)

var (
	ErrWebhookSecretMissing = errors.New("webhook secret not configured")
	ErrSignatureMissing     = errors.New("missing Stripe signature")
	ErrInvalidSignature     = errors.New("invalid Stripe signature")
	ErrAPIKeyMissing        = errors.New("stripe secret key not configured")
)

// LiveSubscription is the processor's current view of one subscription.
type LiveSubscription struct {
	ID       string
	Status   string
	Customer string
}

type fetchFunc func(ctx context.Context, id string) (*LiveSubscription, error)

// Gateway wraps stripe-go for signature checks and read-only API calls.
type Gateway struct {
	webhookSecret string
	fetch         fetchFunc
}

func NewGateway(cfg config.StripeConfig) *Gateway {
	g := &Gateway{webhookSecret: strings.TrimSpace(cfg.WebhookSecret)}
	if key := strings.TrimSpace(cfg.SecretKey); key != "" {
		client := stripelib.NewClient(key)
		g.fetch = func(ctx context.Context, id string) (*LiveSubscription, error) {
			sub, err := client.V1Subscriptions.Retrieve(ctx, id, nil)
			if err != nil {
				return nil, err
			}
			live := &LiveSubscription{ID: sub.ID, Status: string(sub.Status)}
			if sub.Customer != nil {
				live.Customer = sub.Customer.ID
			}
			return live, nil
		}
	}
	return g
}

// VerifyEvent checks sigHeader against the payload and decodes the event.
func (g *Gateway) VerifyEvent(payload []byte, sigHeader string) (Event, error) {
	if g.webhookSecret == "" {
		return Event{}, ErrWebhookSecretMissing
	}
	if strings.TrimSpace(sigHeader) == "" {
		return Event{}, ErrSignatureMissing
	}

	event, err := webhook.ConstructEventWithOptions(payload, sigHeader, g.webhookSecret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return Event{}, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	e := Event{
		ID:       event.ID,
		Type:     string(event.Type),
		Livemode: event.Livemode,
	}
	if event.Created > 0 {
		e.Created = time.Unix(event.Created, 0).UTC()
	}
	if event.Data != nil {
		e.Object = event.Data.Raw
	}
	return e, nil
}

// FetchSubscription reads the live subscription. It needs a secret key.
func (g *Gateway) FetchSubscription(ctx context.Context, subscriptionRef string) (*LiveSubscription, error) {
	if g.fetch == nil {
		return nil, ErrAPIKeyMissing
	}
	if strings.TrimSpace(subscriptionRef) == "" {
		return nil, fmt.Errorf("subscription reference is required")
	}
	return g.fetch(ctx, subscriptionRef)
}
