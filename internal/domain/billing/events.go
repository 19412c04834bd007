package billing

import (
	"time"

	"github.com/corates/billing/internal/domain/grant"
	"github.com/corates/billing/internal/domain/subscription"
)

// ChangeOrigin says which path mutated billing state.
type ChangeOrigin string

const (
	OriginWebhook ChangeOrigin = "webhook"
	OriginAdmin   ChangeOrigin = "admin"
)

// ChangeEvent announces a subscription or grant mutation for one org.
type ChangeEvent struct {
	OrgID          string       `json:"orgId"`
	SubscriptionID string       `json:"subscriptionId,omitempty"`
	GrantID        string       `json:"grantId,omitempty"`
	Status         string       `json:"status"`
	PlanID         string       `json:"planId,omitempty"`
	Source         ChangeOrigin `json:"source"`
	OccurredAt     time.Time    `json:"occurredAt"`
}

// IsCancellation reports whether the change ended a subscription.
func (e ChangeEvent) IsCancellation() bool {
	return e.SubscriptionID != "" && e.Status == "canceled"
}

// SubscriptionChanged describes the current state of s.
func SubscriptionChanged(s *subscription.Subscription, origin ChangeOrigin, at time.Time) ChangeEvent {
	return ChangeEvent{
		OrgID:          s.OrgID(),
		SubscriptionID: s.ID(),
		Status:         s.Status().String(),
		PlanID:         s.PlanID(),
		Source:         origin,
		OccurredAt:     at.UTC(),
	}
}

// GrantChanged describes the current state of g; Status is the grant state.
func GrantChanged(g *grant.Grant, origin ChangeOrigin, at time.Time) ChangeEvent {
	return ChangeEvent{
		OrgID:      g.OrgID(),
		GrantID:    g.ID(),
		Status:     string(g.State()),
		Source:     origin,
		OccurredAt: at.UTC(),
	}
}
