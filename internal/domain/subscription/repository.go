package subscription

import (
	"context"

	vo "github.com/corates/billing/internal/domain/subscription/valueobjects"
)

// Repository persists subscriptions. There is no delete: canceled rows stay
// as history.
type Repository interface {
	Create(ctx context.Context, subscription *Subscription) error
	Update(ctx context.Context, subscription *Subscription) error
	GetByID(ctx context.Context, id string) (*Subscription, error)
	// ListByOrg returns every row for the org, newest first.
	ListByOrg(ctx context.Context, orgID string) ([]*Subscription, error)
	// FindByExternalRefs returns the newest row matching the subscription ref.
	// The customer ref only matches an incomplete row that has no subscription
	// ref yet. ErrSubscriptionNotFound when none match.
	FindByExternalRefs(ctx context.Context, customerRef, subscriptionRef string) (*Subscription, error)
	ExistsByExternalRefs(ctx context.Context, customerRef, subscriptionRef string) (bool, error)
	// ListByStatuses returns at most limit rows in any of statuses, oldest first.
	ListByStatuses(ctx context.Context, statuses []vo.SubscriptionStatus, limit int) ([]*Subscription, error)
}
