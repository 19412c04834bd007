package usecases

import (
	"context"
	"fmt"

	"github.com/corates/billing/internal/domain/ledger"
	"github.com/corates/billing/internal/domain/subscription"
	vo "github.com/corates/billing/internal/domain/subscription/valueobjects"
	"github.com/corates/billing/internal/infrastructure/stripe"
)

const checkoutModeSubscription = "subscription"

// handleCheckoutCompleted ties a finished checkout to its org. When no local
// subscription carries the session's refs yet, an incomplete row is created so
// the later subscription events have something to update.
func (uc *HandleStripeWebhookUseCase) handleCheckoutCompleted(ctx context.Context, event stripe.Event) (ledger.Links, error) {
	session, err := stripe.DecodeCheckoutSession(event.Object)
	if err != nil {
		return ledger.Links{}, err
	}
	links := ledger.Links{
		OrgID:                   session.OrgID(),
		ExternalCustomerRef:     session.Customer,
		ExternalSubscriptionRef: session.Subscription,
		ExternalCheckoutRef:     session.ID,
	}
	if links.OrgID == "" {
		return links, ErrUnlinkedEvent
	}
	if session.Mode != "" && session.Mode != checkoutModeSubscription {
		return links, nil
	}

	existing, err := uc.findExisting(ctx, session.Customer, session.Subscription)
	if err != nil {
		return links, err
	}
	if existing != nil {
		if existing.OrgID() != links.OrgID {
			return links, fmt.Errorf("checkout org %s does not match subscription %s owned by %s",
				links.OrgID, existing.ID(), existing.OrgID())
		}
		return links, nil
	}

	planID := session.Metadata["plan_id"]
	if planID == "" || !uc.catalog.HasPlan(planID) {
		planID = uc.catalog.DefaultPlan().ID
	}
	sub, err := subscription.NewSubscription(subscription.NewParams{
		OrgID:                   links.OrgID,
		PlanID:                  planID,
		Status:                  vo.StatusIncomplete,
		ExternalCustomerRef:     session.Customer,
		ExternalSubscriptionRef: session.Subscription,
	}, uc.clock.Now())
	if err != nil {
		return links, err
	}
	if err := uc.save(ctx, sub, true); err != nil {
		return links, err
	}
	uc.logger.Infow("incomplete subscription created from checkout",
		"subscription_id", sub.ID(),
		"org_id", sub.OrgID(),
		"checkout_id", session.ID,
	)
	return links, nil
}

// resolvePlan prefers an explicit plan id in metadata over the price mapping.
func (uc *HandleStripeWebhookUseCase) resolvePlan(s stripe.Subscription) string {
	if hint := s.PlanHint(); hint != "" {
		return hint
	}
	return uc.pricePlans[s.FirstPriceID()]
}

func externalState(event stripe.Event, s stripe.Subscription, status vo.SubscriptionStatus, planID string) subscription.ExternalState {
	return subscription.ExternalState{
		ObservedAt:              event.Created,
		PlanID:                  planID,
		Status:                  status,
		PeriodStart:             s.PeriodStart(),
		PeriodEnd:               s.PeriodEnd(),
		CancelAtPeriodEnd:       s.CancelAtPeriodEnd,
		CanceledAt:              s.CanceledAtTime(),
		EndedAt:                 s.EndedAtTime(),
		ExternalCustomerRef:     s.Customer,
		ExternalSubscriptionRef: s.ID,
	}
}

// handleSubscriptionUpsert mirrors customer.subscription.created/updated onto
// the local row, creating it when the event carries an org id.
func (uc *HandleStripeWebhookUseCase) handleSubscriptionUpsert(ctx context.Context, event stripe.Event) (ledger.Links, error) {
	remote, err := stripe.DecodeSubscription(event.Object)
	if err != nil {
		return ledger.Links{}, err
	}
	links := ledger.Links{
		OrgID:                   remote.OrgID(),
		ExternalCustomerRef:     remote.Customer,
		ExternalSubscriptionRef: remote.ID,
	}
	status, err := vo.ParseStatus(remote.Status)
	if err != nil {
		return links, err
	}
	planID := uc.resolvePlan(remote)
	state := externalState(event, remote, status, planID)
	now := uc.clock.Now()

	existing, err := uc.findExisting(ctx, remote.Customer, remote.ID)
	if err != nil {
		return links, err
	}

	if existing == nil {
		if links.OrgID == "" {
			return links, ErrUnlinkedEvent
		}
		if planID == "" {
			return links, fmt.Errorf("no plan mapped for price %q", remote.FirstPriceID())
		}
		sub, err := subscription.NewSubscription(subscription.NewParams{
			OrgID:                   links.OrgID,
			PlanID:                  planID,
			Status:                  status,
			ExternalCustomerRef:     remote.Customer,
			ExternalSubscriptionRef: remote.ID,
		}, now)
		if err != nil {
			return links, err
		}
		if _, err := sub.ApplyExternalState(state, now); err != nil {
			return links, err
		}
		return links, uc.save(ctx, sub, true)
	}

	if links.OrgID != "" && links.OrgID != existing.OrgID() {
		uc.logger.Warnw("subscription metadata org differs from local owner",
			"subscription_id", existing.ID(),
			"metadata_org_id", links.OrgID,
			"org_id", existing.OrgID(),
		)
	}
	links.OrgID = existing.OrgID()

	changed, err := existing.ApplyExternalState(state, now)
	if err != nil {
		return links, err
	}
	if !changed {
		uc.logger.Debugw("subscription event left state unchanged",
			"subscription_id", existing.ID(),
			"event_id", event.ID,
			"stale", existing.IsStale(event.Created),
		)
		return links, nil
	}
	return links, uc.save(ctx, existing, false)
}

// handleSubscriptionDeleted marks the local row canceled. A delete for an
// unknown subscription fails so reconciliation can surface it.
func (uc *HandleStripeWebhookUseCase) handleSubscriptionDeleted(ctx context.Context, event stripe.Event) (ledger.Links, error) {
	remote, err := stripe.DecodeSubscription(event.Object)
	if err != nil {
		return ledger.Links{}, err
	}
	links := ledger.Links{
		OrgID:                   remote.OrgID(),
		ExternalCustomerRef:     remote.Customer,
		ExternalSubscriptionRef: remote.ID,
	}

	existing, err := uc.findExisting(ctx, remote.Customer, remote.ID)
	if err != nil {
		return links, err
	}
	if existing == nil {
		return links, fmt.Errorf("no local subscription for %s", remote.ID)
	}
	links.OrgID = existing.OrgID()

	state := externalState(event, remote, vo.StatusCanceled, "")
	if state.EndedAt == nil && !event.Created.IsZero() {
		ended := event.Created
		state.EndedAt = &ended
	}
	changed, err := existing.ApplyExternalState(state, uc.clock.Now())
	if err != nil {
		return links, err
	}
	if !changed {
		return links, nil
	}
	return links, uc.save(ctx, existing, false)
}
