package usecases

import (
	"context"
	"strings"
	"time"

	"github.com/corates/billing/internal/domain/billing"
	"github.com/corates/billing/internal/domain/grant"
	"github.com/corates/billing/internal/domain/subscription"
	"github.com/corates/billing/internal/infrastructure/metrics"
	"github.com/corates/billing/internal/shared/biztime"
	"github.com/corates/billing/internal/shared/logger"
)

// ResolveAccessUseCase loads an org's records and resolves its effective plan.
// Nothing is cached: every call reads both stores.
type ResolveAccessUseCase struct {
	subscriptionRepo subscription.Repository
	grantRepo        grant.Repository
	resolver         *billing.Resolver
	clock            biztime.Clock
	logger           logger.Interface
}

func NewResolveAccessUseCase(
	subscriptionRepo subscription.Repository,
	grantRepo grant.Repository,
	resolver *billing.Resolver,
	clock biztime.Clock,
	logger logger.Interface,
) *ResolveAccessUseCase {
	return &ResolveAccessUseCase{
		subscriptionRepo: subscriptionRepo,
		grantRepo:        grantRepo,
		resolver:         resolver,
		clock:            clock,
		logger:           logger,
	}
}

// Execute resolves orgID at the current instant.
func (uc *ResolveAccessUseCase) Execute(ctx context.Context, orgID string) (billing.Resolved, error) {
	return uc.ResolveAt(ctx, orgID, uc.clock.Now())
}

// ResolveAt resolves orgID as of now.
func (uc *ResolveAccessUseCase) ResolveAt(ctx context.Context, orgID string, now time.Time) (billing.Resolved, error) {
	res, _, _, err := uc.resolveWithHistory(ctx, orgID, now)
	return res, err
}

func (uc *ResolveAccessUseCase) resolveWithHistory(ctx context.Context, orgID string, now time.Time) (billing.Resolved, []*subscription.Subscription, []*grant.Grant, error) {
	orgID = strings.TrimSpace(orgID)
	if err := requireOrg(orgID); err != nil {
		return billing.Resolved{}, nil, nil, err
	}

	subs, err := uc.subscriptionRepo.ListByOrg(ctx, orgID)
	if err != nil {
		uc.logger.Errorw("failed to load subscriptions", "org_id", orgID, "error", err)
		return billing.Resolved{}, nil, nil, toAppError(err, "subscription.list_by_org")
	}
	grants, err := uc.grantRepo.ListByOrg(ctx, orgID)
	if err != nil {
		uc.logger.Errorw("failed to load grants", "org_id", orgID, "error", err)
		return billing.Resolved{}, nil, nil, toAppError(err, "grant.list_by_org")
	}

	res := uc.resolver.Resolve(subs, grants, now)
	if res.UnknownPlan {
		uc.logger.Warnw("subscription references unknown plan, default limits applied",
			"org_id", orgID,
			"plan_id", res.EffectivePlanID,
			"subscription_id", res.Subscription.ID(),
			"catalog_version", res.CatalogVersion,
		)
	}
	metrics.AccessResolutionsTotal.WithLabelValues(string(res.Source)).Inc()
	return res, subs, grants, nil
}

func (uc *ResolveAccessUseCase) Catalog() *billing.Catalog {
	return uc.resolver.Catalog()
}
