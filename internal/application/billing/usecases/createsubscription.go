package usecases

import (
	"context"
	"strings"
	"time"

	"github.com/corates/billing/internal/application/billing/dto"
	"github.com/corates/billing/internal/domain/billing"
	"github.com/corates/billing/internal/domain/subscription"
	vo "github.com/corates/billing/internal/domain/subscription/valueobjects"
	"github.com/corates/billing/internal/shared/biztime"
	"github.com/corates/billing/internal/shared/errors"
	"github.com/corates/billing/internal/shared/logger"
)

type CreateSubscriptionCommand struct {
	OrgID                   string
	PlanID                  string
	Status                  string
	PeriodStart             *time.Time
	PeriodEnd               *time.Time
	CancelAtPeriodEnd       bool
	ExternalCustomerRef     string
	ExternalSubscriptionRef string
}

type CreateSubscriptionUseCase struct {
	subscriptionRepo subscription.Repository
	catalog          *billing.Catalog
	notifier         *ChangeNotifier
	clock            biztime.Clock
	logger           logger.Interface
}

func NewCreateSubscriptionUseCase(
	subscriptionRepo subscription.Repository,
	catalog *billing.Catalog,
	notifier *ChangeNotifier,
	clock biztime.Clock,
	logger logger.Interface,
) *CreateSubscriptionUseCase {
	return &CreateSubscriptionUseCase{
		subscriptionRepo: subscriptionRepo,
		catalog:          catalog,
		notifier:         notifier,
		clock:            clock,
		logger:           logger,
	}
}

func (uc *CreateSubscriptionUseCase) Execute(ctx context.Context, cmd CreateSubscriptionCommand) (*dto.SubscriptionDTO, error) {
	if err := requireOrg(strings.TrimSpace(cmd.OrgID)); err != nil {
		return nil, err
	}
	if err := validatePlan(uc.catalog, cmd.PlanID); err != nil {
		return nil, err
	}
	status := vo.StatusActive
	if cmd.Status != "" {
		parsed, err := vo.ParseStatus(cmd.Status)
		if err != nil {
			return nil, errors.NewValidationError(err.Error()).WithField("status")
		}
		status = parsed
	}

	now := uc.clock.Now()
	sub, err := subscription.NewSubscription(subscription.NewParams{
		OrgID:                   cmd.OrgID,
		PlanID:                  cmd.PlanID,
		Status:                  status,
		PeriodStart:             cmd.PeriodStart,
		PeriodEnd:               cmd.PeriodEnd,
		CancelAtPeriodEnd:       cmd.CancelAtPeriodEnd,
		ExternalCustomerRef:     cmd.ExternalCustomerRef,
		ExternalSubscriptionRef: cmd.ExternalSubscriptionRef,
	}, now)
	if err != nil {
		return nil, toAppError(err, "subscription.create")
	}

	if err := uc.subscriptionRepo.Create(ctx, sub); err != nil {
		uc.logger.Errorw("failed to create subscription", "org_id", cmd.OrgID, "error", err)
		return nil, toAppError(err, "subscription.create")
	}

	uc.logger.Infow("subscription created",
		"subscription_id", sub.ID(),
		"org_id", sub.OrgID(),
		"plan_id", sub.PlanID(),
		"status", sub.Status(),
	)
	uc.notifier.Publish(billing.SubscriptionChanged(sub, billing.OriginAdmin, now))
	return dto.ToSubscriptionDTO(sub), nil
}

// validatePlan rejects plan ids the catalog does not define.
func validatePlan(catalog *billing.Catalog, planID string) error {
	planID = strings.TrimSpace(planID)
	if planID == "" {
		return errors.NewValidationError("plan ID is required").WithField("planId")
	}
	if !catalog.HasPlan(planID) {
		return errors.NewValidationError("unknown plan " + planID).WithField("planId")
	}
	return nil
}

// loadOrgSubscription returns the subscription only if it belongs to orgID.
func loadOrgSubscription(ctx context.Context, repo subscription.Repository, orgID, id string) (*subscription.Subscription, error) {
	sub, err := repo.GetByID(ctx, id)
	if err != nil {
		return nil, toAppError(err, "subscription.get")
	}
	if sub.OrgID() != orgID {
		return nil, errors.NewNotFoundError("subscription not found")
	}
	return sub, nil
}
