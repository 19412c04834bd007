package usecases

import (
	"context"
	"time"

	"github.com/corates/billing/internal/application/billing/dto"
	"github.com/corates/billing/internal/domain/billing"
	"github.com/corates/billing/internal/domain/subscription"
	vo "github.com/corates/billing/internal/domain/subscription/valueobjects"
	"github.com/corates/billing/internal/shared/biztime"
	"github.com/corates/billing/internal/shared/errors"
	"github.com/corates/billing/internal/shared/logger"
)

// UpdateSubscriptionCommand is a partial edit; nil fields are unchanged.
type UpdateSubscriptionCommand struct {
	OrgID             string
	SubscriptionID    string
	PlanID            *string
	Status            *string
	PeriodStart       *time.Time
	PeriodEnd         *time.Time
	CancelAtPeriodEnd *bool
}

type UpdateSubscriptionUseCase struct {
	subscriptionRepo subscription.Repository
	catalog          *billing.Catalog
	notifier         *ChangeNotifier
	clock            biztime.Clock
	logger           logger.Interface
}

func NewUpdateSubscriptionUseCase(
	subscriptionRepo subscription.Repository,
	catalog *billing.Catalog,
	notifier *ChangeNotifier,
	clock biztime.Clock,
	logger logger.Interface,
) *UpdateSubscriptionUseCase {
	return &UpdateSubscriptionUseCase{
		subscriptionRepo: subscriptionRepo,
		catalog:          catalog,
		notifier:         notifier,
		clock:            clock,
		logger:           logger,
	}
}

func (uc *UpdateSubscriptionUseCase) Execute(ctx context.Context, cmd UpdateSubscriptionCommand) (*dto.SubscriptionDTO, error) {
	if err := requireOrg(cmd.OrgID); err != nil {
		return nil, err
	}
	params := subscription.UpdateParams{
		PlanID:            cmd.PlanID,
		PeriodStart:       cmd.PeriodStart,
		PeriodEnd:         cmd.PeriodEnd,
		CancelAtPeriodEnd: cmd.CancelAtPeriodEnd,
	}
	if cmd.PlanID != nil {
		if err := validatePlan(uc.catalog, *cmd.PlanID); err != nil {
			return nil, err
		}
	}
	if cmd.Status != nil {
		status, err := vo.ParseStatus(*cmd.Status)
		if err != nil {
			return nil, errors.NewValidationError(err.Error()).WithField("status")
		}
		params.Status = &status
	}

	sub, err := loadOrgSubscription(ctx, uc.subscriptionRepo, cmd.OrgID, cmd.SubscriptionID)
	if err != nil {
		return nil, err
	}

	now := uc.clock.Now()
	if err := sub.Update(params, now); err != nil {
		return nil, toAppError(err, "subscription.update")
	}
	if err := uc.subscriptionRepo.Update(ctx, sub); err != nil {
		uc.logger.Errorw("failed to update subscription", "subscription_id", sub.ID(), "error", err)
		return nil, toAppError(err, "subscription.update")
	}

	uc.logger.Infow("subscription updated",
		"subscription_id", sub.ID(),
		"org_id", sub.OrgID(),
		"plan_id", sub.PlanID(),
		"status", sub.Status(),
	)
	uc.notifier.Publish(billing.SubscriptionChanged(sub, billing.OriginAdmin, now))
	return dto.ToSubscriptionDTO(sub), nil
}
