package usecases

import (
	"context"

	"github.com/corates/billing/internal/application/billing/dto"
	"github.com/corates/billing/internal/domain/billing"
	"github.com/corates/billing/internal/domain/subscription"
	"github.com/corates/billing/internal/shared/biztime"
	"github.com/corates/billing/internal/shared/logger"
)

type CancelSubscriptionCommand struct {
	OrgID          string
	SubscriptionID string
}

// CancelSubscriptionUseCase soft-cancels a subscription. The row is kept.
type CancelSubscriptionUseCase struct {
	subscriptionRepo subscription.Repository
	notifier         *ChangeNotifier
	clock            biztime.Clock
	logger           logger.Interface
}

func NewCancelSubscriptionUseCase(
	subscriptionRepo subscription.Repository,
	notifier *ChangeNotifier,
	clock biztime.Clock,
	logger logger.Interface,
) *CancelSubscriptionUseCase {
	return &CancelSubscriptionUseCase{
		subscriptionRepo: subscriptionRepo,
		notifier:         notifier,
		clock:            clock,
		logger:           logger,
	}
}

func (uc *CancelSubscriptionUseCase) Execute(ctx context.Context, cmd CancelSubscriptionCommand) (*dto.SubscriptionDTO, error) {
	if err := requireOrg(cmd.OrgID); err != nil {
		return nil, err
	}
	sub, err := loadOrgSubscription(ctx, uc.subscriptionRepo, cmd.OrgID, cmd.SubscriptionID)
	if err != nil {
		return nil, err
	}

	now := uc.clock.Now()
	if !sub.Cancel(now) {
		uc.logger.Infow("subscription already canceled", "subscription_id", sub.ID())
		return dto.ToSubscriptionDTO(sub), nil
	}
	if err := uc.subscriptionRepo.Update(ctx, sub); err != nil {
		uc.logger.Errorw("failed to cancel subscription", "subscription_id", sub.ID(), "error", err)
		return nil, toAppError(err, "subscription.cancel")
	}

	uc.logger.Infow("subscription canceled", "subscription_id", sub.ID(), "org_id", sub.OrgID())
	uc.notifier.Publish(billing.SubscriptionChanged(sub, billing.OriginAdmin, now))
	return dto.ToSubscriptionDTO(sub), nil
}
