package usecases

import (
	"context"
	stderrors "errors"

	"github.com/corates/billing/internal/application/billing/dto"
	"github.com/corates/billing/internal/domain/billing"
	"github.com/corates/billing/internal/domain/grant"
	"github.com/corates/billing/internal/shared/biztime"
	"github.com/corates/billing/internal/shared/logger"
)

type GrantTrialCommand struct {
	OrgID    string
	Metadata map[string]interface{}
}

// GrantTrialUseCase issues the one trial an org may ever receive.
type GrantTrialUseCase struct {
	grantRepo grant.Repository
	notifier  *ChangeNotifier
	clock     biztime.Clock
	logger    logger.Interface
}

func NewGrantTrialUseCase(
	grantRepo grant.Repository,
	notifier *ChangeNotifier,
	clock biztime.Clock,
	logger logger.Interface,
) *GrantTrialUseCase {
	return &GrantTrialUseCase{
		grantRepo: grantRepo,
		notifier:  notifier,
		clock:     clock,
		logger:    logger,
	}
}

func (uc *GrantTrialUseCase) Execute(ctx context.Context, cmd GrantTrialCommand) (*dto.GrantDTO, error) {
	if err := requireOrg(cmd.OrgID); err != nil {
		return nil, err
	}

	now := uc.clock.Now()
	g, err := grant.NewTrialGrant(cmd.OrgID, cmd.Metadata, now)
	if err != nil {
		return nil, toAppError(err, "grant.create_trial")
	}

	// The store's unique trial key decides races between concurrent requests.
	if err := uc.grantRepo.Create(ctx, g); err != nil {
		if stderrors.Is(err, grant.ErrTrialAlreadyIssued) {
			uc.logger.Infow("trial already issued", "org_id", cmd.OrgID)
		} else {
			uc.logger.Errorw("failed to create trial grant", "org_id", cmd.OrgID, "error", err)
		}
		return nil, toAppError(err, "grant.create_trial")
	}

	uc.logger.Infow("trial granted", "grant_id", g.ID(), "org_id", g.OrgID(), "expires_at", g.ExpiresAt())
	uc.notifier.Publish(billing.GrantChanged(g, billing.OriginAdmin, now))
	return dto.ToGrantDTO(g), nil
}
