package usecases

import (
	"context"
	"time"

	"github.com/corates/billing/internal/application/billing/dto"
	"github.com/corates/billing/internal/domain/billing"
	"github.com/corates/billing/internal/domain/grant"
	"github.com/corates/billing/internal/shared/biztime"
	"github.com/corates/billing/internal/shared/logger"
)

// UpdateGrantCommand edits the window or metadata; nil fields are unchanged.
type UpdateGrantCommand struct {
	OrgID     string
	GrantID   string
	StartsAt  *time.Time
	ExpiresAt *time.Time
	Metadata  map[string]interface{}
}

type UpdateGrantUseCase struct {
	grantRepo grant.Repository
	notifier  *ChangeNotifier
	clock     biztime.Clock
	logger    logger.Interface
}

func NewUpdateGrantUseCase(
	grantRepo grant.Repository,
	notifier *ChangeNotifier,
	clock biztime.Clock,
	logger logger.Interface,
) *UpdateGrantUseCase {
	return &UpdateGrantUseCase{
		grantRepo: grantRepo,
		notifier:  notifier,
		clock:     clock,
		logger:    logger,
	}
}

func (uc *UpdateGrantUseCase) Execute(ctx context.Context, cmd UpdateGrantCommand) (*dto.GrantDTO, error) {
	if err := requireOrg(cmd.OrgID); err != nil {
		return nil, err
	}
	g, err := loadOrgGrant(ctx, uc.grantRepo, cmd.OrgID, cmd.GrantID)
	if err != nil {
		return nil, err
	}

	now := uc.clock.Now()
	if err := g.Update(grant.UpdateParams{
		StartsAt:  cmd.StartsAt,
		ExpiresAt: cmd.ExpiresAt,
		Metadata:  cmd.Metadata,
	}, now); err != nil {
		return nil, toAppError(err, "grant.update")
	}
	if err := uc.grantRepo.Update(ctx, g); err != nil {
		uc.logger.Errorw("failed to update grant", "grant_id", g.ID(), "error", err)
		return nil, toAppError(err, "grant.update")
	}

	uc.logger.Infow("grant updated", "grant_id", g.ID(), "org_id", g.OrgID(), "expires_at", g.ExpiresAt())
	uc.notifier.Publish(billing.GrantChanged(g, billing.OriginAdmin, now))
	return dto.ToGrantDTO(g), nil
}
