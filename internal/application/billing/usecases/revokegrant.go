package usecases

import (
	"context"

	"github.com/corates/billing/internal/application/billing/dto"
	"github.com/corates/billing/internal/domain/billing"
	"github.com/corates/billing/internal/domain/grant"
	"github.com/corates/billing/internal/shared/biztime"
	"github.com/corates/billing/internal/shared/logger"
)

type RevokeGrantCommand struct {
	OrgID   string
	GrantID string
}

// RevokeGrantUseCase soft-deletes a grant. Revoking twice is a conflict.
type RevokeGrantUseCase struct {
	grantRepo grant.Repository
	notifier  *ChangeNotifier
	clock     biztime.Clock
	logger    logger.Interface
}

func NewRevokeGrantUseCase(
	grantRepo grant.Repository,
	notifier *ChangeNotifier,
	clock biztime.Clock,
	logger logger.Interface,
) *RevokeGrantUseCase {
	return &RevokeGrantUseCase{
		grantRepo: grantRepo,
		notifier:  notifier,
		clock:     clock,
		logger:    logger,
	}
}

func (uc *RevokeGrantUseCase) Execute(ctx context.Context, cmd RevokeGrantCommand) (*dto.GrantDTO, error) {
	if err := requireOrg(cmd.OrgID); err != nil {
		return nil, err
	}
	g, err := loadOrgGrant(ctx, uc.grantRepo, cmd.OrgID, cmd.GrantID)
	if err != nil {
		return nil, err
	}

	now := uc.clock.Now()
	if err := g.Revoke(now); err != nil {
		return nil, toAppError(err, "grant.revoke")
	}
	if err := uc.grantRepo.Update(ctx, g); err != nil {
		uc.logger.Errorw("failed to revoke grant", "grant_id", g.ID(), "error", err)
		return nil, toAppError(err, "grant.revoke")
	}

	uc.logger.Infow("grant revoked", "grant_id", g.ID(), "org_id", g.OrgID(), "type", g.Type())
	uc.notifier.Publish(billing.GrantChanged(g, billing.OriginAdmin, now))
	return dto.ToGrantDTO(g), nil
}
