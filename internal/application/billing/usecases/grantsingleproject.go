package usecases

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/corates/billing/internal/application/billing/dto"
	"github.com/corates/billing/internal/domain/billing"
	"github.com/corates/billing/internal/domain/grant"
	"github.com/corates/billing/internal/shared/biztime"
	"github.com/corates/billing/internal/shared/db"
	"github.com/corates/billing/internal/shared/logger"
)

type GrantSingleProjectCommand struct {
	OrgID    string
	Metadata map[string]interface{}
}

type GrantSingleProjectResult struct {
	Grant    *dto.GrantDTO `json:"grant"`
	Extended bool          `json:"extended"`
}

// GrantSingleProjectUseCase extends the org's unrevoked single_project grant
// to max(now, expiresAt)+6 months, or creates one covering the next 6 months.
type GrantSingleProjectUseCase struct {
	grantRepo grant.Repository
	txRunner  db.TxRunner
	notifier  *ChangeNotifier
	clock     biztime.Clock
	logger    logger.Interface
}

func NewGrantSingleProjectUseCase(
	grantRepo grant.Repository,
	txRunner db.TxRunner,
	notifier *ChangeNotifier,
	clock biztime.Clock,
	logger logger.Interface,
) *GrantSingleProjectUseCase {
	return &GrantSingleProjectUseCase{
		grantRepo: grantRepo,
		txRunner:  txRunner,
		notifier:  notifier,
		clock:     clock,
		logger:    logger,
	}
}

func (uc *GrantSingleProjectUseCase) Execute(ctx context.Context, cmd GrantSingleProjectCommand) (*GrantSingleProjectResult, error) {
	if err := requireOrg(cmd.OrgID); err != nil {
		return nil, err
	}

	now := uc.clock.Now()
	result, extended, err := uc.extendOrCreate(ctx, cmd, now)
	if stderrors.Is(err, grant.ErrSingleProjectHeld) {
		// A concurrent request inserted first; its row is committed now.
		uc.logger.Infow("single project grant created concurrently, extending it", "org_id", cmd.OrgID)
		result, extended, err = uc.extendOrCreate(ctx, cmd, now)
	}
	if err != nil {
		uc.logger.Errorw("failed to grant single project", "org_id", cmd.OrgID, "error", err)
		return nil, toAppError(err, "grant.single_project")
	}

	uc.logger.Infow("single project granted",
		"grant_id", result.ID(),
		"org_id", result.OrgID(),
		"extended", extended,
		"expires_at", result.ExpiresAt(),
	)
	uc.notifier.Publish(billing.GrantChanged(result, billing.OriginAdmin, now))
	return &GrantSingleProjectResult{Grant: dto.ToGrantDTO(result), Extended: extended}, nil
}

// extendOrCreate runs in one transaction. The lookup locks the live grant;
// the store's single_project key rejects a second insert.
func (uc *GrantSingleProjectUseCase) extendOrCreate(ctx context.Context, cmd GrantSingleProjectCommand, now time.Time) (*grant.Grant, bool, error) {
	var (
		result   *grant.Grant
		extended bool
	)
	err := uc.txRunner.RunInTransaction(ctx, func(txCtx context.Context) error {
		existing, err := uc.grantRepo.FindActiveByType(txCtx, cmd.OrgID, grant.TypeSingleProject)
		switch {
		case err == nil:
			if err := existing.Extend(now); err != nil {
				return err
			}
			if cmd.Metadata != nil {
				if err := existing.Update(grant.UpdateParams{Metadata: cmd.Metadata}, now); err != nil {
					return err
				}
			}
			if err := uc.grantRepo.Update(txCtx, existing); err != nil {
				return err
			}
			result, extended = existing, true
			return nil
		case stderrors.Is(err, grant.ErrGrantNotFound):
			g, err := grant.NewSingleProjectGrant(cmd.OrgID, cmd.Metadata, now)
			if err != nil {
				return err
			}
			if err := uc.grantRepo.Create(txCtx, g); err != nil {
				return err
			}
			result = g
			return nil
		default:
			return err
		}
	})
	return result, extended, err
}
