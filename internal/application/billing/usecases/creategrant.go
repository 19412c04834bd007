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
	"github.com/corates/billing/internal/shared/errors"
	"github.com/corates/billing/internal/shared/logger"
)

// CreateGrantCommand issues a grant with an optional explicit window. A missing
// StartsAt means now; a missing ExpiresAt means the type's standard term.
type CreateGrantCommand struct {
	OrgID     string
	Type      string
	StartsAt  *time.Time
	ExpiresAt *time.Time
	Metadata  map[string]interface{}
}

type CreateGrantUseCase struct {
	grantRepo     grant.Repository
	singleProject *GrantSingleProjectUseCase
	notifier      *ChangeNotifier
	clock         biztime.Clock
	logger        logger.Interface
}

func NewCreateGrantUseCase(
	grantRepo grant.Repository,
	txRunner db.TxRunner,
	notifier *ChangeNotifier,
	clock biztime.Clock,
	logger logger.Interface,
) *CreateGrantUseCase {
	return &CreateGrantUseCase{
		grantRepo:     grantRepo,
		singleProject: NewGrantSingleProjectUseCase(grantRepo, txRunner, notifier, clock, logger),
		notifier:      notifier,
		clock:         clock,
		logger:        logger,
	}
}

func (uc *CreateGrantUseCase) Execute(ctx context.Context, cmd CreateGrantCommand) (*dto.GrantDTO, error) {
	if err := requireOrg(cmd.OrgID); err != nil {
		return nil, err
	}
	grantType := grant.Type(cmd.Type)
	if !grantType.IsValid() {
		return nil, errors.NewValidationError("type must be trial or single_project").WithField("type")
	}

	// Single-project grants extend the live one rather than stacking rows.
	if grantType == grant.TypeSingleProject && cmd.StartsAt == nil && cmd.ExpiresAt == nil {
		res, err := uc.singleProject.Execute(ctx, GrantSingleProjectCommand{OrgID: cmd.OrgID, Metadata: cmd.Metadata})
		if err != nil {
			return nil, err
		}
		return res.Grant, nil
	}
	if grantType == grant.TypeSingleProject {
		_, err := uc.grantRepo.FindActiveByType(ctx, cmd.OrgID, grant.TypeSingleProject)
		if err == nil {
			return nil, errors.NewConflictError("organization already has a single_project grant; extend it instead")
		}
		if !stderrors.Is(err, grant.ErrGrantNotFound) {
			return nil, toAppError(err, "grant.find_active_by_type")
		}
	}

	now := uc.clock.Now()
	starts := now
	if cmd.StartsAt != nil {
		starts = cmd.StartsAt.UTC()
	}
	expires := defaultExpiry(grantType, starts)
	if cmd.ExpiresAt != nil {
		expires = cmd.ExpiresAt.UTC()
	}

	g, err := grant.NewGrant(cmd.OrgID, grantType, starts, expires, cmd.Metadata, now)
	if err != nil {
		return nil, toAppError(err, "grant.create")
	}
	if err := uc.grantRepo.Create(ctx, g); err != nil {
		if !stderrors.Is(err, grant.ErrTrialAlreadyIssued) && !stderrors.Is(err, grant.ErrSingleProjectHeld) {
			uc.logger.Errorw("failed to create grant", "org_id", cmd.OrgID, "type", grantType, "error", err)
		}
		return nil, toAppError(err, "grant.create")
	}

	uc.logger.Infow("grant created",
		"grant_id", g.ID(),
		"org_id", g.OrgID(),
		"type", g.Type(),
		"expires_at", g.ExpiresAt(),
	)
	uc.notifier.Publish(billing.GrantChanged(g, billing.OriginAdmin, now))
	return dto.ToGrantDTO(g), nil
}

func defaultExpiry(t grant.Type, starts time.Time) time.Time {
	if t == grant.TypeTrial {
		return starts.Add(grant.TrialDuration)
	}
	return starts.AddDate(0, grant.SingleProjectMonths, 0)
}

// loadOrgGrant returns the grant only if it belongs to orgID.
func loadOrgGrant(ctx context.Context, repo grant.Repository, orgID, id string) (*grant.Grant, error) {
	g, err := repo.GetByID(ctx, id)
	if err != nil {
		return nil, toAppError(err, "grant.get")
	}
	if g.OrgID() != orgID {
		return nil, errors.NewNotFoundError("grant not found")
	}
	return g, nil
}
