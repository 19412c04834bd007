package usecases

import (
	stderrors "errors"

	"github.com/corates/billing/internal/domain/grant"
	"github.com/corates/billing/internal/domain/subscription"
	"github.com/corates/billing/internal/shared/errors"
)

// toAppError maps domain sentinels to transport errors. Anything unrecognised
// is treated as a storage failure of op.
func toAppError(err error, op string) error {
	if err == nil {
		return nil
	}
	if errors.IsAppError(err) {
		return err
	}
	switch {
	case stderrors.Is(err, subscription.ErrSubscriptionNotFound):
		return errors.NewNotFoundError("subscription not found")
	case stderrors.Is(err, grant.ErrGrantNotFound):
		return errors.NewNotFoundError("grant not found")
	case stderrors.Is(err, grant.ErrTrialAlreadyIssued):
		return errors.NewConflictError("organization has already used its trial")
	case stderrors.Is(err, grant.ErrSingleProjectHeld):
		return errors.NewConflictError("organization already has a single_project grant; extend it instead")
	case stderrors.Is(err, grant.ErrGrantRevoked):
		return errors.NewConflictError("grant is revoked")
	case stderrors.Is(err, grant.ErrNotExtendable):
		return errors.NewConflictError(err.Error())
	case stderrors.Is(err, subscription.ErrOrgRequired), stderrors.Is(err, grant.ErrOrgRequired):
		return errors.NewValidationError("organization ID is required").WithField("orgId")
	case stderrors.Is(err, subscription.ErrPlanRequired):
		return errors.NewValidationError(err.Error()).WithField("planId")
	case stderrors.Is(err, subscription.ErrInvalidStatus):
		return errors.NewValidationError(err.Error()).WithField("status")
	case stderrors.Is(err, subscription.ErrInvalidPeriod):
		return errors.NewValidationError(err.Error()).WithField("periodEnd")
	case stderrors.Is(err, grant.ErrInvalidWindow):
		return errors.NewValidationError(err.Error()).WithField("expiresAt")
	case stderrors.Is(err, grant.ErrInvalidType):
		return errors.NewValidationError(err.Error()).WithField("type")
	}
	return errors.NewStorageError(op, err)
}

func requireOrg(orgID string) error {
	if orgID == "" {
		return errors.NewValidationError("organization ID is required").WithField("orgId")
	}
	return nil
}
