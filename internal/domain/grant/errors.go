package grant

import "errors"

var (
	ErrGrantNotFound      = errors.New("grant not found")
	ErrOrgRequired        = errors.New("organization ID is required")
	ErrInvalidType        = errors.New("invalid grant type")
	ErrInvalidWindow      = errors.New("expires_at must be after starts_at")
	ErrTrialAlreadyIssued = errors.New("organization has already been issued a trial")
	ErrSingleProjectHeld  = errors.New("organization already holds a single_project grant")
	ErrGrantRevoked       = errors.New("grant is revoked")
	ErrNotExtendable      = errors.New("only single_project grants can be extended")
)
