package grant

import "context"

// Repository persists grants. There is no delete; revocation is an Update.
type Repository interface {
	// Create inserts g. A second trial for the same org fails with
	// ErrTrialAlreadyIssued, enforced by the store's unique trial key.
	Create(ctx context.Context, g *Grant) error
	Update(ctx context.Context, g *Grant) error
	GetByID(ctx context.Context, id string) (*Grant, error)
	// ListByOrg returns every grant for the org including revoked ones, newest first.
	ListByOrg(ctx context.Context, orgID string) ([]*Grant, error)
	// FindActiveByType returns the unrevoked grant of type t with the latest
	// expiry. ErrGrantNotFound when none exists.
	FindActiveByType(ctx context.Context, orgID string, t Type) (*Grant, error)
	// ExistsAnyOfType reports whether a grant of type t was ever created for the org.
	ExistsAnyOfType(ctx context.Context, orgID string, t Type) (bool, error)
}
