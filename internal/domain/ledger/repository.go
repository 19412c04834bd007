package ledger

import (
	"context"
	"time"
)

// Filter narrows ListByStatusAndType. Empty fields match anything.
type Filter struct {
	Status Status
	Type   string
	Limit  int
}

// Repository is append-only: entries are inserted once and their outcome is
// written once. It intentionally exposes no delete.
type Repository interface {
	// InsertIfAbsent stores e unless an entry with the same payload hash or
	// external event id exists. created is false when an existing entry was
	// returned instead; concurrent callers race on the store's unique keys and
	// the loser gets the winner's row.
	InsertIfAbsent(ctx context.Context, e *Entry) (stored *Entry, created bool, err error)
	// SaveOutcome persists an outcome applied with Entry.Apply. It only
	// succeeds if the stored row is still RECEIVED, otherwise ErrConcurrentOutcome.
	SaveOutcome(ctx context.Context, e *Entry) error
	GetByID(ctx context.Context, id string) (*Entry, error)
	// ListByOrg returns the newest entries for the org.
	ListByOrg(ctx context.Context, orgID string, limit int) ([]*Entry, error)
	ListByStatusAndType(ctx context.Context, f Filter) ([]*Entry, error)
	CountByOrgAndStatus(ctx context.Context, orgID string, status Status) (int64, error)
	// ListReceivedBefore returns RECEIVED entries with no processedAt received before cutoff.
	ListReceivedBefore(ctx context.Context, cutoff time.Time, limit int) ([]*Entry, error)
	// ListProcessedByTypeBefore returns PROCESSED entries of eventType received before cutoff.
	ListProcessedByTypeBefore(ctx context.Context, eventType string, cutoff time.Time, limit int) ([]*Entry, error)
	// CountStatusByOrg returns per-org counts of status entries for orgs with at least atLeast of them.
	CountStatusByOrg(ctx context.Context, status Status, atLeast int64, limit int) (map[string]int64, error)
}
