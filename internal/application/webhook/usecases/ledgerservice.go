package usecases

import (
	"context"
	stderrors "errors"

	"github.com/corates/billing/internal/domain/ledger"
	"github.com/corates/billing/internal/shared/biztime"
	"github.com/corates/billing/internal/shared/errors"
	"github.com/corates/billing/internal/shared/logger"
)

// LedgerService is the dedup gate and outcome writer for inbound events.
type LedgerService struct {
	repo   ledger.Repository
	clock  biztime.Clock
	logger logger.Interface
}

func NewLedgerService(repo ledger.Repository, clock biztime.Clock, logger logger.Interface) *LedgerService {
	return &LedgerService{repo: repo, clock: clock, logger: logger}
}

// Record stores the receipt unless the same payload or event id was seen
// before. duplicate is true when the existing entry is returned instead.
func (s *LedgerService) Record(ctx context.Context, r ledger.Receipt) (entry *ledger.Entry, duplicate bool, err error) {
	if r.ReceivedAt.IsZero() {
		r.ReceivedAt = s.clock.Now()
	}
	candidate, err := ledger.NewEntry(r)
	if err != nil {
		return nil, false, errors.NewValidationError(err.Error()).WithField("payload")
	}

	stored, created, err := s.repo.InsertIfAbsent(ctx, candidate)
	if err != nil {
		return nil, false, storageError(err, "ledger.record")
	}
	if !created {
		s.logger.Infow("duplicate webhook delivery",
			"entry_id", stored.ID(),
			"external_event_id", r.ExternalEventID,
			"status", stored.Status(),
		)
	}
	return stored, !created, nil
}

// Transition moves a RECEIVED entry to the outcome's status. Only the first
// outcome for an entry is ever written.
func (s *LedgerService) Transition(ctx context.Context, entryID string, o ledger.Outcome) (*ledger.Entry, error) {
	e, err := s.Get(ctx, entryID)
	if err != nil {
		return nil, err
	}
	if err := e.Apply(o, s.clock.Now()); err != nil {
		return nil, errors.NewConflictError(err.Error())
	}
	if err := s.repo.SaveOutcome(ctx, e); err != nil {
		if stderrors.Is(err, ledger.ErrConcurrentOutcome) || stderrors.Is(err, ledger.ErrInvalidTransition) {
			return nil, errors.NewConflictError(err.Error())
		}
		return nil, storageError(err, "ledger.transition")
	}
	return e, nil
}

func (s *LedgerService) Get(ctx context.Context, entryID string) (*ledger.Entry, error) {
	e, err := s.repo.GetByID(ctx, entryID)
	if err != nil {
		if stderrors.Is(err, ledger.ErrEntryNotFound) {
			return nil, errors.NewNotFoundError("ledger entry not found")
		}
		return nil, storageError(err, "ledger.get")
	}
	return e, nil
}

func (s *LedgerService) EntriesByOrg(ctx context.Context, orgID string, limit int) ([]*ledger.Entry, error) {
	entries, err := s.repo.ListByOrg(ctx, orgID, limit)
	if err != nil {
		return nil, storageError(err, "ledger.list_by_org")
	}
	return entries, nil
}

// EntriesByStatusAndType lists the newest entries; empty filters match anything.
func (s *LedgerService) EntriesByStatusAndType(ctx context.Context, status ledger.Status, eventType string, limit int) ([]*ledger.Entry, error) {
	entries, err := s.repo.ListByStatusAndType(ctx, ledger.Filter{Status: status, Type: eventType, Limit: limit})
	if err != nil {
		return nil, storageError(err, "ledger.list_by_status_and_type")
	}
	return entries, nil
}

func (s *LedgerService) CountByOrgAndStatus(ctx context.Context, orgID string, status ledger.Status) (int64, error) {
	n, err := s.repo.CountByOrgAndStatus(ctx, orgID, status)
	if err != nil {
		return 0, storageError(err, "ledger.count_by_org_and_status")
	}
	return n, nil
}

func storageError(err error, op string) error {
	if errors.IsAppError(err) {
		return err
	}
	return errors.NewStorageError(op, err)
}
