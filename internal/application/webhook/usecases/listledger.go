package usecases

import (
	"context"
	"strings"

	"github.com/corates/billing/internal/application/billing/dto"
	"github.com/corates/billing/internal/domain/ledger"
	"github.com/corates/billing/internal/shared/constants"
	"github.com/corates/billing/internal/shared/errors"
	"github.com/corates/billing/internal/shared/logger"
)

type ListLedgerQuery struct {
	OrgID  string
	Status string
	Type   string
	Limit  int
}

type ListLedgerUseCase struct {
	ledger *LedgerService
	logger logger.Interface
}

func NewListLedgerUseCase(ledgerService *LedgerService, logger logger.Interface) *ListLedgerUseCase {
	return &ListLedgerUseCase{ledger: ledgerService, logger: logger}
}

// Execute returns the newest entries first. An org id narrows to that org and
// ignores the other filters.
func (uc *ListLedgerUseCase) Execute(ctx context.Context, query ListLedgerQuery) ([]*dto.LedgerEntryDTO, error) {
	limit := query.Limit
	if limit <= 0 {
		limit = constants.DefaultLedgerLimit
	}
	if limit > constants.MaxQueryLimit {
		limit = constants.MaxQueryLimit
	}

	var status ledger.Status
	if strings.TrimSpace(query.Status) != "" {
		parsed, err := ledger.ParseStatus(query.Status)
		if err != nil {
			return nil, errors.NewValidationError(err.Error()).WithField("status")
		}
		status = parsed
	}

	var (
		entries []*ledger.Entry
		err     error
	)
	if orgID := strings.TrimSpace(query.OrgID); orgID != "" {
		entries, err = uc.ledger.EntriesByOrg(ctx, orgID, limit)
	} else {
		entries, err = uc.ledger.EntriesByStatusAndType(ctx, status, strings.TrimSpace(query.Type), limit)
	}
	if err != nil {
		uc.logger.Errorw("failed to list ledger entries", "status", status, "type", query.Type, "error", err)
		return nil, err
	}
	return dto.ToLedgerEntryDTOList(entries), nil
}
