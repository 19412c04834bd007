package mappers

import (
	"fmt"

	"github.com/corates/billing/internal/domain/ledger"
	"github.com/corates/billing/internal/infrastructure/persistence/models"
	"github.com/corates/billing/internal/shared/mapper"
)

type LedgerMapper interface {
	ToEntity(model *models.LedgerEntryModel) (*ledger.Entry, error)
	ToModel(entity *ledger.Entry) *models.LedgerEntryModel
	ToEntities(models []*models.LedgerEntryModel) ([]*ledger.Entry, error)
}

type LedgerMapperImpl struct{}

func NewLedgerMapper() LedgerMapper {
	return &LedgerMapperImpl{}
}

func (m *LedgerMapperImpl) ToEntity(model *models.LedgerEntryModel) (*ledger.Entry, error) {
	if model == nil {
		return nil, nil
	}

	entity, err := ledger.ReconstructEntry(ledger.Snapshot{
		ID:              model.SID,
		ExternalEventID: derefString(model.ExternalEventID),
		Type:            model.Type,
		Status:          ledger.Status(model.Status),
		HTTPStatus:      model.HTTPStatus,
		Error:           derefString(model.Error),
		Links: ledger.Links{
			OrgID:                   derefString(model.OrgID),
			ExternalCustomerRef:     derefString(model.ExternalCustomerRef),
			ExternalSubscriptionRef: derefString(model.ExternalSubscriptionRef),
			ExternalCheckoutRef:     derefString(model.ExternalCheckoutRef),
		},
		PayloadHash:      model.PayloadHash,
		SignaturePresent: model.SignaturePresent,
		Livemode:         model.Livemode,
		ReceivedAt:       model.ReceivedAt,
		ProcessedAt:      model.ProcessedAt,
		RequestID:        derefString(model.RequestID),
		Route:            derefString(model.Route),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to reconstruct ledger entry %s: %w", model.SID, err)
	}
	return entity, nil
}

func (m *LedgerMapperImpl) ToModel(entity *ledger.Entry) *models.LedgerEntryModel {
	if entity == nil {
		return nil
	}
	links := entity.Links()
	return &models.LedgerEntryModel{
		SID:                     entity.ID(),
		ExternalEventID:         nullableString(entity.ExternalEventID()),
		Type:                    entity.Type(),
		Status:                  string(entity.Status()),
		HTTPStatus:              entity.HTTPStatus(),
		Error:                   nullableString(entity.Error()),
		OrgID:                   nullableString(links.OrgID),
		ExternalCustomerRef:     nullableString(links.ExternalCustomerRef),
		ExternalSubscriptionRef: nullableString(links.ExternalSubscriptionRef),
		ExternalCheckoutRef:     nullableString(links.ExternalCheckoutRef),
		PayloadHash:             entity.PayloadHash(),
		SignaturePresent:        entity.SignaturePresent(),
		Livemode:                entity.Livemode(),
		ReceivedAt:              entity.ReceivedAt(),
		ProcessedAt:             entity.ProcessedAt(),
		RequestID:               nullableString(entity.RequestID()),
		Route:                   nullableString(entity.Route()),
	}
}

func (m *LedgerMapperImpl) ToEntities(models []*models.LedgerEntryModel) ([]*ledger.Entry, error) {
	return mapper.MapSliceWithError(models, m.ToEntity)
}
