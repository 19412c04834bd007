package mappers

import (
	"fmt"

	"github.com/corates/billing/internal/domain/subscription"
	vo "github.com/corates/billing/internal/domain/subscription/valueobjects"
	"github.com/corates/billing/internal/infrastructure/persistence/models"
	"github.com/corates/billing/internal/shared/mapper"
)

type SubscriptionMapper interface {
	ToEntity(model *models.SubscriptionModel) (*subscription.Subscription, error)
	ToModel(entity *subscription.Subscription) *models.SubscriptionModel
	ToEntities(models []*models.SubscriptionModel) ([]*subscription.Subscription, error)
}

type SubscriptionMapperImpl struct{}

func NewSubscriptionMapper() SubscriptionMapper {
	return &SubscriptionMapperImpl{}
}

func (m *SubscriptionMapperImpl) ToEntity(model *models.SubscriptionModel) (*subscription.Subscription, error) {
	if model == nil {
		return nil, nil
	}

	entity, err := subscription.ReconstructSubscription(subscription.Snapshot{
		ID:                      model.SID,
		OrgID:                   model.OrgID,
		PlanID:                  model.Plan,
		Status:                  vo.SubscriptionStatus(model.Status),
		PeriodStart:             model.PeriodStart,
		PeriodEnd:               model.PeriodEnd,
		CancelAtPeriodEnd:       model.CancelAtPeriodEnd,
		ExternalCustomerRef:     derefString(model.ExternalCustomerRef),
		ExternalSubscriptionRef: derefString(model.ExternalSubscriptionRef),
		CreatedAt:               model.CreatedAt,
		UpdatedAt:               model.UpdatedAt,
		CanceledAt:              model.CanceledAt,
		EndedAt:                 model.EndedAt,
		ExternalObservedAt:      model.ExternalObservedAt,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to reconstruct subscription %s: %w", model.SID, err)
	}
	return entity, nil
}

// ToModel leaves ID zero; repositories resolve it from SID on update.
func (m *SubscriptionMapperImpl) ToModel(entity *subscription.Subscription) *models.SubscriptionModel {
	if entity == nil {
		return nil
	}
	return &models.SubscriptionModel{
		SID:                     entity.ID(),
		OrgID:                   entity.OrgID(),
		Plan:                    entity.PlanID(),
		Status:                  entity.Status().String(),
		PeriodStart:             entity.PeriodStart(),
		PeriodEnd:               entity.PeriodEnd(),
		CancelAtPeriodEnd:       entity.CancelAtPeriodEnd(),
		ExternalCustomerRef:     nullableString(entity.ExternalCustomerRef()),
		ExternalSubscriptionRef: nullableString(entity.ExternalSubscriptionRef()),
		CreatedAt:               entity.CreatedAt(),
		UpdatedAt:               entity.UpdatedAt(),
		CanceledAt:              entity.CanceledAt(),
		EndedAt:                 entity.EndedAt(),
		ExternalObservedAt:      entity.ExternalObservedAt(),
	}
}

func (m *SubscriptionMapperImpl) ToEntities(models []*models.SubscriptionModel) ([]*subscription.Subscription, error) {
	return mapper.MapSliceWithError(models, m.ToEntity)
}
