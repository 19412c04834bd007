package mappers

import (
	"encoding/json"
	"fmt"

	"gorm.io/datatypes"

	"github.com/corates/billing/internal/domain/grant"
	"github.com/corates/billing/internal/infrastructure/persistence/models"
	"github.com/corates/billing/internal/shared/mapper"
)

type GrantMapper interface {
	ToEntity(model *models.GrantModel) (*grant.Grant, error)
	ToModel(entity *grant.Grant) (*models.GrantModel, error)
	ToEntities(models []*models.GrantModel) ([]*grant.Grant, error)
}

type GrantMapperImpl struct{}

func NewGrantMapper() GrantMapper {
	return &GrantMapperImpl{}
}

func (m *GrantMapperImpl) ToEntity(model *models.GrantModel) (*grant.Grant, error) {
	if model == nil {
		return nil, nil
	}

	var metadata map[string]interface{}
	if len(model.Metadata) > 0 {
		if err := json.Unmarshal(model.Metadata, &metadata); err != nil {
			return nil, fmt.Errorf("failed to unmarshal grant metadata: %w", err)
		}
	}

	entity, err := grant.ReconstructGrant(grant.Snapshot{
		ID:        model.SID,
		OrgID:     model.OrgID,
		Type:      grant.Type(model.Type),
		State:     grant.State(model.State),
		StartsAt:  model.StartsAt,
		ExpiresAt: model.ExpiresAt,
		CreatedAt: model.CreatedAt,
		UpdatedAt: model.UpdatedAt,
		RevokedAt: model.RevokedAt,
		Metadata:  metadata,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to reconstruct grant %s: %w", model.SID, err)
	}
	return entity, nil
}

func (m *GrantMapperImpl) ToModel(entity *grant.Grant) (*models.GrantModel, error) {
	if entity == nil {
		return nil, nil
	}

	var metadata datatypes.JSON
	if len(entity.Metadata()) > 0 {
		raw, err := json.Marshal(entity.Metadata())
		if err != nil {
			return nil, fmt.Errorf("failed to marshal grant metadata: %w", err)
		}
		metadata = raw
	}

	return &models.GrantModel{
		SID:              entity.ID(),
		OrgID:            entity.OrgID(),
		Type:             string(entity.Type()),
		State:            string(entity.State()),
		TrialKey:         entity.TrialKey(),
		SingleProjectKey: entity.SingleProjectKey(),
		StartsAt:         entity.StartsAt(),
		ExpiresAt:        entity.ExpiresAt(),
		RevokedAt:        entity.RevokedAt(),
		Metadata:         metadata,
		CreatedAt:        entity.CreatedAt(),
		UpdatedAt:        entity.UpdatedAt(),
	}, nil
}

func (m *GrantMapperImpl) ToEntities(models []*models.GrantModel) ([]*grant.Grant, error) {
	return mapper.MapSliceWithError(models, m.ToEntity)
}
