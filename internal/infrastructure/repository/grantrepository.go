package repository

import (
	"context"
	stderrors "errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/corates/billing/internal/domain/grant"
	"github.com/corates/billing/internal/infrastructure/persistence/mappers"
	"github.com/corates/billing/internal/infrastructure/persistence/models"
	"github.com/corates/billing/internal/shared/db"
	"github.com/corates/billing/internal/shared/errors"
	"github.com/corates/billing/internal/shared/logger"
)

type GrantRepositoryImpl struct {
	db     *gorm.DB
	mapper mappers.GrantMapper
	logger logger.Interface
}

func NewGrantRepository(db *gorm.DB, logger logger.Interface) *GrantRepositoryImpl {
	return &GrantRepositoryImpl{
		db:     db,
		mapper: mappers.NewGrantMapper(),
		logger: logger,
	}
}

var _ grant.Repository = (*GrantRepositoryImpl)(nil)

func (r *GrantRepositoryImpl) Create(ctx context.Context, entity *grant.Grant) error {
	model, err := r.mapper.ToModel(entity)
	if err != nil {
		r.logger.Errorw("failed to map grant entity", "sid", entity.ID(), "error", err)
		return fmt.Errorf("failed to map grant: %w", err)
	}

	if err := db.GetTxFromContext(ctx, r.db).Create(model).Error; err != nil {
		if model.TrialKey != nil && errors.IsDuplicateError(err) {
			r.logger.Warnw("trial already issued", "org_id", model.OrgID)
			return grant.ErrTrialAlreadyIssued
		}
		if model.SingleProjectKey != nil && errors.IsDuplicateError(err) {
			r.logger.Warnw("single_project grant already held", "org_id", model.OrgID)
			return grant.ErrSingleProjectHeld
		}
		r.logger.Errorw("failed to create grant", "sid", model.SID, "org_id", model.OrgID, "error", err)
		return errors.NewStorageError("grant.create", err)
	}

	r.logger.Infow("grant created", "sid", model.SID, "org_id", model.OrgID, "type", model.Type, "expires_at", model.ExpiresAt)
	return nil
}

// Update never touches trial_key: it stays set after revocation.
// single_project_key follows the entity and is cleared on revoke.
func (r *GrantRepositoryImpl) Update(ctx context.Context, entity *grant.Grant) error {
	model, err := r.mapper.ToModel(entity)
	if err != nil {
		r.logger.Errorw("failed to map grant entity", "sid", entity.ID(), "error", err)
		return fmt.Errorf("failed to map grant: %w", err)
	}

	result := db.GetTxFromContext(ctx, r.db).
		Model(&models.GrantModel{}).
		Where("sid = ?", model.SID).
		Updates(map[string]interface{}{
			"state":              model.State,
			"single_project_key": model.SingleProjectKey,
			"starts_at":          model.StartsAt,
			"expires_at":         model.ExpiresAt,
			"revoked_at":         model.RevokedAt,
			"metadata":           model.Metadata,
			"updated_at":         model.UpdatedAt,
		})
	if result.Error != nil {
		r.logger.Errorw("failed to update grant", "sid", model.SID, "error", result.Error)
		return errors.NewStorageError("grant.update", result.Error)
	}
	if result.RowsAffected == 0 {
		if _, err := r.GetByID(ctx, model.SID); err != nil {
			return err
		}
	}

	r.logger.Infow("grant updated", "sid", model.SID, "state", model.State, "expires_at", model.ExpiresAt)
	return nil
}

func (r *GrantRepositoryImpl) GetByID(ctx context.Context, id string) (*grant.Grant, error) {
	var model models.GrantModel

	if err := db.GetTxFromContext(ctx, r.db).Where("sid = ?", id).First(&model).Error; err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, grant.ErrGrantNotFound
		}
		r.logger.Errorw("failed to get grant", "sid", id, "error", err)
		return nil, errors.NewStorageError("grant.get", err)
	}

	return r.toEntity(&model)
}

func (r *GrantRepositoryImpl) ListByOrg(ctx context.Context, orgID string) ([]*grant.Grant, error) {
	var rows []*models.GrantModel

	if err := db.GetTxFromContext(ctx, r.db).
		Where("org_id = ?", orgID).
		Scopes(db.NewestFirst("created_at")).
		Find(&rows).Error; err != nil {
		r.logger.Errorw("failed to list grants", "org_id", orgID, "error", err)
		return nil, errors.NewStorageError("grant.list_by_org", err)
	}

	entities, err := r.mapper.ToEntities(rows)
	if err != nil {
		r.logger.Errorw("failed to map grant models", "org_id", orgID, "error", err)
		return nil, fmt.Errorf("failed to map grants: %w", err)
	}
	if entities == nil {
		entities = []*grant.Grant{}
	}
	return entities, nil
}

// FindActiveByType locks the row it returns when called inside a transaction.
func (r *GrantRepositoryImpl) FindActiveByType(ctx context.Context, orgID string, t grant.Type) (*grant.Grant, error) {
	var model models.GrantModel

	err := db.GetTxFromContext(ctx, r.db).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Scopes(db.NotRevoked()).
		Where("org_id = ? AND type = ?", orgID, string(t)).
		Order("expires_at DESC").
		First(&model).Error
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, grant.ErrGrantNotFound
		}
		r.logger.Errorw("failed to find active grant", "org_id", orgID, "type", t, "error", err)
		return nil, errors.NewStorageError("grant.find_active_by_type", err)
	}

	return r.toEntity(&model)
}

func (r *GrantRepositoryImpl) ExistsAnyOfType(ctx context.Context, orgID string, t grant.Type) (bool, error) {
	var count int64
	if err := db.GetTxFromContext(ctx, r.db).
		Model(&models.GrantModel{}).
		Where("org_id = ? AND type = ?", orgID, string(t)).
		Count(&count).Error; err != nil {
		r.logger.Errorw("failed to count grants", "org_id", orgID, "type", t, "error", err)
		return false, errors.NewStorageError("grant.exists_any_of_type", err)
	}
	return count > 0, nil
}

func (r *GrantRepositoryImpl) toEntity(model *models.GrantModel) (*grant.Grant, error) {
	entity, err := r.mapper.ToEntity(model)
	if err != nil {
		r.logger.Errorw("failed to map grant model", "sid", model.SID, "error", err)
		return nil, fmt.Errorf("failed to map grant: %w", err)
	}
	return entity, nil
}
