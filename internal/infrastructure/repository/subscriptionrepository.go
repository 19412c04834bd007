package repository

import (
	"context"
	stderrors "errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/corates/billing/internal/domain/subscription"
	vo "github.com/corates/billing/internal/domain/subscription/valueobjects"
	"github.com/corates/billing/internal/infrastructure/persistence/mappers"
	"github.com/corates/billing/internal/infrastructure/persistence/models"
	"github.com/corates/billing/internal/shared/constants"
	"github.com/corates/billing/internal/shared/db"
	"github.com/corates/billing/internal/shared/errors"
	"github.com/corates/billing/internal/shared/logger"
)

type SubscriptionRepositoryImpl struct {
	db     *gorm.DB
	mapper mappers.SubscriptionMapper
	logger logger.Interface
}

func NewSubscriptionRepository(db *gorm.DB, logger logger.Interface) *SubscriptionRepositoryImpl {
	return &SubscriptionRepositoryImpl{
		db:     db,
		mapper: mappers.NewSubscriptionMapper(),
		logger: logger,
	}
}

var _ subscription.Repository = (*SubscriptionRepositoryImpl)(nil)

func (r *SubscriptionRepositoryImpl) Create(ctx context.Context, entity *subscription.Subscription) error {
	model := r.mapper.ToModel(entity)

	if err := db.GetTxFromContext(ctx, r.db).Create(model).Error; err != nil {
		r.logger.Errorw("failed to create subscription", "sid", entity.ID(), "org_id", entity.OrgID(), "error", err)
		return errors.NewStorageError("subscription.create", err)
	}

	r.logger.Infow("subscription created", "sid", model.SID, "org_id", model.OrgID, "plan", model.Plan, "status", model.Status)
	return nil
}

// Update writes every mutable column, so absolute values always win.
func (r *SubscriptionRepositoryImpl) Update(ctx context.Context, entity *subscription.Subscription) error {
	model := r.mapper.ToModel(entity)

	result := db.GetTxFromContext(ctx, r.db).
		Model(&models.SubscriptionModel{}).
		Where("sid = ?", model.SID).
		Updates(map[string]interface{}{
			"plan":                      model.Plan,
			"status":                    model.Status,
			"period_start":              model.PeriodStart,
			"period_end":                model.PeriodEnd,
			"cancel_at_period_end":      model.CancelAtPeriodEnd,
			"external_customer_ref":     model.ExternalCustomerRef,
			"external_subscription_ref": model.ExternalSubscriptionRef,
			"updated_at":                model.UpdatedAt,
			"canceled_at":               model.CanceledAt,
			"ended_at":                  model.EndedAt,
			"external_observed_at":      model.ExternalObservedAt,
		})
	if result.Error != nil {
		r.logger.Errorw("failed to update subscription", "sid", model.SID, "error", result.Error)
		return errors.NewStorageError("subscription.update", result.Error)
	}
	if result.RowsAffected == 0 {
		// Some drivers report changed rows only; confirm the row exists.
		if _, err := r.GetByID(ctx, model.SID); err != nil {
			return err
		}
	}

	r.logger.Infow("subscription updated", "sid", model.SID, "status", model.Status)
	return nil
}

func (r *SubscriptionRepositoryImpl) GetByID(ctx context.Context, id string) (*subscription.Subscription, error) {
	var model models.SubscriptionModel

	if err := db.GetTxFromContext(ctx, r.db).Where("sid = ?", id).First(&model).Error; err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, subscription.ErrSubscriptionNotFound
		}
		r.logger.Errorw("failed to get subscription", "sid", id, "error", err)
		return nil, errors.NewStorageError("subscription.get", err)
	}

	return r.toEntity(&model)
}

func (r *SubscriptionRepositoryImpl) ListByOrg(ctx context.Context, orgID string) ([]*subscription.Subscription, error) {
	var rows []*models.SubscriptionModel

	if err := db.GetTxFromContext(ctx, r.db).
		Where("org_id = ?", orgID).
		Scopes(db.NewestFirst("created_at")).
		Find(&rows).Error; err != nil {
		r.logger.Errorw("failed to list subscriptions", "org_id", orgID, "error", err)
		return nil, errors.NewStorageError("subscription.list_by_org", err)
	}

	return r.toEntities(rows)
}

func (r *SubscriptionRepositoryImpl) FindByExternalRefs(ctx context.Context, customerRef, subscriptionRef string) (*subscription.Subscription, error) {
	if subscriptionRef != "" {
		sub, err := r.findNewest(ctx, "subscription.find_by_external_refs",
			"external_subscription_ref = ?", subscriptionRef)
		if sub != nil || err != nil {
			return sub, err
		}
	}
	if customerRef != "" {
		// Only a checkout placeholder is claimed by customer: an earlier
		// subscription of the same customer is history, not a match.
		sub, err := r.findNewest(ctx, "subscription.find_by_external_refs",
			"external_customer_ref = ? AND status = ? AND (external_subscription_ref IS NULL OR external_subscription_ref = '')",
			customerRef, string(vo.StatusIncomplete))
		if sub != nil || err != nil {
			return sub, err
		}
	}
	return nil, subscription.ErrSubscriptionNotFound
}

// findNewest returns nil, nil when no row matches.
func (r *SubscriptionRepositoryImpl) findNewest(ctx context.Context, op, query string, args ...interface{}) (*subscription.Subscription, error) {
	var model models.SubscriptionModel
	err := db.GetTxFromContext(ctx, r.db).
		Where(query, args...).
		Scopes(db.NewestFirst("created_at")).
		First(&model).Error
	if err == nil {
		return r.toEntity(&model)
	}
	if stderrors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	r.logger.Errorw("failed to find subscription by external ref", "query", query, "error", err)
	return nil, errors.NewStorageError(op, err)
}

func (r *SubscriptionRepositoryImpl) ExistsByExternalRefs(ctx context.Context, customerRef, subscriptionRef string) (bool, error) {
	if customerRef == "" && subscriptionRef == "" {
		return false, nil
	}

	query := db.GetTxFromContext(ctx, r.db).Model(&models.SubscriptionModel{})
	switch {
	case customerRef != "" && subscriptionRef != "":
		query = query.Where("external_customer_ref = ? OR external_subscription_ref = ?", customerRef, subscriptionRef)
	case customerRef != "":
		query = query.Where("external_customer_ref = ?", customerRef)
	default:
		query = query.Where("external_subscription_ref = ?", subscriptionRef)
	}

	var count int64
	if err := query.Count(&count).Error; err != nil {
		r.logger.Errorw("failed to count subscriptions by external refs", "error", err)
		return false, errors.NewStorageError("subscription.exists_by_external_refs", err)
	}
	return count > 0, nil
}

func (r *SubscriptionRepositoryImpl) ListByStatuses(ctx context.Context, statuses []vo.SubscriptionStatus, limit int) ([]*subscription.Subscription, error) {
	if len(statuses) == 0 {
		return []*subscription.Subscription{}, nil
	}
	raw := make([]string, len(statuses))
	for i, s := range statuses {
		raw[i] = s.String()
	}

	var rows []*models.SubscriptionModel
	if err := db.GetTxFromContext(ctx, r.db).
		Where("status IN ?", raw).
		Order("created_at ASC").
		Scopes(db.Bounded(limit, constants.MaxQueryLimit)).
		Find(&rows).Error; err != nil {
		r.logger.Errorw("failed to list subscriptions by status", "statuses", raw, "error", err)
		return nil, errors.NewStorageError("subscription.list_by_statuses", err)
	}

	return r.toEntities(rows)
}

func (r *SubscriptionRepositoryImpl) toEntity(model *models.SubscriptionModel) (*subscription.Subscription, error) {
	entity, err := r.mapper.ToEntity(model)
	if err != nil {
		r.logger.Errorw("failed to map subscription model", "sid", model.SID, "error", err)
		return nil, fmt.Errorf("failed to map subscription: %w", err)
	}
	return entity, nil
}

func (r *SubscriptionRepositoryImpl) toEntities(rows []*models.SubscriptionModel) ([]*subscription.Subscription, error) {
	entities, err := r.mapper.ToEntities(rows)
	if err != nil {
		r.logger.Errorw("failed to map subscription models", "error", err)
		return nil, fmt.Errorf("failed to map subscriptions: %w", err)
	}
	if entities == nil {
		entities = []*subscription.Subscription{}
	}
	return entities, nil
}
