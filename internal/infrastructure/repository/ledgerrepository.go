package repository

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/corates/billing/internal/domain/ledger"
	"github.com/corates/billing/internal/infrastructure/persistence/mappers"
	"github.com/corates/billing/internal/infrastructure/persistence/models"
	"github.com/corates/billing/internal/shared/constants"
	"github.com/corates/billing/internal/shared/db"
	"github.com/corates/billing/internal/shared/errors"
	"github.com/corates/billing/internal/shared/logger"
)

// LedgerRepositoryImpl is the append-only gorm store for processor events.
type LedgerRepositoryImpl struct {
	db     *gorm.DB
	mapper mappers.LedgerMapper
	logger logger.Interface
}

func NewLedgerRepository(db *gorm.DB, logger logger.Interface) *LedgerRepositoryImpl {
	return &LedgerRepositoryImpl{
		db:     db,
		mapper: mappers.NewLedgerMapper(),
		logger: logger,
	}
}

var _ ledger.Repository = (*LedgerRepositoryImpl)(nil)

func (r *LedgerRepositoryImpl) InsertIfAbsent(ctx context.Context, entry *ledger.Entry) (*ledger.Entry, bool, error) {
	existing, err := r.findByDedupKeys(ctx, entry.PayloadHash(), entry.ExternalEventID())
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		return existing, false, nil
	}

	model := r.mapper.ToModel(entry)
	if err := db.GetTxFromContext(ctx, r.db).Create(model).Error; err != nil {
		if !errors.IsDuplicateError(err) {
			r.logger.Errorw("failed to insert ledger entry", "external_event_id", entry.ExternalEventID(), "error", err)
			return nil, false, errors.NewStorageError("ledger.insert", err)
		}
		// Lost the race to a concurrent delivery; hand back the winner.
		winner, findErr := r.findByDedupKeys(ctx, entry.PayloadHash(), entry.ExternalEventID())
		if findErr != nil {
			return nil, false, findErr
		}
		if winner == nil {
			return nil, false, errors.NewStorageError("ledger.insert", err)
		}
		r.logger.Infow("ledger insert lost dedup race", "sid", winner.ID(), "external_event_id", entry.ExternalEventID())
		return winner, false, nil
	}

	r.logger.Infow("ledger entry recorded",
		"sid", model.SID,
		"type", model.Type,
		"status", model.Status,
		"external_event_id", entry.ExternalEventID())
	return entry, true, nil
}

func (r *LedgerRepositoryImpl) findByDedupKeys(ctx context.Context, payloadHash, externalEventID string) (*ledger.Entry, error) {
	query := db.GetTxFromContext(ctx, r.db).Model(&models.LedgerEntryModel{})
	if externalEventID != "" {
		query = query.Where("payload_hash = ? OR external_event_id = ?", payloadHash, externalEventID)
	} else {
		query = query.Where("payload_hash = ?", payloadHash)
	}

	var model models.LedgerEntryModel
	if err := query.Order("id ASC").First(&model).Error; err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.logger.Errorw("failed to look up ledger entry", "payload_hash", payloadHash, "error", err)
		return nil, errors.NewStorageError("ledger.find_by_dedup_keys", err)
	}
	return r.toEntity(&model)
}

// SaveOutcome is a conditional update on status = RECEIVED so an outcome is
// written at most once.
func (r *LedgerRepositoryImpl) SaveOutcome(ctx context.Context, entry *ledger.Entry) error {
	if entry.Status() == ledger.StatusReceived || entry.ProcessedAt() == nil {
		return fmt.Errorf("%w: no outcome applied to %s", ledger.ErrInvalidTransition, entry.ID())
	}
	model := r.mapper.ToModel(entry)

	result := db.GetTxFromContext(ctx, r.db).
		Model(&models.LedgerEntryModel{}).
		Where("sid = ? AND status = ?", model.SID, string(ledger.StatusReceived)).
		Updates(map[string]interface{}{
			"status":                    model.Status,
			"http_status":               model.HTTPStatus,
			"error":                     model.Error,
			"processed_at":              model.ProcessedAt,
			"org_id":                    model.OrgID,
			"external_customer_ref":     model.ExternalCustomerRef,
			"external_subscription_ref": model.ExternalSubscriptionRef,
			"external_checkout_ref":     model.ExternalCheckoutRef,
		})
	if result.Error != nil {
		r.logger.Errorw("failed to save ledger outcome", "sid", model.SID, "error", result.Error)
		return errors.NewStorageError("ledger.transition", result.Error)
	}
	if result.RowsAffected == 0 {
		if _, err := r.GetByID(ctx, model.SID); err != nil {
			return err
		}
		return ledger.ErrConcurrentOutcome
	}

	r.logger.Infow("ledger entry transitioned", "sid", model.SID, "status", model.Status)
	return nil
}

func (r *LedgerRepositoryImpl) GetByID(ctx context.Context, id string) (*ledger.Entry, error) {
	var model models.LedgerEntryModel

	if err := db.GetTxFromContext(ctx, r.db).Where("sid = ?", id).First(&model).Error; err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ledger.ErrEntryNotFound
		}
		r.logger.Errorw("failed to get ledger entry", "sid", id, "error", err)
		return nil, errors.NewStorageError("ledger.get", err)
	}
	return r.toEntity(&model)
}

func (r *LedgerRepositoryImpl) ListByOrg(ctx context.Context, orgID string, limit int) ([]*ledger.Entry, error) {
	var rows []*models.LedgerEntryModel

	if err := db.GetTxFromContext(ctx, r.db).
		Where("org_id = ?", orgID).
		Scopes(db.NewestFirst("received_at"), db.Bounded(limit, constants.MaxQueryLimit)).
		Find(&rows).Error; err != nil {
		r.logger.Errorw("failed to list ledger entries by org", "org_id", orgID, "error", err)
		return nil, errors.NewStorageError("ledger.list_by_org", err)
	}
	return r.toEntities(rows)
}

func (r *LedgerRepositoryImpl) ListByStatusAndType(ctx context.Context, f ledger.Filter) ([]*ledger.Entry, error) {
	query := db.GetTxFromContext(ctx, r.db).Model(&models.LedgerEntryModel{})
	if f.Status != "" {
		query = query.Where("status = ?", string(f.Status))
	}
	if f.Type != "" {
		query = query.Where("type = ?", f.Type)
	}

	var rows []*models.LedgerEntryModel
	if err := query.
		Scopes(db.NewestFirst("received_at"), db.Bounded(f.Limit, constants.MaxQueryLimit)).
		Find(&rows).Error; err != nil {
		r.logger.Errorw("failed to list ledger entries", "status", f.Status, "type", f.Type, "error", err)
		return nil, errors.NewStorageError("ledger.list_by_status_and_type", err)
	}
	return r.toEntities(rows)
}

func (r *LedgerRepositoryImpl) CountByOrgAndStatus(ctx context.Context, orgID string, status ledger.Status) (int64, error) {
	var count int64
	if err := db.GetTxFromContext(ctx, r.db).
		Model(&models.LedgerEntryModel{}).
		Where("org_id = ? AND status = ?", orgID, string(status)).
		Count(&count).Error; err != nil {
		r.logger.Errorw("failed to count ledger entries", "org_id", orgID, "status", status, "error", err)
		return 0, errors.NewStorageError("ledger.count_by_org_and_status", err)
	}
	return count, nil
}

func (r *LedgerRepositoryImpl) ListReceivedBefore(ctx context.Context, cutoff time.Time, limit int) ([]*ledger.Entry, error) {
	var rows []*models.LedgerEntryModel

	if err := db.GetTxFromContext(ctx, r.db).
		Where("status = ? AND processed_at IS NULL AND received_at < ?", string(ledger.StatusReceived), cutoff.UTC()).
		Order("received_at ASC").
		Scopes(db.Bounded(limit, constants.MaxQueryLimit)).
		Find(&rows).Error; err != nil {
		r.logger.Errorw("failed to list stale received entries", "cutoff", cutoff, "error", err)
		return nil, errors.NewStorageError("ledger.list_received_before", err)
	}
	return r.toEntities(rows)
}

func (r *LedgerRepositoryImpl) ListProcessedByTypeBefore(ctx context.Context, eventType string, cutoff time.Time, limit int) ([]*ledger.Entry, error) {
	var rows []*models.LedgerEntryModel

	if err := db.GetTxFromContext(ctx, r.db).
		Where("status = ? AND type = ? AND received_at < ?", string(ledger.StatusProcessed), eventType, cutoff.UTC()).
		Scopes(db.NewestFirst("received_at"), db.Bounded(limit, constants.MaxQueryLimit)).
		Find(&rows).Error; err != nil {
		r.logger.Errorw("failed to list processed entries", "type", eventType, "cutoff", cutoff, "error", err)
		return nil, errors.NewStorageError("ledger.list_processed_by_type_before", err)
	}
	return r.toEntities(rows)
}

type orgCount struct {
	OrgID string
	Total int64
}

func (r *LedgerRepositoryImpl) CountStatusByOrg(ctx context.Context, status ledger.Status, atLeast int64, limit int) (map[string]int64, error) {
	var rows []orgCount

	if err := db.GetTxFromContext(ctx, r.db).
		Model(&models.LedgerEntryModel{}).
		Select("org_id, COUNT(*) AS total").
		Where("status = ? AND org_id IS NOT NULL", string(status)).
		Group("org_id").
		Having("COUNT(*) >= ?", atLeast).
		Order("total DESC").
		Scopes(db.Bounded(limit, constants.MaxQueryLimit)).
		Scan(&rows).Error; err != nil {
		r.logger.Errorw("failed to count ledger entries by org", "status", status, "error", err)
		return nil, errors.NewStorageError("ledger.count_status_by_org", err)
	}

	out := make(map[string]int64, len(rows))
	for _, row := range rows {
		out[row.OrgID] = row.Total
	}
	return out, nil
}

func (r *LedgerRepositoryImpl) toEntity(model *models.LedgerEntryModel) (*ledger.Entry, error) {
	entity, err := r.mapper.ToEntity(model)
	if err != nil {
		r.logger.Errorw("failed to map ledger model", "sid", model.SID, "error", err)
		return nil, fmt.Errorf("failed to map ledger entry: %w", err)
	}
	return entity, nil
}

func (r *LedgerRepositoryImpl) toEntities(rows []*models.LedgerEntryModel) ([]*ledger.Entry, error) {
	entities, err := r.mapper.ToEntities(rows)
	if err != nil {
		r.logger.Errorw("failed to map ledger models", "error", err)
		return nil, fmt.Errorf("failed to map ledger entries: %w", err)
	}
	if entities == nil {
		entities = []*ledger.Entry{}
	}
	return entities, nil
}
