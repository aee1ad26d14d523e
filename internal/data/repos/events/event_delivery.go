package events

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/lumahealth/luma-backend/internal/domain"
	"github.com/lumahealth/luma-backend/internal/pkg/dbctx"
	"github.com/lumahealth/luma-backend/internal/pkg/logger"
)

type EventDeliveryRepo interface {
	Create(dbc dbctx.Context, deliveries []*types.EventDelivery) ([]*types.EventDelivery, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.EventDelivery, error)
	ListByEventID(dbc dbctx.Context, eventID uuid.UUID) ([]*types.EventDelivery, error)
	ClaimNextRunnable(dbc dbctx.Context, retryDelay time.Duration, staleRunning time.Duration) (*types.EventDelivery, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
	UpdateFieldsUnlessStatus(dbc dbctx.Context, id uuid.UUID, disallowedStatuses []string, updates map[string]interface{}) (bool, error)
	Heartbeat(dbc dbctx.Context, id uuid.UUID) error
	SaveCheckpoints(dbc dbctx.Context, id uuid.UUID, checkpoints datatypes.JSON) error
	PruneTerminal(dbc dbctx.Context, olderThan time.Duration) (int64, error)
}

type eventDeliveryRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewEventDeliveryRepo(db *gorm.DB, baseLog *logger.Logger) EventDeliveryRepo {
	return &eventDeliveryRepo{
		db:  db,
		log: baseLog.With("repo", "EventDeliveryRepo"),
	}
}

func (r *eventDeliveryRepo) Create(dbc dbctx.Context, deliveries []*types.EventDelivery) ([]*types.EventDelivery, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if len(deliveries) == 0 {
		return []*types.EventDelivery{}, nil
	}
	if err := transaction.WithContext(dbc.Ctx).Create(&deliveries).Error; err != nil {
		return nil, err
	}
	return deliveries, nil
}

func (r *eventDeliveryRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.EventDelivery, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return nil, nil
	}
	var d types.EventDelivery
	err := transaction.WithContext(dbc.Ctx).
		Where("id = ?", id).
		Limit(1).
		Find(&d).Error
	if err != nil {
		return nil, err
	}
	if d.ID == uuid.Nil {
		return nil, nil
	}
	return &d, nil
}

func (r *eventDeliveryRepo) ListByEventID(dbc dbctx.Context, eventID uuid.UUID) ([]*types.EventDelivery, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.EventDelivery
	if eventID == uuid.Nil {
		return out, nil
	}
	if err := transaction.WithContext(dbc.Ctx).
		Where("event_id = ?", eventID).
		Order("handler ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// ClaimNextRunnable picks the oldest runnable delivery and marks it running.
// Runnable means queued, or failed with attempts remaining and the retry
// delay elapsed, or running with a heartbeat older than staleRunning (a
// worker died mid-flight). The row lock with SKIP LOCKED keeps concurrent
// workers from claiming the same row.
func (r *eventDeliveryRepo) ClaimNextRunnable(dbc dbctx.Context, retryDelay time.Duration, staleRunning time.Duration) (*types.EventDelivery, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	now := time.Now()
	retryCutoff := now.Add(-retryDelay)
	staleCutoff := now.Add(-staleRunning)
	var claimed *types.EventDelivery
	err := transaction.WithContext(dbc.Ctx).Transaction(func(txx *gorm.DB) error {
		var d types.EventDelivery
		q := txx.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
			Where(`
        (
          status = ?
          OR (
            status = ?
            AND attempts < max_attempts
            AND (last_error_at IS NULL OR last_error_at < ?)
          )
          OR (
            status = ?
            AND heartbeat_at IS NOT NULL
            AND heartbeat_at < ?
          )
        )
      `, "queued", "failed", retryCutoff, "running", staleCutoff).
			Order("created_at ASC")
		qErr := q.First(&d).Error
		if errors.Is(qErr, gorm.ErrRecordNotFound) {
			return nil
		}
		if qErr != nil {
			return qErr
		}
		uErr := txx.Model(&types.EventDelivery{}).
			Where("id = ?", d.ID).
			Updates(map[string]interface{}{
				"status":       "running",
				"attempts":     gorm.Expr("attempts + 1"),
				"locked_at":    now,
				"heartbeat_at": now,
				"updated_at":   now,
			}).Error
		if uErr != nil {
			return uErr
		}
		d.Attempts++
		claimed = &d
		return nil
	})
	if err != nil {
		return nil, err
	}
	return claimed, nil
}

func (r *eventDeliveryRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return nil
	}
	if updates == nil {
		updates = map[string]interface{}{}
	}
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now()
	}
	return transaction.WithContext(dbc.Ctx).
		Model(&types.EventDelivery{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *eventDeliveryRepo) UpdateFieldsUnlessStatus(dbc dbctx.Context, id uuid.UUID, disallowedStatuses []string, updates map[string]interface{}) (bool, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return false, nil
	}
	if updates == nil {
		updates = map[string]interface{}{}
	}
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now()
	}

	q := transaction.WithContext(dbc.Ctx).
		Model(&types.EventDelivery{}).
		Where("id = ?", id)
	if len(disallowedStatuses) == 1 {
		q = q.Where("status <> ?", disallowedStatuses[0])
	} else if len(disallowedStatuses) > 1 {
		q = q.Where("status NOT IN ?", disallowedStatuses)
	}

	res := q.Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *eventDeliveryRepo) Heartbeat(dbc dbctx.Context, id uuid.UUID) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return nil
	}
	now := time.Now()
	return transaction.WithContext(dbc.Ctx).
		Model(&types.EventDelivery{}).
		Where("id = ? AND status = ?", id, "running").
		Updates(map[string]interface{}{
			"heartbeat_at": now,
			"updated_at":   now,
		}).Error
}

// SaveCheckpoints persists the full checkpoint map. Checkpoints survive
// retries: they are written after every completed step and only cleared
// when the row reaches a terminal status and is later pruned.
func (r *eventDeliveryRepo) SaveCheckpoints(dbc dbctx.Context, id uuid.UUID, checkpoints datatypes.JSON) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return nil
	}
	return transaction.WithContext(dbc.Ctx).
		Model(&types.EventDelivery{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"checkpoints": checkpoints,
			"updated_at":  time.Now(),
		}).Error
}

func (r *eventDeliveryRepo) PruneTerminal(dbc dbctx.Context, olderThan time.Duration) (int64, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	cutoff := time.Now().Add(-olderThan)
	res := transaction.WithContext(dbc.Ctx).
		Where("status IN ? AND updated_at < ?", []string{"succeeded", "dead"}, cutoff).
		Delete(&types.EventDelivery{})
	return res.RowsAffected, res.Error
}
