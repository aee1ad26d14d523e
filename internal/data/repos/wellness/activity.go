package wellness

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/lumahealth/luma-backend/internal/domain"
	"github.com/lumahealth/luma-backend/internal/pkg/dbctx"
	"github.com/lumahealth/luma-backend/internal/pkg/logger"
)

// ActivityStats aggregates completed activities in a window.
type ActivityStats struct {
	Count        int64
	TotalMinutes int64
}

type ActivityRepo interface {
	Create(dbc dbctx.Context, entries []*types.ActivityEntry) ([]*types.ActivityEntry, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.ActivityEntry, error)
	ListSince(dbc dbctx.Context, userID uuid.UUID, since time.Time) ([]*types.ActivityEntry, error)
	StatsSince(dbc dbctx.Context, userID uuid.UUID, since time.Time) (*ActivityStats, error)
	CountByType(dbc dbctx.Context, userID uuid.UUID, activityType string) (int64, error)
	CountAll(dbc dbctx.Context, userID uuid.UUID) (int64, error)
	TotalMinutes(dbc dbctx.Context, userID uuid.UUID) (int64, error)
	TypeBreakdownSince(dbc dbctx.Context, userID uuid.UUID, since time.Time) (map[string]int64, error)
}

type activityRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewActivityRepo(db *gorm.DB, baseLog *logger.Logger) ActivityRepo {
	return &activityRepo{db: db, log: baseLog.With("repo", "ActivityRepo")}
}

func (r *activityRepo) Create(dbc dbctx.Context, entries []*types.ActivityEntry) ([]*types.ActivityEntry, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if len(entries) == 0 {
		return []*types.ActivityEntry{}, nil
	}
	if err := transaction.WithContext(dbc.Ctx).Create(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *activityRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.ActivityEntry, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return nil, nil
	}
	var a types.ActivityEntry
	err := transaction.WithContext(dbc.Ctx).
		Where("id = ?", id).
		Limit(1).
		Find(&a).Error
	if err != nil {
		return nil, err
	}
	if a.ID == uuid.Nil {
		return nil, nil
	}
	return &a, nil
}

func (r *activityRepo) ListSince(dbc dbctx.Context, userID uuid.UUID, since time.Time) ([]*types.ActivityEntry, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.ActivityEntry
	if userID == uuid.Nil {
		return out, nil
	}
	if err := transaction.WithContext(dbc.Ctx).
		Where("user_id = ? AND timestamp >= ?", userID, since).
		Order("timestamp DESC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *activityRepo) StatsSince(dbc dbctx.Context, userID uuid.UUID, since time.Time) (*ActivityStats, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if userID == uuid.Nil {
		return &ActivityStats{}, nil
	}
	var row struct {
		Count        int64
		TotalMinutes int64
	}
	err := transaction.WithContext(dbc.Ctx).
		Model(&types.ActivityEntry{}).
		Select("COUNT(*) AS count, COALESCE(SUM(duration), 0) AS total_minutes").
		Where("user_id = ? AND completed = ? AND timestamp >= ?", userID, true, since).
		Scan(&row).Error
	if err != nil {
		return nil, err
	}
	return &ActivityStats{Count: row.Count, TotalMinutes: row.TotalMinutes}, nil
}

func (r *activityRepo) CountByType(dbc dbctx.Context, userID uuid.UUID, activityType string) (int64, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if userID == uuid.Nil || activityType == "" {
		return 0, nil
	}
	var count int64
	err := transaction.WithContext(dbc.Ctx).
		Model(&types.ActivityEntry{}).
		Where("user_id = ? AND type = ? AND completed = ?", userID, activityType, true).
		Count(&count).Error
	return count, err
}

func (r *activityRepo) CountAll(dbc dbctx.Context, userID uuid.UUID) (int64, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if userID == uuid.Nil {
		return 0, nil
	}
	var count int64
	err := transaction.WithContext(dbc.Ctx).
		Model(&types.ActivityEntry{}).
		Where("user_id = ? AND completed = ?", userID, true).
		Count(&count).Error
	return count, err
}

func (r *activityRepo) TotalMinutes(dbc dbctx.Context, userID uuid.UUID) (int64, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if userID == uuid.Nil {
		return 0, nil
	}
	var total int64
	err := transaction.WithContext(dbc.Ctx).
		Model(&types.ActivityEntry{}).
		Select("COALESCE(SUM(duration), 0)").
		Where("user_id = ? AND completed = ?", userID, true).
		Scan(&total).Error
	return total, err
}

func (r *activityRepo) TypeBreakdownSince(dbc dbctx.Context, userID uuid.UUID, since time.Time) (map[string]int64, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	out := map[string]int64{}
	if userID == uuid.Nil {
		return out, nil
	}
	var rows []struct {
		Type  string
		Count int64
	}
	err := transaction.WithContext(dbc.Ctx).
		Model(&types.ActivityEntry{}).
		Select("type, COUNT(*) AS count").
		Where("user_id = ? AND completed = ? AND timestamp >= ?", userID, true, since).
		Group("type").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.Type] = row.Count
	}
	return out, nil
}
