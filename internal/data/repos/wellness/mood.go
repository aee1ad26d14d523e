package wellness

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/lumahealth/luma-backend/internal/domain"
	"github.com/lumahealth/luma-backend/internal/pkg/dbctx"
	"github.com/lumahealth/luma-backend/internal/pkg/logger"
)

type MoodRepo interface {
	Create(dbc dbctx.Context, entries []*types.MoodEntry) ([]*types.MoodEntry, error)
	ListSince(dbc dbctx.Context, userID uuid.UUID, since time.Time) ([]*types.MoodEntry, error)
	ListRecent(dbc dbctx.Context, userID uuid.UUID, limit int) ([]*types.MoodEntry, error)
	AverageSince(dbc dbctx.Context, userID uuid.UUID, since time.Time) (*float64, int, error)
	CountLowSince(dbc dbctx.Context, userID uuid.UUID, belowScore int, since time.Time) (int64, error)
}

type moodRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewMoodRepo(db *gorm.DB, baseLog *logger.Logger) MoodRepo {
	return &moodRepo{db: db, log: baseLog.With("repo", "MoodRepo")}
}

func (r *moodRepo) Create(dbc dbctx.Context, entries []*types.MoodEntry) ([]*types.MoodEntry, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if len(entries) == 0 {
		return []*types.MoodEntry{}, nil
	}
	if err := transaction.WithContext(dbc.Ctx).Create(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *moodRepo) ListSince(dbc dbctx.Context, userID uuid.UUID, since time.Time) ([]*types.MoodEntry, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.MoodEntry
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

func (r *moodRepo) ListRecent(dbc dbctx.Context, userID uuid.UUID, limit int) ([]*types.MoodEntry, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.MoodEntry
	if userID == uuid.Nil {
		return out, nil
	}
	if limit <= 0 {
		limit = 10
	}
	if err := transaction.WithContext(dbc.Ctx).
		Where("user_id = ?", userID).
		Order("timestamp DESC").
		Limit(limit).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// AverageSince returns nil when the user has no entries in the window so
// callers can tell "no data" apart from an average of zero.
func (r *moodRepo) AverageSince(dbc dbctx.Context, userID uuid.UUID, since time.Time) (*float64, int, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if userID == uuid.Nil {
		return nil, 0, nil
	}
	var row struct {
		Avg   *float64
		Count int
	}
	err := transaction.WithContext(dbc.Ctx).
		Model(&types.MoodEntry{}).
		Select("AVG(score) AS avg, COUNT(*) AS count").
		Where("user_id = ? AND timestamp >= ?", userID, since).
		Scan(&row).Error
	if err != nil {
		return nil, 0, err
	}
	return row.Avg, row.Count, nil
}

func (r *moodRepo) CountLowSince(dbc dbctx.Context, userID uuid.UUID, belowScore int, since time.Time) (int64, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if userID == uuid.Nil {
		return 0, nil
	}
	var count int64
	err := transaction.WithContext(dbc.Ctx).
		Model(&types.MoodEntry{}).
		Where("user_id = ? AND score < ? AND timestamp >= ?", userID, belowScore, since).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}
