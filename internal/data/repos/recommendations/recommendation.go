package recommendations

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/lumahealth/luma-backend/internal/domain"
	"github.com/lumahealth/luma-backend/internal/pkg/dbctx"
	"github.com/lumahealth/luma-backend/internal/pkg/logger"
)

// Stats summarizes a user's generated recommendations.
type Stats struct {
	Total     int64
	Completed int64
}

type RecommendationRepo interface {
	Create(dbc dbctx.Context, recs []*types.ActivityRecommendation) ([]*types.ActivityRecommendation, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.ActivityRecommendation, error)
	ListActive(dbc dbctx.Context, userID uuid.UUID, maxAge time.Duration, limit int) ([]*types.ActivityRecommendation, error)
	ListHistory(dbc dbctx.Context, userID uuid.UUID, limit, offset int) ([]*types.ActivityRecommendation, int64, error)
	MarkCompleted(dbc dbctx.Context, userID, id uuid.UUID) (bool, error)
	CountCreatedSince(dbc dbctx.Context, userID uuid.UUID, since time.Time) (int64, error)
	TypeBreakdown(dbc dbctx.Context, userID uuid.UUID) (map[string]int64, error)
	GetStats(dbc dbctx.Context, userID uuid.UUID) (*Stats, error)
}

type recommendationRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewRecommendationRepo(db *gorm.DB, baseLog *logger.Logger) RecommendationRepo {
	return &recommendationRepo{db: db, log: baseLog.With("repo", "RecommendationRepo")}
}

func (r *recommendationRepo) Create(dbc dbctx.Context, recs []*types.ActivityRecommendation) ([]*types.ActivityRecommendation, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if len(recs) == 0 {
		return []*types.ActivityRecommendation{}, nil
	}
	if err := transaction.WithContext(dbc.Ctx).Create(&recs).Error; err != nil {
		return nil, err
	}
	return recs, nil
}

func (r *recommendationRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.ActivityRecommendation, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return nil, nil
	}
	var rec types.ActivityRecommendation
	err := transaction.WithContext(dbc.Ctx).
		Where("id = ?", id).
		Limit(1).
		Find(&rec).Error
	if err != nil {
		return nil, err
	}
	if rec.ID == uuid.Nil {
		return nil, nil
	}
	return &rec, nil
}

// ListActive returns uncompleted recommendations no older than maxAge,
// newest first.
func (r *recommendationRepo) ListActive(dbc dbctx.Context, userID uuid.UUID, maxAge time.Duration, limit int) ([]*types.ActivityRecommendation, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.ActivityRecommendation
	if userID == uuid.Nil {
		return out, nil
	}
	if limit <= 0 {
		limit = 10
	}
	cutoff := time.Now().Add(-maxAge)
	if err := transaction.WithContext(dbc.Ctx).
		Where("user_id = ? AND is_completed = ? AND created_at >= ?", userID, false, cutoff).
		Order("created_at DESC").
		Limit(limit).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *recommendationRepo) ListHistory(dbc dbctx.Context, userID uuid.UUID, limit, offset int) ([]*types.ActivityRecommendation, int64, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.ActivityRecommendation
	if userID == uuid.Nil {
		return out, 0, nil
	}
	if limit <= 0 || limit > 50 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	var total int64
	if err := transaction.WithContext(dbc.Ctx).
		Model(&types.ActivityRecommendation{}).
		Where("user_id = ?", userID).
		Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if err := transaction.WithContext(dbc.Ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&out).Error; err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// MarkCompleted is a one-way transition. The is_completed guard in the
// predicate makes repeat calls no-ops, reported via the bool.
func (r *recommendationRepo) MarkCompleted(dbc dbctx.Context, userID, id uuid.UUID) (bool, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if userID == uuid.Nil || id == uuid.Nil {
		return false, nil
	}
	now := time.Now()
	res := transaction.WithContext(dbc.Ctx).
		Model(&types.ActivityRecommendation{}).
		Where("id = ? AND user_id = ? AND is_completed = ?", id, userID, false).
		Updates(map[string]interface{}{
			"is_completed": true,
			"completed_at": now,
			"updated_at":   now,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *recommendationRepo) CountCreatedSince(dbc dbctx.Context, userID uuid.UUID, since time.Time) (int64, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if userID == uuid.Nil {
		return 0, nil
	}
	var count int64
	err := transaction.WithContext(dbc.Ctx).
		Model(&types.ActivityRecommendation{}).
		Where("user_id = ? AND created_at >= ?", userID, since).
		Count(&count).Error
	return count, err
}

func (r *recommendationRepo) TypeBreakdown(dbc dbctx.Context, userID uuid.UUID) (map[string]int64, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	out := map[string]int64{}
	if userID == uuid.Nil {
		return out, nil
	}
	var rows []struct {
		ActivityType string
		Count        int64
	}
	err := transaction.WithContext(dbc.Ctx).
		Model(&types.ActivityRecommendation{}).
		Select("activity_type, COUNT(*) AS count").
		Where("user_id = ?", userID).
		Group("activity_type").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.ActivityType] = row.Count
	}
	return out, nil
}

func (r *recommendationRepo) GetStats(dbc dbctx.Context, userID uuid.UUID) (*Stats, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if userID == uuid.Nil {
		return &Stats{}, nil
	}
	var row struct {
		Total     int64
		Completed int64
	}
	err := transaction.WithContext(dbc.Ctx).
		Model(&types.ActivityRecommendation{}).
		Select("COUNT(*) AS total, COUNT(*) FILTER (WHERE is_completed) AS completed").
		Where("user_id = ?", userID).
		Scan(&row).Error
	if err != nil {
		return nil, err
	}
	return &Stats{Total: row.Total, Completed: row.Completed}, nil
}
