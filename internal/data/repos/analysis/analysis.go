package analysis

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/lumahealth/luma-backend/internal/domain"
	"github.com/lumahealth/luma-backend/internal/pkg/dbctx"
	"github.com/lumahealth/luma-backend/internal/pkg/logger"
)

type SessionAnalysisRepo interface {
	Create(dbc dbctx.Context, analyses []*types.SessionAnalysis) ([]*types.SessionAnalysis, error)
	GetLatestBySession(dbc dbctx.Context, sessionRowID uuid.UUID) (*types.SessionAnalysis, error)
	ListByUser(dbc dbctx.Context, userID uuid.UUID, limit int) ([]*types.SessionAnalysis, error)
}

type sessionAnalysisRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSessionAnalysisRepo(db *gorm.DB, baseLog *logger.Logger) SessionAnalysisRepo {
	return &sessionAnalysisRepo{db: db, log: baseLog.With("repo", "SessionAnalysisRepo")}
}

func (r *sessionAnalysisRepo) Create(dbc dbctx.Context, analyses []*types.SessionAnalysis) ([]*types.SessionAnalysis, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if len(analyses) == 0 {
		return []*types.SessionAnalysis{}, nil
	}
	if err := transaction.WithContext(dbc.Ctx).Create(&analyses).Error; err != nil {
		return nil, err
	}
	return analyses, nil
}

func (r *sessionAnalysisRepo) GetLatestBySession(dbc dbctx.Context, sessionRowID uuid.UUID) (*types.SessionAnalysis, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if sessionRowID == uuid.Nil {
		return nil, nil
	}
	var a types.SessionAnalysis
	err := transaction.WithContext(dbc.Ctx).
		Where("session_row_id = ?", sessionRowID).
		Order("analyzed_at DESC").
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

func (r *sessionAnalysisRepo) ListByUser(dbc dbctx.Context, userID uuid.UUID, limit int) ([]*types.SessionAnalysis, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.SessionAnalysis
	if userID == uuid.Nil {
		return out, nil
	}
	if limit <= 0 {
		limit = 20
	}
	if err := transaction.WithContext(dbc.Ctx).
		Where("user_id = ?", userID).
		Order("analyzed_at DESC").
		Limit(limit).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
