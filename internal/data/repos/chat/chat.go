package chat

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/lumahealth/luma-backend/internal/domain"
	"github.com/lumahealth/luma-backend/internal/pkg/dbctx"
	"github.com/lumahealth/luma-backend/internal/pkg/logger"
)

type SessionRepo interface {
	GetBySessionID(dbc dbctx.Context, userID uuid.UUID, sessionID string) (*types.ChatSession, error)
	GetOrCreate(dbc dbctx.Context, userID uuid.UUID, sessionID string) (*types.ChatSession, error)
	GetByRowID(dbc dbctx.Context, id uuid.UUID) (*types.ChatSession, error)
	ListByUser(dbc dbctx.Context, userID uuid.UUID, limit int) ([]*types.ChatSession, error)
	UpdateStatus(dbc dbctx.Context, id uuid.UUID, status string) error
	CountByUser(dbc dbctx.Context, userID uuid.UUID) (int64, error)
	Delete(dbc dbctx.Context, id uuid.UUID) error
}

type MessageRepo interface {
	Create(dbc dbctx.Context, messages []*types.ChatMessage) ([]*types.ChatMessage, error)
	ListBySession(dbc dbctx.Context, sessionRowID uuid.UUID, limit int) ([]*types.ChatMessage, error)
	CountBySession(dbc dbctx.Context, sessionRowID uuid.UUID) (int64, error)
}

type sessionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSessionRepo(db *gorm.DB, baseLog *logger.Logger) SessionRepo {
	return &sessionRepo{db: db, log: baseLog.With("repo", "ChatSessionRepo")}
}

func (r *sessionRepo) GetBySessionID(dbc dbctx.Context, userID uuid.UUID, sessionID string) (*types.ChatSession, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if userID == uuid.Nil || sessionID == "" {
		return nil, nil
	}
	var s types.ChatSession
	err := transaction.WithContext(dbc.Ctx).
		Where("user_id = ? AND session_id = ?", userID, sessionID).
		Limit(1).
		Find(&s).Error
	if err != nil {
		return nil, err
	}
	if s.ID == uuid.Nil {
		return nil, nil
	}
	return &s, nil
}

// GetOrCreate backs lazy session creation: a message may arrive with a
// client-generated session id before any session row exists. The conflict
// clause makes concurrent first messages converge on a single row.
func (r *sessionRepo) GetOrCreate(dbc dbctx.Context, userID uuid.UUID, sessionID string) (*types.ChatSession, error) {
	existing, err := r.GetBySessionID(dbc, userID, sessionID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	s := &types.ChatSession{
		ID:        uuid.New(),
		SessionID: sessionID,
		UserID:    userID,
		Status:    types.ChatSessionActive,
		StartTime: time.Now(),
	}
	err = transaction.WithContext(dbc.Ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "session_id"}},
			DoNothing: true,
		}).
		Create(s).Error
	if err != nil {
		return nil, err
	}
	return r.GetBySessionID(dbc, userID, sessionID)
}

func (r *sessionRepo) GetByRowID(dbc dbctx.Context, id uuid.UUID) (*types.ChatSession, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return nil, nil
	}
	var s types.ChatSession
	err := transaction.WithContext(dbc.Ctx).
		Where("id = ?", id).
		Limit(1).
		Find(&s).Error
	if err != nil {
		return nil, err
	}
	if s.ID == uuid.Nil {
		return nil, nil
	}
	return &s, nil
}

func (r *sessionRepo) ListByUser(dbc dbctx.Context, userID uuid.UUID, limit int) ([]*types.ChatSession, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.ChatSession
	if userID == uuid.Nil {
		return out, nil
	}
	if limit <= 0 {
		limit = 20
	}
	if err := transaction.WithContext(dbc.Ctx).
		Where("user_id = ?", userID).
		Order("start_time DESC").
		Limit(limit).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *sessionRepo) UpdateStatus(dbc dbctx.Context, id uuid.UUID, status string) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return nil
	}
	return transaction.WithContext(dbc.Ctx).
		Model(&types.ChatSession{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":     status,
			"updated_at": time.Now(),
		}).Error
}

func (r *sessionRepo) CountByUser(dbc dbctx.Context, userID uuid.UUID) (int64, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if userID == uuid.Nil {
		return 0, nil
	}
	var count int64
	err := transaction.WithContext(dbc.Ctx).
		Model(&types.ChatSession{}).
		Where("user_id = ?", userID).
		Count(&count).Error
	return count, err
}

// Delete removes the session and its messages.
func (r *sessionRepo) Delete(dbc dbctx.Context, id uuid.UUID) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return nil
	}
	if err := transaction.WithContext(dbc.Ctx).
		Where("session_row_id = ?", id).
		Delete(&types.ChatMessage{}).Error; err != nil {
		return err
	}
	return transaction.WithContext(dbc.Ctx).
		Where("id = ?", id).
		Delete(&types.ChatSession{}).Error
}

type messageRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewMessageRepo(db *gorm.DB, baseLog *logger.Logger) MessageRepo {
	return &messageRepo{db: db, log: baseLog.With("repo", "ChatMessageRepo")}
}

func (r *messageRepo) Create(dbc dbctx.Context, messages []*types.ChatMessage) ([]*types.ChatMessage, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if len(messages) == 0 {
		return []*types.ChatMessage{}, nil
	}
	if err := transaction.WithContext(dbc.Ctx).Create(&messages).Error; err != nil {
		return nil, err
	}
	return messages, nil
}

func (r *messageRepo) ListBySession(dbc dbctx.Context, sessionRowID uuid.UUID, limit int) ([]*types.ChatMessage, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.ChatMessage
	if sessionRowID == uuid.Nil {
		return out, nil
	}
	q := transaction.WithContext(dbc.Ctx).
		Where("session_row_id = ?", sessionRowID).
		Order("timestamp ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *messageRepo) CountBySession(dbc dbctx.Context, sessionRowID uuid.UUID) (int64, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if sessionRowID == uuid.Nil {
		return 0, nil
	}
	var count int64
	err := transaction.WithContext(dbc.Ctx).
		Model(&types.ChatMessage{}).
		Where("session_row_id = ?", sessionRowID).
		Count(&count).Error
	return count, err
}
