package user

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/lumahealth/luma-backend/internal/domain"
	"github.com/lumahealth/luma-backend/internal/pkg/dbctx"
	"github.com/lumahealth/luma-backend/internal/pkg/logger"
)

type UserRepo interface {
	UpsertBySubject(dbc dbctx.Context, subject, name, email string) (*types.User, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.User, error)
	GetBySubject(dbc dbctx.Context, subject string) (*types.User, error)
}

type userRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewUserRepo(db *gorm.DB, baseLog *logger.Logger) UserRepo {
	return &userRepo{db: db, log: baseLog.With("repo", "UserRepo")}
}

// UpsertBySubject creates the user row on first sight of a token subject.
// Name and email refresh on conflict so stale claims do not stick around.
func (r *userRepo) UpsertBySubject(dbc dbctx.Context, subject, name, email string) (*types.User, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	u := &types.User{
		ID:        uuid.New(),
		Subject:   subject,
		Name:      name,
		Email:     email,
		UpdatedAt: time.Now(),
	}
	err := transaction.WithContext(dbc.Ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "subject"}},
			DoUpdates: clause.AssignmentColumns([]string{"name", "email", "updated_at"}),
		}).
		Create(u).Error
	if err != nil {
		return nil, err
	}
	return r.GetBySubject(dbc, subject)
}

func (r *userRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.User, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return nil, nil
	}
	var u types.User
	err := transaction.WithContext(dbc.Ctx).
		Where("id = ?", id).
		Limit(1).
		Find(&u).Error
	if err != nil {
		return nil, err
	}
	if u.ID == uuid.Nil {
		return nil, nil
	}
	return &u, nil
}

func (r *userRepo) GetBySubject(dbc dbctx.Context, subject string) (*types.User, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if subject == "" {
		return nil, nil
	}
	var u types.User
	err := transaction.WithContext(dbc.Ctx).
		Where("subject = ?", subject).
		Limit(1).
		Find(&u).Error
	if err != nil {
		return nil, err
	}
	if u.ID == uuid.Nil {
		return nil, nil
	}
	return &u, nil
}
