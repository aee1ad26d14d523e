package domain

import (
	"time"

	"github.com/google/uuid"
)

// User mirrors the auth provider's account. Rows are created lazily on the
// first authenticated request (upsert by subject), never by registration flow.
type User struct {
	ID        uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	Subject   string    `gorm:"column:subject;uniqueIndex;not null" json:"subject"`
	Name      string    `gorm:"column:name" json:"name"`
	Email     string    `gorm:"column:email;index" json:"email"`
	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (User) TableName() string { return "app_user" }
