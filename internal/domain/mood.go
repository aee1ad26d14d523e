package domain

import (
	"time"

	"github.com/google/uuid"
)

// MoodEntry is immutable once created. The UI uses a 0-100 scale; the score
// is stored as given, the bound is not enforced here.
type MoodEntry struct {
	ID        uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;index" json:"user_id"`
	Score     int       `gorm:"column:score;not null" json:"score"`
	Note      string    `gorm:"column:note" json:"note,omitempty"`
	Timestamp time.Time `gorm:"column:timestamp;not null;index" json:"timestamp"`
	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
}

func (MoodEntry) TableName() string { return "mood_entry" }
