package domain

import (
	"time"

	"github.com/google/uuid"
)

// Activity types form a closed enum, validated at the ingress boundary.
const (
	ActivityMeditation = "meditation"
	ActivityExercise   = "exercise"
	ActivityWalking    = "walking"
	ActivityReading    = "reading"
	ActivityJournaling = "journaling"
	ActivityTherapy    = "therapy"
)

func ValidActivityType(t string) bool {
	switch t {
	case ActivityMeditation, ActivityExercise, ActivityWalking, ActivityReading, ActivityJournaling, ActivityTherapy:
		return true
	}
	return false
}

type ActivityEntry struct {
	ID          uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	UserID      uuid.UUID `gorm:"type:uuid;not null;index" json:"user_id"`
	Type        string    `gorm:"column:type;not null;index" json:"type"`
	Name        string    `gorm:"column:name;not null" json:"name"`
	Description string    `gorm:"column:description" json:"description,omitempty"`
	Duration    *int      `gorm:"column:duration" json:"duration,omitempty"`
	Completed   bool      `gorm:"column:completed;not null;default:false" json:"completed"`
	Timestamp   time.Time `gorm:"column:timestamp;not null;index" json:"timestamp"`
	CreatedAt   time.Time `gorm:"not null;default:now()" json:"created_at"`
}

func (ActivityEntry) TableName() string { return "activity_entry" }
