package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	DifficultyEasy   = "easy"
	DifficultyMedium = "medium"
	DifficultyHard   = "hard"
)

func ValidDifficulty(d string) bool {
	switch d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return true
	}
	return false
}

// ActivityRecommendation is created only by the recommendation workflow.
// IsCompleted transitions false->true exactly once and is never reversed.
// Context is an immutable audit snapshot of the inputs that produced the row.
type ActivityRecommendation struct {
	ID                uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	UserID            uuid.UUID      `gorm:"type:uuid;not null;index" json:"user_id"`
	ActivityType      string         `gorm:"column:activity_type;not null;index" json:"activity_type"`
	Title             string         `gorm:"column:title;not null" json:"title"`
	Description       string         `gorm:"column:description" json:"description"`
	Reasoning         string         `gorm:"column:reasoning" json:"reasoning"`
	ExpectedBenefits  datatypes.JSON `gorm:"column:expected_benefits;type:jsonb" json:"expected_benefits"`
	DifficultyLevel   string         `gorm:"column:difficulty_level;not null" json:"difficulty_level"`
	EstimatedDuration int            `gorm:"column:estimated_duration;not null" json:"estimated_duration"`
	BasedOnMoodScore  *int           `gorm:"column:based_on_mood_score" json:"based_on_mood_score,omitempty"`
	IsCompleted       bool           `gorm:"column:is_completed;not null;default:false;index" json:"is_completed"`
	CompletedAt       *time.Time     `gorm:"column:completed_at" json:"completed_at,omitempty"`
	Context           datatypes.JSON `gorm:"column:context;type:jsonb" json:"context"`
	CreatedAt         time.Time      `gorm:"not null;default:now();index" json:"created_at"`
	UpdatedAt         time.Time      `gorm:"not null;default:now()" json:"updated_at"`
}

func (ActivityRecommendation) TableName() string { return "activity_recommendation" }

// RecommendationContext is the audit snapshot serialized into Context.
type RecommendationContext struct {
	RecentMoodAverage   *float64  `json:"recent_mood_average,omitempty"`
	RecentActivityCount int       `json:"recent_activity_count"`
	GeneratedAt         time.Time `json:"generated_at"`
}
