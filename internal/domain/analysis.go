package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// SessionAnalysis stores the post-session summary produced by the
// session-analysis workflow. RiskLevel is clamped to [0,10] before write.
type SessionAnalysis struct {
	ID                  uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	SessionRowID        uuid.UUID      `gorm:"column:session_row_id;type:uuid;not null;index" json:"session_row_id"`
	UserID              uuid.UUID      `gorm:"type:uuid;not null;index" json:"user_id"`
	EmotionalState      string         `gorm:"column:emotional_state" json:"emotional_state"`
	KeyThemes           datatypes.JSON `gorm:"column:key_themes;type:jsonb" json:"key_themes"`
	AreasOfConcern      datatypes.JSON `gorm:"column:areas_of_concern;type:jsonb" json:"areas_of_concern"`
	Recommendations     datatypes.JSON `gorm:"column:recommendations;type:jsonb" json:"recommendations"`
	ProgressIndicators  datatypes.JSON `gorm:"column:progress_indicators;type:jsonb" json:"progress_indicators"`
	RiskLevel           int            `gorm:"column:risk_level;not null" json:"risk_level"`
	RawAnalysis         datatypes.JSON `gorm:"column:raw_analysis;type:jsonb" json:"raw_analysis"`
	AnalyzedAt          time.Time      `gorm:"column:analyzed_at;not null" json:"analyzed_at"`
	CreatedAt           time.Time      `gorm:"not null;default:now()" json:"created_at"`
}

func (SessionAnalysis) TableName() string { return "session_analysis" }

// ClampRiskLevel bounds an assessed risk score to the storable range.
func ClampRiskLevel(v int) int {
	if v < 0 {
		return 0
	}
	if v > 10 {
		return 10
	}
	return v
}
