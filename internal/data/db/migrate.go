package db

import (
	types "github.com/lumahealth/luma-backend/internal/domain"
	"gorm.io/gorm"
)

func AutoMigrateAll(db *gorm.DB) error {
	return db.AutoMigrate(

		// Identity
		&types.User{},

		// Wellness tracking
		&types.MoodEntry{},
		&types.ActivityEntry{},

		// Chat
		&types.ChatSession{},
		&types.ChatMessage{},

		// Generated artifacts
		&types.ActivityRecommendation{},
		&types.SessionAnalysis{},

		// Event pipeline
		&types.EventDelivery{},
	)
}
