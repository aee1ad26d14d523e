package repos

import (
	"gorm.io/gorm"

	"github.com/lumahealth/luma-backend/internal/data/repos/analysis"
	"github.com/lumahealth/luma-backend/internal/data/repos/chat"
	"github.com/lumahealth/luma-backend/internal/data/repos/events"
	"github.com/lumahealth/luma-backend/internal/data/repos/recommendations"
	"github.com/lumahealth/luma-backend/internal/data/repos/user"
	"github.com/lumahealth/luma-backend/internal/data/repos/wellness"
	"github.com/lumahealth/luma-backend/internal/pkg/logger"
)

type UserRepo = user.UserRepo

type MoodRepo = wellness.MoodRepo
type ActivityRepo = wellness.ActivityRepo
type ActivityStats = wellness.ActivityStats

type ChatSessionRepo = chat.SessionRepo
type ChatMessageRepo = chat.MessageRepo

type RecommendationRepo = recommendations.RecommendationRepo
type RecommendationStats = recommendations.Stats

type SessionAnalysisRepo = analysis.SessionAnalysisRepo

type EventDeliveryRepo = events.EventDeliveryRepo

func NewUserRepo(db *gorm.DB, baseLog *logger.Logger) UserRepo { return user.NewUserRepo(db, baseLog) }

func NewMoodRepo(db *gorm.DB, baseLog *logger.Logger) MoodRepo {
	return wellness.NewMoodRepo(db, baseLog)
}
func NewActivityRepo(db *gorm.DB, baseLog *logger.Logger) ActivityRepo {
	return wellness.NewActivityRepo(db, baseLog)
}

func NewChatSessionRepo(db *gorm.DB, baseLog *logger.Logger) ChatSessionRepo {
	return chat.NewSessionRepo(db, baseLog)
}
func NewChatMessageRepo(db *gorm.DB, baseLog *logger.Logger) ChatMessageRepo {
	return chat.NewMessageRepo(db, baseLog)
}

func NewRecommendationRepo(db *gorm.DB, baseLog *logger.Logger) RecommendationRepo {
	return recommendations.NewRecommendationRepo(db, baseLog)
}

func NewSessionAnalysisRepo(db *gorm.DB, baseLog *logger.Logger) SessionAnalysisRepo {
	return analysis.NewSessionAnalysisRepo(db, baseLog)
}

func NewEventDeliveryRepo(db *gorm.DB, baseLog *logger.Logger) EventDeliveryRepo {
	return events.NewEventDeliveryRepo(db, baseLog)
}
