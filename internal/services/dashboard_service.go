package services

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/lumahealth/luma-backend/internal/data/repos"
	types "github.com/lumahealth/luma-backend/internal/domain"
	"github.com/lumahealth/luma-backend/internal/pkg/dbctx"
	pkgerrors "github.com/lumahealth/luma-backend/internal/pkg/errors"
	"github.com/lumahealth/luma-backend/internal/pkg/logger"
)

// DashboardSummary is the home-screen aggregate.
type DashboardSummary struct {
	TodayMoodAverage *int               `json:"todayMoodAverage"`
	CompletionRate   int                `json:"recommendationCompletionRate"`
	TodayActivities  int64              `json:"todayActivityCount"`
	TherapySessions  int64              `json:"therapySessionCount"`
	MoodHistory7d    []*types.MoodEntry `json:"moodHistory"`
	TodayByType      map[string]int64   `json:"todayActivityBreakdown"`
}

// MoodTrends is the 30-day mood view.
type MoodTrends struct {
	Entries []*types.MoodEntry `json:"entries"`
	Average *int               `json:"average"`
	Count   int                `json:"count"`
}

type DashboardService interface {
	Summary(dbc dbctx.Context, userID uuid.UUID) (*DashboardSummary, error)
	ActivityHistory(dbc dbctx.Context, userID uuid.UUID) ([]*types.ActivityEntry, error)
	MoodTrends(dbc dbctx.Context, userID uuid.UUID) (*MoodTrends, error)
}

type dashboardService struct {
	log             *logger.Logger
	moods           repos.MoodRepo
	activities      repos.ActivityRepo
	sessions        repos.ChatSessionRepo
	recommendations repos.RecommendationRepo
}

func NewDashboardService(
	baseLog *logger.Logger,
	moods repos.MoodRepo,
	activities repos.ActivityRepo,
	sessions repos.ChatSessionRepo,
	recommendations repos.RecommendationRepo,
) DashboardService {
	return &dashboardService{
		log:             baseLog.With("service", "DashboardService"),
		moods:           moods,
		activities:      activities,
		sessions:        sessions,
		recommendations: recommendations,
	}
}

func (s *dashboardService) Summary(dbc dbctx.Context, userID uuid.UUID) (*DashboardSummary, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.ErrUnauthorized
	}

	now := time.Now()
	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	out := &DashboardSummary{TodayByType: map[string]int64{}}

	avg, _, err := s.moods.AverageSince(dbc, userID, startOfDay)
	if err != nil {
		return nil, fmt.Errorf("today mood average: %w", err)
	}
	if avg != nil {
		rounded := int(math.Round(*avg))
		out.TodayMoodAverage = &rounded
	}

	recStats, err := s.recommendations.GetStats(dbc, userID)
	if err != nil {
		return nil, fmt.Errorf("recommendation stats: %w", err)
	}
	if recStats.Total > 0 {
		out.CompletionRate = int(math.Round(float64(recStats.Completed) / float64(recStats.Total) * 100))
	}

	todayStats, err := s.activities.StatsSince(dbc, userID, startOfDay)
	if err != nil {
		return nil, fmt.Errorf("today activity stats: %w", err)
	}
	out.TodayActivities = todayStats.Count

	sessions, err := s.sessions.CountByUser(dbc, userID)
	if err != nil {
		return nil, fmt.Errorf("session count: %w", err)
	}
	out.TherapySessions = sessions

	history, err := s.moods.ListSince(dbc, userID, now.AddDate(0, 0, -7))
	if err != nil {
		return nil, fmt.Errorf("mood history: %w", err)
	}
	out.MoodHistory7d = history

	byType, err := s.activities.TypeBreakdownSince(dbc, userID, startOfDay)
	if err != nil {
		return nil, fmt.Errorf("activity breakdown: %w", err)
	}
	out.TodayByType = byType

	return out, nil
}

func (s *dashboardService) ActivityHistory(dbc dbctx.Context, userID uuid.UUID) ([]*types.ActivityEntry, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.ErrUnauthorized
	}
	return s.activities.ListSince(dbc, userID, time.Now().AddDate(0, 0, -30))
}

func (s *dashboardService) MoodTrends(dbc dbctx.Context, userID uuid.UUID) (*MoodTrends, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.ErrUnauthorized
	}
	entries, err := s.moods.ListSince(dbc, userID, time.Now().AddDate(0, 0, -30))
	if err != nil {
		return nil, fmt.Errorf("mood entries: %w", err)
	}
	out := &MoodTrends{Entries: entries, Count: len(entries)}
	if len(entries) > 0 {
		sum := 0
		for _, e := range entries {
			sum += e.Score
		}
		avg := int(math.Round(float64(sum) / float64(len(entries))))
		out.Average = &avg
	}
	return out, nil
}
