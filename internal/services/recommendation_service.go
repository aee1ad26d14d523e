package services

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/lumahealth/luma-backend/internal/data/repos"
	types "github.com/lumahealth/luma-backend/internal/domain"
	"github.com/lumahealth/luma-backend/internal/events"
	"github.com/lumahealth/luma-backend/internal/pkg/dbctx"
	pkgerrors "github.com/lumahealth/luma-backend/internal/pkg/errors"
	"github.com/lumahealth/luma-backend/internal/pkg/logger"
)

const (
	activeRecommendationAge = 7 * 24 * time.Hour
	activeRecommendationCap = 10
	regenerationGuardWindow = 24 * time.Hour
)

// RecommendationPage is the paginated history envelope.
type RecommendationPage struct {
	Items      []*types.ActivityRecommendation `json:"items"`
	Page       int                             `json:"page"`
	Limit      int                             `json:"limit"`
	TotalCount int64                           `json:"totalCount"`
	TotalPages int                             `json:"totalPages"`
}

// RecommendationStats is the stats query-surface shape.
type RecommendationStats struct {
	Total          int64            `json:"total"`
	Completed      int64            `json:"completed"`
	Recent         int64            `json:"recentRecommendations"`
	CompletionRate int              `json:"completionRate"`
	TypeBreakdown  map[string]int64 `json:"typeBreakdown"`
}

// RequestNewResult reports whether a regeneration was actually enqueued.
// When the guard skips, Existing carries the uncompleted recommendations
// from the guard window so the caller still has something to show.
type RequestNewResult struct {
	Requested bool                            `json:"requested"`
	Reason    string                          `json:"reason,omitempty"`
	Existing  []*types.ActivityRecommendation `json:"existing,omitempty"`
}

type RecommendationService interface {
	Active(dbc dbctx.Context, userID uuid.UUID) ([]*types.ActivityRecommendation, error)
	History(dbc dbctx.Context, userID uuid.UUID, page, limit int) (*RecommendationPage, error)
	Complete(dbc dbctx.Context, userID, id uuid.UUID) (*types.ActivityRecommendation, error)
	RequestNew(dbc dbctx.Context, userID uuid.UUID, moodScore *int, forceRegenerate bool) (*RequestNewResult, error)
	Stats(dbc dbctx.Context, userID uuid.UUID) (*RecommendationStats, error)
}

type recommendationService struct {
	log             *logger.Logger
	recommendations repos.RecommendationRepo
	bus             *events.Bus
}

func NewRecommendationService(baseLog *logger.Logger, recommendations repos.RecommendationRepo, bus *events.Bus) RecommendationService {
	return &recommendationService{
		log:             baseLog.With("service", "RecommendationService"),
		recommendations: recommendations,
		bus:             bus,
	}
}

func (s *recommendationService) Active(dbc dbctx.Context, userID uuid.UUID) ([]*types.ActivityRecommendation, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.ErrUnauthorized
	}
	return s.recommendations.ListActive(dbc, userID, activeRecommendationAge, activeRecommendationCap)
}

func (s *recommendationService) History(dbc dbctx.Context, userID uuid.UUID, page, limit int) (*RecommendationPage, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.ErrUnauthorized
	}
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}
	if limit > 50 {
		limit = 50
	}
	items, total, err := s.recommendations.ListHistory(dbc, userID, limit, (page-1)*limit)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	totalPages := int(math.Ceil(float64(total) / float64(limit)))
	return &RecommendationPage{
		Items:      items,
		Page:       page,
		Limit:      limit,
		TotalCount: total,
		TotalPages: totalPages,
	}, nil
}

// Complete is idempotent: completing an already-completed recommendation
// returns the row unchanged rather than erroring, and completed_at keeps
// its original value.
func (s *recommendationService) Complete(dbc dbctx.Context, userID, id uuid.UUID) (*types.ActivityRecommendation, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.ErrUnauthorized
	}
	rec, err := s.recommendations.GetByID(dbc, id)
	if err != nil {
		return nil, fmt.Errorf("get recommendation: %w", err)
	}
	if rec == nil || rec.UserID != userID {
		return nil, pkgerrors.ErrNotFound
	}
	if rec.IsCompleted {
		return rec, nil
	}
	if _, err := s.recommendations.MarkCompleted(dbc, userID, id); err != nil {
		return nil, fmt.Errorf("mark completed: %w", err)
	}
	return s.recommendations.GetByID(dbc, id)
}

// RequestNew publishes a mood/updated event to drive generation. Unless
// forceRegenerate is set, a user with uncompleted recommendations from the
// last 24 hours gets a no-op.
func (s *recommendationService) RequestNew(dbc dbctx.Context, userID uuid.UUID, moodScore *int, forceRegenerate bool) (*RequestNewResult, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.ErrUnauthorized
	}

	if !forceRegenerate {
		recent, err := s.recommendations.ListActive(dbc, userID, regenerationGuardWindow, activeRecommendationCap)
		if err != nil {
			return nil, fmt.Errorf("check recent recommendations: %w", err)
		}
		if len(recent) > 0 {
			return &RequestNewResult{
				Requested: false,
				Reason:    "Recent recommendations already exist",
				Existing:  recent,
			}, nil
		}
	}

	score := 50 // neutral when the caller did not supply one
	if moodScore != nil {
		score = *moodScore
	}
	if _, err := s.bus.Publish(dbc, userID, events.MoodUpdatedPayload{
		UserID:    userID,
		Score:     &score,
		Timestamp: time.Now().Format(time.RFC3339),
	}); err != nil {
		return nil, fmt.Errorf("publish regeneration event: %w", err)
	}
	return &RequestNewResult{Requested: true}, nil
}

func (s *recommendationService) Stats(dbc dbctx.Context, userID uuid.UUID) (*RecommendationStats, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.ErrUnauthorized
	}
	base, err := s.recommendations.GetStats(dbc, userID)
	if err != nil {
		return nil, fmt.Errorf("stats: %w", err)
	}
	recent, err := s.recommendations.CountCreatedSince(dbc, userID, time.Now().AddDate(0, 0, -30))
	if err != nil {
		return nil, fmt.Errorf("recent count: %w", err)
	}
	breakdown, err := s.recommendations.TypeBreakdown(dbc, userID)
	if err != nil {
		return nil, fmt.Errorf("type breakdown: %w", err)
	}

	rate := 0
	if base.Total > 0 {
		rate = int(math.Round(float64(base.Completed) / float64(base.Total) * 100))
	}
	return &RecommendationStats{
		Total:          base.Total,
		Completed:      base.Completed,
		Recent:         recent,
		CompletionRate: rate,
		TypeBreakdown:  breakdown,
	}, nil
}
