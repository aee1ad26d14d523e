package services

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/lumahealth/luma-backend/internal/data/repos"
	types "github.com/lumahealth/luma-backend/internal/domain"
	"github.com/lumahealth/luma-backend/internal/events"
	"github.com/lumahealth/luma-backend/internal/pkg/dbctx"
	pkgerrors "github.com/lumahealth/luma-backend/internal/pkg/errors"
	"github.com/lumahealth/luma-backend/internal/pkg/logger"
)

type CreateMoodInput struct {
	Score     int
	Note      string
	Timestamp *time.Time
}

type MoodService interface {
	Create(dbc dbctx.Context, userID uuid.UUID, in CreateMoodInput) (*types.MoodEntry, error)
	ListSince(dbc dbctx.Context, userID uuid.UUID, since time.Time) ([]*types.MoodEntry, error)
}

type moodService struct {
	log   *logger.Logger
	moods repos.MoodRepo
	bus   *events.Bus
}

func NewMoodService(baseLog *logger.Logger, moods repos.MoodRepo, bus *events.Bus) MoodService {
	return &moodService{
		log:   baseLog.With("service", "MoodService"),
		moods: moods,
		bus:   bus,
	}
}

// Create persists the entry and publishes mood/updated, which fans out to
// the mood-update and recommendation-generation handlers.
func (s *moodService) Create(dbc dbctx.Context, userID uuid.UUID, in CreateMoodInput) (*types.MoodEntry, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.ErrUnauthorized
	}

	at := time.Now()
	if in.Timestamp != nil {
		at = *in.Timestamp
	}
	entry := &types.MoodEntry{
		ID:        uuid.New(),
		UserID:    userID,
		Score:     in.Score,
		Note:      in.Note,
		Timestamp: at,
	}
	if _, err := s.moods.Create(dbc, []*types.MoodEntry{entry}); err != nil {
		return nil, fmt.Errorf("create mood entry: %w", err)
	}

	score := in.Score
	if _, err := s.bus.Publish(dbc, userID, events.MoodUpdatedPayload{
		UserID:    userID,
		MoodID:    entry.ID,
		Score:     &score,
		Note:      in.Note,
		Timestamp: at.Format(time.RFC3339),
	}); err != nil {
		// The entry is saved; the background analysis just won't run.
		s.log.Warn("Failed to publish mood update event", "user_id", userID, "error", err)
	}

	return entry, nil
}

func (s *moodService) ListSince(dbc dbctx.Context, userID uuid.UUID, since time.Time) ([]*types.MoodEntry, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.ErrUnauthorized
	}
	return s.moods.ListSince(dbc, userID, since)
}
