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

type LogActivityInput struct {
	Type        string
	Name        string
	Description string
	Duration    *int
	Timestamp   *time.Time
}

type ActivityService interface {
	Log(dbc dbctx.Context, userID uuid.UUID, in LogActivityInput) (*types.ActivityEntry, error)
	ListSince(dbc dbctx.Context, userID uuid.UUID, since time.Time) ([]*types.ActivityEntry, error)
}

type activityService struct {
	log        *logger.Logger
	activities repos.ActivityRepo
	bus        *events.Bus
}

func NewActivityService(baseLog *logger.Logger, activities repos.ActivityRepo, bus *events.Bus) ActivityService {
	return &activityService{
		log:        baseLog.With("service", "ActivityService"),
		activities: activities,
		bus:        bus,
	}
}

func (s *activityService) Log(dbc dbctx.Context, userID uuid.UUID, in LogActivityInput) (*types.ActivityEntry, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.ErrUnauthorized
	}
	if !types.ValidActivityType(in.Type) {
		return nil, fmt.Errorf("%w: invalid activity type %q", pkgerrors.ErrInvalidArgument, in.Type)
	}
	if in.Name == "" {
		return nil, fmt.Errorf("%w: missing name", pkgerrors.ErrInvalidArgument)
	}

	at := time.Now()
	if in.Timestamp != nil {
		at = *in.Timestamp
	}
	entry := &types.ActivityEntry{
		ID:          uuid.New(),
		UserID:      userID,
		Type:        in.Type,
		Name:        in.Name,
		Description: in.Description,
		Duration:    in.Duration,
		Completed:   true,
		Timestamp:   at,
	}
	if _, err := s.activities.Create(dbc, []*types.ActivityEntry{entry}); err != nil {
		return nil, fmt.Errorf("create activity entry: %w", err)
	}

	if _, err := s.bus.Publish(dbc, userID, events.ActivityCompletedPayload{
		UserID:     userID,
		ActivityID: entry.ID,
		Type:       entry.Type,
		Name:       entry.Name,
		Duration:   entry.Duration,
	}); err != nil {
		s.log.Warn("Failed to publish activity completed event", "user_id", userID, "error", err)
	}

	return entry, nil
}

func (s *activityService) ListSince(dbc dbctx.Context, userID uuid.UUID, since time.Time) ([]*types.ActivityEntry, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.ErrUnauthorized
	}
	return s.activities.ListSince(dbc, userID, since)
}
