package services

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/lumahealth/luma-backend/internal/data/repos"
	types "github.com/lumahealth/luma-backend/internal/domain"
	"github.com/lumahealth/luma-backend/internal/pkg/dbctx"
	pkgerrors "github.com/lumahealth/luma-backend/internal/pkg/errors"
	"github.com/lumahealth/luma-backend/internal/pkg/logger"
)

// EventService is the polling surface over event deliveries.
type EventService interface {
	GetDelivery(dbc dbctx.Context, userID, deliveryID uuid.UUID) (*types.EventDelivery, error)
	ListByEvent(dbc dbctx.Context, userID, eventID uuid.UUID) ([]*types.EventDelivery, error)
}

type eventService struct {
	log        *logger.Logger
	deliveries repos.EventDeliveryRepo
}

func NewEventService(baseLog *logger.Logger, deliveries repos.EventDeliveryRepo) EventService {
	return &eventService{
		log:        baseLog.With("service", "EventService"),
		deliveries: deliveries,
	}
}

func (s *eventService) GetDelivery(dbc dbctx.Context, userID, deliveryID uuid.UUID) (*types.EventDelivery, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.ErrUnauthorized
	}
	d, err := s.deliveries.GetByID(dbc, deliveryID)
	if err != nil {
		return nil, fmt.Errorf("get delivery: %w", err)
	}
	if d == nil || d.UserID != userID {
		return nil, pkgerrors.ErrNotFound
	}
	return d, nil
}

func (s *eventService) ListByEvent(dbc dbctx.Context, userID, eventID uuid.UUID) ([]*types.EventDelivery, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.ErrUnauthorized
	}
	all, err := s.deliveries.ListByEventID(dbc, eventID)
	if err != nil {
		return nil, fmt.Errorf("list deliveries: %w", err)
	}
	out := make([]*types.EventDelivery, 0, len(all))
	for _, d := range all {
		if d.UserID == userID {
			out = append(out, d)
		}
	}
	return out, nil
}
