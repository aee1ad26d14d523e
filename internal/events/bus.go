package events

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/lumahealth/luma-backend/internal/data/repos"
	types "github.com/lumahealth/luma-backend/internal/domain"
	"github.com/lumahealth/luma-backend/internal/events/runtime"
	"github.com/lumahealth/luma-backend/internal/pkg/dbctx"
	"github.com/lumahealth/luma-backend/internal/pkg/logger"
)

// Bus turns published events into durable deliveries: one event_delivery
// row per handler registered for the event name. Workers pick the rows up
// independently, so one handler's retries never block another's.
type Bus struct {
	repo     repos.EventDeliveryRepo
	registry *runtime.Registry
	log      *logger.Logger
}

func NewBus(repo repos.EventDeliveryRepo, registry *runtime.Registry, baseLog *logger.Logger) *Bus {
	return &Bus{
		repo:     repo,
		registry: registry,
		log:      baseLog.With("component", "EventBus"),
	}
}

// Publish validates the payload and enqueues one delivery per subscribed
// handler. The returned event id groups the fan-out rows. An event with no
// subscribers is accepted and dropped with a warning.
//
// Validation at this boundary is what lets handlers trust their input: a
// payload rejected here never reaches storage.
func (b *Bus) Publish(dbc dbctx.Context, userID uuid.UUID, payload Payload) (uuid.UUID, error) {
	if payload == nil {
		return uuid.Nil, fmt.Errorf("nil payload")
	}
	if err := payload.Validate(); err != nil {
		return uuid.Nil, fmt.Errorf("invalid payload for %s: %w", payload.EventName(), err)
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return uuid.Nil, fmt.Errorf("encode payload for %s: %w", payload.EventName(), err)
	}

	handlers := b.registry.ForEvent(payload.EventName())
	eventID := uuid.New()
	if len(handlers) == 0 {
		b.log.Warn("Event published with no subscribers", "event", payload.EventName())
		return eventID, nil
	}

	deliveries := make([]*types.EventDelivery, 0, len(handlers))
	for _, h := range handlers {
		deliveries = append(deliveries, &types.EventDelivery{
			ID:          uuid.New(),
			EventID:     eventID,
			UserID:      userID,
			Event:       payload.EventName(),
			Handler:     h.Name(),
			Status:      types.DeliveryStatusQueued,
			MaxAttempts: h.Retries() + 1,
			Payload:     datatypes.JSON(raw),
		})
	}
	if _, err := b.repo.Create(dbc, deliveries); err != nil {
		return uuid.Nil, fmt.Errorf("enqueue %s: %w", payload.EventName(), err)
	}

	b.log.Debug("Event published",
		"event", payload.EventName(),
		"event_id", eventID,
		"deliveries", len(deliveries),
	)
	return eventID, nil
}
