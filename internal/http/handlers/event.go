package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/lumahealth/luma-backend/internal/http/middleware"
	"github.com/lumahealth/luma-backend/internal/http/response"
	"github.com/lumahealth/luma-backend/internal/pkg/dbctx"
	"github.com/lumahealth/luma-backend/internal/pkg/logger"
	"github.com/lumahealth/luma-backend/internal/services"
)

// EventHandler exposes delivery state so clients can poll the outcome of
// asynchronous work they triggered.
type EventHandler struct {
	log          *logger.Logger
	eventService services.EventService
}

func NewEventHandler(log *logger.Logger, eventService services.EventService) *EventHandler {
	return &EventHandler{
		log:          log.With("handler", "EventHandler"),
		eventService: eventService,
	}
}

func (h *EventHandler) GetDelivery(c *gin.Context) {
	userID := middleware.CurrentUserID(c)
	if userID == uuid.Nil {
		response.RespondError(c, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	deliveryID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_delivery_id", err)
		return
	}
	dbc := dbctx.Context{Ctx: c.Request.Context()}
	delivery, err := h.eventService.GetDelivery(dbc, userID, deliveryID)
	if err != nil {
		h.log.Error("GetDelivery failed", "error", err, "user_id", userID, "delivery_id", deliveryID)
		response.RespondError(c, statusFromError(err), "get_delivery_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"delivery": delivery})
}

func (h *EventHandler) ListByEvent(c *gin.Context) {
	userID := middleware.CurrentUserID(c)
	if userID == uuid.Nil {
		response.RespondError(c, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	eventID, err := uuid.Parse(c.Param("eventId"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_event_id", err)
		return
	}
	dbc := dbctx.Context{Ctx: c.Request.Context()}
	deliveries, err := h.eventService.ListByEvent(dbc, userID, eventID)
	if err != nil {
		h.log.Error("ListByEvent failed", "error", err, "user_id", userID, "event_id", eventID)
		response.RespondError(c, statusFromError(err), "list_deliveries_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"deliveries": deliveries})
}
