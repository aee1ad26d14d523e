package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/lumahealth/luma-backend/internal/http/middleware"
	"github.com/lumahealth/luma-backend/internal/http/response"
	"github.com/lumahealth/luma-backend/internal/pkg/dbctx"
	"github.com/lumahealth/luma-backend/internal/pkg/logger"
	"github.com/lumahealth/luma-backend/internal/services"
)

type ActivityHandler struct {
	log             *logger.Logger
	activityService services.ActivityService
}

func NewActivityHandler(log *logger.Logger, activityService services.ActivityService) *ActivityHandler {
	return &ActivityHandler{
		log:             log.With("handler", "ActivityHandler"),
		activityService: activityService,
	}
}

func (h *ActivityHandler) Log(c *gin.Context) {
	userID := middleware.CurrentUserID(c)
	if userID == uuid.Nil {
		response.RespondError(c, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	var req struct {
		Type        string     `json:"type"`
		Name        string     `json:"name"`
		Description string     `json:"description"`
		Duration    *int       `json:"duration"`
		Timestamp   *time.Time `json:"timestamp"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request_body", err)
		return
	}
	dbc := dbctx.Context{Ctx: c.Request.Context()}
	entry, err := h.activityService.Log(dbc, userID, services.LogActivityInput{
		Type:        req.Type,
		Name:        req.Name,
		Description: req.Description,
		Duration:    req.Duration,
		Timestamp:   req.Timestamp,
	})
	if err != nil {
		h.log.Error("Log activity failed", "error", err, "user_id", userID)
		response.RespondError(c, statusFromError(err), "log_activity_failed", err)
		return
	}
	response.RespondCreated(c, gin.H{"activity": entry})
}

func (h *ActivityHandler) List(c *gin.Context) {
	userID := middleware.CurrentUserID(c)
	if userID == uuid.Nil {
		response.RespondError(c, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	days := 30
	if v := c.Query("days"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			days = parsed
		}
	}
	since := time.Now().AddDate(0, 0, -days)
	dbc := dbctx.Context{Ctx: c.Request.Context()}
	entries, err := h.activityService.ListSince(dbc, userID, since)
	if err != nil {
		h.log.Error("List activities failed", "error", err, "user_id", userID)
		response.RespondError(c, statusFromError(err), "list_activities_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"activities": entries})
}
