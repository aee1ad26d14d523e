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

type MoodHandler struct {
	log         *logger.Logger
	moodService services.MoodService
}

func NewMoodHandler(log *logger.Logger, moodService services.MoodService) *MoodHandler {
	return &MoodHandler{
		log:         log.With("handler", "MoodHandler"),
		moodService: moodService,
	}
}

func (h *MoodHandler) Create(c *gin.Context) {
	userID := middleware.CurrentUserID(c)
	if userID == uuid.Nil {
		response.RespondError(c, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	var req struct {
		Score     int        `json:"score"`
		Note      string     `json:"note"`
		Timestamp *time.Time `json:"timestamp"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request_body", err)
		return
	}
	dbc := dbctx.Context{Ctx: c.Request.Context()}
	entry, err := h.moodService.Create(dbc, userID, services.CreateMoodInput{
		Score:     req.Score,
		Note:      req.Note,
		Timestamp: req.Timestamp,
	})
	if err != nil {
		h.log.Error("Create mood failed", "error", err, "user_id", userID)
		response.RespondError(c, statusFromError(err), "create_mood_failed", err)
		return
	}
	response.RespondCreated(c, gin.H{"mood": entry})
}

func (h *MoodHandler) List(c *gin.Context) {
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
	entries, err := h.moodService.ListSince(dbc, userID, since)
	if err != nil {
		h.log.Error("List moods failed", "error", err, "user_id", userID)
		response.RespondError(c, statusFromError(err), "list_moods_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"moods": entries})
}
