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

type DashboardHandler struct {
	log              *logger.Logger
	dashboardService services.DashboardService
}

func NewDashboardHandler(log *logger.Logger, dashboardService services.DashboardService) *DashboardHandler {
	return &DashboardHandler{
		log:              log.With("handler", "DashboardHandler"),
		dashboardService: dashboardService,
	}
}

func (h *DashboardHandler) Summary(c *gin.Context) {
	userID := middleware.CurrentUserID(c)
	if userID == uuid.Nil {
		response.RespondError(c, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	dbc := dbctx.Context{Ctx: c.Request.Context()}
	summary, err := h.dashboardService.Summary(dbc, userID)
	if err != nil {
		h.log.Error("Dashboard summary failed", "error", err, "user_id", userID)
		response.RespondError(c, statusFromError(err), "dashboard_summary_failed", err)
		return
	}
	response.RespondOK(c, summary)
}

func (h *DashboardHandler) ActivityHistory(c *gin.Context) {
	userID := middleware.CurrentUserID(c)
	if userID == uuid.Nil {
		response.RespondError(c, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	dbc := dbctx.Context{Ctx: c.Request.Context()}
	entries, err := h.dashboardService.ActivityHistory(dbc, userID)
	if err != nil {
		h.log.Error("Dashboard activity history failed", "error", err, "user_id", userID)
		response.RespondError(c, statusFromError(err), "activity_history_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"activities": entries})
}

func (h *DashboardHandler) MoodTrends(c *gin.Context) {
	userID := middleware.CurrentUserID(c)
	if userID == uuid.Nil {
		response.RespondError(c, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	dbc := dbctx.Context{Ctx: c.Request.Context()}
	trends, err := h.dashboardService.MoodTrends(dbc, userID)
	if err != nil {
		h.log.Error("Dashboard mood trends failed", "error", err, "user_id", userID)
		response.RespondError(c, statusFromError(err), "mood_trends_failed", err)
		return
	}
	response.RespondOK(c, trends)
}
