package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/lumahealth/luma-backend/internal/http/middleware"
	"github.com/lumahealth/luma-backend/internal/http/response"
	"github.com/lumahealth/luma-backend/internal/pkg/dbctx"
	"github.com/lumahealth/luma-backend/internal/pkg/logger"
	"github.com/lumahealth/luma-backend/internal/services"
)

type RecommendationHandler struct {
	log                   *logger.Logger
	recommendationService services.RecommendationService
}

func NewRecommendationHandler(log *logger.Logger, recommendationService services.RecommendationService) *RecommendationHandler {
	return &RecommendationHandler{
		log:                   log.With("handler", "RecommendationHandler"),
		recommendationService: recommendationService,
	}
}

func (h *RecommendationHandler) Active(c *gin.Context) {
	userID := middleware.CurrentUserID(c)
	if userID == uuid.Nil {
		response.RespondError(c, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	dbc := dbctx.Context{Ctx: c.Request.Context()}
	recs, err := h.recommendationService.Active(dbc, userID)
	if err != nil {
		h.log.Error("Active recommendations failed", "error", err, "user_id", userID)
		response.RespondError(c, statusFromError(err), "active_recommendations_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"recommendations": recs})
}

func (h *RecommendationHandler) History(c *gin.Context) {
	userID := middleware.CurrentUserID(c)
	if userID == uuid.Nil {
		response.RespondError(c, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	page := 1
	if v := c.Query("page"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			page = parsed
		}
	}
	limit := 20
	if v := c.Query("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	dbc := dbctx.Context{Ctx: c.Request.Context()}
	pageResult, err := h.recommendationService.History(dbc, userID, page, limit)
	if err != nil {
		h.log.Error("Recommendation history failed", "error", err, "user_id", userID)
		response.RespondError(c, statusFromError(err), "recommendation_history_failed", err)
		return
	}
	response.RespondOK(c, pageResult)
}

func (h *RecommendationHandler) Complete(c *gin.Context) {
	userID := middleware.CurrentUserID(c)
	if userID == uuid.Nil {
		response.RespondError(c, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_recommendation_id", err)
		return
	}
	dbc := dbctx.Context{Ctx: c.Request.Context()}
	rec, err := h.recommendationService.Complete(dbc, userID, id)
	if err != nil {
		h.log.Error("Complete recommendation failed", "error", err, "user_id", userID, "recommendation_id", id)
		response.RespondError(c, statusFromError(err), "complete_recommendation_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"recommendation": rec})
}

func (h *RecommendationHandler) RequestNew(c *gin.Context) {
	userID := middleware.CurrentUserID(c)
	if userID == uuid.Nil {
		response.RespondError(c, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	var req struct {
		MoodScore       *int `json:"moodScore"`
		ForceRegenerate bool `json:"forceRegenerate"`
	}
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		response.RespondError(c, http.StatusBadRequest, "invalid_request_body", err)
		return
	}
	dbc := dbctx.Context{Ctx: c.Request.Context()}
	result, err := h.recommendationService.RequestNew(dbc, userID, req.MoodScore, req.ForceRegenerate)
	if err != nil {
		h.log.Error("Request recommendations failed", "error", err, "user_id", userID)
		response.RespondError(c, statusFromError(err), "request_recommendations_failed", err)
		return
	}
	if !result.Requested {
		response.RespondOK(c, result)
		return
	}
	response.RespondAccepted(c, result)
}

func (h *RecommendationHandler) Stats(c *gin.Context) {
	userID := middleware.CurrentUserID(c)
	if userID == uuid.Nil {
		response.RespondError(c, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	dbc := dbctx.Context{Ctx: c.Request.Context()}
	stats, err := h.recommendationService.Stats(dbc, userID)
	if err != nil {
		h.log.Error("Recommendation stats failed", "error", err, "user_id", userID)
		response.RespondError(c, statusFromError(err), "recommendation_stats_failed", err)
		return
	}
	response.RespondOK(c, stats)
}
