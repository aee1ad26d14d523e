package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/lumahealth/luma-backend/internal/http/middleware"
	"github.com/lumahealth/luma-backend/internal/http/response"
	"github.com/lumahealth/luma-backend/internal/pkg/dbctx"
	"github.com/lumahealth/luma-backend/internal/pkg/logger"
	"github.com/lumahealth/luma-backend/internal/services"
)

type ChatHandler struct {
	log         *logger.Logger
	chatService services.ChatService
}

func NewChatHandler(log *logger.Logger, chatService services.ChatService) *ChatHandler {
	return &ChatHandler{
		log:         log.With("handler", "ChatHandler"),
		chatService: chatService,
	}
}

func (h *ChatHandler) CreateSession(c *gin.Context) {
	userID := middleware.CurrentUserID(c)
	if userID == uuid.Nil {
		response.RespondError(c, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	dbc := dbctx.Context{Ctx: c.Request.Context()}
	session, err := h.chatService.CreateSession(dbc, userID)
	if err != nil {
		h.log.Error("CreateSession failed", "error", err, "user_id", userID)
		response.RespondError(c, statusFromError(err), "create_session_failed", err)
		return
	}
	response.RespondCreated(c, gin.H{"session": session})
}

func (h *ChatHandler) SendMessage(c *gin.Context) {
	userID := middleware.CurrentUserID(c)
	if userID == uuid.Nil {
		response.RespondError(c, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	var req struct {
		SessionID string `json:"sessionId"`
		Message   string `json:"message"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request_body", err)
		return
	}
	if strings.TrimSpace(req.SessionID) == "" || strings.TrimSpace(req.Message) == "" {
		response.RespondError(c, http.StatusBadRequest, "missing_fields", nil)
		return
	}
	dbc := dbctx.Context{Ctx: c.Request.Context()}
	result, err := h.chatService.SendMessage(dbc, userID, req.SessionID, req.Message)
	if err != nil {
		h.log.Error("SendMessage failed", "error", err, "user_id", userID, "session_id", req.SessionID)
		response.RespondError(c, statusFromError(err), "send_message_failed", err)
		return
	}
	response.RespondOK(c, result)
}

func (h *ChatHandler) GetSession(c *gin.Context) {
	userID := middleware.CurrentUserID(c)
	if userID == uuid.Nil {
		response.RespondError(c, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	sessionID := c.Param("sessionId")
	dbc := dbctx.Context{Ctx: c.Request.Context()}
	session, err := h.chatService.GetSession(dbc, userID, sessionID)
	if err != nil {
		h.log.Error("GetSession failed", "error", err, "user_id", userID, "session_id", sessionID)
		response.RespondError(c, statusFromError(err), "get_session_failed", err)
		return
	}
	response.RespondOK(c, session)
}

func (h *ChatHandler) GetHistory(c *gin.Context) {
	userID := middleware.CurrentUserID(c)
	if userID == uuid.Nil {
		response.RespondError(c, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	sessionID := c.Param("sessionId")
	dbc := dbctx.Context{Ctx: c.Request.Context()}
	messages, err := h.chatService.GetHistory(dbc, userID, sessionID)
	if err != nil {
		h.log.Error("GetHistory failed", "error", err, "user_id", userID, "session_id", sessionID)
		response.RespondError(c, statusFromError(err), "get_history_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"messages": messages})
}

func (h *ChatHandler) ListSessions(c *gin.Context) {
	userID := middleware.CurrentUserID(c)
	if userID == uuid.Nil {
		response.RespondError(c, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	dbc := dbctx.Context{Ctx: c.Request.Context()}
	sessions, err := h.chatService.ListSessions(dbc, userID)
	if err != nil {
		h.log.Error("ListSessions failed", "error", err, "user_id", userID)
		response.RespondError(c, statusFromError(err), "list_sessions_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"sessions": sessions})
}

func (h *ChatHandler) AnalyzeSession(c *gin.Context) {
	userID := middleware.CurrentUserID(c)
	if userID == uuid.Nil {
		response.RespondError(c, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	sessionID := c.Param("sessionId")
	dbc := dbctx.Context{Ctx: c.Request.Context()}
	eventID, err := h.chatService.AnalyzeSession(dbc, userID, sessionID)
	if err != nil {
		h.log.Error("AnalyzeSession failed", "error", err, "user_id", userID, "session_id", sessionID)
		response.RespondError(c, statusFromError(err), "analyze_session_failed", err)
		return
	}
	response.RespondAccepted(c, gin.H{"eventId": eventID})
}

func (h *ChatHandler) DeleteSession(c *gin.Context) {
	userID := middleware.CurrentUserID(c)
	if userID == uuid.Nil {
		response.RespondError(c, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	sessionID := c.Param("sessionId")
	dbc := dbctx.Context{Ctx: c.Request.Context()}
	if err := h.chatService.DeleteSession(dbc, userID, sessionID); err != nil {
		h.log.Error("DeleteSession failed", "error", err, "user_id", userID, "session_id", sessionID)
		response.RespondError(c, statusFromError(err), "delete_session_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"deleted": true})
}
