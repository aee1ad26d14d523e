package services

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/lumahealth/luma-backend/internal/data/repos"
	types "github.com/lumahealth/luma-backend/internal/domain"
	"github.com/lumahealth/luma-backend/internal/events"
	"github.com/lumahealth/luma-backend/internal/pkg/dbctx"
	pkgerrors "github.com/lumahealth/luma-backend/internal/pkg/errors"
	"github.com/lumahealth/luma-backend/internal/pkg/logger"
	"github.com/lumahealth/luma-backend/internal/platform/genai"
	"github.com/lumahealth/luma-backend/internal/workflows"
)

// SessionWithMessages is the chat query-surface shape.
type SessionWithMessages struct {
	Session  *types.ChatSession   `json:"session"`
	Messages []*types.ChatMessage `json:"messages"`
}

type ChatService interface {
	CreateSession(dbc dbctx.Context, userID uuid.UUID) (*types.ChatSession, error)
	SendMessage(dbc dbctx.Context, userID uuid.UUID, sessionID, message string) (*workflows.ChatResult, error)
	GetSession(dbc dbctx.Context, userID uuid.UUID, sessionID string) (*SessionWithMessages, error)
	GetHistory(dbc dbctx.Context, userID uuid.UUID, sessionID string) ([]*types.ChatMessage, error)
	ListSessions(dbc dbctx.Context, userID uuid.UUID) ([]*types.ChatSession, error)
	DeleteSession(dbc dbctx.Context, userID uuid.UUID, sessionID string) error
	AnalyzeSession(dbc dbctx.Context, userID uuid.UUID, sessionID string) (uuid.UUID, error)
}

type chatService struct {
	log      *logger.Logger
	sessions repos.ChatSessionRepo
	messages repos.ChatMessageRepo
	bus      *events.Bus
	client   genai.Client
}

func NewChatService(baseLog *logger.Logger, sessions repos.ChatSessionRepo, messages repos.ChatMessageRepo, bus *events.Bus, client genai.Client) ChatService {
	return &chatService{
		log:      baseLog.With("service", "ChatService"),
		sessions: sessions,
		messages: messages,
		bus:      bus,
		client:   client,
	}
}

func (s *chatService) CreateSession(dbc dbctx.Context, userID uuid.UUID) (*types.ChatSession, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.ErrUnauthorized
	}
	session, err := s.sessions.GetOrCreate(dbc, userID, uuid.NewString())
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	return session, nil
}

// SendMessage runs the chat workflow on the request path so the reply is
// synchronous, and also publishes the event so the durable pipeline keeps
// its own record. The two paths share workflow code and fallbacks.
func (s *chatService) SendMessage(dbc dbctx.Context, userID uuid.UUID, sessionID, message string) (*workflows.ChatResult, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.ErrUnauthorized
	}
	if strings.TrimSpace(message) == "" {
		return nil, fmt.Errorf("%w: empty message", pkgerrors.ErrInvalidArgument)
	}
	if sessionID == "" {
		return nil, fmt.Errorf("%w: missing sessionId", pkgerrors.ErrInvalidArgument)
	}

	// Unknown session ids are created on first use, not rejected: the
	// client owns session identity.
	session, err := s.sessions.GetOrCreate(dbc, userID, sessionID)
	if err != nil {
		return nil, fmt.Errorf("resolve session: %w", err)
	}
	if session.UserID != userID {
		s.log.Warn("Unauthorized session access attempt", "session_id", sessionID, "user_id", userID)
		return nil, pkgerrors.ErrForbidden
	}

	memory := events.Memory{EmotionalStates: []string{}, Themes: []string{}}
	goals := []string{}

	if _, err := s.bus.Publish(dbc, userID, events.SessionMessagePayload{
		UserID:    userID,
		SessionID: sessionID,
		Message:   message,
		Memory:    memory,
		Goals:     goals,
	}); err != nil {
		// The synchronous reply still works without the durable record.
		s.log.Warn("Failed to publish session message event", "session_id", sessionID, "error", err)
	}

	ctx := dbc.Ctx
	analysis, err := workflows.AnalyzeMessage(ctx, s.client, message, memory, goals)
	if err != nil {
		s.log.Error("Message analysis failed, using fallback", "session_id", sessionID, "error", err)
		analysis = workflows.FallbackAnalysis()
	}
	updated := memory.WithAnalysis(analysis.EmotionalState, analysis.Themes, analysis.RiskLevel)

	reply, err := workflows.GenerateReply(ctx, s.client, message, analysis, updated, goals)
	if err != nil {
		s.log.Error("Reply generation failed, using fallback", "session_id", sessionID, "error", err)
		reply = workflows.FallbackReply
	}

	now := time.Now()
	metadata := datatypes.JSON([]byte(encodeMessageMetadata(analysis)))
	_, err = s.messages.Create(dbc, []*types.ChatMessage{
		{
			ID:           uuid.New(),
			SessionRowID: session.ID,
			Role:         types.ChatRoleUser,
			Content:      message,
			Timestamp:    now,
		},
		{
			ID:           uuid.New(),
			SessionRowID: session.ID,
			Role:         types.ChatRoleAssistant,
			Content:      reply,
			Metadata:     metadata,
			Timestamp:    now.Add(time.Millisecond),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("persist messages: %w", err)
	}

	return &workflows.ChatResult{
		Response:      reply,
		Analysis:      analysis,
		UpdatedMemory: updated,
	}, nil
}

func (s *chatService) GetSession(dbc dbctx.Context, userID uuid.UUID, sessionID string) (*SessionWithMessages, error) {
	session, err := s.ownedSession(dbc, userID, sessionID)
	if err != nil {
		return nil, err
	}
	messages, err := s.messages.ListBySession(dbc, session.ID, 0)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	return &SessionWithMessages{Session: session, Messages: messages}, nil
}

func (s *chatService) GetHistory(dbc dbctx.Context, userID uuid.UUID, sessionID string) ([]*types.ChatMessage, error) {
	session, err := s.ownedSession(dbc, userID, sessionID)
	if err != nil {
		return nil, err
	}
	return s.messages.ListBySession(dbc, session.ID, 0)
}

func (s *chatService) ListSessions(dbc dbctx.Context, userID uuid.UUID) ([]*types.ChatSession, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.ErrUnauthorized
	}
	return s.sessions.ListByUser(dbc, userID, 50)
}

func (s *chatService) DeleteSession(dbc dbctx.Context, userID uuid.UUID, sessionID string) error {
	session, err := s.ownedSession(dbc, userID, sessionID)
	if err != nil {
		return err
	}
	return s.sessions.Delete(dbc, session.ID)
}

// AnalyzeSession publishes the session transcript for asynchronous
// analysis and returns the event id for polling.
func (s *chatService) AnalyzeSession(dbc dbctx.Context, userID uuid.UUID, sessionID string) (uuid.UUID, error) {
	session, err := s.ownedSession(dbc, userID, sessionID)
	if err != nil {
		return uuid.Nil, err
	}
	messages, err := s.messages.ListBySession(dbc, session.ID, 0)
	if err != nil {
		return uuid.Nil, fmt.Errorf("list messages: %w", err)
	}
	if len(messages) == 0 {
		return uuid.Nil, fmt.Errorf("%w: session has no messages", pkgerrors.ErrInvalidArgument)
	}

	var b strings.Builder
	for _, m := range messages {
		b.WriteString(m.Role)
		b.WriteString(": ")
		b.WriteString(m.Content)
		b.WriteString("\n")
	}

	eventID, err := s.bus.Publish(dbc, userID, events.SessionCreatedPayload{
		UserID:     userID,
		SessionID:  sessionID,
		Transcript: b.String(),
	})
	if err != nil {
		return uuid.Nil, fmt.Errorf("publish session analysis event: %w", err)
	}
	return eventID, nil
}

func (s *chatService) ownedSession(dbc dbctx.Context, userID uuid.UUID, sessionID string) (*types.ChatSession, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.ErrUnauthorized
	}
	session, err := s.sessions.GetBySessionID(dbc, userID, sessionID)
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	if session == nil {
		return nil, pkgerrors.ErrNotFound
	}
	return session, nil
}

func encodeMessageMetadata(analysis workflows.MessageAnalysis) string {
	type progress struct {
		EmotionalState string `json:"emotionalState"`
		RiskLevel      int    `json:"riskLevel"`
	}
	return mustJSONString(map[string]any{
		"analysis": analysis,
		"progress": progress{
			EmotionalState: analysis.EmotionalState,
			RiskLevel:      analysis.RiskLevel,
		},
	})
}
