package workflows

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/lumahealth/luma-backend/internal/data/repos"
	types "github.com/lumahealth/luma-backend/internal/domain"
	"github.com/lumahealth/luma-backend/internal/events"
	"github.com/lumahealth/luma-backend/internal/events/runtime"
	"github.com/lumahealth/luma-backend/internal/pkg/dbctx"
	"github.com/lumahealth/luma-backend/internal/pkg/logger"
	"github.com/lumahealth/luma-backend/internal/platform/genai"
)

// SessionInsights is the model's read of a whole session. Unlike the
// per-message analysis, risk here is clamped into [0,10] before storage.
type SessionInsights struct {
	KeyThemes          []string `json:"keyThemes"`
	EmotionalState     string   `json:"emotionalState"`
	AreasOfConcern     []string `json:"areasOfConcern"`
	Recommendations    []string `json:"recommendations"`
	ProgressIndicators []string `json:"progressIndicators"`
	RiskLevel          int      `json:"riskLevel"`
}

func (s SessionInsights) normalized() SessionInsights {
	if s.KeyThemes == nil {
		s.KeyThemes = []string{}
	}
	if s.AreasOfConcern == nil {
		s.AreasOfConcern = []string{}
	}
	if s.Recommendations == nil {
		s.Recommendations = []string{}
	}
	if s.ProgressIndicators == nil {
		s.ProgressIndicators = []string{}
	}
	if s.EmotionalState == "" {
		s.EmotionalState = "neutral"
	}
	s.RiskLevel = types.ClampRiskLevel(s.RiskLevel)
	return s
}

// AnalyzeSessionContent asks the model for structured session insights.
func AnalyzeSessionContent(ctx context.Context, client genai.Client, content string) (SessionInsights, error) {
	system := "You are an AI therapist assistant analyzing a completed therapy session. Return ONLY a valid JSON object with no markdown formatting or additional text."
	user := fmt.Sprintf(`Analyze this therapy session and provide insights:
Session Content: %s

Required JSON structure:
{
"keyThemes": ["string"],
"emotionalState": "string",
"areasOfConcern": ["string"],
"recommendations": ["string"],
"progressIndicators": ["string"],
"riskLevel": number
}`, content)

	text, err := client.GenerateText(ctx, system, user)
	if err != nil {
		return SessionInsights{}, err
	}
	var insights SessionInsights
	if err := DecodeModelJSON(text, &insights); err != nil {
		return SessionInsights{}, err
	}
	return insights.normalized(), nil
}

// SessionAnalysisHandler processes therapy/session.created deliveries.
type SessionAnalysisHandler struct {
	client   genai.Client
	sessions repos.ChatSessionRepo
	analyses repos.SessionAnalysisRepo
	log      *logger.Logger
}

func NewSessionAnalysisHandler(client genai.Client, sessions repos.ChatSessionRepo, analyses repos.SessionAnalysisRepo, baseLog *logger.Logger) *SessionAnalysisHandler {
	return &SessionAnalysisHandler{
		client:   client,
		sessions: sessions,
		analyses: analyses,
		log:      baseLog.With("handler", "session-analysis"),
	}
}

func (h *SessionAnalysisHandler) Name() string  { return "session-analysis" }
func (h *SessionAnalysisHandler) Event() string { return events.EventSessionCreated }
func (h *SessionAnalysisHandler) Retries() int  { return 1 }

func (h *SessionAnalysisHandler) Handle(rc *runtime.Context) error {
	var p events.SessionCreatedPayload
	if err := rc.DecodePayload(&p); err != nil {
		return err
	}

	var content string
	if err := rc.Step("get-session-content", &content, func(ctx context.Context) (any, error) {
		c := p.Notes
		if c == "" {
			c = p.Transcript
		}
		if strings.TrimSpace(c) == "" {
			return nil, runtime.Permanentf("session %s has no notes or transcript", p.SessionID)
		}
		return c, nil
	}); err != nil {
		return err
	}

	var insights SessionInsights
	if err := rc.Step("analyze-session", &insights, func(ctx context.Context) (any, error) {
		return AnalyzeSessionContent(ctx, h.client, content)
	}); err != nil {
		return err
	}

	var analysisID uuid.UUID
	if err := rc.Step("store-analysis", &analysisID, func(ctx context.Context) (any, error) {
		// Persistence failures propagate: an unstored analysis should
		// retry, not vanish behind a fallback.
		dbc := dbctx.Context{Ctx: ctx}
		session, err := h.sessions.GetBySessionID(dbc, p.UserID, p.SessionID)
		if err != nil {
			return nil, err
		}
		if session == nil {
			return nil, runtime.Permanentf("session %s not found", p.SessionID)
		}
		row := &types.SessionAnalysis{
			ID:                 uuid.New(),
			SessionRowID:       session.ID,
			UserID:             p.UserID,
			EmotionalState:     insights.EmotionalState,
			KeyThemes:          datatypes.JSON([]byte(mustJSON(insights.KeyThemes))),
			AreasOfConcern:     datatypes.JSON([]byte(mustJSON(insights.AreasOfConcern))),
			Recommendations:    datatypes.JSON([]byte(mustJSON(insights.Recommendations))),
			ProgressIndicators: datatypes.JSON([]byte(mustJSON(insights.ProgressIndicators))),
			RiskLevel:          insights.RiskLevel,
			RawAnalysis:        datatypes.JSON([]byte(mustJSON(insights))),
			AnalyzedAt:         time.Now(),
		}
		if _, err := h.analyses.Create(dbc, []*types.SessionAnalysis{row}); err != nil {
			return nil, err
		}
		return row.ID, nil
	}); err != nil {
		return err
	}

	if len(insights.AreasOfConcern) > 0 || insights.RiskLevel > 5 {
		if err := rc.Step("trigger-concern-alert", nil, func(ctx context.Context) (any, error) {
			h.log.Warn("Concerning indicators detected in session analysis",
				"user_id", p.UserID,
				"session_id", p.SessionID,
				"risk_level", insights.RiskLevel,
				"concerns", insights.AreasOfConcern,
			)
			return map[string]bool{"alerted": true}, nil
		}); err != nil {
			return err
		}
	}

	rc.Succeed(map[string]any{"analysisId": analysisID, "riskLevel": insights.RiskLevel})
	return nil
}
