package workflows

import (
	"context"
	"fmt"
	"strings"

	"github.com/lumahealth/luma-backend/internal/events"
	"github.com/lumahealth/luma-backend/internal/events/runtime"
	"github.com/lumahealth/luma-backend/internal/pkg/logger"
	"github.com/lumahealth/luma-backend/internal/platform/genai"
)

// MessageAnalysis is the model's read of a single user message.
type MessageAnalysis struct {
	EmotionalState      string   `json:"emotionalState"`
	Themes              []string `json:"themes"`
	RiskLevel           int      `json:"riskLevel"`
	RecommendedApproach string   `json:"recommendedApproach"`
	ProgressIndicators  []string `json:"progressIndicators"`
}

// FallbackAnalysis is substituted whenever analysis fails for any reason.
// Neutral and risk-free on purpose: a broken model call must not invent
// risk signals.
func FallbackAnalysis() MessageAnalysis {
	return MessageAnalysis{
		EmotionalState:      "neutral",
		Themes:              []string{},
		RiskLevel:           0,
		RecommendedApproach: "supportive",
		ProgressIndicators:  []string{},
	}
}

// FallbackReply is the reply of last resort when generation fails.
const FallbackReply = "I'm here to support you. Could you tell me more about what's on your mind?"

// AnalyzeMessage asks the model for a structured analysis of message.
// Callers substitute FallbackAnalysis on error.
func AnalyzeMessage(ctx context.Context, client genai.Client, message string, mem events.Memory, goals []string) (MessageAnalysis, error) {
	if goals == nil {
		goals = []string{}
	}
	user := fmt.Sprintf(`Analyze this therapy message and provide insights. Return ONLY a valid JSON object with no markdown formatting or additional text.
Message: %s
Context: %s

Required JSON structure:
{
"emotionalState": "string",
"themes": ["string"],
"riskLevel": number,
"recommendedApproach": "string",
"progressIndicators": ["string"]
}`, message, mustJSON(map[string]any{"memory": mem, "goals": goals}))

	text, err := client.GenerateText(ctx, SystemPrompt, user)
	if err != nil {
		return MessageAnalysis{}, err
	}

	var analysis MessageAnalysis
	if err := DecodeModelJSON(text, &analysis); err != nil {
		return MessageAnalysis{}, err
	}
	if analysis.Themes == nil {
		analysis.Themes = []string{}
	}
	if analysis.ProgressIndicators == nil {
		analysis.ProgressIndicators = []string{}
	}
	// riskLevel deliberately not clamped here; the message path stores what
	// the model said and the alert threshold reads it as-is.
	return analysis, nil
}

// GenerateReply produces the therapeutic response. Callers substitute
// FallbackReply on error.
func GenerateReply(ctx context.Context, client genai.Client, message string, analysis MessageAnalysis, mem events.Memory, goals []string) (string, error) {
	if goals == nil {
		goals = []string{}
	}
	user := fmt.Sprintf(`Based on the following context, generate a therapeutic response:
Message: %s
Analysis: %s
Memory: %s
Goals: %s

Provide a response that:
1. Addresses the immediate emotional needs
2. Uses appropriate therapeutic techniques
3. Shows empathy and understanding
4. Maintains professional boundaries
5. Considers safety and well-being`, message, mustJSON(analysis), mustJSON(mem), mustJSON(goals))

	text, err := client.GenerateText(ctx, SystemPrompt, user)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

// ChatResult is the chat workflow output, shared by the async handler and
// the synchronous request path.
type ChatResult struct {
	Response      string          `json:"response"`
	Analysis      MessageAnalysis `json:"analysis"`
	UpdatedMemory events.Memory   `json:"updatedMemory"`
}

// ChatMessageHandler processes therapy/session.message deliveries.
type ChatMessageHandler struct {
	client genai.Client
	log    *logger.Logger
}

func NewChatMessageHandler(client genai.Client, baseLog *logger.Logger) *ChatMessageHandler {
	return &ChatMessageHandler{
		client: client,
		log:    baseLog.With("handler", "chat-message"),
	}
}

func (h *ChatMessageHandler) Name() string  { return "chat-message" }
func (h *ChatMessageHandler) Event() string { return events.EventSessionMessage }
func (h *ChatMessageHandler) Retries() int  { return 2 }

func (h *ChatMessageHandler) Handle(rc *runtime.Context) error {
	var p events.SessionMessagePayload
	if err := rc.DecodePayload(&p); err != nil {
		return err
	}

	if err := rc.Step("validate", nil, func(ctx context.Context) (any, error) {
		if strings.TrimSpace(p.Message) == "" {
			return nil, runtime.Permanentf("empty message")
		}
		return map[string]bool{"ok": true}, nil
	}); err != nil {
		return err
	}

	var analysis MessageAnalysis
	if err := rc.Step("analyze-message", &analysis, func(ctx context.Context) (any, error) {
		a, err := AnalyzeMessage(ctx, h.client, p.Message, p.Memory, p.Goals)
		if err != nil {
			return nil, runtime.Recovered(FallbackAnalysis(), err)
		}
		return a, nil
	}); err != nil {
		return err
	}

	var mem events.Memory
	if err := rc.Step("update-memory", &mem, func(ctx context.Context) (any, error) {
		return p.Memory.WithAnalysis(analysis.EmotionalState, analysis.Themes, analysis.RiskLevel), nil
	}); err != nil {
		return err
	}

	if analysis.RiskLevel > 4 {
		if err := rc.Step("trigger-risk-alert", nil, func(ctx context.Context) (any, error) {
			h.log.Warn("High risk level detected in chat message",
				"user_id", p.UserID,
				"session_id", p.SessionID,
				"risk_level", analysis.RiskLevel,
			)
			return map[string]int{"riskLevel": analysis.RiskLevel}, nil
		}); err != nil {
			return err
		}
	}

	var reply string
	if err := rc.Step("generate-response", &reply, func(ctx context.Context) (any, error) {
		text, err := GenerateReply(ctx, h.client, p.Message, analysis, mem, p.Goals)
		if err != nil {
			return nil, runtime.Recovered(FallbackReply, err)
		}
		return text, nil
	}); err != nil {
		return err
	}

	rc.Succeed(ChatResult{Response: reply, Analysis: analysis, UpdatedMemory: mem})
	return nil
}
