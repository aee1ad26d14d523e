package workflows

import (
	"context"
	"fmt"
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

const (
	minRecommendationMinutes = 5
	maxRecommendationMinutes = 120
)

// RecommendationCandidate is one suggested activity before persistence.
type RecommendationCandidate struct {
	ActivityType      string   `json:"activityType"`
	Title             string   `json:"title"`
	Description       string   `json:"description"`
	Reasoning         string   `json:"reasoning"`
	ExpectedBenefits  []string `json:"expectedBenefits"`
	DifficultyLevel   string   `json:"difficultyLevel"`
	EstimatedDuration int      `json:"estimatedDuration"`
}

// UserContext is what the generation prompt sees about the user.
type UserContext struct {
	Name            string            `json:"name,omitempty"`
	TriggeringScore int               `json:"triggeringScore"`
	RecentMoods     []contextMood     `json:"recentMoods"`
	RecentActivity  []contextActivity `json:"recentActivities"`
}

type contextMood struct {
	Score     int       `json:"score"`
	Timestamp time.Time `json:"timestamp"`
}

type contextActivity struct {
	Type      string    `json:"type"`
	Name      string    `json:"name"`
	Duration  *int      `json:"duration,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// NormalizeCandidate forces a candidate into storable shape: unknown
// activity types become meditation, duration clamps into [5,120] minutes,
// unknown difficulties become easy.
func NormalizeCandidate(c RecommendationCandidate) RecommendationCandidate {
	if !types.ValidActivityType(c.ActivityType) {
		c.ActivityType = types.ActivityMeditation
	}
	if c.EstimatedDuration < minRecommendationMinutes {
		c.EstimatedDuration = minRecommendationMinutes
	}
	if c.EstimatedDuration > maxRecommendationMinutes {
		c.EstimatedDuration = maxRecommendationMinutes
	}
	if !types.ValidDifficulty(c.DifficultyLevel) {
		c.DifficultyLevel = types.DifficultyEasy
	}
	if c.ExpectedBenefits == nil {
		c.ExpectedBenefits = []string{}
	}
	if c.Title == "" {
		c.Title = titleCase(c.ActivityType)
	}
	return c
}

// DefaultRecommendations covers total generation failure so the user never
// ends up with nothing.
func DefaultRecommendations() []RecommendationCandidate {
	return []RecommendationCandidate{
		{
			ActivityType:      types.ActivityMeditation,
			Title:             "Breathing Exercise",
			Description:       "A short guided breathing exercise to help you reset.",
			Reasoning:         "Brief breathing practice is a low-effort way to steady your mood.",
			ExpectedBenefits:  []string{"Reduced stress", "Improved focus"},
			DifficultyLevel:   types.DifficultyEasy,
			EstimatedDuration: 5,
		},
		{
			ActivityType:      types.ActivityWalking,
			Title:             "Short Walk",
			Description:       "A 15-minute walk outside, at whatever pace feels right.",
			Reasoning:         "Light movement and a change of scenery reliably lift mood.",
			ExpectedBenefits:  []string{"Light exercise", "Fresh air"},
			DifficultyLevel:   types.DifficultyEasy,
			EstimatedDuration: 15,
		},
	}
}

// GenerateCandidates asks the model for 3-5 recommendations as a strict
// JSON array.
func GenerateCandidates(ctx context.Context, client genai.Client, uc UserContext) ([]RecommendationCandidate, error) {
	system := "You are a wellness coach generating personalized activity recommendations. Return ONLY a valid JSON array with no markdown formatting or additional text."
	user := fmt.Sprintf(`Based on the following user context, generate 3-5 personalized activity recommendations.
User Context: %s

Each array element must match:
{
"activityType": "meditation|exercise|walking|reading|journaling|therapy",
"title": "string",
"description": "string",
"reasoning": "string",
"expectedBenefits": ["string"],
"difficultyLevel": "easy|medium|hard",
"estimatedDuration": number
}`, mustJSON(uc))

	text, err := client.GenerateText(ctx, system, user)
	if err != nil {
		return nil, err
	}
	var out []RecommendationCandidate
	if err := DecodeModelJSON(text, &out); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("model returned no candidates")
	}
	return out, nil
}

// RecommendationHandler is the second subscriber on mood/updated: it turns
// a mood change into stored activity recommendations.
type RecommendationHandler struct {
	client          genai.Client
	users           repos.UserRepo
	moods           repos.MoodRepo
	activities      repos.ActivityRepo
	recommendations repos.RecommendationRepo
	log             *logger.Logger
}

func NewRecommendationHandler(
	client genai.Client,
	users repos.UserRepo,
	moods repos.MoodRepo,
	activities repos.ActivityRepo,
	recommendations repos.RecommendationRepo,
	baseLog *logger.Logger,
) *RecommendationHandler {
	return &RecommendationHandler{
		client:          client,
		users:           users,
		moods:           moods,
		activities:      activities,
		recommendations: recommendations,
		log:             baseLog.With("handler", "recommendation-generation"),
	}
}

func (h *RecommendationHandler) Name() string  { return "recommendation-generation" }
func (h *RecommendationHandler) Event() string { return events.EventMoodUpdated }
func (h *RecommendationHandler) Retries() int  { return 1 }

func (h *RecommendationHandler) Handle(rc *runtime.Context) error {
	var p events.MoodUpdatedPayload
	if err := rc.DecodePayload(&p); err != nil {
		return err
	}

	var uc UserContext
	if err := rc.Step("gather-user-context", &uc, func(ctx context.Context) (any, error) {
		built, err := h.gatherContext(ctx, p)
		if err != nil {
			// Generation still works from an empty context; losing history
			// is better than losing the recommendations.
			return nil, runtime.Recovered(UserContext{TriggeringScore: *p.Score}, err)
		}
		return built, nil
	}); err != nil {
		return err
	}

	var candidates []RecommendationCandidate
	if err := rc.Step("generate-recommendations", &candidates, func(ctx context.Context) (any, error) {
		out, err := GenerateCandidates(ctx, h.client, uc)
		if err != nil {
			return nil, runtime.Recovered(DefaultRecommendations(), err)
		}
		return out, nil
	}); err != nil {
		return err
	}

	var normalized []RecommendationCandidate
	if err := rc.Step("normalize", &normalized, func(ctx context.Context) (any, error) {
		out := make([]RecommendationCandidate, 0, len(candidates))
		for _, c := range candidates {
			out = append(out, NormalizeCandidate(c))
		}
		return out, nil
	}); err != nil {
		return err
	}

	var storedIDs []uuid.UUID
	if err := rc.Step("store-recommendations", &storedIDs, func(ctx context.Context) (any, error) {
		return h.store(ctx, p, uc, normalized)
	}); err != nil {
		return err
	}

	rc.Succeed(map[string]any{"stored": len(storedIDs), "ids": storedIDs})
	return nil
}

func (h *RecommendationHandler) gatherContext(ctx context.Context, p events.MoodUpdatedPayload) (UserContext, error) {
	dbc := dbctx.Context{Ctx: ctx}
	now := time.Now()

	uc := UserContext{
		TriggeringScore: *p.Score,
		RecentMoods:     []contextMood{},
		RecentActivity:  []contextActivity{},
	}

	if u, err := h.users.GetByID(dbc, p.UserID); err != nil {
		return UserContext{}, err
	} else if u != nil {
		uc.Name = u.Name
	}

	moods, err := h.moods.ListSince(dbc, p.UserID, now.AddDate(0, 0, -7))
	if err != nil {
		return UserContext{}, err
	}
	for _, m := range moods {
		uc.RecentMoods = append(uc.RecentMoods, contextMood{Score: m.Score, Timestamp: m.Timestamp})
	}

	acts, err := h.activities.ListSince(dbc, p.UserID, now.AddDate(0, 0, -14))
	if err != nil {
		return UserContext{}, err
	}
	for _, a := range acts {
		uc.RecentActivity = append(uc.RecentActivity, contextActivity{
			Type:      a.Type,
			Name:      a.Name,
			Duration:  a.Duration,
			Timestamp: a.Timestamp,
		})
	}
	return uc, nil
}

func (h *RecommendationHandler) store(ctx context.Context, p events.MoodUpdatedPayload, uc UserContext, candidates []RecommendationCandidate) ([]uuid.UUID, error) {
	dbc := dbctx.Context{Ctx: ctx}
	now := time.Now()

	snapshot := types.RecommendationContext{
		RecentActivityCount: len(uc.RecentActivity),
		GeneratedAt:         now,
	}
	if len(uc.RecentMoods) > 0 {
		sum := 0
		for _, m := range uc.RecentMoods {
			sum += m.Score
		}
		avg := float64(sum) / float64(len(uc.RecentMoods))
		snapshot.RecentMoodAverage = &avg
	}
	snapshotJSON := datatypes.JSON([]byte(mustJSON(snapshot)))

	rows := make([]*types.ActivityRecommendation, 0, len(candidates))
	for _, c := range candidates {
		rows = append(rows, &types.ActivityRecommendation{
			ID:                uuid.New(),
			UserID:            p.UserID,
			ActivityType:      c.ActivityType,
			Title:             c.Title,
			Description:       c.Description,
			Reasoning:         c.Reasoning,
			ExpectedBenefits:  datatypes.JSON([]byte(mustJSON(c.ExpectedBenefits))),
			DifficultyLevel:   c.DifficultyLevel,
			EstimatedDuration: c.EstimatedDuration,
			BasedOnMoodScore:  p.Score,
			Context:           snapshotJSON,
		})
	}
	created, err := h.recommendations.Create(dbc, rows)
	if err != nil {
		return nil, err
	}
	ids := make([]uuid.UUID, 0, len(created))
	for _, r := range created {
		ids = append(ids, r.ID)
	}
	h.log.Info("Stored activity recommendations", "user_id", p.UserID, "count", len(ids))
	return ids, nil
}
