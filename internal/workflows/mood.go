package workflows

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/lumahealth/luma-backend/internal/data/repos"
	"github.com/lumahealth/luma-backend/internal/events"
	"github.com/lumahealth/luma-backend/internal/events/runtime"
	"github.com/lumahealth/luma-backend/internal/pkg/dbctx"
	"github.com/lumahealth/luma-backend/internal/pkg/logger"
)

const (
	// LowMoodScore is the threshold below which a single entry counts as
	// a low mood.
	LowMoodScore = 3

	// moodTrendBand is the dead zone around zero for the 7d-vs-30d
	// average comparison.
	moodTrendBand = 0.3
)

// MoodPatternAnalysis summarizes the trailing mood windows.
type MoodPatternAnalysis struct {
	Average7d       *float64 `json:"average7d"`
	Average30d      *float64 `json:"average30d"`
	Entries7d       int      `json:"entries7d"`
	Entries30d      int      `json:"entries30d"`
	RecentLowCount  int      `json:"recentLowCount"`
	Trend           string   `json:"trend"` // improving | declining | stable
	Recommendations []string `json:"recommendations"`
}

// MoodAlert is the alert decision returned as data, not fired as a side
// effect, so the caller (and tests) can see exactly what was decided.
type MoodAlert struct {
	Level  string `json:"level"` // high | medium | none
	Reason string `json:"reason,omitempty"`
}

// AnalyzeMoodPatterns computes trend and recommendations from the 7- and
// 30-day windows. score is the entry that triggered the analysis; a single
// low score recommends mindfulness even before any low-count history exists.
func AnalyzeMoodPatterns(dbc dbctx.Context, moods repos.MoodRepo, userID uuid.UUID, score int, now time.Time) (MoodPatternAnalysis, error) {
	avg7, n7, err := moods.AverageSince(dbc, userID, now.AddDate(0, 0, -7))
	if err != nil {
		return MoodPatternAnalysis{}, fmt.Errorf("7d average: %w", err)
	}
	avg30, n30, err := moods.AverageSince(dbc, userID, now.AddDate(0, 0, -30))
	if err != nil {
		return MoodPatternAnalysis{}, fmt.Errorf("30d average: %w", err)
	}
	lows, err := moods.CountLowSince(dbc, userID, LowMoodScore, now.AddDate(0, 0, -7))
	if err != nil {
		return MoodPatternAnalysis{}, fmt.Errorf("low count: %w", err)
	}

	a := MoodPatternAnalysis{
		Average7d:       avg7,
		Average30d:      avg30,
		Entries7d:       n7,
		Entries30d:      n30,
		RecentLowCount:  int(lows),
		Trend:           "stable",
		Recommendations: []string{},
	}
	if avg7 != nil && avg30 != nil {
		switch diff := *avg7 - *avg30; {
		case diff > moodTrendBand:
			a.Trend = "improving"
		case diff < -moodTrendBand:
			a.Trend = "declining"
		}
	}
	if score < LowMoodScore || a.RecentLowCount >= 2 {
		a.Recommendations = append(a.Recommendations, "Try a short mindfulness exercise")
	}
	if a.Trend == "declining" {
		a.Recommendations = append(a.Recommendations, "Consider scheduling a therapy session")
	}
	return a, nil
}

// DecideMoodAlert applies the alert policy to the triggering score and the
// pattern analysis.
func DecideMoodAlert(score int, analysis MoodPatternAnalysis) MoodAlert {
	if score < LowMoodScore {
		return MoodAlert{
			Level:  "high",
			Reason: fmt.Sprintf("Low mood score reported: %d", score),
		}
	}
	if analysis.Trend == "declining" {
		return MoodAlert{Level: "medium", Reason: "Mood trend declining over the last week"}
	}
	if analysis.RecentLowCount >= 2 {
		return MoodAlert{
			Level:  "medium",
			Reason: fmt.Sprintf("%d low mood entries in the last 7 days", analysis.RecentLowCount),
		}
	}
	return MoodAlert{Level: "none"}
}

// MoodUpdateHandler processes mood/updated deliveries: trend analysis plus
// an alert decision.
type MoodUpdateHandler struct {
	moods repos.MoodRepo
	log   *logger.Logger
}

func NewMoodUpdateHandler(moods repos.MoodRepo, baseLog *logger.Logger) *MoodUpdateHandler {
	return &MoodUpdateHandler{
		moods: moods,
		log:   baseLog.With("handler", "mood-update"),
	}
}

func (h *MoodUpdateHandler) Name() string  { return "mood-update" }
func (h *MoodUpdateHandler) Event() string { return events.EventMoodUpdated }
func (h *MoodUpdateHandler) Retries() int  { return 1 }

func (h *MoodUpdateHandler) Handle(rc *runtime.Context) error {
	var p events.MoodUpdatedPayload
	if err := rc.DecodePayload(&p); err != nil {
		return err
	}

	var analysis MoodPatternAnalysis
	if err := rc.Step("analyze-mood-patterns", &analysis, func(ctx context.Context) (any, error) {
		return AnalyzeMoodPatterns(dbctx.Context{Ctx: ctx}, h.moods, p.UserID, *p.Score, time.Now())
	}); err != nil {
		return err
	}

	var alert MoodAlert
	if err := rc.Step("build-alert-decision", &alert, func(ctx context.Context) (any, error) {
		a := DecideMoodAlert(*p.Score, analysis)
		if a.Level == "high" {
			h.log.Warn("High mood alert", "user_id", p.UserID, "reason", a.Reason)
		}
		return a, nil
	}); err != nil {
		return err
	}

	rc.Succeed(map[string]any{"analysis": analysis, "alert": alert})
	return nil
}
