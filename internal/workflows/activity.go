package workflows

import (
	"context"
	"fmt"
	"strings"

	"github.com/lumahealth/luma-backend/internal/data/repos"
	"github.com/lumahealth/luma-backend/internal/events"
	"github.com/lumahealth/luma-backend/internal/events/runtime"
	"github.com/lumahealth/luma-backend/internal/pkg/dbctx"
	"github.com/lumahealth/luma-backend/internal/pkg/logger"
)

// ActivityProgress is the running tally after a completion.
type ActivityProgress struct {
	CompletedCount int64 `json:"completedCount"`
	TotalMinutes   int64 `json:"totalMinutes"`
	TotalPoints    int64 `json:"totalPoints"`
	TypeCount      int64 `json:"typeCount"`
}

// ComputePoints scores lifetime progress: 10 points per completion plus
// 1 point per 5 minutes.
func ComputePoints(completedCount, totalMinutes int64) int64 {
	return completedCount*10 + totalMinutes/5
}

// CheckAchievements returns the achievements unlocked by exactly this
// completion. The triggers compare against the post-completion totals with
// exact equality (count == 1, count == 10, per-type count == 5) or a
// threshold crossing (duration total reaching 30 with this entry), so an
// achievement fires once and never repeats.
func CheckAchievements(progress ActivityProgress, activityType string, entryMinutes int64) []string {
	var out []string
	if progress.CompletedCount == 1 {
		out = append(out, "First Activity")
	}
	if progress.CompletedCount == 10 {
		out = append(out, "10 Activities Milestone")
	}
	if entryMinutes > 0 && progress.TotalMinutes >= 30 && progress.TotalMinutes-entryMinutes < 30 {
		out = append(out, "30 Minutes Club")
	}
	if progress.TypeCount == 5 {
		out = append(out, fmt.Sprintf("%s Novice", titleCase(activityType)))
	}
	return out
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// ActivityCompletionHandler processes activity/completed deliveries.
type ActivityCompletionHandler struct {
	activities repos.ActivityRepo
	log        *logger.Logger
}

func NewActivityCompletionHandler(activities repos.ActivityRepo, baseLog *logger.Logger) *ActivityCompletionHandler {
	return &ActivityCompletionHandler{
		activities: activities,
		log:        baseLog.With("handler", "activity-completion"),
	}
}

func (h *ActivityCompletionHandler) Name() string  { return "activity-completion" }
func (h *ActivityCompletionHandler) Event() string { return events.EventActivityCompleted }
func (h *ActivityCompletionHandler) Retries() int  { return 1 }

func (h *ActivityCompletionHandler) Handle(rc *runtime.Context) error {
	var p events.ActivityCompletedPayload
	if err := rc.DecodePayload(&p); err != nil {
		return err
	}

	var progress ActivityProgress
	if err := rc.Step("update-progress", &progress, func(ctx context.Context) (any, error) {
		dbc := dbctx.Context{Ctx: ctx}
		count, err := h.activities.CountAll(dbc, p.UserID)
		if err != nil {
			return nil, err
		}
		minutes, err := h.activities.TotalMinutes(dbc, p.UserID)
		if err != nil {
			return nil, err
		}
		typeCount, err := h.activities.CountByType(dbc, p.UserID, p.Type)
		if err != nil {
			return nil, err
		}
		return ActivityProgress{
			CompletedCount: count,
			TotalMinutes:   minutes,
			TotalPoints:    ComputePoints(count, minutes),
			TypeCount:      typeCount,
		}, nil
	}); err != nil {
		return err
	}

	var achievements []string
	if err := rc.Step("check-achievements", &achievements, func(ctx context.Context) (any, error) {
		var entryMinutes int64
		if p.Duration != nil {
			entryMinutes = int64(*p.Duration)
		}
		unlocked := CheckAchievements(progress, p.Type, entryMinutes)
		if len(unlocked) > 0 {
			h.log.Info("Achievements unlocked",
				"user_id", p.UserID,
				"achievements", unlocked,
			)
		}
		if unlocked == nil {
			unlocked = []string{}
		}
		return unlocked, nil
	}); err != nil {
		return err
	}

	rc.Succeed(map[string]any{"progress": progress, "achievements": achievements})
	return nil
}
