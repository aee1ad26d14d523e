package janitor

import (
	"context"
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/lumahealth/luma-backend/internal/data/repos"
	"github.com/lumahealth/luma-backend/internal/pkg/dbctx"
	"github.com/lumahealth/luma-backend/internal/pkg/env"
	"github.com/lumahealth/luma-backend/internal/pkg/logger"
)

// Janitor prunes terminal deliveries on a schedule. Stale running rows do
// not need help here: the claim query already reclaims them once their
// heartbeat goes stale.
type Janitor struct {
	repo      repos.EventDeliveryRepo
	log       *logger.Logger
	interval  time.Duration
	retention time.Duration
	scheduler gocron.Scheduler
}

func New(repo repos.EventDeliveryRepo, baseLog *logger.Logger) (*Janitor, error) {
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}
	return &Janitor{
		repo:      repo,
		log:       baseLog.With("component", "EventJanitor"),
		interval:  env.GetDuration("EVENT_JANITOR_INTERVAL", 1*time.Hour, baseLog),
		retention: env.GetDuration("EVENT_RETENTION", 7*24*time.Hour, baseLog),
		scheduler: scheduler,
	}, nil
}

func (j *Janitor) Start(ctx context.Context) error {
	_, err := j.scheduler.NewJob(
		gocron.DurationJob(j.interval),
		gocron.NewTask(func() {
			pruned, err := j.repo.PruneTerminal(dbctx.Context{Ctx: ctx}, j.retention)
			if err != nil {
				j.log.Warn("Prune failed", "error", err)
				return
			}
			if pruned > 0 {
				j.log.Info("Pruned terminal deliveries", "count", pruned)
			}
		}),
	)
	if err != nil {
		return err
	}
	j.scheduler.Start()
	return nil
}

func (j *Janitor) Stop() error {
	return j.scheduler.Shutdown()
}
