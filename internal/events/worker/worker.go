package worker

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/lumahealth/luma-backend/internal/data/repos"
	types "github.com/lumahealth/luma-backend/internal/domain"
	"github.com/lumahealth/luma-backend/internal/events/runtime"
	"github.com/lumahealth/luma-backend/internal/pkg/dbctx"
	"github.com/lumahealth/luma-backend/internal/pkg/env"
	"github.com/lumahealth/luma-backend/internal/pkg/logger"
)

// Worker polls for runnable deliveries and dispatches them to registered
// handlers. Each goroutine claims independently; SKIP LOCKED in the claim
// query keeps them from colliding.
type Worker struct {
	db       *gorm.DB
	log      *logger.Logger
	repo     repos.EventDeliveryRepo
	registry *runtime.Registry

	pollInterval time.Duration
	retryDelay   time.Duration
	staleRunning time.Duration
	stepTimeout  time.Duration
}

func NewWorker(db *gorm.DB, baseLog *logger.Logger, repo repos.EventDeliveryRepo, registry *runtime.Registry) *Worker {
	log := baseLog.With("component", "EventWorker")
	return &Worker{
		db:           db,
		log:          log,
		repo:         repo,
		registry:     registry,
		pollInterval: env.GetDuration("EVENT_POLL_INTERVAL", 1*time.Second, baseLog),
		retryDelay:   env.GetDuration("EVENT_RETRY_DELAY", 30*time.Second, baseLog),
		staleRunning: env.GetDuration("EVENT_STALE_RUNNING", 10*time.Minute, baseLog),
		stepTimeout:  env.GetDuration("EVENT_STEP_TIMEOUT", 60*time.Second, baseLog),
	}
}

func (w *Worker) Start(ctx context.Context) {
	concurrency := env.GetInt("EVENT_WORKER_CONCURRENCY", 4, w.log)
	if concurrency < 1 {
		concurrency = 1
	}
	w.log.Info("Starting event worker pool", "concurrency", concurrency)

	for i := 0; i < concurrency; i++ {
		workerID := i + 1
		go w.runLoop(ctx, workerID)
	}
}

func (w *Worker) runLoop(ctx context.Context, workerID int) {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info("Worker loop stopped", "worker_id", workerID)
			return
		case <-ticker.C:
			for {
				delivery, err := w.repo.ClaimNextRunnable(dbctx.Context{Ctx: ctx}, w.retryDelay, w.staleRunning)
				if err != nil {
					w.log.Warn("ClaimNextRunnable failed", "worker_id", workerID, "error", err)
					break
				}
				if delivery == nil {
					break
				}
				w.dispatch(ctx, workerID, delivery)
			}
		}
	}
}

func (w *Worker) dispatch(ctx context.Context, workerID int, delivery *types.EventDelivery) {
	rc := runtime.NewContext(ctx, w.db, delivery, w.repo, w.log, w.stepTimeout)

	// Keep the claim alive while a single step outlives the stale-running
	// window; otherwise another worker reclaims the row mid-run.
	hbCtx, stopHeartbeat := context.WithCancel(ctx)
	defer stopHeartbeat()
	go w.keepAlive(hbCtx, rc)

	h, ok := w.registry.Get(delivery.Handler)
	if !ok {
		w.log.Warn("No handler registered for delivery",
			"worker_id", workerID,
			"handler", delivery.Handler,
			"event", delivery.Event,
			"delivery_id", delivery.ID,
		)
		rc.DeadLetter(&missingHandlerError{Handler: delivery.Handler})
		return
	}

	defer func() {
		if r := recover(); r != nil {
			w.log.Error("Event handler panic",
				"worker_id", workerID,
				"delivery_id", delivery.ID,
				"handler", delivery.Handler,
				"panic", r,
			)
			w.settle(rc, fmt.Errorf("panic: %v", r))
		}
	}()

	if err := h.Handle(rc); err != nil {
		w.settle(rc, err)
		return
	}
	if !rc.Delivery.Terminal() {
		rc.Succeed(nil)
	}
}

// keepAlive refreshes the delivery heartbeat for as long as the dispatch
// runs. Heartbeat only touches running rows, so a tick racing the terminal
// update is a no-op.
func (w *Worker) keepAlive(ctx context.Context, rc *runtime.Context) {
	every := w.staleRunning / 3
	if every < 10*time.Millisecond {
		every = 10 * time.Millisecond
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			rc.Heartbeat()
		}
	}
}

// settle routes a handler error to failed or dead. Permanent errors skip
// the remaining budget; otherwise the row stays retryable until attempts
// reach max_attempts.
func (w *Worker) settle(rc *runtime.Context, err error) {
	d := rc.Delivery
	if runtime.IsPermanent(err) {
		w.log.Warn("Delivery dead-lettered (permanent)",
			"delivery_id", d.ID,
			"handler", d.Handler,
			"error", err,
		)
		rc.DeadLetter(err)
		return
	}
	if d.Attempts >= d.MaxAttempts {
		w.log.Error("Delivery dead-lettered (retry budget exhausted)",
			"delivery_id", d.ID,
			"handler", d.Handler,
			"attempts", d.Attempts,
			"error", err,
		)
		rc.DeadLetter(err)
		return
	}
	w.log.Warn("Delivery failed, will retry",
		"delivery_id", d.ID,
		"handler", d.Handler,
		"attempts", d.Attempts,
		"max_attempts", d.MaxAttempts,
		"error", err,
	)
	rc.Fail(err)
}

type missingHandlerError struct{ Handler string }

func (e *missingHandlerError) Error() string {
	return "no handler registered for handler=" + e.Handler
}
