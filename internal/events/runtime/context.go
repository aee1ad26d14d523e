package runtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/lumahealth/luma-backend/internal/data/repos"
	types "github.com/lumahealth/luma-backend/internal/domain"
	"github.com/lumahealth/luma-backend/internal/pkg/dbctx"
	"github.com/lumahealth/luma-backend/internal/pkg/logger"
)

// StepFunc is a single step body. It receives a context that carries the
// per-step timeout when one is configured.
type StepFunc func(ctx context.Context) (any, error)

// Validator is implemented by payload types that check themselves.
type Validator interface {
	Validate() error
}

// Context is the execution handle for one claimed delivery. It wraps the
// database handle, the delivery row, and the only sanctioned ways to run
// steps or terminate execution. Handlers never touch event_delivery rows
// directly.
type Context struct {
	Ctx      context.Context
	DB       *gorm.DB
	Delivery *types.EventDelivery
	Repo     repos.EventDeliveryRepo

	log         *logger.Logger
	stepTimeout time.Duration
	checkpoints map[string]stepCheckpoint
}

type stepCheckpoint struct {
	Status string          `json:"status"` // "ok" | "recovered"
	Result json.RawMessage `json:"result,omitempty"`
	At     time.Time       `json:"at"`
}

func NewContext(ctx context.Context, db *gorm.DB, delivery *types.EventDelivery, repo repos.EventDeliveryRepo, log *logger.Logger, stepTimeout time.Duration) *Context {
	c := &Context{
		Ctx:         ctx,
		DB:          db,
		Delivery:    delivery,
		Repo:        repo,
		log:         log.With("component", "EventRuntime"),
		stepTimeout: stepTimeout,
	}
	c.decodeCheckpoints()
	return c
}

func (c *Context) decodeCheckpoints() {
	c.checkpoints = map[string]stepCheckpoint{}
	if c.Delivery == nil || len(c.Delivery.Checkpoints) == 0 {
		return
	}
	// A corrupt checkpoint map degrades to re-running every step, which
	// at-least-once delivery already permits.
	var m map[string]stepCheckpoint
	if err := json.Unmarshal(c.Delivery.Checkpoints, &m); err != nil {
		c.log.Warn("Discarding unreadable checkpoints",
			"delivery_id", c.Delivery.ID,
			"error", err,
		)
		return
	}
	c.checkpoints = m
}

// DecodePayload unmarshals the delivery payload into out and validates it
// when out implements Validator.
func (c *Context) DecodePayload(out any) error {
	if c.Delivery == nil || len(c.Delivery.Payload) == 0 {
		return fmt.Errorf("delivery has no payload")
	}
	if err := json.Unmarshal(c.Delivery.Payload, out); err != nil {
		return Permanent(fmt.Errorf("decode payload: %w", err))
	}
	if v, ok := out.(Validator); ok {
		if err := v.Validate(); err != nil {
			return Permanent(err)
		}
	}
	return nil
}

// Step runs fn exactly once across every attempt of this delivery. If a
// checkpoint for name exists the cached result is decoded into out and fn
// is skipped. Otherwise fn runs (under the step timeout when configured),
// its result is persisted into the checkpoint map, and then decoded into
// out. Pass nil out to discard the result.
//
// A fn returning Recovered(value, cause) completes the step with value and
// a "recovered" tag; any other error fails the step and no checkpoint is
// written.
func (c *Context) Step(name string, out any, fn StepFunc) error {
	if cp, ok := c.checkpoints[name]; ok {
		c.log.Debug("Step cache hit",
			"delivery_id", c.deliveryID(),
			"step", name,
			"tag", cp.Status,
		)
		return decodeInto(cp.Result, out)
	}

	c.setStage(name)

	ctx := c.Ctx
	if ctx == nil {
		ctx = context.Background()
	}
	cancel := func() {}
	if c.stepTimeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, c.stepTimeout)
	}
	value, err := fn(ctx)
	cancel()

	status := "ok"
	if err != nil {
		var rec *RecoveredError
		if !errors.As(err, &rec) {
			return fmt.Errorf("step %s: %w", name, err)
		}
		status = "recovered"
		value = rec.Value
		c.log.Warn("Step recovered with fallback",
			"delivery_id", c.deliveryID(),
			"step", name,
			"cause", rec.Cause,
		)
	}

	raw, mErr := json.Marshal(value)
	if mErr != nil {
		return fmt.Errorf("step %s: encode result: %w", name, mErr)
	}

	cp := stepCheckpoint{Status: status, Result: raw, At: time.Now()}
	c.checkpoints[name] = cp
	if err := c.persistCheckpoints(); err != nil {
		// The step ran but its result is not durable; fail the attempt so
		// the retry path re-runs from the last persisted checkpoint.
		delete(c.checkpoints, name)
		return fmt.Errorf("step %s: persist checkpoint: %w", name, err)
	}

	return decodeInto(raw, out)
}

// StepRecovered reports whether a completed step finished on its fallback
// path.
func (c *Context) StepRecovered(name string) bool {
	cp, ok := c.checkpoints[name]
	return ok && cp.Status == "recovered"
}

func (c *Context) persistCheckpoints() error {
	if c.Repo == nil || c.Delivery == nil || c.Delivery.ID == uuid.Nil {
		return nil
	}
	raw, err := json.Marshal(c.checkpoints)
	if err != nil {
		return err
	}
	if err := c.Repo.SaveCheckpoints(dbctx.Context{Ctx: c.Ctx}, c.Delivery.ID, datatypes.JSON(raw)); err != nil {
		return err
	}
	c.Delivery.Checkpoints = datatypes.JSON(raw)
	return nil
}

func (c *Context) setStage(stage string) {
	if c.Repo == nil || c.Delivery == nil || c.Delivery.ID == uuid.Nil {
		return
	}
	now := time.Now()
	_, _ = c.Repo.UpdateFieldsUnlessStatus(dbctx.Context{Ctx: c.Ctx}, c.Delivery.ID,
		[]string{types.DeliveryStatusSucceeded, types.DeliveryStatusDead},
		map[string]interface{}{
			"stage":        stage,
			"heartbeat_at": now,
			"updated_at":   now,
		})
	c.Delivery.Stage = stage
	c.Delivery.HeartbeatAt = &now
}

// Succeed marks the delivery terminally succeeded and stores the handler
// result.
func (c *Context) Succeed(result any) {
	if c.Repo == nil || c.Delivery == nil || c.Delivery.ID == uuid.Nil {
		return
	}
	now := time.Now()
	updates := map[string]interface{}{
		"status":       types.DeliveryStatusSucceeded,
		"error":        "",
		"locked_at":    nil,
		"completed_at": now,
		"updated_at":   now,
	}
	if result != nil {
		if raw, err := json.Marshal(result); err == nil {
			updates["result"] = datatypes.JSON(raw)
		}
	}
	ok, _ := c.Repo.UpdateFieldsUnlessStatus(dbctx.Context{Ctx: c.Ctx}, c.Delivery.ID,
		[]string{types.DeliveryStatusDead},
		updates)
	if !ok {
		return
	}
	c.Delivery.Status = types.DeliveryStatusSucceeded
	c.Delivery.CompletedAt = &now
}

// Fail records a retryable failure. The delivery becomes claimable again
// once the retry delay passes, as long as attempts remain.
func (c *Context) Fail(err error) {
	c.terminate(types.DeliveryStatusFailed, err)
}

// DeadLetter parks the delivery permanently. Dead rows are never claimed;
// they stay queryable until the janitor prunes them.
func (c *Context) DeadLetter(err error) {
	c.terminate(types.DeliveryStatusDead, err)
}

func (c *Context) terminate(status string, err error) {
	if c.Repo == nil || c.Delivery == nil || c.Delivery.ID == uuid.Nil {
		return
	}
	now := time.Now()
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	ok, _ := c.Repo.UpdateFieldsUnlessStatus(dbctx.Context{Ctx: c.Ctx}, c.Delivery.ID,
		[]string{types.DeliveryStatusSucceeded, types.DeliveryStatusDead},
		map[string]interface{}{
			"status":        status,
			"error":         msg,
			"last_error_at": now,
			"locked_at":     nil,
			"updated_at":    now,
		})
	if !ok {
		return
	}
	c.Delivery.Status = status
	c.Delivery.Error = msg
	c.Delivery.LastErrorAt = &now
	c.Delivery.LockedAt = nil
}

// Heartbeat refreshes the liveness timestamp so the stale-running reclaim
// does not steal a slow delivery.
func (c *Context) Heartbeat() {
	if c.Repo == nil || c.Delivery == nil || c.Delivery.ID == uuid.Nil {
		return
	}
	_ = c.Repo.Heartbeat(dbctx.Context{Ctx: c.Ctx}, c.Delivery.ID)
}

func (c *Context) Log() *logger.Logger { return c.log }

func (c *Context) deliveryID() uuid.UUID {
	if c.Delivery == nil {
		return uuid.Nil
	}
	return c.Delivery.ID
}

func decodeInto(raw json.RawMessage, out any) error {
	if out == nil {
		return nil
	}
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode step result: %w", err)
	}
	return nil
}
