package testutil

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	types "github.com/lumahealth/luma-backend/internal/domain"
	"github.com/lumahealth/luma-backend/internal/pkg/dbctx"
)

// FakeDeliveryRepo is an in-memory EventDeliveryRepo for runtime and worker
// tests. It mirrors the SQL repo's claim and guarded-update semantics
// closely enough that handler logic can be exercised without Postgres.
type FakeDeliveryRepo struct {
	mu   sync.Mutex
	rows map[uuid.UUID]*types.EventDelivery

	// CreateErr makes every Create call fail.
	CreateErr error
	// SaveCheckpointsErr makes every SaveCheckpoints call fail.
	SaveCheckpointsErr error
	// SaveCheckpointCalls counts checkpoint persists.
	SaveCheckpointCalls int
}

func NewFakeDeliveryRepo() *FakeDeliveryRepo {
	return &FakeDeliveryRepo{rows: map[uuid.UUID]*types.EventDelivery{}}
}

// Seed inserts a delivery directly, filling in an id when missing.
func (f *FakeDeliveryRepo) Seed(d *types.EventDelivery) *types.EventDelivery {
	f.mu.Lock()
	defer f.mu.Unlock()
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now()
	}
	cp := *d
	f.rows[d.ID] = &cp
	return d
}

// Row returns a copy of the stored delivery.
func (f *FakeDeliveryRepo) Row(id uuid.UUID) *types.EventDelivery {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.rows[id]
	if !ok {
		return nil
	}
	cp := *d
	return &cp
}

// All returns copies of every stored delivery, oldest first.
func (f *FakeDeliveryRepo) All() []*types.EventDelivery {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*types.EventDelivery, 0, len(f.rows))
	for _, d := range f.rows {
		cp := *d
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

func (f *FakeDeliveryRepo) Create(dbc dbctx.Context, deliveries []*types.EventDelivery) ([]*types.EventDelivery, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.CreateErr != nil {
		return nil, f.CreateErr
	}
	now := time.Now()
	for _, d := range deliveries {
		if d.ID == uuid.Nil {
			d.ID = uuid.New()
		}
		if d.CreatedAt.IsZero() {
			d.CreatedAt = now
		}
		cp := *d
		f.rows[d.ID] = &cp
	}
	return deliveries, nil
}

func (f *FakeDeliveryRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.EventDelivery, error) {
	return f.Row(id), nil
}

func (f *FakeDeliveryRepo) ListByEventID(dbc dbctx.Context, eventID uuid.UUID) ([]*types.EventDelivery, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*types.EventDelivery
	for _, d := range f.rows {
		if d.EventID == eventID {
			cp := *d
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Handler < out[j].Handler })
	return out, nil
}

func (f *FakeDeliveryRepo) ClaimNextRunnable(dbc dbctx.Context, retryDelay time.Duration, staleRunning time.Duration) (*types.EventDelivery, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	now := time.Now()
	retryCutoff := now.Add(-retryDelay)
	staleCutoff := now.Add(-staleRunning)

	var candidates []*types.EventDelivery
	for _, d := range f.rows {
		switch d.Status {
		case types.DeliveryStatusQueued:
			candidates = append(candidates, d)
		case types.DeliveryStatusFailed:
			if d.Attempts < d.MaxAttempts && (d.LastErrorAt == nil || d.LastErrorAt.Before(retryCutoff)) {
				candidates = append(candidates, d)
			}
		case types.DeliveryStatusRunning:
			if d.HeartbeatAt != nil && d.HeartbeatAt.Before(staleCutoff) {
				candidates = append(candidates, d)
			}
		}
	}
	if len(candidates) == 0 {
		return nil, nil
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].CreatedAt.Before(candidates[j].CreatedAt) })

	d := candidates[0]
	d.Status = types.DeliveryStatusRunning
	d.Attempts++
	d.LockedAt = &now
	d.HeartbeatAt = &now
	d.UpdatedAt = now
	cp := *d
	return &cp, nil
}

func (f *FakeDeliveryRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if d, ok := f.rows[id]; ok {
		applyDeliveryUpdates(d, updates)
	}
	return nil
}

func (f *FakeDeliveryRepo) UpdateFieldsUnlessStatus(dbc dbctx.Context, id uuid.UUID, disallowedStatuses []string, updates map[string]interface{}) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.rows[id]
	if !ok {
		return false, nil
	}
	for _, s := range disallowedStatuses {
		if d.Status == s {
			return false, nil
		}
	}
	applyDeliveryUpdates(d, updates)
	return true, nil
}

func (f *FakeDeliveryRepo) Heartbeat(dbc dbctx.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if d, ok := f.rows[id]; ok && d.Status == types.DeliveryStatusRunning {
		now := time.Now()
		d.HeartbeatAt = &now
		d.UpdatedAt = now
	}
	return nil
}

func (f *FakeDeliveryRepo) SaveCheckpoints(dbc dbctx.Context, id uuid.UUID, checkpoints datatypes.JSON) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.SaveCheckpointCalls++
	if f.SaveCheckpointsErr != nil {
		return f.SaveCheckpointsErr
	}
	if d, ok := f.rows[id]; ok {
		d.Checkpoints = checkpoints
		d.UpdatedAt = time.Now()
	}
	return nil
}

func (f *FakeDeliveryRepo) PruneTerminal(dbc dbctx.Context, olderThan time.Duration) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cutoff := time.Now().Add(-olderThan)
	var pruned int64
	for id, d := range f.rows {
		if (d.Status == types.DeliveryStatusSucceeded || d.Status == types.DeliveryStatusDead) && d.UpdatedAt.Before(cutoff) {
			delete(f.rows, id)
			pruned++
		}
	}
	return pruned, nil
}

func applyDeliveryUpdates(d *types.EventDelivery, updates map[string]interface{}) {
	for key, val := range updates {
		switch key {
		case "status":
			d.Status = val.(string)
		case "stage":
			d.Stage = val.(string)
		case "error":
			d.Error = val.(string)
		case "checkpoints":
			d.Checkpoints = val.(datatypes.JSON)
		case "result":
			d.Result = val.(datatypes.JSON)
		case "locked_at":
			d.LockedAt = timePtr(val)
		case "heartbeat_at":
			d.HeartbeatAt = timePtr(val)
		case "last_error_at":
			d.LastErrorAt = timePtr(val)
		case "completed_at":
			d.CompletedAt = timePtr(val)
		case "updated_at":
			if t, ok := val.(time.Time); ok {
				d.UpdatedAt = t
			}
		}
	}
}

func timePtr(val interface{}) *time.Time {
	switch t := val.(type) {
	case time.Time:
		return &t
	case *time.Time:
		return t
	default:
		return nil
	}
}
