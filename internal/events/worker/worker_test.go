package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"github.com/lumahealth/luma-backend/internal/data/repos/testutil"
	types "github.com/lumahealth/luma-backend/internal/domain"
	"github.com/lumahealth/luma-backend/internal/events/runtime"
	"github.com/lumahealth/luma-backend/internal/pkg/dbctx"
	"github.com/lumahealth/luma-backend/internal/pkg/logger"
)

type testHandler struct {
	name    string
	event   string
	retries int
	handle  func(c *runtime.Context) error
}

func (h *testHandler) Name() string                    { return h.name }
func (h *testHandler) Event() string                   { return h.event }
func (h *testHandler) Retries() int                    { return h.retries }
func (h *testHandler) Handle(c *runtime.Context) error { return h.handle(c) }

func newTestWorker(t *testing.T, handlers ...runtime.Handler) (*Worker, *testutil.FakeDeliveryRepo) {
	t.Helper()
	repo := testutil.NewFakeDeliveryRepo()
	registry := runtime.NewRegistry()
	for _, h := range handlers {
		require.NoError(t, registry.Register(h))
	}
	return NewWorker(nil, logger.NewNop(), repo, registry), repo
}

func seedQueued(repo *testutil.FakeDeliveryRepo, handler string, maxAttempts int) *types.EventDelivery {
	return repo.Seed(&types.EventDelivery{
		EventID:     uuid.New(),
		UserID:      uuid.New(),
		Event:       "mood/updated",
		Handler:     handler,
		Status:      types.DeliveryStatusQueued,
		MaxAttempts: maxAttempts,
		Payload:     datatypes.JSON([]byte(`{}`)),
	})
}

func claim(t *testing.T, repo *testutil.FakeDeliveryRepo, w *Worker) *types.EventDelivery {
	t.Helper()
	d, err := repo.ClaimNextRunnable(dbctx.Context{}, w.retryDelay, w.staleRunning)
	require.NoError(t, err)
	require.NotNil(t, d)
	return d
}

func TestDispatchSucceedsDelivery(t *testing.T) {
	w, repo := newTestWorker(t, &testHandler{
		name: "mood-update", event: "mood/updated", retries: 1,
		handle: func(c *runtime.Context) error {
			c.Succeed(map[string]string{"trend": "stable"})
			return nil
		},
	})
	d := seedQueued(repo, "mood-update", 2)

	w.dispatch(context.Background(), 1, claim(t, repo, w))

	row := repo.Row(d.ID)
	assert.Equal(t, types.DeliveryStatusSucceeded, row.Status)
	assert.Contains(t, string(row.Result), "stable")
}

func TestDispatchSucceedsImplicitlyWhenHandlerForgets(t *testing.T) {
	w, repo := newTestWorker(t, &testHandler{
		name: "mood-update", event: "mood/updated", retries: 1,
		handle: func(c *runtime.Context) error { return nil },
	})
	d := seedQueued(repo, "mood-update", 2)

	w.dispatch(context.Background(), 1, claim(t, repo, w))
	assert.Equal(t, types.DeliveryStatusSucceeded, repo.Row(d.ID).Status)
}

func TestDispatchRetriesTransientFailure(t *testing.T) {
	w, repo := newTestWorker(t, &testHandler{
		name: "mood-update", event: "mood/updated", retries: 1,
		handle: func(c *runtime.Context) error { return errors.New("provider timeout") },
	})
	d := seedQueued(repo, "mood-update", 2)

	// First attempt fails but budget remains.
	w.dispatch(context.Background(), 1, claim(t, repo, w))
	row := repo.Row(d.ID)
	assert.Equal(t, types.DeliveryStatusFailed, row.Status)
	assert.Equal(t, 1, row.Attempts)
	assert.Equal(t, "provider timeout", row.Error)

	// Before the retry delay elapses the row is not claimable.
	got, err := repo.ClaimNextRunnable(dbctx.Context{}, time.Minute, time.Hour)
	require.NoError(t, err)
	assert.Nil(t, got)

	// With a zero retry delay the second attempt runs and exhausts the
	// budget.
	d2, err := repo.ClaimNextRunnable(dbctx.Context{}, 0, time.Hour)
	require.NoError(t, err)
	require.NotNil(t, d2)
	w.dispatch(context.Background(), 1, d2)
	row = repo.Row(d.ID)
	assert.Equal(t, types.DeliveryStatusDead, row.Status)
	assert.Equal(t, 2, row.Attempts)
}

func TestDispatchDeadLettersPermanentErrorImmediately(t *testing.T) {
	w, repo := newTestWorker(t, &testHandler{
		name: "mood-update", event: "mood/updated", retries: 5,
		handle: func(c *runtime.Context) error {
			return runtime.Permanentf("malformed payload")
		},
	})
	d := seedQueued(repo, "mood-update", 6)

	w.dispatch(context.Background(), 1, claim(t, repo, w))
	row := repo.Row(d.ID)
	assert.Equal(t, types.DeliveryStatusDead, row.Status)
	assert.Equal(t, 1, row.Attempts)
}

func TestDispatchDeadLettersUnknownHandler(t *testing.T) {
	w, repo := newTestWorker(t)
	d := seedQueued(repo, "ghost-handler", 3)

	w.dispatch(context.Background(), 1, claim(t, repo, w))
	row := repo.Row(d.ID)
	assert.Equal(t, types.DeliveryStatusDead, row.Status)
	assert.Contains(t, row.Error, "ghost-handler")
}

func TestDispatchRecoversFromPanic(t *testing.T) {
	w, repo := newTestWorker(t, &testHandler{
		name: "mood-update", event: "mood/updated", retries: 1,
		handle: func(c *runtime.Context) error { panic("nil map write") },
	})
	d := seedQueued(repo, "mood-update", 2)

	w.dispatch(context.Background(), 1, claim(t, repo, w))
	row := repo.Row(d.ID)
	assert.Equal(t, types.DeliveryStatusFailed, row.Status)
	assert.Contains(t, row.Error, "panic")
}

func TestDispatchHeartbeatsDuringLongStep(t *testing.T) {
	// Shrink the stale window so the keepalive ticker fires quickly.
	t.Setenv("EVENT_STALE_RUNNING", "60ms")

	repo := testutil.NewFakeDeliveryRepo()
	registry := runtime.NewRegistry()
	require.NoError(t, registry.Register(&testHandler{
		name: "mood-update", event: "mood/updated", retries: 1,
		handle: func(c *runtime.Context) error {
			// Block inside one step until a heartbeat newer than the claim
			// stamp lands, or give up.
			claimed := *c.Delivery.HeartbeatAt
			deadline := time.Now().Add(2 * time.Second)
			for time.Now().Before(deadline) {
				if hb := repo.Row(c.Delivery.ID).HeartbeatAt; hb != nil && hb.After(claimed) {
					return nil
				}
				time.Sleep(5 * time.Millisecond)
			}
			return errors.New("no heartbeat observed while the step was running")
		},
	}))
	w := NewWorker(nil, logger.NewNop(), repo, registry)
	d := seedQueued(repo, "mood-update", 2)

	w.dispatch(context.Background(), 1, claim(t, repo, w))
	assert.Equal(t, types.DeliveryStatusSucceeded, repo.Row(d.ID).Status)
}

func TestStaleRunningDeliveryIsReclaimed(t *testing.T) {
	w, repo := newTestWorker(t, &testHandler{
		name: "mood-update", event: "mood/updated", retries: 1,
		handle: func(c *runtime.Context) error { return nil },
	})
	stale := time.Now().Add(-time.Hour)
	d := repo.Seed(&types.EventDelivery{
		Event:       "mood/updated",
		Handler:     "mood-update",
		Status:      types.DeliveryStatusRunning,
		Attempts:    1,
		MaxAttempts: 2,
		HeartbeatAt: &stale,
		Payload:     datatypes.JSON([]byte(`{}`)),
	})

	claimed, err := repo.ClaimNextRunnable(dbctx.Context{}, w.retryDelay, 10*time.Minute)
	require.NoError(t, err)
	require.NotNil(t, claimed)
	assert.Equal(t, d.ID, claimed.ID)
	assert.Equal(t, 2, claimed.Attempts)
}
