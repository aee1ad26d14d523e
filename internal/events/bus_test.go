package events

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumahealth/luma-backend/internal/data/repos/testutil"
	types "github.com/lumahealth/luma-backend/internal/domain"
	"github.com/lumahealth/luma-backend/internal/events/runtime"
	"github.com/lumahealth/luma-backend/internal/pkg/dbctx"
	"github.com/lumahealth/luma-backend/internal/pkg/logger"
)

type stubHandler struct {
	name    string
	event   string
	retries int
}

func (h *stubHandler) Name() string                    { return h.name }
func (h *stubHandler) Event() string                   { return h.event }
func (h *stubHandler) Retries() int                    { return h.retries }
func (h *stubHandler) Handle(c *runtime.Context) error { return nil }

func newTestBus(t *testing.T, handlers ...runtime.Handler) (*Bus, *testutil.FakeDeliveryRepo) {
	t.Helper()
	repo := testutil.NewFakeDeliveryRepo()
	registry := runtime.NewRegistry()
	for _, h := range handlers {
		require.NoError(t, registry.Register(h))
	}
	return NewBus(repo, registry, logger.NewNop()), repo
}

func TestPublishFansOutOneDeliveryPerHandler(t *testing.T) {
	bus, repo := newTestBus(t,
		&stubHandler{name: "chat-message", event: EventSessionMessage, retries: 2},
		&stubHandler{name: "chat-audit", event: EventSessionMessage, retries: 0},
	)

	userID := uuid.New()
	eventID, err := bus.Publish(dbctx.Context{}, userID, SessionMessagePayload{
		UserID:    userID,
		SessionID: "sess-1",
		Message:   "hello",
	})
	require.NoError(t, err)

	deliveries, err := repo.ListByEventID(dbctx.Context{}, eventID)
	require.NoError(t, err)
	require.Len(t, deliveries, 2)
	for _, d := range deliveries {
		assert.Equal(t, types.DeliveryStatusQueued, d.Status)
		assert.Equal(t, EventSessionMessage, d.Event)
		assert.Equal(t, userID, d.UserID)
		assert.Equal(t, 0, d.Attempts)
		assert.NotEmpty(t, d.Payload)
	}
	byHandler := map[string]int{}
	for _, d := range deliveries {
		byHandler[d.Handler] = d.MaxAttempts
	}
	assert.Equal(t, 3, byHandler["chat-message"])
	assert.Equal(t, 1, byHandler["chat-audit"])
}

func TestPublishRejectsInvalidPayloadBeforeStorage(t *testing.T) {
	bus, repo := newTestBus(t,
		&stubHandler{name: "chat-message", event: EventSessionMessage, retries: 2},
	)

	_, err := bus.Publish(dbctx.Context{}, uuid.New(), SessionMessagePayload{
		SessionID: "sess-1",
		// UserID and Message missing
	})
	require.Error(t, err)

	deliveries, _ := repo.ListByEventID(dbctx.Context{}, uuid.New())
	assert.Empty(t, deliveries)
}

func TestPublishWithNoSubscribersDropsEvent(t *testing.T) {
	bus, _ := newTestBus(t)

	eventID, err := bus.Publish(dbctx.Context{}, uuid.New(), MoodUpdatedPayload{
		UserID:    uuid.New(),
		MoodID:    uuid.New(),
		Score:     intPtr(5),
		Timestamp: "2026-01-02T15:04:05Z",
	})
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, eventID)
}

func TestPayloadValidation(t *testing.T) {
	assert.Error(t, SessionMessagePayload{}.Validate())
	assert.Error(t, MoodUpdatedPayload{UserID: uuid.New()}.Validate())
	assert.NoError(t, MoodUpdatedPayload{UserID: uuid.New(), Score: intPtr(7)}.Validate())
	assert.Error(t, ActivityCompletedPayload{UserID: uuid.New()}.Validate())
	assert.Error(t, SessionCreatedPayload{SessionID: "s"}.Validate())
}

func intPtr(v int) *int { return &v }
