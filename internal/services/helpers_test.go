package services

import (
	"context"

	"github.com/lumahealth/luma-backend/internal/data/repos/testutil"
	"github.com/lumahealth/luma-backend/internal/events"
	"github.com/lumahealth/luma-backend/internal/events/runtime"
	"github.com/lumahealth/luma-backend/internal/pkg/logger"
)

// sinkHandler subscribes to one event so Publish has somewhere to fan out.
// It never runs in these tests; the worker is not involved.
type sinkHandler struct {
	event   string
	name    string
	retries int
}

func (h *sinkHandler) Name() string            { return h.name }
func (h *sinkHandler) Event() string           { return h.event }
func (h *sinkHandler) Retries() int            { return h.retries }
func (h *sinkHandler) Handle(*runtime.Context) error { return nil }

// newTestBus wires a bus over the fake delivery repo with one sink per
// event the services publish. Tests assert on the rows the bus created.
func newTestBus(repo *testutil.FakeDeliveryRepo) *events.Bus {
	registry := runtime.NewRegistry()
	registry.Register(&sinkHandler{event: events.EventMoodUpdated, name: "mood-sink", retries: 1})
	registry.Register(&sinkHandler{event: events.EventSessionMessage, name: "chat-sink", retries: 2})
	registry.Register(&sinkHandler{event: events.EventActivityCompleted, name: "activity-sink", retries: 1})
	registry.Register(&sinkHandler{event: events.EventSessionCreated, name: "analysis-sink", retries: 2})
	return events.NewBus(repo, registry, logger.NewNop())
}

// stubGenAI answers every prompt with the same text, or fails every call.
type stubGenAI struct {
	reply string
	err   error
	calls int
}

func (s *stubGenAI) GenerateText(ctx context.Context, system, user string) (string, error) {
	s.calls++
	if s.err != nil {
		return "", s.err
	}
	return s.reply, nil
}
