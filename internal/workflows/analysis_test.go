package workflows

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumahealth/luma-backend/internal/data/repos/testutil"
	types "github.com/lumahealth/luma-backend/internal/domain"
	"github.com/lumahealth/luma-backend/internal/events"
	"github.com/lumahealth/luma-backend/internal/events/runtime"
	"github.com/lumahealth/luma-backend/internal/pkg/logger"
)

func TestSessionInsightsNormalization(t *testing.T) {
	got := SessionInsights{RiskLevel: 15}.normalized()
	assert.Equal(t, 10, got.RiskLevel)
	assert.Equal(t, "neutral", got.EmotionalState)
	assert.NotNil(t, got.KeyThemes)
	assert.NotNil(t, got.AreasOfConcern)
	assert.NotNil(t, got.Recommendations)
	assert.NotNil(t, got.ProgressIndicators)

	got = SessionInsights{RiskLevel: -3, EmotionalState: "hopeful"}.normalized()
	assert.Equal(t, 0, got.RiskLevel)
	assert.Equal(t, "hopeful", got.EmotionalState)
}

func newAnalysisFixture(userID uuid.UUID, sessionID string, client *fakeGenAI) (*SessionAnalysisHandler, *testutil.FakeChatSessionRepo, *testutil.FakeAnalysisRepo) {
	sessions := &testutil.FakeChatSessionRepo{Sessions: []*types.ChatSession{{
		ID:        uuid.New(),
		UserID:    userID,
		SessionID: sessionID,
		Status:    "completed",
		StartTime: time.Now().Add(-time.Hour),
	}}}
	analyses := &testutil.FakeAnalysisRepo{}
	return NewSessionAnalysisHandler(client, sessions, analyses, logger.NewNop()), sessions, analyses
}

func TestSessionAnalysisHandlerStoresInsights(t *testing.T) {
	userID := uuid.New()
	client := &fakeGenAI{responses: []string{
		`{"keyThemes":["grief"],"emotionalState":"sad","areasOfConcern":[],"recommendations":["journaling"],"progressIndicators":["opened up"],"riskLevel":3}`,
	}}
	h, sessions, analyses := newAnalysisFixture(userID, "sess-9", client)

	repo := testutil.NewFakeDeliveryRepo()
	rc := runnableContext(t, repo, events.SessionCreatedPayload{
		UserID:    userID,
		SessionID: "sess-9",
		Notes:     "We talked about loss and coping strategies.",
	}, h.Name())

	require.NoError(t, h.Handle(rc))
	row := repo.Row(rc.Delivery.ID)
	assert.Equal(t, types.DeliveryStatusSucceeded, row.Status)

	require.Len(t, analyses.Rows, 1)
	stored := analyses.Rows[0]
	assert.Equal(t, sessions.Sessions[0].ID, stored.SessionRowID)
	assert.Equal(t, userID, stored.UserID)
	assert.Equal(t, "sad", stored.EmotionalState)
	assert.Equal(t, 3, stored.RiskLevel)
	assert.Contains(t, string(stored.KeyThemes), "grief")
	// No concerns and risk below threshold: no alert step ran.
	assert.NotContains(t, string(row.Checkpoints), "trigger-concern-alert")
}

func TestSessionAnalysisHandlerClampsRisk(t *testing.T) {
	userID := uuid.New()
	client := &fakeGenAI{responses: []string{
		`{"keyThemes":[],"emotionalState":"distressed","areasOfConcern":["self-harm mention"],"recommendations":[],"progressIndicators":[],"riskLevel":15}`,
	}}
	h, _, analyses := newAnalysisFixture(userID, "sess-9", client)

	repo := testutil.NewFakeDeliveryRepo()
	rc := runnableContext(t, repo, events.SessionCreatedPayload{
		UserID:    userID,
		SessionID: "sess-9",
		Transcript: "full transcript here",
	}, h.Name())

	require.NoError(t, h.Handle(rc))
	require.Len(t, analyses.Rows, 1)
	assert.Equal(t, 10, analyses.Rows[0].RiskLevel)
	assert.Contains(t, string(repo.Row(rc.Delivery.ID).Checkpoints), "trigger-concern-alert")
}

func TestSessionAnalysisHandlerRejectsEmptyContent(t *testing.T) {
	userID := uuid.New()
	h, _, _ := newAnalysisFixture(userID, "sess-9", &fakeGenAI{responses: []string{"unused"}})

	repo := testutil.NewFakeDeliveryRepo()
	rc := runnableContext(t, repo, events.SessionCreatedPayload{
		UserID:    userID,
		SessionID: "sess-9",
	}, h.Name())

	err := h.Handle(rc)
	require.Error(t, err)
	assert.True(t, runtime.IsPermanent(err))
}

func TestSessionAnalysisHandlerMissingSessionIsPermanent(t *testing.T) {
	userID := uuid.New()
	client := &fakeGenAI{responses: []string{
		`{"keyThemes":[],"emotionalState":"ok","areasOfConcern":[],"recommendations":[],"progressIndicators":[],"riskLevel":1}`,
	}}
	h, _, _ := newAnalysisFixture(userID, "other-session", client)

	repo := testutil.NewFakeDeliveryRepo()
	rc := runnableContext(t, repo, events.SessionCreatedPayload{
		UserID:    userID,
		SessionID: "sess-unknown",
		Notes:     "notes",
	}, h.Name())

	err := h.Handle(rc)
	require.Error(t, err)
	assert.True(t, runtime.IsPermanent(err))
}

func TestSessionAnalysisRetriesOnModelFailure(t *testing.T) {
	userID := uuid.New()
	client := &fakeGenAI{err: assert.AnError}
	h, _, analyses := newAnalysisFixture(userID, "sess-9", client)

	repo := testutil.NewFakeDeliveryRepo()
	rc := runnableContext(t, repo, events.SessionCreatedPayload{
		UserID:    userID,
		SessionID: "sess-9",
		Notes:     "notes",
	}, h.Name())

	// No fallback on this path: the error propagates so the worker retries.
	err := h.Handle(rc)
	require.Error(t, err)
	assert.False(t, runtime.IsPermanent(err))
	assert.Empty(t, analyses.Rows)
}
