package services

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumahealth/luma-backend/internal/data/repos/testutil"
	types "github.com/lumahealth/luma-backend/internal/domain"
	"github.com/lumahealth/luma-backend/internal/events"
	"github.com/lumahealth/luma-backend/internal/pkg/dbctx"
	pkgerrors "github.com/lumahealth/luma-backend/internal/pkg/errors"
	"github.com/lumahealth/luma-backend/internal/pkg/logger"
)

func newRecommendationServiceFixture() (RecommendationService, *testutil.FakeRecommendationRepo, *testutil.FakeDeliveryRepo) {
	recs := &testutil.FakeRecommendationRepo{}
	deliveries := testutil.NewFakeDeliveryRepo()
	svc := NewRecommendationService(logger.NewNop(), recs, newTestBus(deliveries))
	return svc, recs, deliveries
}

func seedRecommendation(recs *testutil.FakeRecommendationRepo, userID uuid.UUID, completed bool, age time.Duration) *types.ActivityRecommendation {
	r := &types.ActivityRecommendation{
		ID:           uuid.New(),
		UserID:       userID,
		ActivityType: types.ActivityMeditation,
		Title:        "Breathing Exercise",
		CreatedAt:    time.Now().Add(-age),
		IsCompleted:  completed,
	}
	recs.Rows = append(recs.Rows, r)
	return r
}

func TestRequestNewSkipsWhenRecentRecommendationsExist(t *testing.T) {
	svc, recs, deliveries := newRecommendationServiceFixture()
	userID := uuid.New()
	existing := seedRecommendation(recs, userID, false, time.Hour)
	// Completed rows never come back on the skip path.
	seedRecommendation(recs, userID, true, time.Hour)

	result, err := svc.RequestNew(dbctx.Context{}, userID, nil, false)
	require.NoError(t, err)
	assert.False(t, result.Requested)
	assert.Equal(t, "Recent recommendations already exist", result.Reason)
	// The caller still gets the uncompleted set it already has.
	require.Len(t, result.Existing, 1)
	assert.Equal(t, existing.ID, result.Existing[0].ID)
	assert.Empty(t, deliveries.All())
}

func TestRequestNewPublishesWhenGuardClears(t *testing.T) {
	svc, recs, deliveries := newRecommendationServiceFixture()
	userID := uuid.New()
	// Completed and stale rows do not trip the guard.
	seedRecommendation(recs, userID, true, time.Hour)
	seedRecommendation(recs, userID, false, 48*time.Hour)

	result, err := svc.RequestNew(dbctx.Context{}, userID, nil, false)
	require.NoError(t, err)
	assert.True(t, result.Requested)
	assert.Empty(t, result.Reason)

	rows := deliveries.All()
	require.Len(t, rows, 1)
	assert.Equal(t, events.EventMoodUpdated, rows[0].Event)
	assert.Equal(t, userID, rows[0].UserID)
	// No score supplied: the published payload carries the neutral default.
	assert.Contains(t, string(rows[0].Payload), `"score":50`)
}

func TestRequestNewForceBypassesGuard(t *testing.T) {
	svc, recs, deliveries := newRecommendationServiceFixture()
	userID := uuid.New()
	seedRecommendation(recs, userID, false, time.Hour)

	score := 3
	result, err := svc.RequestNew(dbctx.Context{}, userID, &score, true)
	require.NoError(t, err)
	assert.True(t, result.Requested)

	rows := deliveries.All()
	require.Len(t, rows, 1)
	assert.Contains(t, string(rows[0].Payload), `"score":3`)
}

func TestRequestNewRejectsNilUser(t *testing.T) {
	svc, _, _ := newRecommendationServiceFixture()
	_, err := svc.RequestNew(dbctx.Context{}, uuid.Nil, nil, false)
	assert.True(t, errors.Is(err, pkgerrors.ErrUnauthorized))
}

func TestCompleteMarksOnceAndStaysIdempotent(t *testing.T) {
	svc, recs, _ := newRecommendationServiceFixture()
	userID := uuid.New()
	rec := seedRecommendation(recs, userID, false, time.Hour)

	first, err := svc.Complete(dbctx.Context{}, userID, rec.ID)
	require.NoError(t, err)
	require.True(t, first.IsCompleted)
	require.NotNil(t, first.CompletedAt)
	completedAt := *first.CompletedAt

	second, err := svc.Complete(dbctx.Context{}, userID, rec.ID)
	require.NoError(t, err)
	assert.True(t, second.IsCompleted)
	assert.Equal(t, completedAt, *second.CompletedAt)
}

func TestCompleteHidesOtherUsersRows(t *testing.T) {
	svc, recs, _ := newRecommendationServiceFixture()
	rec := seedRecommendation(recs, uuid.New(), false, time.Hour)

	_, err := svc.Complete(dbctx.Context{}, uuid.New(), rec.ID)
	assert.True(t, errors.Is(err, pkgerrors.ErrNotFound))

	_, err = svc.Complete(dbctx.Context{}, uuid.Nil, rec.ID)
	assert.True(t, errors.Is(err, pkgerrors.ErrUnauthorized))
}

func TestHistoryClampsPagination(t *testing.T) {
	svc, recs, _ := newRecommendationServiceFixture()
	userID := uuid.New()
	for i := 0; i < 3; i++ {
		seedRecommendation(recs, userID, false, time.Duration(i)*time.Hour)
	}

	page, err := svc.History(dbctx.Context{}, userID, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, 20, page.Limit)
	assert.Equal(t, int64(3), page.TotalCount)
	assert.Equal(t, 1, page.TotalPages)
	assert.Len(t, page.Items, 3)

	page, err = svc.History(dbctx.Context{}, userID, 2, 200)
	require.NoError(t, err)
	assert.Equal(t, 2, page.Page)
	assert.Equal(t, 50, page.Limit)
	assert.Empty(t, page.Items)

	page, err = svc.History(dbctx.Context{}, userID, 2, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, page.TotalPages)
	assert.Len(t, page.Items, 1)
}

func TestStatsRoundsCompletionRate(t *testing.T) {
	svc, recs, _ := newRecommendationServiceFixture()
	userID := uuid.New()
	seedRecommendation(recs, userID, true, time.Hour)
	seedRecommendation(recs, userID, true, time.Hour)
	seedRecommendation(recs, userID, false, time.Hour)

	stats, err := svc.Stats(dbctx.Context{}, userID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.Total)
	assert.Equal(t, int64(2), stats.Completed)
	assert.Equal(t, 67, stats.CompletionRate)
	assert.Equal(t, int64(3), stats.Recent)
	assert.Equal(t, int64(3), stats.TypeBreakdown[types.ActivityMeditation])
}

func TestStatsZeroTotalHasZeroRate(t *testing.T) {
	svc, _, _ := newRecommendationServiceFixture()
	stats, err := svc.Stats(dbctx.Context{}, uuid.New())
	require.NoError(t, err)
	assert.Equal(t, 0, stats.CompletionRate)
}
