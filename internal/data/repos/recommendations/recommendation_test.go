package recommendations_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/lumahealth/luma-backend/internal/data/repos/recommendations"
	"github.com/lumahealth/luma-backend/internal/data/repos/testutil"
	types "github.com/lumahealth/luma-backend/internal/domain"
	"github.com/lumahealth/luma-backend/internal/pkg/dbctx"
)

func seedRecommendation(tb testing.TB, ctx context.Context, tx *gorm.DB, userID uuid.UUID, completed bool, createdAt time.Time) *types.ActivityRecommendation {
	tb.Helper()
	r := &types.ActivityRecommendation{
		ID:                uuid.New(),
		UserID:            userID,
		ActivityType:      types.ActivityMeditation,
		Title:             "Breathing Exercise",
		DifficultyLevel:   types.DifficultyEasy,
		EstimatedDuration: 5,
		IsCompleted:       completed,
		CreatedAt:         createdAt,
	}
	if err := tx.WithContext(ctx).Create(r).Error; err != nil {
		tb.Fatalf("seed recommendation: %v", err)
	}
	return r
}

func TestListActiveExcludesCompletedAndStale(t *testing.T) {
	tx := testutil.Tx(t, testutil.DB(t))
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	repo := recommendations.NewRecommendationRepo(tx, testutil.Logger(t))

	u := testutil.SeedUser(t, ctx, tx, "rec-active-user")
	live := seedRecommendation(t, ctx, tx, u.ID, false, time.Now().Add(-time.Hour))
	seedRecommendation(t, ctx, tx, u.ID, true, time.Now().Add(-time.Hour))
	seedRecommendation(t, ctx, tx, u.ID, false, time.Now().Add(-10*24*time.Hour))

	out, err := repo.ListActive(dbc, u.ID, 7*24*time.Hour, 10)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, live.ID, out[0].ID)
}

func TestListActiveHonorsCap(t *testing.T) {
	tx := testutil.Tx(t, testutil.DB(t))
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	repo := recommendations.NewRecommendationRepo(tx, testutil.Logger(t))

	u := testutil.SeedUser(t, ctx, tx, "rec-cap-user")
	for i := 0; i < 4; i++ {
		seedRecommendation(t, ctx, tx, u.ID, false, time.Now().Add(-time.Duration(i)*time.Hour))
	}

	out, err := repo.ListActive(dbc, u.ID, 7*24*time.Hour, 2)
	require.NoError(t, err)
	assert.Len(t, out, 2)
}

func TestMarkCompletedFiresOnce(t *testing.T) {
	tx := testutil.Tx(t, testutil.DB(t))
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	repo := recommendations.NewRecommendationRepo(tx, testutil.Logger(t))

	u := testutil.SeedUser(t, ctx, tx, "rec-complete-user")
	rec := seedRecommendation(t, ctx, tx, u.ID, false, time.Now().Add(-time.Hour))

	ok, err := repo.MarkCompleted(dbc, u.ID, rec.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	row, err := repo.GetByID(dbc, rec.ID)
	require.NoError(t, err)
	assert.True(t, row.IsCompleted)
	assert.NotNil(t, row.CompletedAt)

	ok, err = repo.MarkCompleted(dbc, u.ID, rec.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	// Wrong owner never completes.
	other := seedRecommendation(t, ctx, tx, u.ID, false, time.Now())
	ok, err = repo.MarkCompleted(dbc, uuid.New(), other.ID)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestGetStatsAndCounters(t *testing.T) {
	tx := testutil.Tx(t, testutil.DB(t))
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}
	repo := recommendations.NewRecommendationRepo(tx, testutil.Logger(t))

	u := testutil.SeedUser(t, ctx, tx, "rec-stats-user")
	seedRecommendation(t, ctx, tx, u.ID, true, time.Now().Add(-time.Hour))
	seedRecommendation(t, ctx, tx, u.ID, false, time.Now().Add(-2*time.Hour))
	seedRecommendation(t, ctx, tx, u.ID, false, time.Now().Add(-40*24*time.Hour))

	stats, err := repo.GetStats(dbc, u.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.Total)
	assert.Equal(t, int64(1), stats.Completed)

	recent, err := repo.CountCreatedSince(dbc, u.ID, time.Now().AddDate(0, 0, -30))
	require.NoError(t, err)
	assert.Equal(t, int64(2), recent)

	byType, err := repo.TypeBreakdown(dbc, u.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), byType[types.ActivityMeditation])
}
