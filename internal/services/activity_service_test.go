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

func TestActivityLogPersistsCompletedAndPublishes(t *testing.T) {
	activities := &testutil.FakeActivityRepo{}
	deliveries := testutil.NewFakeDeliveryRepo()
	svc := NewActivityService(logger.NewNop(), activities, newTestBus(deliveries))
	userID := uuid.New()

	dur := 25
	entry, err := svc.Log(dbctx.Context{}, userID, LogActivityInput{
		Type:     types.ActivityWalking,
		Name:     "Evening walk",
		Duration: &dur,
	})
	require.NoError(t, err)
	assert.True(t, entry.Completed)
	require.Len(t, activities.Entries, 1)

	rows := deliveries.All()
	require.Len(t, rows, 1)
	assert.Equal(t, events.EventActivityCompleted, rows[0].Event)
	assert.Contains(t, string(rows[0].Payload), entry.ID.String())
	assert.Contains(t, string(rows[0].Payload), `"duration":25`)
}

func TestActivityLogRejectsUnknownType(t *testing.T) {
	svc := NewActivityService(logger.NewNop(), &testutil.FakeActivityRepo{}, newTestBus(testutil.NewFakeDeliveryRepo()))
	_, err := svc.Log(dbctx.Context{}, uuid.New(), LogActivityInput{Type: "skydiving", Name: "Jump"})
	assert.True(t, errors.Is(err, pkgerrors.ErrInvalidArgument))
}

func TestActivityLogRequiresName(t *testing.T) {
	svc := NewActivityService(logger.NewNop(), &testutil.FakeActivityRepo{}, newTestBus(testutil.NewFakeDeliveryRepo()))
	_, err := svc.Log(dbctx.Context{}, uuid.New(), LogActivityInput{Type: types.ActivityReading})
	assert.True(t, errors.Is(err, pkgerrors.ErrInvalidArgument))
}

func TestActivityListSinceFiltersWindow(t *testing.T) {
	activities := &testutil.FakeActivityRepo{}
	svc := NewActivityService(logger.NewNop(), activities, newTestBus(testutil.NewFakeDeliveryRepo()))
	userID := uuid.New()
	activities.Create(dbctx.Context{}, []*types.ActivityEntry{
		{UserID: userID, Type: types.ActivityReading, Name: "Book", Timestamp: time.Now().Add(-time.Hour)},
		{UserID: userID, Type: types.ActivityReading, Name: "Old book", Timestamp: time.Now().AddDate(0, 0, -40)},
	})

	out, err := svc.ListSince(dbctx.Context{}, userID, time.Now().AddDate(0, 0, -30))
	require.NoError(t, err)
	assert.Len(t, out, 1)
}
