package services

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumahealth/luma-backend/internal/data/repos/testutil"
	types "github.com/lumahealth/luma-backend/internal/domain"
	"github.com/lumahealth/luma-backend/internal/pkg/dbctx"
	pkgerrors "github.com/lumahealth/luma-backend/internal/pkg/errors"
	"github.com/lumahealth/luma-backend/internal/pkg/logger"
)

func TestGetDeliveryScopedToOwner(t *testing.T) {
	deliveries := testutil.NewFakeDeliveryRepo()
	svc := NewEventService(logger.NewNop(), deliveries)
	userID := uuid.New()
	d := deliveries.Seed(&types.EventDelivery{
		EventID: uuid.New(),
		UserID:  userID,
		Event:   "mood/updated",
		Handler: "mood-update",
		Status:  types.DeliveryStatusSucceeded,
	})

	got, err := svc.GetDelivery(dbctx.Context{}, userID, d.ID)
	require.NoError(t, err)
	assert.Equal(t, d.ID, got.ID)

	// Another user's id looks like a missing row, not a forbidden one.
	_, err = svc.GetDelivery(dbctx.Context{}, uuid.New(), d.ID)
	assert.True(t, errors.Is(err, pkgerrors.ErrNotFound))

	_, err = svc.GetDelivery(dbctx.Context{}, userID, uuid.New())
	assert.True(t, errors.Is(err, pkgerrors.ErrNotFound))
}

func TestListByEventFiltersOtherUsers(t *testing.T) {
	deliveries := testutil.NewFakeDeliveryRepo()
	svc := NewEventService(logger.NewNop(), deliveries)
	userID := uuid.New()
	eventID := uuid.New()
	deliveries.Seed(&types.EventDelivery{EventID: eventID, UserID: userID, Event: "mood/updated", Handler: "mood-update", Status: types.DeliveryStatusQueued})
	deliveries.Seed(&types.EventDelivery{EventID: eventID, UserID: userID, Event: "mood/updated", Handler: "recommendation-generation", Status: types.DeliveryStatusQueued})
	deliveries.Seed(&types.EventDelivery{EventID: eventID, UserID: uuid.New(), Event: "mood/updated", Handler: "mood-update", Status: types.DeliveryStatusQueued})

	out, err := svc.ListByEvent(dbctx.Context{}, userID, eventID)
	require.NoError(t, err)
	assert.Len(t, out, 2)
}
