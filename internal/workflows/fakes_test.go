package workflows

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"github.com/lumahealth/luma-backend/internal/data/repos/testutil"
	types "github.com/lumahealth/luma-backend/internal/domain"
	"github.com/lumahealth/luma-backend/internal/events"
	"github.com/lumahealth/luma-backend/internal/events/runtime"
	"github.com/lumahealth/luma-backend/internal/pkg/logger"
)

// fakeGenAI returns canned responses in order, or err on every call.
type fakeGenAI struct {
	responses []string
	err       error
	calls     int
	prompts   []string
}

func (f *fakeGenAI) GenerateText(ctx context.Context, system, user string) (string, error) {
	f.calls++
	f.prompts = append(f.prompts, user)
	if f.err != nil {
		return "", f.err
	}
	i := f.calls - 1
	if i >= len(f.responses) {
		i = len(f.responses) - 1
	}
	return f.responses[i], nil
}

// runnableContext seeds a running delivery carrying payload and returns the
// runtime context a worker would hand to the handler.
func runnableContext(t *testing.T, repo *testutil.FakeDeliveryRepo, p events.Payload, handler string) *runtime.Context {
	t.Helper()
	raw, err := json.Marshal(p)
	require.NoError(t, err)
	d := repo.Seed(&types.EventDelivery{
		EventID:     uuid.New(),
		UserID:      uuid.New(),
		Event:       p.EventName(),
		Handler:     handler,
		Status:      types.DeliveryStatusRunning,
		Attempts:    1,
		MaxAttempts: 3,
		Payload:     datatypes.JSON(raw),
	})
	return runtime.NewContext(context.Background(), nil, d, repo, logger.NewNop(), 0)
}
