package genai

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumahealth/luma-backend/internal/pkg/logger"
)

func newServerClient(t *testing.T, handler http.HandlerFunc) Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	t.Setenv("GENAI_API_KEY", "test-key")
	t.Setenv("GENAI_BASE_URL", srv.URL)
	t.Setenv("GENAI_MAX_RETRIES", "2")

	c, err := NewClient(logger.NewNop())
	require.NoError(t, err)
	return c
}

const assistantReply = `{
	"output": [
		{"type": "reasoning"},
		{"type": "message", "role": "assistant", "content": [
			{"type": "output_text", "text": "Hello "},
			{"type": "output_text", "text": "there"}
		]}
	]
}`

func TestNewClientRequiresAPIKey(t *testing.T) {
	t.Setenv("GENAI_API_KEY", "")
	_, err := NewClient(logger.NewNop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "GENAI_API_KEY")
}

func TestGenerateTextConcatenatesOutput(t *testing.T) {
	c := newServerClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/responses", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(assistantReply))
	})

	text, err := c.GenerateText(context.Background(), "be kind", "hi")
	require.NoError(t, err)
	assert.Equal(t, "Hello there", text)
}

func TestGenerateTextRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	c := newServerClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.Header().Set("Retry-After", "0")
			http.Error(w, "overloaded", http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(assistantReply))
	})

	text, err := c.GenerateText(context.Background(), "", "hi")
	require.NoError(t, err)
	assert.Equal(t, "Hello there", text)
	assert.Equal(t, int32(2), calls.Load())
}

func TestGenerateTextDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	c := newServerClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "bad request", http.StatusBadRequest)
	})

	_, err := c.GenerateText(context.Background(), "", "hi")
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestGenerateTextRejectsEmptyOutput(t *testing.T) {
	c := newServerClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"output": []}`))
	})

	_, err := c.GenerateText(context.Background(), "", "hi")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no output_text")
}

func TestGenerateTextSurfacesRefusal(t *testing.T) {
	c := newServerClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"output": [], "refusal": "cannot help with that"}`))
	})

	_, err := c.GenerateText(context.Background(), "", "hi")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model refused")
}
