package genai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/lumahealth/luma-backend/internal/pkg/httpx"
	"github.com/lumahealth/luma-backend/internal/pkg/logger"
)

// Client is the generative-model client used by the workflow handlers.
// Implementations must be safe for concurrent use.
type Client interface {
	GenerateText(ctx context.Context, system string, user string) (string, error)
}

type client struct {
	log        *logger.Logger
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
	maxRetries int
}

func NewClient(log *logger.Logger) (Client, error) {
	apiKey := strings.TrimSpace(os.Getenv("GENAI_API_KEY"))
	if apiKey == "" {
		return nil, fmt.Errorf("missing GENAI_API_KEY")
	}

	baseURL := strings.TrimSpace(os.Getenv("GENAI_BASE_URL"))
	if baseURL == "" {
		baseURL = "https://api.openai.com"
	}
	baseURL = strings.TrimRight(baseURL, "/")

	model := strings.TrimSpace(os.Getenv("GENAI_MODEL"))
	if model == "" {
		model = "gpt-4o-mini"
	}

	timeout := 60 * time.Second
	if raw := strings.TrimSpace(os.Getenv("GENAI_TIMEOUT_SECONDS")); raw != "" {
		if secs, err := strconv.Atoi(raw); err == nil && secs > 0 {
			timeout = time.Duration(secs) * time.Second
		}
	}

	maxRetries := 2
	if raw := strings.TrimSpace(os.Getenv("GENAI_MAX_RETRIES")); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n >= 0 {
			maxRetries = n
		}
	}

	return &client{
		log:        log.With("client", "GenAIClient"),
		baseURL:    baseURL,
		apiKey:     apiKey,
		model:      model,
		httpClient: &http.Client{Timeout: timeout},
		maxRetries: maxRetries,
	}, nil
}

type responsesRequest struct {
	Model string `json:"model"`

	Input []struct {
		Role    string `json:"role"`
		Content any    `json:"content"`
	} `json:"input"`
}

type responsesResponse struct {
	Output []struct {
		Type    string `json:"type"`
		Role    string `json:"role,omitempty"`
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text,omitempty"`
		} `json:"content,omitempty"`
	} `json:"output"`
	Refusal string `json:"refusal,omitempty"`
}

func (c *client) GenerateText(ctx context.Context, system string, user string) (string, error) {
	req := responsesRequest{
		Model: c.model,
		Input: []struct {
			Role    string `json:"role"`
			Content any    `json:"content"`
		}{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
	}

	var resp responsesResponse
	if err := c.do(ctx, "POST", "/v1/responses", &req, &resp); err != nil {
		return "", err
	}
	if resp.Refusal != "" {
		return "", fmt.Errorf("model refused: %s", resp.Refusal)
	}

	text := extractOutputText(resp)
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("no output_text found in response")
	}
	return text, nil
}

func (c *client) do(ctx context.Context, method, path string, body any, out any) error {
	backoff := 1 * time.Second

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		resp, raw, err := c.doOnce(ctx, method, path, body)
		if err == nil {
			if out == nil {
				return nil
			}
			if uErr := json.Unmarshal(raw, out); uErr != nil {
				return fmt.Errorf("genai decode error: %w; raw=%s", uErr, string(raw))
			}
			return nil
		}

		if !httpx.IsRetryableError(err) {
			return err
		}
		if attempt == c.maxRetries {
			return err
		}

		sleepFor := httpx.RetryAfterDuration(resp, backoff, 10*time.Second)
		sleepFor = httpx.JitterSleep(sleepFor)

		c.log.Warn("genai request retrying",
			"path", path,
			"attempt", attempt+1,
			"max_retries", c.maxRetries,
			"sleep", sleepFor.String(),
			"error", err.Error(),
		)

		time.Sleep(sleepFor)
		backoff *= 2
	}

	return fmt.Errorf("unreachable retry loop")
}

func (c *client) doOnce(ctx context.Context, method, path string, body any) (*http.Response, []byte, error) {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return nil, nil, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, &buf)
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil, err
	}

	raw, readErr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if readErr != nil {
		return resp, nil, readErr
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp, raw, &genaiHTTPError{StatusCode: resp.StatusCode, Body: string(raw)}
	}
	return resp, raw, nil
}

func extractOutputText(resp responsesResponse) string {
	var out strings.Builder
	for _, item := range resp.Output {
		if item.Type == "message" && item.Role == "assistant" {
			for _, c := range item.Content {
				if c.Type == "output_text" && c.Text != "" {
					out.WriteString(c.Text)
				}
			}
		}
	}
	return out.String()
}

type genaiHTTPError struct {
	StatusCode int
	Body       string
}

func (e *genaiHTTPError) Error() string {
	return fmt.Sprintf("genai http %d: %s", e.StatusCode, e.Body)
}

func (e *genaiHTTPError) HTTPStatusCode() int {
	if e == nil {
		return 0
	}
	return e.StatusCode
}
