// Package litellm implements the generation port against a LiteLLM-style
// OpenAI-compatible proxy.
package litellm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/Strob0t/MissionForge/internal/config"
	"github.com/Strob0t/MissionForge/internal/port/generation"
	"github.com/Strob0t/MissionForge/internal/resilience"
)

// Client talks to the proxy's chat completions endpoint. All mission roles
// share one client; the tier decides which model each call requests.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	breaker    *resilience.Breaker
}

// NewClient creates a generation client from config.
func NewClient(cfg config.Generation) *Client {
	timeout := cfg.CallTimeout
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &Client{
		baseURL: cfg.URL,
		apiKey:  cfg.APIKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// SetBreaker attaches a circuit breaker to all outgoing calls.
func (c *Client) SetBreaker(b *resilience.Breaker) {
	c.breaker = b
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int64 `json:"prompt_tokens"`
		CompletionTokens int64 `json:"completion_tokens"`
	} `json:"usage"`
}

// Generate implements generation.Generator. HTTP 429 maps to
// generation.ErrRateLimited and deadline expiry to generation.ErrTimeout
// so the engine's retry policy can classify them.
func (c *Client) Generate(ctx context.Context, req generation.Request) (*generation.Result, error) {
	body, err := json.Marshal(chatRequest{
		Model: req.Rate.Model,
		Messages: []chatMessage{
			{Role: "system", Content: req.SystemContext},
			{Role: "user", Content: req.UserContext},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal chat request: %w", err)
	}

	var result *generation.Result
	call := func() error {
		var callErr error
		result, callErr = c.doChat(ctx, body)
		return callErr
	}

	if c.breaker != nil {
		if err := c.breaker.Execute(call); err != nil {
			return nil, err
		}
		return result, nil
	}
	if err := call(); err != nil {
		return nil, err
	}
	return result, nil
}

func (c *Client) doChat(ctx context.Context, body []byte) (*generation.Result, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || isTimeout(err) {
			return nil, fmt.Errorf("chat completion: %w", generation.ErrTimeout)
		}
		return nil, fmt.Errorf("chat completion: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, fmt.Errorf("chat completion: %w", generation.ErrRateLimited)
	case resp.StatusCode == http.StatusRequestTimeout || resp.StatusCode == http.StatusGatewayTimeout:
		return nil, fmt.Errorf("chat completion: %w", generation.ErrTimeout)
	case resp.StatusCode >= 400:
		return nil, fmt.Errorf("chat completion: proxy error %d: %s", resp.StatusCode, truncate(data, 256))
	}

	var parsed chatResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return nil, errors.New("chat completion: empty choices")
	}

	return &generation.Result{
		Text:     parsed.Choices[0].Message.Content,
		UnitsIn:  parsed.Usage.PromptTokens,
		UnitsOut: parsed.Usage.CompletionTokens,
	}, nil
}

func isTimeout(err error) bool {
	var t interface{ Timeout() bool }
	return errors.As(err, &t) && t.Timeout()
}

func truncate(data []byte, n int) string {
	if len(data) <= n {
		return string(data)
	}
	return string(data[:n]) + "..."
}
