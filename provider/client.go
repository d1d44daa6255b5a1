package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"inkwell/errs"
)

// Streaming responses have no overall deadline; the transport-level
// timeouts below guard connection setup instead.
const defaultDialTimeout = 30 * time.Second

// Client issues chat-completion requests against one provider Config.
type Client struct {
	cfg        Config
	httpClient *http.Client
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client (useful for tests).
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// NewClient constructs a client for the supplied provider configuration.
// The configuration should be validated before use.
func NewClient(cfg Config, opts ...Option) *Client {
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	cfg.Model = strings.TrimSpace(cfg.Model)
	c := &Client{
		cfg: cfg,
		httpClient: &http.Client{
			Transport: &http.Transport{
				ResponseHeaderTimeout: defaultDialTimeout,
			},
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// chatRequest is the request body for the Chat Completions API.
type chatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	MaxTokens   int       `json:"max_tokens"`
	Temperature float64   `json:"temperature"`
	Stream      bool      `json:"stream"`
}

// apiError is the structured error envelope providers return on non-2xx.
type apiError struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    string `json:"code"`
	} `json:"error"`
}

// StreamCompletion sends a streaming chat-completion request and returns
// the raw response body for the stream decoder. The caller owns closing
// the returned reader. There is no retry at this layer.
func (c *Client) StreamCompletion(ctx context.Context, system string, turns []Message) (io.ReadCloser, error) {
	msgs := make([]Message, 0, len(turns)+1)
	msgs = append(msgs, Message{Role: RoleSystem, Content: system})
	msgs = append(msgs, turns...)

	body := chatRequest{
		Model:       c.cfg.Model,
		Messages:    msgs,
		MaxTokens:   c.cfg.MaxTokens,
		Temperature: c.cfg.Temperature,
		Stream:      true,
	}
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.cfg.BaseURL+"/chat/completions", bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errs.Wrap(errs.KindProvider, "send request", err)
	}

	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		return nil, errs.New(errs.KindProvider, readErrorMessage(resp))
	}
	if resp.Body == nil {
		return nil, errs.New(errs.KindProvider, "provider returned no response body")
	}
	return resp.Body, nil
}

// readErrorMessage extracts the provider's structured error message from
// a non-success response, falling back to the HTTP status line.
func readErrorMessage(resp *http.Response) string {
	fallback := fmt.Sprintf("HTTP error: %d %s", resp.StatusCode,
		strings.TrimPrefix(resp.Status, fmt.Sprintf("%d ", resp.StatusCode)))

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err != nil {
		return fallback
	}
	var parsed apiError
	if err := json.Unmarshal(body, &parsed); err != nil || parsed.Error.Message == "" {
		return fallback
	}
	return parsed.Error.Message
}
