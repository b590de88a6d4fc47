package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"

	"github.com/zhouzirui/z-chat/backend/internal/config"
	"github.com/zhouzirui/z-chat/backend/internal/model/chat"
)

var (
	// ErrMissingAPIKey is a configuration error raised before any network call.
	ErrMissingAPIKey = errors.New("OpenRouter API key missing - set " + config.APIKeyName +
		" env variable or add it to the secrets file")
	// ErrInvalidTemperature rejects sampling temperatures outside [0, 1].
	ErrInvalidTemperature = errors.New("temperature must be within [0, 1]")
	// ErrCompletionFailed is wrapped by every status and transport failure.
	ErrCompletionFailed = errors.New("completion request failed")
)

// maxResponseBytes bounds how much of an upstream body is buffered.
const maxResponseBytes = 4 << 20

// StatusError reports a non-2xx answer from the completion endpoint.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("openrouter returned status %d: %s", e.StatusCode, e.Body)
}

func (e *StatusError) Unwrap() error { return ErrCompletionFailed }

// TransportError reports a call that never produced a usable response:
// connection failures, timeouts and malformed bodies.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("openrouter %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() []error { return []error{ErrCompletionFailed, e.Err} }

// Completer performs one blocking completion over a full transcript.
type Completer interface {
	Complete(ctx context.Context, messages []chat.Message, modelID string, temperature float64) (string, error)
}

// Client calls the OpenRouter chat completions endpoint. It holds no
// per-request state and is safe for concurrent use.
type Client struct {
	apiKey   string
	endpoint string
	referer  string
	title    string
	http     *http.Client
}

// NewClient builds a client from resolved configuration. A missing API key
// is not an error here; Complete reports it on first use. A non-positive
// timeout falls back to config.DefaultTimeout so calls are always bounded.
func NewClient(cfg config.OpenRouterConfig) *Client {
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = config.DefaultEndpoint
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = config.DefaultTimeout
	}
	return &Client{
		apiKey:   cfg.APIKey,
		endpoint: endpoint,
		referer:  cfg.Referer,
		title:    cfg.Title,
		http:     &http.Client{Timeout: timeout},
	}
}

type completionRequest struct {
	Model       string         `json:"model"`
	Messages    []chat.Message `json:"messages"`
	Temperature float64        `json:"temperature"`
}

type completionResponse struct {
	Choices []struct {
		Message *struct {
			Content *string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Complete sends the transcript and returns choices[0].message.content.
func (c *Client) Complete(ctx context.Context, messages []chat.Message, modelID string, temperature float64) (string, error) {
	if c.apiKey == "" {
		return "", ErrMissingAPIKey
	}
	if math.IsNaN(temperature) || temperature < 0 || temperature > 1 {
		return "", fmt.Errorf("%w: got %v", ErrInvalidTemperature, temperature)
	}
	if messages == nil {
		messages = []chat.Message{}
	}

	payload, err := json.Marshal(completionRequest{
		Model:       modelID,
		Messages:    messages,
		Temperature: temperature,
	})
	if err != nil {
		return "", &TransportError{Op: "encode request", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", &TransportError{Op: "build request", Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("HTTP-Referer", c.referer)
	req.Header.Set("X-Title", c.title)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", &TransportError{Op: "request", Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", &TransportError{Op: "read response", Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	var decoded completionResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return "", &TransportError{Op: "decode response", Err: err}
	}
	if len(decoded.Choices) == 0 {
		return "", &TransportError{Op: "decode response", Err: errors.New("no choices in response")}
	}
	first := decoded.Choices[0]
	if first.Message == nil || first.Message.Content == nil {
		return "", &TransportError{Op: "decode response", Err: errors.New("choices[0].message.content missing")}
	}
	return *first.Message.Content, nil
}
