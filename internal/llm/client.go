// Package llm talks to any OpenAI-compatible chat completion endpoint.
// Both the per-article summarizer and the digest ranker go through the
// same client and share its failure semantics.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Message is one chat turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatClient is the black-box completion function the pipeline depends
// on. Tests substitute a canned implementation.
type ChatClient interface {
	Complete(ctx context.Context, messages []Message, maxTokens int) (string, error)
}

// Client implements ChatClient over HTTP.
type Client struct {
	endpoint    string
	model       string
	apiKey      string
	temperature float64
	httpClient  *http.Client
	usage       *UsageTracker
}

var _ ChatClient = (*Client)(nil)

// NewClient builds a client for one endpoint/model pair. usage may be
// nil when token accounting is not wanted.
func NewClient(endpoint, model, apiKey string, usage *UsageTracker) *Client {
	return &Client{
		endpoint:    endpoint,
		model:       model,
		apiKey:      apiKey,
		temperature: 0.3,
		httpClient:  &http.Client{Timeout: 20 * time.Second},
		usage:       usage,
	}
}

type chatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message Message `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

// Complete posts one chat completion request and returns the first
// choice's content.
func (c *Client) Complete(ctx context.Context, messages []Message, maxTokens int) (string, error) {
	if c.endpoint == "" || c.model == "" {
		return "", fmt.Errorf("llm client misconfigured")
	}

	body, err := json.Marshal(chatRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: c.temperature,
		MaxTokens:   maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("marshal chat payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("new request: %w", err)
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("chat completion %s: %s", resp.Status, strings.TrimSpace(string(payload)))
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("decode chat response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("chat response has no choices")
	}

	if c.usage != nil {
		c.usage.Add(c.model, parsed.Usage.PromptTokens, parsed.Usage.CompletionTokens)
	}
	return parsed.Choices[0].Message.Content, nil
}
