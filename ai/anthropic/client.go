// Package anthropic is an llm.Client for the Anthropic Messages API.
package anthropic

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/teranos/distill/ai/llm"
	"github.com/teranos/distill/ai/tracker"
	"github.com/teranos/distill/errors"
	"github.com/teranos/distill/internal/util"
	"github.com/teranos/distill/logger"
	"github.com/teranos/distill/version"
)

const (
	// DefaultModel is the default Claude model
	DefaultModel = "claude-sonnet-4-20250514"

	// DefaultBaseURL is the Anthropic API endpoint
	DefaultBaseURL = "https://api.anthropic.com/v1"

	// APIVersion is the required Anthropic API version header
	APIVersion = "2023-06-01"

	providerName = "anthropic"
)

// jsonInstruction is appended to the system prompt in JSON mode; the
// Messages API has no response_format switch.
const jsonInstruction = "Respond with a single valid JSON value and nothing else."

// Client represents an Anthropic API client
type Client struct {
	apiKey       string
	baseURL      string
	httpClient   *http.Client
	config       Config
	usageTracker *tracker.UsageTracker
	logger       *zap.SugaredLogger
}

// Config holds Anthropic client configuration
type Config struct {
	APIKey      string
	BaseURL     string // "" = DefaultBaseURL
	Model       string
	Temperature *float64 // nil = 0.7
	MaxTokens   *int     // nil = 2048
	TopP        *float64 // nil = not sent
	Timeout     time.Duration
	Logger      *zap.SugaredLogger
	Tracker     *tracker.UsageTracker
}

// NewClient creates a new Anthropic API client
func NewClient(config Config) *Client {
	if config.Model == "" {
		config.Model = DefaultModel
	}
	if config.Temperature == nil {
		config.Temperature = util.Ptr(0.7)
	}
	if config.MaxTokens == nil {
		config.MaxTokens = util.Ptr(2048)
	}
	if config.Timeout <= 0 {
		config.Timeout = 120 * time.Second
	}
	baseURL := strings.TrimRight(config.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	return &Client{
		apiKey:       config.APIKey,
		baseURL:      baseURL,
		httpClient:   &http.Client{Timeout: config.Timeout},
		config:       config,
		usageTracker: config.Tracker,
		logger:       logger.OrNop(config.Logger),
	}
}

// MessagesRequest represents a request to the Anthropic Messages API
type MessagesRequest struct {
	Model       string    `json:"model"`
	MaxTokens   int       `json:"max_tokens"`
	Messages    []Message `json:"messages"`
	System      string    `json:"system,omitempty"`
	Temperature float64   `json:"temperature"`
	TopP        *float64  `json:"top_p,omitempty"`
}

// Message represents a message in the conversation
type Message struct {
	Role    string `json:"role"` // "user" or "assistant"
	Content string `json:"content"`
}

// MessagesResponse represents the response from the Messages API
type MessagesResponse struct {
	ID         string         `json:"id"`
	Type       string         `json:"type"`
	Role       string         `json:"role"`
	Content    []ContentBlock `json:"content"`
	Model      string         `json:"model"`
	StopReason string         `json:"stop_reason"`
	Usage      Usage          `json:"usage"`
}

// ContentBlock represents a content block in the response
type ContentBlock struct {
	Type     string `json:"type"`
	Text     string `json:"text,omitempty"`
	Thinking string `json:"thinking,omitempty"`
}

// Usage represents token usage information
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// Chat sends one Messages request. Text blocks are concatenated into the
// reply; thinking blocks become the reasoning trace.
func (c *Client) Chat(ctx context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
	if c.apiKey == "" {
		return nil, errors.WithHint(
			errors.Mark(errors.New("Anthropic API key not configured"), errors.ErrProviderNotConfigured),
			"set ANTHROPIC_API_KEY or llm.providers.<name>.api_key")
	}

	temperature := util.Deref(req.Temperature, *c.config.Temperature)
	maxTokens := util.Deref(req.MaxTokens, *c.config.MaxTokens)
	model := c.config.Model

	system := req.SystemPrompt
	if req.JSONMode {
		system = strings.TrimSpace(system + "\n\n" + jsonInstruction)
	}
	anthropicReq := MessagesRequest{
		Model:       model,
		MaxTokens:   maxTokens,
		Temperature: temperature,
		TopP:        c.config.TopP,
		System:      system,
		Messages:    []Message{{Role: "user", Content: req.UserPrompt}},
	}

	modelConfig := tracker.ModelConfig{Temperature: &temperature, MaxTokens: &maxTokens, TopP: c.config.TopP, JSONMode: req.JSONMode}
	requestTime := time.Now()
	resp, raw, err := c.createMessages(ctx, anthropicReq)
	if err != nil {
		c.track(ctx, tracker.Request{Model: model, Config: modelConfig, Started: requestTime, Finished: time.Now(), Err: err})
		return nil, err
	}

	var content, thinking strings.Builder
	for _, block := range resp.Content {
		switch block.Type {
		case "text":
			content.WriteString(block.Text)
		case "thinking":
			thinking.WriteString(block.Thinking)
		}
	}

	c.logger.Debugw("Anthropic response",
		"content_length", content.Len(),
		"input_tokens", resp.Usage.InputTokens,
		"output_tokens", resp.Usage.OutputTokens,
		"stop_reason", resp.StopReason,
	)

	c.track(ctx, tracker.Request{
		Model:            model,
		Config:           modelConfig,
		Started:          requestTime,
		Finished:         time.Now(),
		PromptTokens:     resp.Usage.InputTokens,
		CompletionTokens: resp.Usage.OutputTokens,
		InputLength:      len(system) + len(req.UserPrompt),
		OutputLength:     content.Len(),
		Cost:             CalculateCost(model, resp.Usage.InputTokens, resp.Usage.OutputTokens),
	})

	return &llm.ChatResponse{
		Content:   strings.TrimSpace(content.String()),
		Reasoning: thinking.String(),
		Model:     resp.Model,
		Usage: llm.Usage{
			PromptTokens:     resp.Usage.InputTokens,
			CompletionTokens: resp.Usage.OutputTokens,
			TotalTokens:      resp.Usage.InputTokens + resp.Usage.OutputTokens,
		},
		Raw: raw,
	}, nil
}

func (c *Client) createMessages(ctx context.Context, req MessagesRequest) (*MessagesResponse, []byte, error) {
	reqBody, err := json.Marshal(req)
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to marshal request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/messages", bytes.NewBuffer(reqBody))
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to create request")
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", c.apiKey)
	httpReq.Header.Set("anthropic-version", APIVersion)
	httpReq.Header.Set("User-Agent", version.UserAgent())

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to send request")
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to read response")
	}

	if resp.StatusCode != http.StatusOK {
		return nil, respBody, &llm.StatusError{Provider: providerName, StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	var messagesResp MessagesResponse
	if err := json.Unmarshal(respBody, &messagesResp); err != nil {
		return nil, respBody, errors.Wrap(err, "failed to unmarshal response")
	}
	return &messagesResp, respBody, nil
}

// track records a call when a usage tracker is configured
func (c *Client) track(ctx context.Context, r tracker.Request) {
	if c.usageTracker == nil {
		return
	}
	r.Operation = tracker.OperationFrom(ctx)
	r.Provider = providerName
	if err := c.usageTracker.RecordRequest(r); err != nil {
		c.logger.Warnw("Failed to track usage", logger.FieldError, err, logger.FieldModel, r.Model)
	}
}

// Model returns the model this client sends requests to
func (c *Client) Model() string {
	return c.config.Model
}

// IsConfigured returns true if the client has an API key
func (c *Client) IsConfigured() bool {
	return c.config.APIKey != ""
}
