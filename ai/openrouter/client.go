package openrouter

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
	// DefaultModel is the fallback model when none is specified
	// Should match the default in config/defaults.go for consistency
	DefaultModel = "openai/gpt-4o-mini"

	// DefaultBaseURL is the OpenRouter API root
	DefaultBaseURL = "https://openrouter.ai/api/v1"

	providerName = "openrouter"
)

// Client represents an OpenRouter.ai API client
type Client struct {
	apiKey       string
	baseURL      string
	httpClient   *http.Client
	config       Config
	usageTracker *tracker.UsageTracker
	logger       *zap.SugaredLogger
}

// Config holds client configuration
type Config struct {
	APIKey      string
	BaseURL     string // "" = DefaultBaseURL
	Model       string
	Temperature *float64 // nil = use default (0.7)
	MaxTokens   *int     // nil = use default (2048)
	TopP        *float64 // nil = use default (0.9)
	Timeout     time.Duration
	Logger      *zap.SugaredLogger    // Structured logger (nil = nop logger)
	Tracker     *tracker.UsageTracker // Records every call when set
}

// NewClient creates a new OpenRouter.ai client with defaults applied
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
	if config.TopP == nil {
		config.TopP = util.Ptr(0.9)
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

// ChatCompletionRequest represents a request to the chat completions endpoint
type ChatCompletionRequest struct {
	Model          string          `json:"model"`
	Messages       []Message       `json:"messages"`
	Temperature    float64         `json:"temperature"`
	MaxTokens      int             `json:"max_tokens,omitempty"`
	TopP           float64         `json:"top_p,omitempty"`
	ResponseFormat *ResponseFormat `json:"response_format,omitempty"`
}

// ResponseFormat requests structured output
type ResponseFormat struct {
	Type string `json:"type"`
}

// Message represents a message in a chat completion
type Message struct {
	Role      string `json:"role"`
	Content   string `json:"content"`
	Reasoning string `json:"reasoning,omitempty"`
}

// ChatCompletionResponse represents the response from chat completions
type ChatCompletionResponse struct {
	ID      string    `json:"id"`
	Object  string    `json:"object"`
	Created int64     `json:"created"`
	Model   string    `json:"model"`
	Choices []Choice  `json:"choices"`
	Usage   llm.Usage `json:"usage"`
}

// Choice represents a completion choice
type Choice struct {
	Index        int     `json:"index"`
	Message      Message `json:"message"`
	FinishReason string  `json:"finish_reason"`
}

// CreateChatCompletion sends a chat completion request to OpenRouter.
// Returns the decoded response and the raw body.
func (c *Client) CreateChatCompletion(ctx context.Context, req ChatCompletionRequest) (*ChatCompletionResponse, []byte, error) {
	reqBody, err := json.Marshal(req)
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to marshal request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewBuffer(reqBody))
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to create request")
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("User-Agent", version.UserAgent())

	// X-Title shows up in the OpenRouter dashboard
	httpReq.Header.Set("X-Title", "distill")

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

	var chatResp ChatCompletionResponse
	if err := json.Unmarshal(respBody, &chatResp); err != nil {
		return nil, respBody, errors.Wrap(err, "failed to unmarshal response")
	}

	return &chatResp, respBody, nil
}

// Chat sends a single chat completion request. Retries are the caller's
// concern (see llm.Requester).
func (c *Client) Chat(ctx context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
	if c.config.APIKey == "" {
		return nil, errors.WithHint(errors.New("OpenRouter API key not configured"),
			"set OPENROUTER_API_KEY or llm.providers.<name>.api_key")
	}

	temperature := util.Deref(req.Temperature, *c.config.Temperature)
	maxTokens := util.Deref(req.MaxTokens, *c.config.MaxTokens)
	model := c.config.Model

	messages := []Message{{Role: "user", Content: req.UserPrompt}}
	if req.SystemPrompt != "" {
		messages = append([]Message{{Role: "system", Content: req.SystemPrompt}}, messages...)
	}

	openrouterReq := ChatCompletionRequest{
		Model:       model,
		Messages:    messages,
		Temperature: temperature,
		MaxTokens:   maxTokens,
		TopP:        *c.config.TopP,
	}
	if req.JSONMode {
		openrouterReq.ResponseFormat = &ResponseFormat{Type: "json_object"}
	}

	requestTime := time.Now()
	resp, raw, err := c.CreateChatCompletion(ctx, openrouterReq)
	if err == nil && len(resp.Choices) == 0 {
		err = errors.New("no response choices from OpenRouter")
	}
	if err != nil {
		c.track(ctx, tracker.Request{
			Model: model, Started: requestTime, Finished: time.Now(), Err: err,
			Config: c.modelConfig(temperature, maxTokens, req.JSONMode),
		})
		return nil, err
	}

	message := resp.Choices[0].Message
	c.logger.Debugw("OpenRouter response",
		"content_length", len(message.Content),
		"prompt_tokens", resp.Usage.PromptTokens,
		"completion_tokens", resp.Usage.CompletionTokens,
	)

	c.track(ctx, tracker.Request{
		Model:            model,
		Config:           c.modelConfig(temperature, maxTokens, req.JSONMode),
		Started:          requestTime,
		Finished:         time.Now(),
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
		InputLength:      len(req.SystemPrompt) + len(req.UserPrompt),
		OutputLength:     len(message.Content),
		Cost:             CalculateCost(model, resp.Usage.PromptTokens, resp.Usage.CompletionTokens),
	})

	return &llm.ChatResponse{
		Content:   strings.TrimSpace(message.Content),
		Reasoning: message.Reasoning,
		Model:     resp.Model,
		Usage:     resp.Usage,
		Raw:       raw,
	}, nil
}

func (c *Client) modelConfig(temperature float64, maxTokens int, jsonMode bool) tracker.ModelConfig {
	return tracker.ModelConfig{
		Temperature: &temperature,
		MaxTokens:   &maxTokens,
		TopP:        c.config.TopP,
		JSONMode:    jsonMode,
	}
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

// IsConfigured returns true if the client has an API key
func (c *Client) IsConfigured() bool {
	return c.config.APIKey != ""
}

// Model returns the model this client sends requests to
func (c *Client) Model() string {
	return c.config.Model
}

// SetHTTPClient allows overriding the HTTP client for testing
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}
