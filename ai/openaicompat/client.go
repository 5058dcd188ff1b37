// Package openaicompat talks to any OpenAI-compatible chat completions API
// (DeepSeek, OpenAI, Qwen/DashScope, local Ollama or vLLM) through go-openai.
package openaicompat

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/teranos/distill/ai/llm"
	"github.com/teranos/distill/ai/tracker"
	"github.com/teranos/distill/errors"
	"github.com/teranos/distill/internal/util"
	"github.com/teranos/distill/logger"
)

// Config holds client configuration
type Config struct {
	Name        string // Provider key from config, used for tracking and errors (e.g. "deepseek")
	APIKey      string
	BaseURL     string
	Model       string
	Temperature *float64 // nil = use default (0.7)
	MaxTokens   *int     // nil = use default (2048)
	TopP        *float64 // nil = use default (0.9)
	Timeout     time.Duration
	Logger      *zap.SugaredLogger
	Tracker     *tracker.UsageTracker
}

// Client wraps go-openai for a single configured model
type Client struct {
	client       *openai.Client
	config       Config
	usageTracker *tracker.UsageTracker
	logger       *zap.SugaredLogger
}

// NewClient creates a client. Local endpoints may omit the API key.
func NewClient(config Config) (*Client, error) {
	if config.Model == "" {
		return nil, errors.NewConfigError("provider %q has no model", config.Name)
	}
	if config.APIKey == "" && !IsLocalEndpoint(config.BaseURL) {
		return nil, errors.WithHintf(
			errors.Mark(errors.Newf("API key for provider %q is not configured", config.Name), errors.ErrProviderNotConfigured),
			"set llm.providers.%s.api_key (supports ${ENV_VAR})", config.Name)
	}
	if config.Name == "" {
		config.Name = "openai"
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

	clientConfig := openai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		clientConfig.BaseURL = strings.TrimRight(config.BaseURL, "/")
	}
	clientConfig.HTTPClient = &http.Client{Timeout: config.Timeout}

	return &Client{
		client:       openai.NewClientWithConfig(clientConfig),
		config:       config,
		usageTracker: config.Tracker,
		logger:       logger.OrNop(config.Logger),
	}, nil
}

// Chat sends a single chat completion request
func (c *Client) Chat(ctx context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
	temperature := util.Deref(req.Temperature, *c.config.Temperature)
	maxTokens := util.Deref(req.MaxTokens, *c.config.MaxTokens)

	messages := make([]openai.ChatCompletionMessage, 0, 2)
	if req.SystemPrompt != "" {
		messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: req.SystemPrompt})
	}
	messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: req.UserPrompt})

	request := openai.ChatCompletionRequest{
		Model:       c.config.Model,
		Messages:    messages,
		Temperature: float32(temperature),
		MaxTokens:   maxTokens,
		TopP:        float32(*c.config.TopP),
	}
	if req.JSONMode {
		request.ResponseFormat = &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject}
	}

	modelConfig := tracker.ModelConfig{Temperature: &temperature, MaxTokens: &maxTokens, TopP: c.config.TopP, JSONMode: req.JSONMode}

	started := time.Now()
	resp, err := c.client.CreateChatCompletion(ctx, request)
	if err == nil && len(resp.Choices) == 0 {
		err = errors.Newf("no response choices from %s", c.config.Name)
	}
	if err != nil {
		err = c.translateError(err)
		c.track(ctx, tracker.Request{Model: c.config.Model, Config: modelConfig, Started: started, Finished: time.Now(), Err: err})
		return nil, err
	}

	message := resp.Choices[0].Message
	c.track(ctx, tracker.Request{
		Model:            c.config.Model,
		Config:           modelConfig,
		Started:          started,
		Finished:         time.Now(),
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
		InputLength:      len(req.SystemPrompt) + len(req.UserPrompt),
		OutputLength:     len(message.Content),
		Cost:             CalculateCost(c.config.Model, c.config.BaseURL, resp.Usage.PromptTokens, resp.Usage.CompletionTokens),
	})

	raw, _ := json.Marshal(resp)
	return &llm.ChatResponse{
		Content:   strings.TrimSpace(message.Content),
		Reasoning: message.ReasoningContent,
		Model:     resp.Model,
		Usage: llm.Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
		Raw: raw,
	}, nil
}

// translateError maps go-openai HTTP failures onto llm.StatusError so the
// requester can decide whether to retry
func (c *Client) translateError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPStatusCode != 0 {
		return &llm.StatusError{Provider: c.config.Name, StatusCode: apiErr.HTTPStatusCode, Body: apiErr.Message}
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode != 0 {
		body := ""
		if reqErr.Err != nil {
			body = reqErr.Err.Error()
		}
		return &llm.StatusError{Provider: c.config.Name, StatusCode: reqErr.HTTPStatusCode, Body: body}
	}
	return errors.Wrapf(err, "%s chat completion", c.config.Name)
}

// track records a call when a usage tracker is configured
func (c *Client) track(ctx context.Context, r tracker.Request) {
	if c.usageTracker == nil {
		return
	}
	r.Operation = tracker.OperationFrom(ctx)
	r.Provider = c.config.Name
	if err := c.usageTracker.RecordRequest(r); err != nil {
		c.logger.Warnw("Failed to track usage", logger.FieldError, err, logger.FieldModel, r.Model)
	}
}

// Model returns the model this client sends requests to
func (c *Client) Model() string {
	return c.config.Model
}
