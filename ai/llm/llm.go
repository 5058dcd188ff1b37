// Package llm defines the chat-completion contract shared by every provider
// client, plus the request layer the generators talk to: bounded retries with
// exponential backoff, request pacing, and JSON recovery from free text.
package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// ChatRequest represents a single-turn request to a model
type ChatRequest struct {
	SystemPrompt string
	UserPrompt   string
	JSONMode     bool     // Ask the provider for a JSON object response
	Temperature  *float64 // Override provider temperature
	MaxTokens    *int     // Override provider max tokens
}

// ChatResponse represents the model's reply
type ChatResponse struct {
	Content   string
	Reasoning string // Reasoning trace when the provider exposes one (e.g. deepseek-reasoner)
	Model     string
	Usage     Usage
	Raw       json.RawMessage // Vendor payload, kept for debugging
}

// Usage represents token usage information
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Client is implemented by every provider
type Client interface {
	Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error)
}

// StatusError is returned by provider clients for non-2xx HTTP responses
type StatusError struct {
	Provider   string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s API request failed with status %d: %s", e.Provider, e.StatusCode, e.Body)
}

// Retryable reports whether the status indicates a transient condition
func (e *StatusError) Retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests ||
		e.StatusCode == http.StatusRequestTimeout ||
		e.StatusCode >= http.StatusInternalServerError
}
