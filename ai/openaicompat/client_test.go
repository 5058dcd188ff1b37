package openaicompat

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teranos/distill/ai/llm"
	"github.com/teranos/distill/ai/tracker"
	"github.com/teranos/distill/errors"
	qtesting "github.com/teranos/distill/internal/testing"
)

// chatServer serves /v1/chat/completions with the given handler
func chatServer(t *testing.T, handler func(w http.ResponseWriter, body map[string]interface{})) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.Header().Set("Content-Type", "application/json")
		handler(w, body)
	}))
	t.Cleanup(server.Close)
	return server
}

func writeCompletion(w http.ResponseWriter, content, reasoning string) {
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"id":     "chatcmpl-1",
		"object": "chat.completion",
		"model":  "deepseek-chat",
		"choices": []map[string]interface{}{{
			"index":         0,
			"finish_reason": "stop",
			"message": map[string]interface{}{
				"role":              "assistant",
				"content":           content,
				"reasoning_content": reasoning,
			},
		}},
		"usage": map[string]int{"prompt_tokens": 40, "completion_tokens": 12, "total_tokens": 52},
	})
}

func TestNewClient_Validation(t *testing.T) {
	_, err := NewClient(Config{Name: "deepseek", BaseURL: "https://api.deepseek.com/v1"})
	require.Error(t, err)
	assert.True(t, errors.IsConfigError(err))

	_, err = NewClient(Config{Name: "deepseek", APIKey: "sk"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no model")

	// Local endpoints do not need a key
	c, err := NewClient(Config{Name: "ollama", BaseURL: "http://localhost:11434/v1", Model: "qwen2.5:7b"})
	require.NoError(t, err)
	assert.Equal(t, "qwen2.5:7b", c.Model())
}

func TestClient_Chat(t *testing.T) {
	server := chatServer(t, func(w http.ResponseWriter, body map[string]interface{}) {
		assert.Equal(t, "deepseek-chat", body["model"])
		assert.InDelta(t, 0.7, body["temperature"], 1e-6)
		assert.InDelta(t, 0.9, body["top_p"], 1e-6)
		assert.EqualValues(t, 2048, body["max_tokens"])

		format, ok := body["response_format"].(map[string]interface{})
		require.True(t, ok, "JSON mode should set response_format")
		assert.Equal(t, "json_object", format["type"])

		messages := body["messages"].([]interface{})
		require.Len(t, messages, 2)
		assert.Equal(t, "system", messages[0].(map[string]interface{})["role"])

		writeCompletion(w, ` {"questions": ["How do I reset my PIN?"]} `, "thinking...")
	})

	c, err := NewClient(Config{Name: "deepseek", APIKey: "sk-test", BaseURL: server.URL + "/v1", Model: "deepseek-chat"})
	require.NoError(t, err)

	resp, err := c.Chat(context.Background(), llm.ChatRequest{
		SystemPrompt: "You are helpful.",
		UserPrompt:   "Generate questions",
		JSONMode:     true,
	})
	require.NoError(t, err)
	assert.Equal(t, `{"questions": ["How do I reset my PIN?"]}`, resp.Content)
	assert.Equal(t, "thinking...", resp.Reasoning)
	assert.Equal(t, 52, resp.Usage.TotalTokens)
	assert.NotEmpty(t, resp.Raw)
}

func TestClient_ChatStatusError(t *testing.T) {
	server := chatServer(t, func(w http.ResponseWriter, body map[string]interface{}) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"error": {"message": "server overloaded", "type": "server_error"}}`))
	})

	c, err := NewClient(Config{Name: "deepseek", APIKey: "sk-test", BaseURL: server.URL + "/v1", Model: "deepseek-chat"})
	require.NoError(t, err)

	_, err = c.Chat(context.Background(), llm.ChatRequest{UserPrompt: "hi"})
	require.Error(t, err)

	var statusErr *llm.StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusServiceUnavailable, statusErr.StatusCode)
	assert.Equal(t, "deepseek", statusErr.Provider)
	assert.True(t, llm.IsRetryable(err))
}

func TestClient_TracksUsage(t *testing.T) {
	db := qtesting.CreateTestDB(t)
	server := chatServer(t, func(w http.ResponseWriter, body map[string]interface{}) {
		writeCompletion(w, "Sure, I can help.", "")
	})

	c, err := NewClient(Config{
		Name: "deepseek", APIKey: "sk-test", BaseURL: server.URL + "/v1", Model: "deepseek-chat",
		Tracker: tracker.NewUsageTracker(db),
	})
	require.NoError(t, err)

	ctx := tracker.WithOperation(context.Background(), tracker.Operation{Type: "conversation.reply"})
	_, err = c.Chat(ctx, llm.ChatRequest{UserPrompt: "hi"})
	require.NoError(t, err)

	var (
		opType, provider string
		tokens           int
		cost             float64
	)
	require.NoError(t, db.QueryRow(`SELECT operation_type, model_provider, tokens_used, cost FROM ai_model_usage`).
		Scan(&opType, &provider, &tokens, &cost))
	assert.Equal(t, "conversation.reply", opType)
	assert.Equal(t, "deepseek", provider)
	assert.Equal(t, 52, tokens)
	// httptest listens on 127.0.0.1, which counts as local
	assert.Zero(t, cost)
}

func TestCalculateCost(t *testing.T) {
	assert.InDelta(t, 0.00164, CalculateCost("deepseek-chat", "https://api.deepseek.com/v1", 2000, 1000), 1e-9)
	assert.Equal(t, DefaultPricingFallback, CalculateCost("mystery", "https://api.example.com/v1", 10, 10))
	assert.Zero(t, CalculateCost("deepseek-chat", "http://127.0.0.1:8000/v1", 2000, 1000))
}

func TestIsLocalEndpoint(t *testing.T) {
	assert.True(t, IsLocalEndpoint("http://localhost:11434/v1"))
	assert.True(t, IsLocalEndpoint("http://127.0.0.1:8000"))
	assert.True(t, IsLocalEndpoint("http://192.168.1.20:11434/v1"))
	assert.False(t, IsLocalEndpoint("https://api.deepseek.com/v1"))
	assert.False(t, IsLocalEndpoint(""))
}
