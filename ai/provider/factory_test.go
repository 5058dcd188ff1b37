package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teranos/distill/ai/anthropic"
	"github.com/teranos/distill/ai/openaicompat"
	"github.com/teranos/distill/ai/openrouter"
	"github.com/teranos/distill/config"
	"github.com/teranos/distill/errors"
)

func testConfig() *config.Config {
	return &config.Config{
		LLM: config.LLMConfig{
			Default:    "deepseek",
			MaxRetries: 2,
			Providers: map[string]config.ProviderConfig{
				"deepseek":   {Kind: "openai", APIKey: "sk-ds", BaseURL: "https://api.deepseek.com/v1", Model: "deepseek-chat"},
				"openrouter": {Kind: "openrouter", APIKey: "sk-or", Model: "openai/gpt-4o-mini"},
				"ollama":     {Kind: "local", BaseURL: "http://localhost:11434/v1", Model: "qwen2.5:7b"},
				"nokey":      {Kind: "openai", BaseURL: "https://api.openai.com/v1", Model: "gpt-4o-mini"},
				"weird":      {Kind: "bedrock", APIKey: "x", Model: "m"},
			},
		},
	}
}

func TestParseKind(t *testing.T) {
	tests := []struct {
		in      string
		want    Kind
		wantErr bool
	}{
		{"openai", KindOpenAI, false},
		{"DeepSeek", KindOpenAI, false},
		{"ollama", KindOpenAI, false},
		{"", KindOpenAI, false},
		{"openrouter", KindOpenRouter, false},
		{"or", KindOpenRouter, false},
		{"Claude", KindAnthropic, false},
		{"bedrock", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseKind(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, errors.ErrUnknownProvider))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewClient_SelectsImplementation(t *testing.T) {
	cfg := testConfig()

	c, name, err := NewClient(cfg, Options{})
	require.NoError(t, err)
	assert.Equal(t, "deepseek", name)
	assert.IsType(t, &openaicompat.Client{}, c)

	c, _, err = NewClient(cfg, Options{Model: "openrouter"})
	require.NoError(t, err)
	assert.IsType(t, &openrouter.Client{}, c)

	c, _, err = NewClient(cfg, Options{Model: "ollama"})
	require.NoError(t, err)
	assert.IsType(t, &openaicompat.Client{}, c)

	cfg.LLM.Providers["claude"] = config.ProviderConfig{Kind: "anthropic", APIKey: "sk-ant", Model: "claude-3-5-haiku-latest"}
	c, _, err = NewClient(cfg, Options{Model: "claude"})
	require.NoError(t, err)
	assert.IsType(t, &anthropic.Client{}, c)
	assert.Equal(t, "claude-3-5-haiku-latest", c.(*anthropic.Client).Model())

	cfg.LLM.Providers["claude"] = config.ProviderConfig{Kind: "anthropic", Model: "claude-3-5-haiku-latest"}
	_, _, err = NewClient(cfg, Options{Model: "claude"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrProviderNotConfigured))
}

func TestNewClient_Errors(t *testing.T) {
	cfg := testConfig()

	_, _, err := NewClient(cfg, Options{Model: "missing"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrProviderNotConfigured))
	assert.NotEmpty(t, errors.GetAllHints(err))

	_, _, err = NewClient(cfg, Options{Model: "nokey"})
	require.Error(t, err)
	assert.True(t, errors.IsConfigError(err))

	_, _, err = NewClient(cfg, Options{Model: "weird"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrUnknownProvider))
}

func TestNewRequester_EndToEnd(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"id":    "x",
			"model": "deepseek-chat",
			"choices": []map[string]interface{}{{
				"index":   0,
				"message": map[string]string{"role": "assistant", "content": "```json\n[\"a\", \"b\"]\n```"},
			}},
			"usage": map[string]int{"prompt_tokens": 1, "completion_tokens": 1, "total_tokens": 2},
		})
	}))
	defer server.Close()

	cfg := testConfig()
	entry := cfg.LLM.Providers["deepseek"]
	entry.BaseURL = server.URL
	cfg.LLM.Providers["deepseek"] = entry

	r, err := NewRequester(cfg, Options{})
	require.NoError(t, err)

	raw, err := r.GenerateJSON(context.Background(), "list", "")
	require.NoError(t, err)
	assert.JSONEq(t, `["a","b"]`, string(raw))
	assert.Equal(t, 1, calls)
}

func TestAvailable(t *testing.T) {
	assert.Equal(t, []string{"deepseek", "ollama", "openrouter", "weird"}, Available(testConfig()))
}
