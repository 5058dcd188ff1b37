package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teranos/distill/errors"
	"github.com/teranos/distill/internal/util"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DEEPSEEK_API_KEY", "sk-test")

	// Isolated viper instance without user or project config
	v := viper.New()
	SetDefaults(v)

	cfg, err := LoadWithViper(v)
	require.NoError(t, err)

	assert.Equal(t, "deepseek", cfg.LLM.Default)
	assert.Equal(t, 3, cfg.LLM.MaxRetries)
	assert.Equal(t, "en", cfg.Generation.Language)
	assert.Equal(t, 1, cfg.Generation.Workers)
	assert.True(t, cfg.Generation.LeafOnly)
	assert.InDelta(t, 0.3, cfg.Generation.TransitionRate, 1e-9)
	assert.Equal(t, "jsonl", cfg.Export.Format)
	assert.Empty(t, cfg.Usage.DBPath)

	require.Contains(t, cfg.LLM.Providers, "deepseek")
	deepseek := cfg.LLM.Providers["deepseek"]
	assert.Equal(t, KindOpenAI, deepseek.Kind)
	assert.Equal(t, "sk-test", deepseek.APIKey)
	assert.Equal(t, "deepseek-chat", deepseek.Model)
	assert.Nil(t, deepseek.Temperature)

	require.Contains(t, cfg.LLM.Providers, "claude")
	assert.Equal(t, KindAnthropic, cfg.LLM.Providers["claude"].Kind)

	assert.NoError(t, cfg.Validate())
}

func TestLoadFromFile_TOML(t *testing.T) {
	t.Setenv("QWEN_KEY", "sk-qwen")

	path := filepath.Join(t.TempDir(), "distill.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[llm]
default = "qwen"
requests_per_minute = 30

[llm.providers.qwen]
kind = "openai"
api_key = "${QWEN_KEY}"
base_url = "${QWEN_BASE:http://localhost:11434/v1}"
model = "qwen2.5:7b"
temperature = 0.4
max_tokens = 1024

[generation]
language = "zh"
workers = 4
seed = 42
`), DefaultFilePermissions))
	t.Cleanup(Reset)

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, "qwen", cfg.LLM.Default)
	assert.Equal(t, 30, cfg.LLM.RequestsPerMinute)
	qwen := cfg.LLM.Providers["qwen"]
	assert.Equal(t, "sk-qwen", qwen.APIKey)
	assert.Equal(t, "http://localhost:11434/v1", qwen.BaseURL)
	require.NotNil(t, qwen.Temperature)
	assert.InDelta(t, 0.4, *qwen.Temperature, 1e-9)
	require.NotNil(t, qwen.MaxTokens)
	assert.Equal(t, 1024, *qwen.MaxTokens)

	assert.Equal(t, "zh", cfg.Generation.Language)
	assert.Equal(t, 4, cfg.Generation.Workers)
	assert.Equal(t, uint64(42), cfg.Generation.Seed)

	// Defaults still fill sections the file omits
	assert.Equal(t, 3, cfg.LLM.MaxRetries)
	assert.Contains(t, cfg.LLM.Providers, "deepseek")
	assert.NoError(t, cfg.Validate())
}

func TestLoadFromFile_YAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
llm:
  default: openrouter
  providers:
    openrouter:
      kind: openrouter
      api_key: sk-or
      model: anthropic/claude-3.5-haiku
export:
  format: sharegpt
  system_prompt: You classify customer intents.
`), DefaultFilePermissions))
	t.Cleanup(Reset)

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "openrouter", cfg.LLM.Default)
	assert.Equal(t, "anthropic/claude-3.5-haiku", cfg.LLM.Providers["openrouter"].Model)
	assert.Equal(t, "sharegpt", cfg.Export.Format)
	assert.Equal(t, "You classify customer intents.", cfg.Export.SystemPrompt)
}

func TestLoadFromFile_Missing(t *testing.T) {
	_, err := LoadFromFile(filepath.Join(t.TempDir(), "nope.toml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestExpandEnv(t *testing.T) {
	t.Setenv("DISTILL_TEST_SET", "value")

	var missing []string
	record := func(name string) { missing = append(missing, name) }

	assert.Equal(t, "value", ExpandEnv("${DISTILL_TEST_SET}", record))
	assert.Equal(t, "fallback", ExpandEnv("${DISTILL_TEST_UNSET:fallback}", record))
	assert.Equal(t, "http://value:8080", ExpandEnv("http://${DISTILL_TEST_SET}:${DISTILL_TEST_PORT:8080}", record))
	assert.Equal(t, "", ExpandEnv("${DISTILL_TEST_UNSET}", record))
	assert.Equal(t, "no refs", ExpandEnv("no refs", record))

	assert.Equal(t, []string{"DISTILL_TEST_UNSET"}, missing)
}

func validConfig() Config {
	return Config{
		LLM: LLMConfig{
			Default:    "deepseek",
			MaxRetries: 3,
			Providers: map[string]ProviderConfig{
				"deepseek": {Kind: KindOpenAI, Model: "deepseek-chat"},
			},
		},
		Generation: GenerationConfig{Language: "en", Workers: 1, TransitionRate: 0.3},
		Export:     ExportConfig{Format: "jsonl"},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"valid", func(c *Config) {}, ""},
		{"no providers", func(c *Config) { c.LLM.Providers = nil }, "at least one provider"},
		{"missing model", func(c *Config) {
			c.LLM.Providers["deepseek"] = ProviderConfig{Kind: KindOpenAI}
		}, "model not specified"},
		{"unknown kind", func(c *Config) {
			c.LLM.Providers["deepseek"] = ProviderConfig{Kind: "bedrock", Model: "m"}
		}, "not supported"},
		{"bad default", func(c *Config) { c.LLM.Default = "qwen" }, "does not name a configured provider"},
		{"zero retries", func(c *Config) { c.LLM.MaxRetries = 0 }, "max_retries"},
		{"bad language", func(c *Config) { c.Generation.Language = "fr" }, "en or zh"},
		{"negative workers", func(c *Config) { c.Generation.Workers = -1 }, "workers"},
		{"rate above one", func(c *Config) { c.Generation.TransitionRate = 1.5 }, "transition_rate"},
		{"zero workers is valid", func(c *Config) { c.Generation.Workers = 0 }, ""},
		{"bad format", func(c *Config) { c.Export.Format = "parquet" }, "not supported"},
		{"zero max tokens", func(c *Config) {
			c.LLM.Providers["deepseek"] = ProviderConfig{Kind: KindOpenAI, Model: "m", MaxTokens: util.Ptr(0)}
		}, "max_tokens"},
		{"temperature range", func(c *Config) {
			c.LLM.Providers["deepseek"] = ProviderConfig{Kind: KindOpenAI, Model: "m", Temperature: util.Ptr(3.0)}
		}, "temperature"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidate_ConfigErrorsAreMarked(t *testing.T) {
	cfg := validConfig()
	cfg.LLM.Providers = nil
	assert.True(t, errors.IsConfigError(cfg.Validate()))
}

func TestProvider(t *testing.T) {
	cfg := validConfig()

	name, p, ok := cfg.Provider("")
	assert.True(t, ok)
	assert.Equal(t, "deepseek", name)
	assert.Equal(t, "deepseek-chat", p.Model)

	_, _, ok = cfg.Provider("qwen")
	assert.False(t, ok)
}
