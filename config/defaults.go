package config

import (
	"fmt"
	"slices"

	"github.com/spf13/viper"
)

// SetDefaults configures default values for all configuration options
func SetDefaults(v *viper.Viper) {
	// LLM defaults
	v.SetDefault("llm.default", "deepseek")
	v.SetDefault("llm.max_retries", 3)
	v.SetDefault("llm.requests_per_minute", 0)
	v.SetDefault("llm.timeout_seconds", 120)

	v.SetDefault("llm.providers.deepseek.kind", KindOpenAI)
	v.SetDefault("llm.providers.deepseek.api_key", "${DEEPSEEK_API_KEY}")
	v.SetDefault("llm.providers.deepseek.base_url", "https://api.deepseek.com/v1")
	v.SetDefault("llm.providers.deepseek.model", "deepseek-chat")

	v.SetDefault("llm.providers.openrouter.kind", KindOpenRouter)
	v.SetDefault("llm.providers.openrouter.api_key", "${OPENROUTER_API_KEY}")
	v.SetDefault("llm.providers.openrouter.base_url", "https://openrouter.ai/api/v1")
	v.SetDefault("llm.providers.openrouter.model", "openai/gpt-4o-mini")

	v.SetDefault("llm.providers.claude.kind", KindAnthropic)
	v.SetDefault("llm.providers.claude.api_key", "${ANTHROPIC_API_KEY}")
	v.SetDefault("llm.providers.claude.model", "claude-3-5-haiku-latest")

	// Generation defaults (mirror the CLI flag defaults)
	v.SetDefault("generation.language", "en")
	v.SetDefault("generation.workers", 1)
	v.SetDefault("generation.seed", 0)
	v.SetDefault("generation.levels", 3)
	v.SetDefault("generation.tags_per_level", 5)
	v.SetDefault("generation.questions_per_tag", 20)
	v.SetDefault("generation.conversations_per_tag", 5)
	v.SetDefault("generation.turns_per_conversation", 4)
	v.SetDefault("generation.transition_rate", 0.3)
	v.SetDefault("generation.leaf_only", true)

	// Export defaults
	v.SetDefault("export.output_dir", "output")
	v.SetDefault("export.format", "jsonl")
	v.SetDefault("export.system_prompt", "")

	// Usage tracking is opt-in
	v.SetDefault("usage.db_path", "")

	// Logging defaults
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size_mb", 20)
	v.SetDefault("log.max_backups", 3)
	v.SetDefault("log.json", false)
	v.SetDefault("log.theme", "everforest")
}

// BindSensitiveEnvVars explicitly binds sensitive configuration to environment variables
func BindSensitiveEnvVars(v *viper.Viper) {
	v.BindEnv("llm.providers.deepseek.api_key", "DISTILL_DEEPSEEK_API_KEY")
	v.BindEnv("llm.providers.openrouter.api_key", "DISTILL_OPENROUTER_API_KEY")
	v.BindEnv("llm.providers.claude.api_key", "DISTILL_ANTHROPIC_API_KEY")
	v.BindEnv("usage.db_path", "DISTILL_USAGE_DB")
}

// Provider returns the provider entry for a model key.
// An empty key selects llm.default.
func (c *Config) Provider(key string) (string, ProviderConfig, bool) {
	if key == "" {
		key = c.LLM.Default
	}
	p, ok := c.LLM.Providers[key]
	return key, p, ok
}

// ProviderNames returns configured provider keys in sorted order
func (c *Config) ProviderNames() []string {
	names := make([]string, 0, len(c.LLM.Providers))
	for name := range c.LLM.Providers {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// String returns a string representation of the config
func (c *Config) String() string {
	return fmt.Sprintf("Config{LLM: {Default: %s, Providers: %d}, Generation: {Language: %s, Workers: %d}, Export: {Format: %s}}",
		c.LLM.Default, len(c.LLM.Providers), c.Generation.Language, c.Generation.Workers, c.Export.Format)
}
