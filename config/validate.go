package config

import (
	"github.com/teranos/distill/errors"
)

// Supported generation languages
var supportedLanguages = map[string]bool{"en": true, "zh": true}

// ExportFormats lists the formats the exporter accepts
var ExportFormats = []string{"json", "jsonl", "csv", "alpaca", "sharegpt"}

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	if len(c.LLM.Providers) == 0 {
		return errors.NewConfigError("at least one provider must be configured under llm.providers")
	}
	for _, name := range c.ProviderNames() {
		p := c.LLM.Providers[name]
		if p.Model == "" {
			return errors.NewConfigError("llm.providers.%s.model not specified", name)
		}
		switch p.Kind {
		case KindOpenAI, KindOpenRouter, KindAnthropic:
		case "":
			return errors.NewConfigError("llm.providers.%s.kind not specified (use %q, %q or %q)", name, KindOpenAI, KindOpenRouter, KindAnthropic)
		default:
			return errors.Mark(errors.Newf("llm.providers.%s.kind %q is not supported", name, p.Kind), errors.ErrUnknownProvider)
		}
		if p.Temperature != nil && (*p.Temperature < 0 || *p.Temperature > 2) {
			return errors.NewConfigError("llm.providers.%s.temperature must be in [0, 2], got %f", name, *p.Temperature)
		}
		if p.MaxTokens != nil && *p.MaxTokens <= 0 {
			return errors.NewConfigError("llm.providers.%s.max_tokens must be > 0, got %d (omit for default)", name, *p.MaxTokens)
		}
		if p.TopP != nil && (*p.TopP <= 0 || *p.TopP > 1) {
			return errors.NewConfigError("llm.providers.%s.top_p must be in (0, 1], got %f", name, *p.TopP)
		}
	}
	if c.LLM.Default != "" {
		if _, ok := c.LLM.Providers[c.LLM.Default]; !ok {
			return errors.NewConfigError("llm.default %q does not name a configured provider", c.LLM.Default)
		}
	}

	// Retries: 0 would mean no attempt at all
	if c.LLM.MaxRetries < 1 {
		return errors.NewConfigError("llm.max_retries must be >= 1, got %d", c.LLM.MaxRetries)
	}
	if c.LLM.RequestsPerMinute < 0 {
		return errors.NewConfigError("llm.requests_per_minute must be >= 0, got %d", c.LLM.RequestsPerMinute)
	}
	if c.LLM.TimeoutSeconds < 0 {
		return errors.NewConfigError("llm.timeout_seconds must be >= 0, got %d", c.LLM.TimeoutSeconds)
	}

	if !supportedLanguages[c.Generation.Language] {
		return errors.NewConfigError("generation.language must be en or zh, got %q", c.Generation.Language)
	}
	if c.Generation.Workers < 0 {
		return errors.NewConfigError("generation.workers must be >= 0, got %d", c.Generation.Workers)
	}
	if c.Generation.TransitionRate < 0 || c.Generation.TransitionRate > 1 {
		return errors.NewConfigError("generation.transition_rate must be in [0, 1], got %f", c.Generation.TransitionRate)
	}

	if c.Export.Format != "" && !IsExportFormat(c.Export.Format) {
		return errors.Mark(errors.Newf("export.format %q is not supported", c.Export.Format), errors.ErrUnsupportedFormat)
	}

	return nil
}

// IsExportFormat reports whether format is a known export format
func IsExportFormat(format string) bool {
	for _, f := range ExportFormats {
		if f == format {
			return true
		}
	}
	return false
}
