// Package provider builds LLM clients from configuration.
package provider

import (
	"database/sql"
	"time"

	"go.uber.org/zap"

	"github.com/teranos/distill/ai/anthropic"
	"github.com/teranos/distill/ai/llm"
	"github.com/teranos/distill/ai/openaicompat"
	"github.com/teranos/distill/ai/openrouter"
	"github.com/teranos/distill/ai/tracker"
	"github.com/teranos/distill/config"
	"github.com/teranos/distill/errors"
	"github.com/teranos/distill/logger"
)

// Options holds per-run settings that are not part of the provider entry
type Options struct {
	Model     string // Provider key from llm.providers; "" = llm.default
	DB        *sql.DB
	Logger    *zap.SugaredLogger
	Verbosity int
}

// NewClient creates the client for a provider key and reports the resolved key
func NewClient(cfg *config.Config, opts Options) (llm.Client, string, error) {
	name, entry, ok := cfg.Provider(opts.Model)
	if !ok {
		return nil, name, errors.WithHintf(
			errors.Mark(errors.Newf("no provider configured for model %q", name), errors.ErrProviderNotConfigured),
			"configured providers: %v", cfg.ProviderNames())
	}

	kind, err := ParseKind(entry.Kind)
	if err != nil {
		return nil, name, errors.Wrapf(err, "provider %q", name)
	}

	var usage *tracker.UsageTracker
	if opts.DB != nil {
		usage = tracker.NewUsageTracker(opts.DB)
	}
	log := logger.OrNop(opts.Logger).With(logger.FieldProvider, name, logger.FieldModel, entry.Model)
	timeout := time.Duration(cfg.LLM.TimeoutSeconds) * time.Second

	switch kind {
	case KindAnthropic:
		if entry.APIKey == "" {
			return nil, name, errors.WithHintf(
				errors.Mark(errors.Newf("API key for provider %q is not configured", name), errors.ErrProviderNotConfigured),
				"set llm.providers.%s.api_key or ANTHROPIC_API_KEY", name)
		}
		return anthropic.NewClient(anthropic.Config{
			APIKey:      entry.APIKey,
			BaseURL:     entry.BaseURL,
			Model:       entry.Model,
			Temperature: entry.Temperature,
			MaxTokens:   entry.MaxTokens,
			TopP:        entry.TopP,
			Timeout:     timeout,
			Logger:      log,
			Tracker:     usage,
		}), name, nil
	case KindOpenRouter:
		if entry.APIKey == "" {
			return nil, name, errors.WithHintf(
				errors.Mark(errors.Newf("API key for provider %q is not configured", name), errors.ErrProviderNotConfigured),
				"set llm.providers.%s.api_key or OPENROUTER_API_KEY", name)
		}
		return openrouter.NewClient(openrouter.Config{
			APIKey:      entry.APIKey,
			BaseURL:     entry.BaseURL,
			Model:       entry.Model,
			Temperature: entry.Temperature,
			MaxTokens:   entry.MaxTokens,
			TopP:        entry.TopP,
			Timeout:     timeout,
			Logger:      log,
			Tracker:     usage,
		}), name, nil
	default:
		client, err := openaicompat.NewClient(openaicompat.Config{
			Name:        name,
			APIKey:      entry.APIKey,
			BaseURL:     entry.BaseURL,
			Model:       entry.Model,
			Temperature: entry.Temperature,
			MaxTokens:   entry.MaxTokens,
			TopP:        entry.TopP,
			Timeout:     timeout,
			Logger:      log,
			Tracker:     usage,
		})
		return client, name, err
	}
}

// NewRequester creates a retrying, rate-limited requester for a provider key
func NewRequester(cfg *config.Config, opts Options) (*llm.Requester, error) {
	client, name, err := NewClient(cfg, opts)
	if err != nil {
		return nil, err
	}
	logger.OrNop(opts.Logger).Debugw("LLM provider ready", logger.FieldProvider, name)

	return llm.NewRequester(client, llm.RequesterConfig{
		MaxAttempts:       cfg.LLM.MaxRetries,
		RequestsPerMinute: cfg.LLM.RequestsPerMinute,
		Logger:            opts.Logger,
		Verbosity:         opts.Verbosity,
	}), nil
}

// Available returns provider keys that can be used without further setup:
// those with an API key, or pointing at a local endpoint
func Available(cfg *config.Config) []string {
	var names []string
	for _, name := range cfg.ProviderNames() {
		entry := cfg.LLM.Providers[name]
		if entry.APIKey != "" || openaicompat.IsLocalEndpoint(entry.BaseURL) {
			names = append(names, name)
		}
	}
	return names
}

// Verify interfaces are implemented
var _ llm.Client = (*anthropic.Client)(nil)
var _ llm.Client = (*openrouter.Client)(nil)
var _ llm.Client = (*openaicompat.Client)(nil)
