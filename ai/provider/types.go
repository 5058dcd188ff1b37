package provider

import (
	"strings"

	"github.com/teranos/distill/config"
	"github.com/teranos/distill/errors"
)

// Kind identifies which client implementation serves a provider entry
type Kind string

const (
	// KindOpenAI covers any OpenAI-compatible endpoint: DeepSeek, OpenAI,
	// Qwen compatible mode, Ollama, vLLM, LM Studio
	KindOpenAI Kind = config.KindOpenAI
	// KindOpenRouter uses the OpenRouter gateway
	KindOpenRouter Kind = config.KindOpenRouter
	// KindAnthropic uses the Anthropic Messages API
	KindAnthropic Kind = config.KindAnthropic
)

// ParseKind converts a config kind string, accepting common aliases
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "openai", "deepseek", "qwen", "local", "ollama", "vllm", "":
		return KindOpenAI, nil
	case "openrouter", "or":
		return KindOpenRouter, nil
	case "anthropic", "claude":
		return KindAnthropic, nil
	default:
		return "", errors.WithHint(
			errors.Mark(errors.Newf("unknown provider kind: %s", s), errors.ErrUnknownProvider),
			"valid kinds: openai, openrouter, anthropic")
	}
}
