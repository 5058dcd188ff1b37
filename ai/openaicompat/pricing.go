package openaicompat

import (
	"net"
	"net/url"
)

// ModelPricing contains per-token pricing for models served directly by
// their vendors. Prices are in USD per million tokens.
type ModelPricing struct {
	InputPrice  float64 // USD per 1M input tokens
	OutputPrice float64 // USD per 1M output tokens
}

// modelPricing covers the direct APIs this client is usually pointed at
var modelPricing = map[string]ModelPricing{
	// DeepSeek (cache-miss input pricing)
	"deepseek-chat": {
		InputPrice:  0.27, // $0.27 per 1M input tokens
		OutputPrice: 1.10, // $1.10 per 1M output tokens
	},
	"deepseek-reasoner": {
		InputPrice:  0.55, // $0.55 per 1M input tokens
		OutputPrice: 2.19, // $2.19 per 1M output tokens
	},

	// OpenAI
	"gpt-4o": {
		InputPrice:  2.50,
		OutputPrice: 10.00,
	},
	"gpt-4o-mini": {
		InputPrice:  0.15,
		OutputPrice: 0.60,
	},

	// Qwen via DashScope compatible mode
	"qwen-plus": {
		InputPrice:  0.40,
		OutputPrice: 1.20,
	},
	"qwen-turbo": {
		InputPrice:  0.05,
		OutputPrice: 0.20,
	},
}

// DefaultPricingFallback is the fallback cost per request for unknown hosted models
const DefaultPricingFallback = 0.01

// CalculateCost computes the cost of an API call in USD.
// Requests to local endpoints are free.
func CalculateCost(model, baseURL string, inputTokens, outputTokens int) float64 {
	if IsLocalEndpoint(baseURL) {
		return 0
	}
	pricing, found := modelPricing[model]
	if !found {
		return DefaultPricingFallback
	}
	inputCost := (float64(inputTokens) / 1_000_000.0) * pricing.InputPrice
	outputCost := (float64(outputTokens) / 1_000_000.0) * pricing.OutputPrice
	return inputCost + outputCost
}

// IsLocalEndpoint reports whether baseURL points at this machine or a
// private network address (Ollama, vLLM, LM Studio)
func IsLocalEndpoint(baseURL string) bool {
	if baseURL == "" {
		return false
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return false
	}
	host := u.Hostname()
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && (ip.IsLoopback() || ip.IsPrivate())
}
