package llm

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/teranos/distill/errors"
	"github.com/teranos/distill/internal/util"
	"github.com/teranos/distill/logger"
)

// RequesterConfig controls retries, pacing and logging for a Requester
type RequesterConfig struct {
	MaxAttempts       int           // Attempts per request including the first (0 = default 3)
	BaseDelay         time.Duration // First backoff delay (0 = default 2s)
	MaxDelay          time.Duration // Backoff cap (0 = default 10s)
	RequestsPerMinute int           // 0 = unlimited
	Logger            *zap.SugaredLogger
	Verbosity         int // >= 3 logs full prompts and completions
}

// Requester wraps a provider Client with bounded retries and request pacing.
// It is safe for concurrent use when the underlying Client is.
type Requester struct {
	client  Client
	cfg     RequesterConfig
	limiter *rate.Limiter
	logger  *zap.SugaredLogger
	sleep   func(ctx context.Context, d time.Duration) error
}

// NewRequester creates a Requester around client
func NewRequester(client Client, cfg RequesterConfig) *Requester {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = DefaultBaseDelay
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = DefaultMaxDelay
	}

	var limiter *rate.Limiter
	if cfg.RequestsPerMinute > 0 {
		limiter = rate.NewLimiter(rate.Limit(float64(cfg.RequestsPerMinute)/60.0), 1)
	}

	return &Requester{
		client:  client,
		cfg:     cfg,
		limiter: limiter,
		logger:  logger.OrNop(cfg.Logger),
		sleep:   sleepContext,
	}
}

// Chat sends req, retrying transient failures with exponential backoff
func (r *Requester) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	if ShouldLogPrompts(r.cfg.Verbosity) {
		r.logger.Debugw("LLM request", "system_prompt", req.SystemPrompt, "user_prompt", req.UserPrompt, "json_mode", req.JSONMode)
	}

	var lastErr error
	for attempt := 1; attempt <= r.cfg.MaxAttempts; attempt++ {
		if attempt > 1 {
			delay := BackoffDelay(r.cfg.BaseDelay, r.cfg.MaxDelay, attempt-1, DefaultMaxJitterPercent)
			r.logger.Debugw("Retrying LLM request",
				logger.FieldAttempt, attempt, "max_attempts", r.cfg.MaxAttempts, "delay", delay)
			if err := r.sleep(ctx, delay); err != nil {
				return nil, errors.Wrap(err, "cancelled while waiting to retry")
			}
		}

		if r.limiter != nil {
			if err := r.limiter.Wait(ctx); err != nil {
				return nil, errors.Wrap(err, "rate limiter wait")
			}
		}

		start := time.Now()
		resp, err := r.client.Chat(ctx, req)
		if err == nil {
			if attempt > 1 {
				r.logger.Infow("Request succeeded after retries", "attempts", attempt)
			}
			r.logger.Debugw("LLM response",
				logger.FieldDurationMS, time.Since(start).Milliseconds(),
				logger.FieldTokens, resp.Usage.TotalTokens,
				"content", util.Truncate(resp.Content, 100))
			return resp, nil
		}

		lastErr = err
		r.logger.Warnw("LLM API error",
			logger.FieldAttempt, attempt, "max_attempts", r.cfg.MaxAttempts, logger.FieldError, err)

		if !IsRetryable(err) {
			return nil, errors.Wrap(err, "LLM request failed")
		}
	}

	return nil, errors.Wrapf(lastErr, "LLM request failed after %d attempts", r.cfg.MaxAttempts)
}

// Generate returns the model's text reply to prompt
func (r *Requester) Generate(ctx context.Context, prompt, systemPrompt string) (string, error) {
	resp, err := r.Chat(ctx, ChatRequest{SystemPrompt: systemPrompt, UserPrompt: prompt})
	if err != nil {
		return "", err
	}
	return resp.Content, nil
}

// GenerateJSON asks for a JSON response and returns the parsed value.
// Providers that ignore JSON mode still work: the value is recovered from
// fenced or embedded JSON in the text.
func (r *Requester) GenerateJSON(ctx context.Context, prompt, systemPrompt string) (json.RawMessage, error) {
	resp, err := r.Chat(ctx, ChatRequest{SystemPrompt: systemPrompt, UserPrompt: prompt, JSONMode: true})
	if err != nil {
		return nil, err
	}
	raw, err := ExtractJSON(resp.Content)
	if err != nil {
		r.logger.Debugw("Unparseable JSON response", "content", util.Truncate(resp.Content, 500))
		return nil, err
	}
	return raw, nil
}

// ShouldLogPrompts reports whether full prompt bodies should be logged
func ShouldLogPrompts(verbosity int) bool {
	return logger.ShouldLogTrace(verbosity)
}
