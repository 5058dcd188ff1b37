package llm

import (
	"context"
	"net"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teranos/distill/errors"
)

// scriptedClient returns queued responses and errors in order
type scriptedClient struct {
	responses []*ChatResponse
	errs      []error
	requests  []ChatRequest
}

func (c *scriptedClient) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	i := len(c.requests)
	c.requests = append(c.requests, req)
	var err error
	if i < len(c.errs) {
		err = c.errs[i]
	}
	if err != nil {
		return nil, err
	}
	return c.responses[i], nil
}

func newTestRequester(client Client, attempts int) (*Requester, *[]time.Duration) {
	r := NewRequester(client, RequesterConfig{MaxAttempts: attempts})
	var delays []time.Duration
	r.sleep = func(ctx context.Context, d time.Duration) error {
		delays = append(delays, d)
		return ctx.Err()
	}
	return r, &delays
}

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{"bare object", `{"tags": ["1 A"]}`, `{"tags": ["1 A"]}`},
		{"bare array", ` ["a", "b"] `, `["a", "b"]`},
		{"fenced json", "Here you go:\n```json\n{\"questions\": [\"q\"]}\n```\nThanks", `{"questions": ["q"]}`},
		{"fenced array", "```\n[\"x\"]\n```", `["x"]`},
		{"embedded object", `Sure! {"intent": "Billing", "question": "why {braces}?"} hope it helps`, `{"intent": "Billing", "question": "why {braces}?"}`},
		{"embedded after junk brace", `use {this} format: {"tags": []}`, `{"tags": []}`},
		{"nested", `prefix {"a": {"b": [1, 2]}} suffix`, `{"a": {"b": [1, 2]}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw, err := ExtractJSON(tt.text)
			require.NoError(t, err)
			assert.JSONEq(t, tt.want, string(raw))
		})
	}
}

func TestExtractJSON_NoJSON(t *testing.T) {
	for _, text := range []string{"", "   ", "no json here", "{broken"} {
		_, err := ExtractJSON(text)
		require.Error(t, err, text)
		assert.True(t, errors.Is(err, errors.ErrNoJSON), text)
	}
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"rate limited", &StatusError{Provider: "deepseek", StatusCode: 429}, true},
		{"server error", errors.Wrap(&StatusError{StatusCode: 502}, "chat"), true},
		{"bad request", &StatusError{StatusCode: 400}, false},
		{"unauthorized", &StatusError{StatusCode: 401}, false},
		{"canceled", context.Canceled, false},
		{"deadline", errors.Wrap(context.DeadlineExceeded, "chat"), false},
		{"conn refused", &net.OpError{Op: "dial", Err: syscall.ECONNREFUSED}, true},
		{"string timeout", errors.New("read tcp: i/o timeout"), true},
		{"other", errors.New("invalid character"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsRetryable(tt.err))
		})
	}
}

func TestBackoffDelay(t *testing.T) {
	base, max := 2*time.Second, 10*time.Second

	assert.Equal(t, 2*time.Second, BackoffDelay(base, max, 1, 0))
	assert.Equal(t, 4*time.Second, BackoffDelay(base, max, 2, 0))
	assert.Equal(t, 8*time.Second, BackoffDelay(base, max, 3, 0))
	assert.Equal(t, 10*time.Second, BackoffDelay(base, max, 4, 0))
	assert.Equal(t, 10*time.Second, BackoffDelay(base, max, 30, 0))

	for i := 0; i < 50; i++ {
		d := BackoffDelay(base, max, 1, 25)
		assert.GreaterOrEqual(t, d, 2*time.Second)
		assert.LessOrEqual(t, d, 2500*time.Millisecond)
	}
}

func TestRequester_RetriesTransientErrors(t *testing.T) {
	client := &scriptedClient{
		errs:      []error{&StatusError{StatusCode: 503}, &StatusError{StatusCode: 429}, nil},
		responses: []*ChatResponse{nil, nil, {Content: "ok"}},
	}
	r, delays := newTestRequester(client, 3)

	text, err := r.Generate(context.Background(), "hi", "sys")
	require.NoError(t, err)
	assert.Equal(t, "ok", text)
	assert.Len(t, client.requests, 3)
	require.Len(t, *delays, 2)
	assert.Less(t, (*delays)[0], (*delays)[1])
	assert.Equal(t, "sys", client.requests[0].SystemPrompt)
	assert.False(t, client.requests[0].JSONMode)
}

func TestRequester_GivesUpAfterMaxAttempts(t *testing.T) {
	client := &scriptedClient{
		errs: []error{&StatusError{StatusCode: 500}, &StatusError{StatusCode: 500}, &StatusError{StatusCode: 500}},
	}
	r, _ := newTestRequester(client, 3)

	_, err := r.Chat(context.Background(), ChatRequest{UserPrompt: "hi"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "after 3 attempts")
	assert.Len(t, client.requests, 3)
}

func TestRequester_DoesNotRetryPermanentErrors(t *testing.T) {
	client := &scriptedClient{errs: []error{&StatusError{StatusCode: 401}}}
	r, delays := newTestRequester(client, 3)

	_, err := r.Chat(context.Background(), ChatRequest{UserPrompt: "hi"})
	require.Error(t, err)
	assert.Len(t, client.requests, 1)
	assert.Empty(t, *delays)

	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, 401, statusErr.StatusCode)
}

func TestRequester_GenerateJSON(t *testing.T) {
	client := &scriptedClient{
		errs:      []error{nil},
		responses: []*ChatResponse{{Content: "```json\n{\"tags\": [\"1 Billing\"]}\n```"}},
	}
	r, _ := newTestRequester(client, 1)

	raw, err := r.GenerateJSON(context.Background(), "prompt", "")
	require.NoError(t, err)
	assert.JSONEq(t, `{"tags": ["1 Billing"]}`, string(raw))
	assert.True(t, client.requests[0].JSONMode)
}

func TestRequester_GenerateJSONUnparseable(t *testing.T) {
	client := &scriptedClient{
		errs:      []error{nil},
		responses: []*ChatResponse{{Content: "I cannot help with that."}},
	}
	r, _ := newTestRequester(client, 3)

	_, err := r.GenerateJSON(context.Background(), "prompt", "")
	require.Error(t, err)
	assert.True(t, errors.IsMalformedResponse(err))
	assert.Len(t, client.requests, 1, "parse failures are not retried")
}

func TestRequester_CancelledDuringBackoff(t *testing.T) {
	client := &scriptedClient{errs: []error{&StatusError{StatusCode: 503}}}
	r := NewRequester(client, RequesterConfig{MaxAttempts: 3, BaseDelay: time.Hour})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := r.Chat(ctx, ChatRequest{UserPrompt: "hi"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestStatusError(t *testing.T) {
	err := &StatusError{Provider: "openrouter", StatusCode: 402, Body: "insufficient credits"}
	assert.Equal(t, "openrouter API request failed with status 402: insufficient credits", err.Error())
	assert.False(t, err.Retryable())
}
