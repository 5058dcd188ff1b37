package llm

import (
	"context"
	"math/rand/v2"
	"net"
	"strings"
	"syscall"
	"time"

	"github.com/teranos/distill/errors"
)

// Retry defaults: attempts include the first call; delays double from
// BaseDelay and are capped at MaxDelay.
const (
	DefaultMaxAttempts      = 3
	DefaultBaseDelay        = 2 * time.Second
	DefaultMaxDelay         = 10 * time.Second
	DefaultMaxJitterPercent = 25
)

// IsRetryable checks if an error is worth retrying (transient network or
// provider-side failures). Cancellation is never retried.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Retryable()
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	var errno syscall.Errno
	if errors.As(err, &errno) {
		switch errno {
		case syscall.ECONNREFUSED, syscall.ECONNRESET, syscall.ETIMEDOUT:
			return true
		}
	}

	// Check for common network error strings
	errStr := strings.ToLower(err.Error())
	networkErrors := []string{
		"connection reset by peer",
		"connection refused",
		"timeout",
		"temporary failure",
		"network is unreachable",
		"unexpected eof",
	}
	for _, netErr := range networkErrors {
		if strings.Contains(errStr, netErr) {
			return true
		}
	}

	return false
}

// BackoffDelay returns the wait before retry number attempt (1-based):
// base * 2^(attempt-1), capped at max, plus up to jitterPercent random jitter.
func BackoffDelay(base, max time.Duration, attempt, jitterPercent int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	delay := base
	for i := 1; i < attempt && delay < max; i++ {
		delay *= 2
	}
	if delay > max {
		delay = max
	}
	if jitterPercent > 0 {
		jitter := time.Duration(rand.Int64N(int64(delay)*int64(jitterPercent)/100 + 1))
		delay += jitter
	}
	return delay
}

// sleepContext waits for d or until ctx is done
func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
