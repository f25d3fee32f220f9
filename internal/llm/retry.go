package llm

import (
	"context"
	"fmt"
	"time"
)

// RetryClient wraps an LLM with a bounded retry loop for rate-limit errors.
// Each attempt is separated by a fixed sleep; once attempts are exhausted the
// last error is surfaced to the caller. Other errors are not retried.
type RetryClient struct {
	inner    LLM
	attempts int
	backoff  time.Duration
}

// NewRetryClient wraps inner with the given retry policy.
func NewRetryClient(inner LLM, attempts int, backoff time.Duration) *RetryClient {
	if attempts <= 0 {
		attempts = 3
	}
	if backoff <= 0 {
		backoff = 2 * time.Second
	}
	return &RetryClient{inner: inner, attempts: attempts, backoff: backoff}
}

// Generate retries rate-limited completions up to the configured attempt count.
func (r *RetryClient) Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error) {
	return r.do(ctx, func() (string, error) {
		return r.inner.Generate(ctx, prompt, opts)
	})
}

// GenerateVision retries rate-limited vision calls up to the configured attempt count.
func (r *RetryClient) GenerateVision(ctx context.Context, prompt string, image []byte, opts GenerateOptions) (string, error) {
	return r.do(ctx, func() (string, error) {
		return r.inner.GenerateVision(ctx, prompt, image, opts)
	})
}

func (r *RetryClient) do(ctx context.Context, call func() (string, error)) (string, error) {
	var lastErr error
	for attempt := 1; attempt <= r.attempts; attempt++ {
		result, err := call()
		if err == nil {
			return result, nil
		}
		if !IsRateLimited(err) {
			return "", err
		}
		lastErr = err

		if attempt == r.attempts {
			break
		}
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(r.backoff):
		}
	}
	return "", fmt.Errorf("rate limit retries exhausted after %d attempts: %w", r.attempts, lastErr)
}

var _ LLM = (*RetryClient)(nil)
