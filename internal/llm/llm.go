// Package llm provides interfaces and implementations for Large Language Model clients.
package llm

import (
	"context"
	"errors"
)

// GenerateOptions configures the LLM generation request.
type GenerateOptions struct {
	// Model overrides the client's default model.
	Model string

	// SystemPrompt sets the system-level instructions for the model.
	SystemPrompt string

	// Temperature controls randomness in generation (0.0 = deterministic).
	Temperature float32

	// MaxTokens limits the maximum number of tokens in the response.
	MaxTokens int
}

// ErrRateLimited marks quota/rate-limit failures so callers can retry with
// backoff instead of failing the request outright.
var ErrRateLimited = errors.New("llm: rate limited")

// IsRateLimited reports whether err stems from the provider's rate limiter.
func IsRateLimited(err error) bool {
	return errors.Is(err, ErrRateLimited)
}

// LLM defines the interface for Large Language Model clients.
type LLM interface {
	// Generate sends a prompt to the LLM and returns the complete response.
	// It blocks until the full response is received or an error occurs.
	Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error)

	// GenerateVision sends a prompt plus a page image to a vision-capable
	// model and returns the complete response.
	GenerateVision(ctx context.Context, prompt string, image []byte, opts GenerateOptions) (string, error)
}
