// Package text holds the text-generation provider boundary. The pipeline
// never calls a concrete provider directly; it goes through a Chain of
// exactly one primary and one secondary implementation.
package text

import (
	"context"
	"errors"
)

var (
	// ErrProviderFailure is returned only after every provider in a chain
	// has failed for a single call.
	ErrProviderFailure = errors.New("all text providers failed")

	// ErrEmptyCompletion is returned when a provider answers with no text.
	ErrEmptyCompletion = errors.New("provider returned empty completion")
)

// Provider generates text from a prompt.
type Provider interface {
	Generate(ctx context.Context, prompt string) (string, error)
	// Name returns the provider identifier (e.g., "openai", "anthropic").
	Name() string
}
