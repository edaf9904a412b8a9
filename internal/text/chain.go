package text

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Chain tries an ordered list of providers until one succeeds. The pipeline
// constructs every chain with exactly two entries (primary, secondary);
// there are no retries beyond that single fallback, because each call against
// a paid provider bills.
type Chain struct {
	providers []Provider
	timeout   time.Duration
}

// NewChain builds a fallback chain. Providers are tried in argument order.
func NewChain(timeout time.Duration, providers ...Provider) *Chain {
	return &Chain{providers: providers, timeout: timeout}
}

// Generate runs the prompt against each provider in order and returns the
// first success. After exhaustion it returns ErrProviderFailure wrapping the
// last provider's error.
func (c *Chain) Generate(ctx context.Context, prompt string) (string, error) {
	var lastErr error
	for _, p := range c.providers {
		callCtx, cancel := context.WithTimeout(ctx, c.timeout)
		out, err := p.Generate(callCtx, prompt)
		cancel()
		if err == nil {
			return out, nil
		}
		lastErr = err
		slog.Warn("text provider failed, trying next", "provider", p.Name(), "error", err)
	}
	return "", fmt.Errorf("%w: %v", ErrProviderFailure, lastErr)
}
