package text

import (
	"fmt"

	"github.com/castpress/castpress/internal/config"
)

// NewProvider constructs a concrete provider from config.
// Called once per configured slot at server startup.
func NewProvider(cfg config.TextProviderConfig) (Provider, error) {
	switch cfg.Kind {
	case "openai":
		return NewOpenAIProvider(cfg), nil
	case "anthropic":
		return NewAnthropicProvider(cfg), nil
	default:
		return nil, fmt.Errorf("unknown text provider %q: must be one of openai, anthropic", cfg.Kind)
	}
}
