package tts

import (
	"fmt"

	"github.com/castpress/castpress/internal/config"
)

// NewSynthesizer constructs a concrete synthesizer from config.
// Called once per configured slot at server startup.
func NewSynthesizer(cfg config.TTSProviderConfig, sampleRate int) (Synthesizer, error) {
	switch cfg.Kind {
	case "elevenlabs":
		return NewElevenLabsSynthesizer(cfg, sampleRate), nil
	case "cartesia":
		return NewCartesiaSynthesizer(cfg, sampleRate), nil
	default:
		return nil, fmt.Errorf("unknown tts provider %q: must be one of elevenlabs, cartesia", cfg.Kind)
	}
}
