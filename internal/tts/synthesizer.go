// Package tts holds the speech-synthesis provider boundary. Both providers
// emit WAV audio at the one sample rate and channel layout configured for
// the job, so downstream assembly never has to resample.
package tts

import (
	"context"
	"errors"
)

var (
	// ErrSynthesisFailure is returned only after the primary and the backup
	// synthesizer both failed for a single chunk.
	ErrSynthesisFailure = errors.New("all speech synthesizers failed")

	// ErrEmptyAudio is returned when a provider answers with no audio data.
	ErrEmptyAudio = errors.New("synthesizer returned empty audio")
)

// Synthesizer converts one chunk of text to WAV bytes using the given
// provider-native voice ID.
type Synthesizer interface {
	Synthesize(ctx context.Context, text, voiceID string) ([]byte, error)
	// Name returns the provider identifier (e.g., "elevenlabs", "cartesia").
	Name() string
}
