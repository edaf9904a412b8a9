// Package mock provides test doubles for the speech-synthesis boundary.
package mock

import (
	"context"

	"github.com/castpress/castpress/internal/audio"
	"github.com/castpress/castpress/internal/tts"
)

// Call records one synthesis request.
type Call struct {
	Text    string
	VoiceID string
}

// Synthesizer satisfies tts.Synthesizer for testing.
type Synthesizer struct {
	Name_          string
	SynthesizeFunc func(ctx context.Context, text, voiceID string) ([]byte, error)

	// Calls records every request seen, in order.
	Calls []Call
}

func (m *Synthesizer) Name() string { return m.Name_ }

func (m *Synthesizer) Synthesize(ctx context.Context, text, voiceID string) ([]byte, error) {
	m.Calls = append(m.Calls, Call{Text: text, VoiceID: voiceID})
	if m.SynthesizeFunc != nil {
		return m.SynthesizeFunc(ctx, text, voiceID)
	}
	return nil, nil
}

// NewTone returns a synthesizer that produces silence proportional to the
// input length: one frame of audio per input byte, at the given format.
// Deterministic output keeps duration assertions simple.
func NewTone(name string, sampleRate, channels int) *Synthesizer {
	return &Synthesizer{
		Name_: name,
		SynthesizeFunc: func(_ context.Context, text, _ string) ([]byte, error) {
			data := make([]byte, len(text)*channels*2)
			return audio.Encode(audio.Wave{SampleRate: sampleRate, Channels: channels, Data: data}), nil
		},
	}
}

// NewFailing returns a synthesizer that always returns the given error.
func NewFailing(name string, err error) *Synthesizer {
	return &Synthesizer{
		Name_: name,
		SynthesizeFunc: func(_ context.Context, _, _ string) ([]byte, error) {
			return nil, err
		},
	}
}

var _ tts.Synthesizer = (*Synthesizer)(nil)
