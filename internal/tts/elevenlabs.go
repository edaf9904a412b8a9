package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/castpress/castpress/internal/audio"
	"github.com/castpress/castpress/internal/config"
)

// ElevenLabsSynthesizer implements Synthesizer against the text-to-speech
// API. The provider streams raw mono PCM; we wrap it in a WAV container so
// every synthesizer hands the pipeline the same thing.
type ElevenLabsSynthesizer struct {
	cfg        config.TTSProviderConfig
	sampleRate int
	client     *http.Client
}

func NewElevenLabsSynthesizer(cfg config.TTSProviderConfig, sampleRate int) *ElevenLabsSynthesizer {
	return &ElevenLabsSynthesizer{cfg: cfg, sampleRate: sampleRate, client: &http.Client{}}
}

func (s *ElevenLabsSynthesizer) Name() string { return "elevenlabs" }

func (s *ElevenLabsSynthesizer) Synthesize(ctx context.Context, text, voiceID string) ([]byte, error) {
	body, err := json.Marshal(map[string]any{
		"text":     text,
		"model_id": "eleven_multilingual_v2",
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/v1/text-to-speech/%s?output_format=pcm_%d",
		s.cfg.BaseURL, url.PathEscape(voiceID), s.sampleRate)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("xi-api-key", s.cfg.APIKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("elevenlabs request: %w", err)
	}
	defer resp.Body.Close()

	pcm, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read audio: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("elevenlabs status %d: %s", resp.StatusCode, truncateBody(pcm))
	}
	if len(pcm) == 0 {
		return nil, ErrEmptyAudio
	}
	return audio.Encode(audio.Wave{SampleRate: s.sampleRate, Channels: 1, Data: pcm}), nil
}

func truncateBody(b []byte) string {
	const max = 256
	if len(b) > max {
		b = b[:max]
	}
	return string(b)
}

var _ Synthesizer = (*ElevenLabsSynthesizer)(nil)
