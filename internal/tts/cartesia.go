package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/castpress/castpress/internal/config"
)

// CartesiaSynthesizer implements Synthesizer against the bytes endpoint,
// requesting a WAV container directly.
type CartesiaSynthesizer struct {
	cfg        config.TTSProviderConfig
	sampleRate int
	client     *http.Client
}

func NewCartesiaSynthesizer(cfg config.TTSProviderConfig, sampleRate int) *CartesiaSynthesizer {
	return &CartesiaSynthesizer{cfg: cfg, sampleRate: sampleRate, client: &http.Client{}}
}

func (s *CartesiaSynthesizer) Name() string { return "cartesia" }

type cartesiaRequest struct {
	ModelID      string               `json:"model_id"`
	Transcript   string               `json:"transcript"`
	Voice        cartesiaVoice        `json:"voice"`
	OutputFormat cartesiaOutputFormat `json:"output_format"`
}

type cartesiaVoice struct {
	Mode string `json:"mode"`
	ID   string `json:"id"`
}

type cartesiaOutputFormat struct {
	Container  string `json:"container"`
	Encoding   string `json:"encoding"`
	SampleRate int    `json:"sample_rate"`
}

func (s *CartesiaSynthesizer) Synthesize(ctx context.Context, text, voiceID string) ([]byte, error) {
	body, err := json.Marshal(cartesiaRequest{
		ModelID:    "sonic-2",
		Transcript: text,
		Voice:      cartesiaVoice{Mode: "id", ID: voiceID},
		OutputFormat: cartesiaOutputFormat{
			Container:  "wav",
			Encoding:   "pcm_s16le",
			SampleRate: s.sampleRate,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		s.cfg.BaseURL+"/tts/bytes", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", s.cfg.APIKey)
	req.Header.Set("Cartesia-Version", "2024-11-13")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("cartesia request: %w", err)
	}
	defer resp.Body.Close()

	wav, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read audio: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("cartesia status %d: %s", resp.StatusCode, truncateBody(wav))
	}
	if len(wav) == 0 {
		return nil, ErrEmptyAudio
	}
	return wav, nil
}

var _ Synthesizer = (*CartesiaSynthesizer)(nil)
