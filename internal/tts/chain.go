package tts

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Chain is the primary-then-backup fallback for one synthesis call. The
// voice map translates the primary provider's voice IDs into the backup's
// native IDs so the fallback keeps the same logical voice; an unmapped
// voice is passed to the backup unchanged.
type Chain struct {
	primary  Synthesizer
	backup   Synthesizer
	voiceMap map[string]string
	timeout  time.Duration
}

func NewChain(timeout time.Duration, primary, backup Synthesizer, voiceMap map[string]string) *Chain {
	return &Chain{primary: primary, backup: backup, voiceMap: voiceMap, timeout: timeout}
}

// Synthesize tries the primary synthesizer, then the backup exactly once.
// After both fail it returns ErrSynthesisFailure wrapping the backup's error.
func (c *Chain) Synthesize(ctx context.Context, text, voiceID string) ([]byte, error) {
	primaryCtx, cancel := context.WithTimeout(ctx, c.timeout)
	audio, err := c.primary.Synthesize(primaryCtx, text, voiceID)
	cancel()
	if err == nil {
		return audio, nil
	}
	slog.Warn("primary synthesizer failed, trying backup",
		"provider", c.primary.Name(), "voice", voiceID, "error", err)

	backupVoice := voiceID
	if mapped, ok := c.voiceMap[voiceID]; ok {
		backupVoice = mapped
	}

	backupCtx, cancel := context.WithTimeout(ctx, c.timeout)
	audio, err = c.backup.Synthesize(backupCtx, text, backupVoice)
	cancel()
	if err == nil {
		return audio, nil
	}
	return nil, fmt.Errorf("%w: %v", ErrSynthesisFailure, err)
}
