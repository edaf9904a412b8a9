// Package pipeline runs the stage sequence that turns a transcript into a
// narrated episode: summarize, script, synthesize, assemble, finalize. One
// Runner serves many jobs; each job runs its stages sequentially in its own
// goroutine with no shared mutable state beyond the job record.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/castpress/castpress/internal/audio"
	"github.com/castpress/castpress/internal/cache"
	"github.com/castpress/castpress/internal/config"
	"github.com/castpress/castpress/internal/script"
	"github.com/castpress/castpress/internal/storage"
	"github.com/castpress/castpress/internal/store"
	"github.com/castpress/castpress/pkg/models"
	"github.com/google/uuid"
)

const cacheTTL = 30 * time.Minute

// TextGenerator is the text-provider capability the runner depends on.
// Satisfied by *text.Chain.
type TextGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// SpeechSynthesizer is the TTS capability the runner depends on.
// Satisfied by *tts.Chain.
type SpeechSynthesizer interface {
	Synthesize(ctx context.Context, text, voiceID string) ([]byte, error)
}

// Notifier is the terminal-state emitter. Satisfied by *notify.Notifier.
type Notifier interface {
	EpisodeReady(ctx context.Context, jobID uuid.UUID)
	EpisodeFailed(ctx context.Context, jobID uuid.UUID)
}

// Runner executes the full pipeline for one job at a time.
type Runner struct {
	cfg      config.PipelineConfig
	buckets  config.StorageConfig
	store    store.Store
	cache    cache.Cache
	objects  storage.ObjectStore
	summary  TextGenerator
	script   TextGenerator
	speech   SpeechSynthesizer
	notifier Notifier
}

// NewRunner wires the runner's collaborators. The summary and script
// generators are separate chains so each can carry its own provider order.
func NewRunner(
	cfg config.PipelineConfig,
	buckets config.StorageConfig,
	st store.Store,
	ca cache.Cache,
	objects storage.ObjectStore,
	summaryGen, scriptGen TextGenerator,
	speech SpeechSynthesizer,
	notifier Notifier,
) *Runner {
	return &Runner{
		cfg:      cfg,
		buckets:  buckets,
		store:    st,
		cache:    ca,
		objects:  objects,
		summary:  summaryGen,
		script:   scriptGen,
		speech:   speech,
		notifier: notifier,
	}
}

// Run executes every stage for the job. It owns all writes to the job
// record: stages report progress through it rather than touching the store
// themselves. The returned error is the internal cause; the job record only
// ever carries the user-safe form.
func (r *Runner) Run(ctx context.Context, jobID uuid.UUID) error {
	job, err := r.store.GetJob(ctx, jobID)
	if err != nil {
		return fmt.Errorf("load job: %w", err)
	}
	if job.IsTerminal() {
		slog.Info("job already finished, nothing to do", "job_id", jobID, "status", job.Status)
		return nil
	}

	if strings.TrimSpace(job.Transcript) == "" {
		return r.fail(ctx, jobID, ErrTranscriptMissing)
	}

	if job.Status == models.JobStatusPending {
		if err := r.store.UpdateJobStatus(ctx, jobID, models.JobStatusProcessing,
			store.WithProgress("Summarizing the transcript...")); err != nil {
			return fmt.Errorf("mark processing: %w", err)
		}
		_ = r.cache.SetJobStatus(ctx, jobID, models.JobStatusProcessing, cacheTTL)
	}

	summary, err := r.summarizeStage(ctx, job)
	if err != nil {
		return r.fail(ctx, jobID, err)
	}
	r.progress(ctx, jobID, "Writing the script...")

	scriptText, err := r.scriptStage(ctx, job, summary)
	if err != nil {
		return r.fail(ctx, jobID, err)
	}
	r.progress(ctx, jobID, "Preparing narration...")

	chunks, err := r.synthesisStage(ctx, job, scriptText)
	if err != nil {
		return r.fail(ctx, jobID, err)
	}

	r.progress(ctx, jobID, "Assembling your episode...")
	if err := r.assemblyStage(ctx, job, chunks); err != nil {
		return r.fail(ctx, jobID, err)
	}

	if err := r.store.UpdateJobStatus(ctx, jobID, models.JobStatusCompleted, store.ClearProgress()); err != nil {
		return fmt.Errorf("mark completed: %w", err)
	}
	_ = r.cache.SetJobStatus(ctx, jobID, models.JobStatusCompleted, cacheTTL)

	r.notifier.EpisodeReady(ctx, jobID)
	slog.Info("episode completed", "job_id", jobID)
	return nil
}

// summarizeStage produces the neutral synopsis, skipping the provider call
// entirely when a previous run already persisted one.
func (r *Runner) summarizeStage(ctx context.Context, job *models.Job) (string, error) {
	if job.Summary != nil && *job.Summary != "" {
		return *job.Summary, nil
	}

	summary, err := r.summary.Generate(ctx, script.SummaryPrompt(job.Transcript))
	if err != nil {
		return "", err
	}
	if _, err := r.store.SetSummary(ctx, job.ID, summary); err != nil {
		return "", fmt.Errorf("persist summary: %w", err)
	}
	return summary, nil
}

// scriptStage produces the narration script from the summary. Single mode
// yields plain narration cut to the tier budget; multi mode yields a
// validated dialogue stored as its canonical JSON encoding.
func (r *Runner) scriptStage(ctx context.Context, job *models.Job, summary string) (string, error) {
	if job.Script != nil && *job.Script != "" {
		return *job.Script, nil
	}

	tier := r.cfg.TierSpec(job.LengthTier)

	var scriptText string
	if job.Mode == models.ModeMulti {
		raw, err := r.script.Generate(ctx, script.DialoguePrompt(summary, tier))
		if err != nil {
			return "", err
		}
		lines, err := script.ParseDialogue(raw)
		if err != nil {
			return "", err
		}
		encoded, err := json.Marshal(lines)
		if err != nil {
			return "", fmt.Errorf("encode dialogue: %w", err)
		}
		scriptText = string(encoded)
	} else {
		raw, err := r.script.Generate(ctx, script.NarratorPrompt(summary, tier))
		if err != nil {
			return "", err
		}
		scriptText = script.Truncate(raw, tier.MaxWords)
	}

	if _, err := r.store.SetScript(ctx, job.ID, scriptText); err != nil {
		return "", fmt.Errorf("persist script: %w", err)
	}
	return scriptText, nil
}

// synthUnit is one synthesis call: a bounded slice of narration, or one
// dialogue line. Lines are natural chunk boundaries and are never merged
// or split.
type synthUnit struct {
	text    string
	voiceID string
}

func (r *Runner) synthesisUnits(job *models.Job, scriptText string) ([]synthUnit, error) {
	if job.Mode != models.ModeMulti {
		parts := script.Chunk(scriptText, r.cfg.ChunkWordLimit)
		units := make([]synthUnit, len(parts))
		for i, part := range parts {
			units[i] = synthUnit{text: part, voiceID: job.VoiceA}
		}
		return units, nil
	}

	lines, err := script.ParseDialogue(scriptText)
	if err != nil {
		return nil, err
	}
	units := make([]synthUnit, len(lines))
	for i, line := range lines {
		voice := job.VoiceA
		if line.Speaker == "B" {
			voice = job.VoiceB
		}
		units[i] = synthUnit{text: line.Text, voiceID: voice}
	}
	return units, nil
}

// synthesisStage synthesizes every unit and uploads each one as soon as it
// is produced; only storage refs stay in memory. Chunk keys are
// deterministic per job and index, so a resumed run reuses chunks that were
// already uploaded instead of paying a provider again.
func (r *Runner) synthesisStage(ctx context.Context, job *models.Job, scriptText string) ([]models.AudioChunk, error) {
	units, err := r.synthesisUnits(job, scriptText)
	if err != nil {
		return nil, err
	}

	chunks := make([]models.AudioChunk, 0, len(units))
	for i, unit := range units {
		r.progress(ctx, job.ID, fmt.Sprintf("Generating audio (part %d of %d)...", i+1, len(units)))

		key := chunkKey(job.ID, i)
		exists, err := r.objects.Exists(ctx, r.buckets.ChunkBucket, key)
		if err != nil {
			return nil, fmt.Errorf("%w: check chunk %d: %v", ErrAssembly, i, err)
		}

		ref := storage.Ref(r.buckets.ChunkBucket, key)
		if !exists {
			wav, err := r.speech.Synthesize(ctx, unit.text, unit.voiceID)
			if err != nil {
				return nil, err
			}
			ref, err = r.objects.Upload(ctx, r.buckets.ChunkBucket, key, wav, "audio/wav")
			if err != nil {
				return nil, fmt.Errorf("%w: upload chunk %d: %v", ErrAssembly, i, err)
			}
		}

		chunks = append(chunks, models.AudioChunk{Index: i, SourceText: unit.text, StorageRef: ref})
	}
	return chunks, nil
}

// assemblyStage downloads every chunk in index order, concatenates the
// frames into one stream, computes the duration from that stream, uploads
// the episode, and then deletes the chunks best-effort.
func (r *Runner) assemblyStage(ctx context.Context, job *models.Job, chunks []models.AudioChunk) error {
	waves := make([]audio.Wave, len(chunks))
	for _, chunk := range chunks {
		data, err := r.objects.Download(ctx, chunk.StorageRef)
		if err != nil {
			return fmt.Errorf("%w: download chunk %d: %v", ErrAssembly, chunk.Index, err)
		}
		wave, err := audio.Decode(data)
		if err != nil {
			return fmt.Errorf("%w: decode chunk %d: %v", ErrAssembly, chunk.Index, err)
		}
		if wave.SampleRate != r.cfg.SampleRate || wave.Channels != r.cfg.Channels {
			return fmt.Errorf("%w: chunk %d format %dHz/%dch does not match job format %dHz/%dch",
				ErrAssembly, chunk.Index, wave.SampleRate, wave.Channels, r.cfg.SampleRate, r.cfg.Channels)
		}
		waves[chunk.Index] = wave
	}

	combined, err := audio.Concat(waves)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrAssembly, err)
	}

	ref, err := r.objects.Upload(ctx, r.buckets.EpisodeBucket, episodeKey(job.ID),
		audio.Encode(combined), "audio/wav")
	if err != nil {
		return fmt.Errorf("%w: upload episode: %v", ErrAssembly, err)
	}

	if err := r.store.SetFinalAudio(ctx, job.ID, ref, combined.Duration()); err != nil {
		return fmt.Errorf("persist final audio: %w", err)
	}

	// Chunk cleanup is best-effort; a leaked temp chunk never fails the job.
	for _, chunk := range chunks {
		if err := r.objects.Delete(ctx, chunk.StorageRef); err != nil {
			slog.Warn("delete temp chunk", "job_id", job.ID, "ref", chunk.StorageRef, "error", err)
		}
	}
	return nil
}

// progress persists the human-readable progress message so pollers see live
// sub-step state. Progress writes are advisory: a failed write is logged and
// the pipeline carries on.
func (r *Runner) progress(ctx context.Context, jobID uuid.UUID, message string) {
	if err := r.store.SetProgress(ctx, jobID, message); err != nil {
		slog.Warn("persist progress", "job_id", jobID, "error", err)
	}
	_ = r.cache.SetJobProgress(ctx, jobID, message, cacheTTL)
}

// fail moves the job to its terminal failed state, keeping the last progress
// message and partial outputs for diagnostics, and emits the failure
// notification exactly once.
func (r *Runner) fail(ctx context.Context, jobID uuid.UUID, cause error) error {
	slog.Error("pipeline failed", "job_id", jobID, "error", cause)

	opts := []store.JobUpdateOption{store.WithErrorMessage(userSafeMessage(cause))}
	if err := r.store.UpdateJobStatus(ctx, jobID, models.JobStatusFailed, opts...); err != nil {
		slog.Error("mark job failed", "job_id", jobID, "error", err)
	}
	_ = r.cache.SetJobStatus(ctx, jobID, models.JobStatusFailed, cacheTTL)

	r.notifier.EpisodeFailed(ctx, jobID)
	return cause
}

func chunkKey(jobID uuid.UUID, index int) string {
	return fmt.Sprintf("chunks/%s/segment_%d.wav", jobID, index)
}

func episodeKey(jobID uuid.UUID) string {
	return fmt.Sprintf("episodes/%s/episode.wav", jobID)
}
