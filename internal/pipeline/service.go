package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/castpress/castpress/internal/cache"
	"github.com/castpress/castpress/internal/store"
	"github.com/castpress/castpress/pkg/models"
	"github.com/google/uuid"
)

// TriggerParams holds validated parameters for starting one pipeline run.
type TriggerParams struct {
	Transcript string
	LengthTier string
	Mode       string
	VoiceA     string
	VoiceB     string
}

// Service creates jobs and dispatches pipeline runs. Each run executes in
// its own goroutine; the service never blocks a caller on provider latency.
type Service struct {
	store  store.Store
	cache  cache.Cache
	runner *Runner
}

func NewService(st store.Store, ca cache.Cache, runner *Runner) *Service {
	return &Service{store: st, cache: ca, runner: runner}
}

// Trigger creates a pending job and dispatches the pipeline in a background
// goroutine. Returns the job immediately without waiting for any stage.
func (s *Service) Trigger(ctx context.Context, params TriggerParams) (*models.Job, error) {
	if strings.TrimSpace(params.Transcript) == "" {
		return nil, fmt.Errorf("invalid trigger: %w", ErrTranscriptMissing)
	}
	mode := params.Mode
	if mode != models.ModeMulti {
		mode = models.ModeSingle
	}
	if params.VoiceA == "" {
		return nil, fmt.Errorf("invalid trigger: voice A is required")
	}
	if mode == models.ModeMulti && params.VoiceB == "" {
		return nil, fmt.Errorf("invalid trigger: voice B is required for multi-speaker jobs")
	}

	now := time.Now().UTC()
	job := &models.Job{
		ID:         uuid.New(),
		Status:     models.JobStatusPending,
		Transcript: params.Transcript,
		LengthTier: models.NormalizeTier(params.LengthTier),
		Mode:       mode,
		VoiceA:     params.VoiceA,
		VoiceB:     params.VoiceB,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := s.store.CreateJob(ctx, job); err != nil {
		return nil, fmt.Errorf("creating job: %w", err)
	}
	_ = s.cache.SetJobStatus(ctx, job.ID, models.JobStatusPending, cacheTTL)

	go s.run(job.ID)

	return job, nil
}

// run executes the pipeline for one job, recovering from panics so a bad
// job can never take the worker down with it.
func (s *Service) run(jobID uuid.UUID) {
	ctx := context.Background()

	defer func() {
		if rec := recover(); rec != nil {
			slog.Error("panic in pipeline run", "job_id", jobID, "error", rec)
			_ = s.store.UpdateJobStatus(ctx, jobID, models.JobStatusFailed,
				store.WithErrorMessage("Something went wrong while producing your episode."))
			_ = s.cache.SetJobStatus(ctx, jobID, models.JobStatusFailed, cacheTTL)
		}
	}()

	if err := s.runner.Run(ctx, jobID); err != nil {
		// Run already persisted the failure; this is for the operator log.
		slog.Error("pipeline run finished with error", "job_id", jobID, "error", err)
	}
}

// GetJob reads the job record, preferring the cache for status and progress
// so hot polling does not hammer the database row.
func (s *Service) GetJob(ctx context.Context, jobID uuid.UUID) (*models.Job, error) {
	job, err := s.store.GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if status, ok, err := s.cache.GetJobStatus(ctx, jobID); err == nil && ok {
		job.Status = status
	}
	if msg, ok, err := s.cache.GetJobProgress(ctx, jobID); err == nil && ok && !job.IsTerminal() {
		job.ProgressMessage = &msg
	}
	return job, nil
}
