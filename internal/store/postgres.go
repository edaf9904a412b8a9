package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/castpress/castpress/pkg/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore implements the Store interface using pgx/v5.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgresStore.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Ping checks database connectivity.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

const jobColumns = `id, status, progress_message, transcript, summary, script, length_tier, mode,
	voice_a, voice_b, final_audio_ref, duration_seconds, error_message,
	started_at, completed_at, created_at, updated_at`

func scanJob(row pgx.Row) (*models.Job, error) {
	var j models.Job
	err := row.Scan(&j.ID, &j.Status, &j.ProgressMessage, &j.Transcript, &j.Summary, &j.Script,
		&j.LengthTier, &j.Mode, &j.VoiceA, &j.VoiceB, &j.FinalAudioRef, &j.DurationSeconds,
		&j.ErrorMessage, &j.StartedAt, &j.CompletedAt, &j.CreatedAt, &j.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan job: %w", err)
	}
	return &j, nil
}

// --- Jobs ---

func (s *PostgresStore) CreateJob(ctx context.Context, job *models.Job) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO jobs (id, status, transcript, length_tier, mode, voice_a, voice_b, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		job.ID, job.Status, job.Transcript, job.LengthTier, job.Mode, job.VoiceA, job.VoiceB,
		job.CreatedAt, job.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create job: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetJob(ctx context.Context, id uuid.UUID) (*models.Job, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = $1`, id)
	return scanJob(row)
}

// validTransitions encodes the job state machine. Terminal states are frozen:
// nothing can move a completed or failed job.
var validTransitions = map[string][]string{
	models.JobStatusPending:    {models.JobStatusProcessing, models.JobStatusFailed},
	models.JobStatusProcessing: {models.JobStatusCompleted, models.JobStatusFailed},
}

func (s *PostgresStore) UpdateJobStatus(ctx context.Context, id uuid.UUID, status string, opts ...JobUpdateOption) error {
	params := ResolveJobUpdate(opts...)

	var currentStatus string
	err := s.pool.QueryRow(ctx, `SELECT status FROM jobs WHERE id = $1`, id).Scan(&currentStatus)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("get job status: %w", err)
	}

	valid := false
	for _, a := range validTransitions[currentStatus] {
		if a == status {
			valid = true
			break
		}
	}
	if !valid {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, currentStatus, status)
	}

	now := time.Now().UTC()
	query := `UPDATE jobs SET status = $2, updated_at = $3`
	args := []any{id, status, now}
	argIdx := 4

	if status == models.JobStatusProcessing {
		query += fmt.Sprintf(", started_at = $%d", argIdx)
		args = append(args, now)
		argIdx++
	}
	if status == models.JobStatusCompleted || status == models.JobStatusFailed {
		query += fmt.Sprintf(", completed_at = $%d", argIdx)
		args = append(args, now)
		argIdx++
	}
	if params.ErrorMessage != nil {
		query += fmt.Sprintf(", error_message = $%d", argIdx)
		args = append(args, *params.ErrorMessage)
		argIdx++
	}
	if params.Progress != nil {
		query += fmt.Sprintf(", progress_message = $%d", argIdx)
		args = append(args, *params.Progress)
		argIdx++
	}
	if params.ClearProgress {
		query += ", progress_message = NULL"
	}

	query += " WHERE id = $1"

	_, err = s.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update job status: %w", err)
	}
	return nil
}

func (s *PostgresStore) SetProgress(ctx context.Context, id uuid.UUID, message string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE jobs SET progress_message = $2, updated_at = NOW() WHERE id = $1`, id, message)
	if err != nil {
		return fmt.Errorf("set progress: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) SetSummary(ctx context.Context, id uuid.UUID, summary string) (bool, error) {
	tag, err := s.pool.Exec(ctx,
		`UPDATE jobs SET summary = $2, updated_at = NOW() WHERE id = $1 AND summary IS NULL`, id, summary)
	if err != nil {
		return false, fmt.Errorf("set summary: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (s *PostgresStore) SetScript(ctx context.Context, id uuid.UUID, script string) (bool, error) {
	tag, err := s.pool.Exec(ctx,
		`UPDATE jobs SET script = $2, updated_at = NOW() WHERE id = $1 AND script IS NULL`, id, script)
	if err != nil {
		return false, fmt.Errorf("set script: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (s *PostgresStore) SetFinalAudio(ctx context.Context, id uuid.UUID, ref string, durationSeconds float64) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE jobs SET final_audio_ref = $2, duration_seconds = $3, updated_at = NOW() WHERE id = $1`,
		id, ref, durationSeconds)
	if err != nil {
		return fmt.Errorf("set final audio: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// --- Notifications ---

func (s *PostgresStore) CreateNotification(ctx context.Context, n *models.Notification) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO notifications (id, job_id, kind, message, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		n.ID, n.JobID, n.Kind, n.Message, n.CreatedAt)
	if err != nil {
		return fmt.Errorf("create notification: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListNotificationsByJob(ctx context.Context, jobID uuid.UUID) ([]*models.Notification, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, job_id, kind, message, created_at
		 FROM notifications WHERE job_id = $1 ORDER BY created_at`, jobID)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	var out []*models.Notification
	for rows.Next() {
		var n models.Notification
		if err := rows.Scan(&n.ID, &n.JobID, &n.Kind, &n.Message, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		out = append(out, &n)
	}
	return out, rows.Err()
}
