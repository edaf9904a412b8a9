package store

import (
	"context"
	"errors"

	"github.com/castpress/castpress/pkg/models"
	"github.com/google/uuid"
)

var ErrNotFound = errors.New("resource not found")
var ErrInvalidTransition = errors.New("invalid job status transition")

// Store is the data access interface. All database operations go through here.
type Store interface {
	Ping(ctx context.Context) error

	CreateJob(ctx context.Context, job *models.Job) error
	GetJob(ctx context.Context, id uuid.UUID) (*models.Job, error)
	UpdateJobStatus(ctx context.Context, id uuid.UUID, status string, opts ...JobUpdateOption) error

	// SetProgress persists the human-readable progress message, touching
	// only that column so pollers see live progress without full rewrites.
	SetProgress(ctx context.Context, id uuid.UUID, message string) error

	// SetSummary and SetScript are write-once: a value already present is
	// never overwritten, so a resumed pipeline run cannot mutate a
	// completed step's output. They report whether the write happened.
	SetSummary(ctx context.Context, id uuid.UUID, summary string) (bool, error)
	SetScript(ctx context.Context, id uuid.UUID, script string) (bool, error)

	SetFinalAudio(ctx context.Context, id uuid.UUID, ref string, durationSeconds float64) error

	CreateNotification(ctx context.Context, n *models.Notification) error
	ListNotificationsByJob(ctx context.Context, jobID uuid.UUID) ([]*models.Notification, error)
}

// JobUpdate is the resolved form of a set of JobUpdateOptions. It is
// exported so every Store implementation can interpret the options the
// same way.
type JobUpdate struct {
	ErrorMessage  *string
	Progress      *string
	ClearProgress bool
}

type JobUpdateOption func(*JobUpdate)

// ResolveJobUpdate folds the options into one JobUpdate.
func ResolveJobUpdate(opts ...JobUpdateOption) JobUpdate {
	var u JobUpdate
	for _, opt := range opts {
		opt(&u)
	}
	return u
}

// WithErrorMessage records a user-safe error message alongside the status.
func WithErrorMessage(msg string) JobUpdateOption {
	return func(u *JobUpdate) {
		u.ErrorMessage = &msg
	}
}

// WithProgress sets the progress message in the same update.
func WithProgress(msg string) JobUpdateOption {
	return func(u *JobUpdate) {
		u.Progress = &msg
	}
}

// ClearProgress nulls the progress message, used when a job completes.
func ClearProgress() JobUpdateOption {
	return func(u *JobUpdate) {
		u.ClearProgress = true
	}
}
