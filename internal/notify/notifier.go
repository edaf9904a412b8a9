// Package notify emits the terminal-state notifications for a job: one
// in-app record and one outbound email event. Everything here is
// fire-and-forget: an emitter failure is logged and never changes the
// outcome of the job that triggered it.
package notify

import (
	"context"
	"log/slog"
	"time"

	"github.com/castpress/castpress/internal/cache"
	"github.com/castpress/castpress/internal/store"
	"github.com/castpress/castpress/pkg/models"
	"github.com/google/uuid"
)

const (
	readyMessage  = "Your episode is ready to play."
	failedMessage = "We could not finish your episode. Please try again."
)

// Notifier writes in-app notifications and enqueues email events.
type Notifier struct {
	store store.Store
	cache cache.Cache
}

func New(st store.Store, ca cache.Cache) *Notifier {
	return &Notifier{store: st, cache: ca}
}

// EpisodeReady emits the success notification for a completed job.
func (n *Notifier) EpisodeReady(ctx context.Context, jobID uuid.UUID) {
	n.emit(ctx, jobID, models.NotificationEpisodeReady, readyMessage)
}

// EpisodeFailed emits the failure notification. The message shown to the
// user is always the generic one; provider error details stay in the logs.
func (n *Notifier) EpisodeFailed(ctx context.Context, jobID uuid.UUID) {
	n.emit(ctx, jobID, models.NotificationEpisodeFailed, failedMessage)
}

func (n *Notifier) emit(ctx context.Context, jobID uuid.UUID, kind, message string) {
	now := time.Now().UTC()

	if err := n.store.CreateNotification(ctx, &models.Notification{
		ID:        uuid.New(),
		JobID:     jobID,
		Kind:      kind,
		Message:   message,
		CreatedAt: now,
	}); err != nil {
		slog.Error("write in-app notification", "job_id", jobID, "kind", kind, "error", err)
	}

	if err := n.cache.EnqueueEmail(ctx, models.EmailEvent{
		TemplateKind: kind,
		JobID:        jobID,
		Message:      message,
		EnqueuedAt:   now,
	}); err != nil {
		slog.Error("enqueue email event", "job_id", jobID, "kind", kind, "error", err)
	}
}
