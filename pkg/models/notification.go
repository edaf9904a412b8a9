package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	NotificationEpisodeReady  = "episode_ready"
	NotificationEpisodeFailed = "episode_failed"
)

// Notification is an in-app record written when a job reaches a terminal
// state. Messages are user-safe; provider error details stay in the logs.
type Notification struct {
	ID        uuid.UUID `db:"id"         json:"id"`
	JobID     uuid.UUID `db:"job_id"     json:"job_id"`
	Kind      string    `db:"kind"       json:"kind"`
	Message   string    `db:"message"    json:"message"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// EmailEvent is the payload pushed onto the outbound email queue. The mailer
// that consumes the queue owns template rendering; we only name the template
// and hand over the job reference.
type EmailEvent struct {
	TemplateKind string    `json:"template_kind"`
	JobID        uuid.UUID `json:"job_id"`
	Message      string    `json:"message"`
	EnqueuedAt   time.Time `json:"enqueued_at"`
}
