// Package models contains shared data models used across the castpress codebase.
package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	JobStatusPending    = "pending"
	JobStatusProcessing = "processing"
	JobStatusCompleted  = "completed"
	JobStatusFailed     = "failed"
)

const (
	ModeSingle = "single"
	ModeMulti  = "multi"
)

// Job is the persisted unit of work: one transcript turned into one episode.
// The API returns a job id on POST /api/v1/episodes; the client polls
// GET /api/v1/episodes/{job_id} until status is completed or failed.
type Job struct {
	ID              uuid.UUID  `db:"id"               json:"id"`
	Status          string     `db:"status"           json:"status"`
	ProgressMessage *string    `db:"progress_message" json:"progress_message,omitempty"`
	Transcript      string     `db:"transcript"       json:"-"`
	Summary         *string    `db:"summary"          json:"summary,omitempty"`
	Script          *string    `db:"script"           json:"script,omitempty"`
	LengthTier      string     `db:"length_tier"      json:"length_tier"`
	Mode            string     `db:"mode"             json:"mode"`
	VoiceA          string     `db:"voice_a"          json:"voice_a"`
	VoiceB          string     `db:"voice_b"          json:"voice_b,omitempty"`
	FinalAudioRef   *string    `db:"final_audio_ref"  json:"final_audio_ref,omitempty"`
	DurationSeconds *float64   `db:"duration_seconds" json:"duration_seconds,omitempty"`
	ErrorMessage    *string    `db:"error_message"    json:"error_message,omitempty"`
	StartedAt       *time.Time `db:"started_at"       json:"started_at,omitempty"`
	CompletedAt     *time.Time `db:"completed_at"     json:"completed_at,omitempty"`
	CreatedAt       time.Time  `db:"created_at"       json:"created_at"`
	UpdatedAt       time.Time  `db:"updated_at"       json:"updated_at"`
}

// IsTerminal reports whether the job has reached a final state.
func (j *Job) IsTerminal() bool {
	return j.Status == JobStatusCompleted || j.Status == JobStatusFailed
}

// DialogueLine is one speaker-tagged line of a two-host episode script.
// Order within the slice is playback order and is preserved end-to-end.
type DialogueLine struct {
	Speaker string `json:"speaker"`
	Text    string `json:"text"`
}

// AudioChunk is an ephemeral reference to one synthesized slice of narration.
// Chunks are created by the synthesis stage, consumed in index order by the
// assembly stage, and deleted best-effort once the episode is assembled.
type AudioChunk struct {
	Index      int
	SourceText string
	StorageRef string
}
