// Package handler contains the HTTP handlers for the episode API. Handlers
// validate and translate; all real work happens in the pipeline service.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/castpress/castpress/internal/api/response"
	"github.com/castpress/castpress/internal/pipeline"
	"github.com/castpress/castpress/internal/store"
	"github.com/castpress/castpress/pkg/models"
)

// EpisodeService is the interface the episode handlers depend on.
// Satisfied by *pipeline.Service.
type EpisodeService interface {
	Trigger(ctx context.Context, params pipeline.TriggerParams) (*models.Job, error)
	GetJob(ctx context.Context, jobID uuid.UUID) (*models.Job, error)
}

// NotificationLister reads the in-app notifications for one job.
type NotificationLister interface {
	ListNotificationsByJob(ctx context.Context, jobID uuid.UUID) ([]*models.Notification, error)
}

// NewCreateEpisodeHandler returns the handler for POST /api/v1/episodes.
// A valid request gets a 202 with the pending job; production happens in
// the background and the client polls.
func NewCreateEpisodeHandler(svc EpisodeService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Transcript string `json:"transcript"`
			LengthTier string `json:"length_tier"`
			Mode       string `json:"mode"`
			VoiceA     string `json:"voice_a"`
			VoiceB     string `json:"voice_b"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
			return
		}

		details := map[string][]string{}
		if strings.TrimSpace(req.Transcript) == "" {
			details["transcript"] = append(details["transcript"], "transcript is required")
		}
		if req.VoiceA == "" {
			details["voice_a"] = append(details["voice_a"], "voice_a is required")
		}
		if req.Mode == models.ModeMulti && req.VoiceB == "" {
			details["voice_b"] = append(details["voice_b"], "voice_b is required for multi-speaker episodes")
		}
		if len(details) > 0 {
			response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid episode request", details)
			return
		}

		job, err := svc.Trigger(r.Context(), pipeline.TriggerParams{
			Transcript: req.Transcript,
			LengthTier: req.LengthTier,
			Mode:       req.Mode,
			VoiceA:     req.VoiceA,
			VoiceB:     req.VoiceB,
		})
		if err != nil {
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
				"Could not create the episode job", nil)
			return
		}

		response.Accepted(w, job)
	}
}

// NewGetEpisodeHandler returns the handler for GET /api/v1/episodes/{jobID}.
func NewGetEpisodeHandler(svc EpisodeService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		jobID, err := uuid.Parse(chi.URLParam(r, "jobID"))
		if err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "jobID must be a UUID", nil)
			return
		}

		job, err := svc.GetJob(r.Context(), jobID)
		if errors.Is(err, store.ErrNotFound) {
			response.Error(w, http.StatusNotFound, "RESOURCE_NOT_FOUND", "No such episode job", nil)
			return
		}
		if err != nil {
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
				"Could not read the episode job", nil)
			return
		}

		response.JSON(w, job)
	}
}

// NewListNotificationsHandler returns the handler for
// GET /api/v1/episodes/{jobID}/notifications.
func NewListNotificationsHandler(svc EpisodeService, lister NotificationLister) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		jobID, err := uuid.Parse(chi.URLParam(r, "jobID"))
		if err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "jobID must be a UUID", nil)
			return
		}

		if _, err := svc.GetJob(r.Context(), jobID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				response.Error(w, http.StatusNotFound, "RESOURCE_NOT_FOUND", "No such episode job", nil)
				return
			}
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
				"Could not read the episode job", nil)
			return
		}

		notes, err := lister.ListNotificationsByJob(r.Context(), jobID)
		if err != nil {
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
				"Could not list notifications", nil)
			return
		}
		if notes == nil {
			notes = []*models.Notification{}
		}
		response.List(w, notes, len(notes))
	}
}
