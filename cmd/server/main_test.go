package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/castpress/castpress/internal/store"
	"github.com/castpress/castpress/pkg/models"
)

// --- stub store ---

type stubStore struct {
	pingErr error
}

func (s *stubStore) Ping(context.Context) error                   { return s.pingErr }
func (s *stubStore) CreateJob(context.Context, *models.Job) error { return nil }
func (s *stubStore) GetJob(context.Context, uuid.UUID) (*models.Job, error) {
	return nil, store.ErrNotFound
}
func (s *stubStore) UpdateJobStatus(context.Context, uuid.UUID, string, ...store.JobUpdateOption) error {
	return nil
}
func (s *stubStore) SetProgress(context.Context, uuid.UUID, string) error { return nil }
func (s *stubStore) SetSummary(context.Context, uuid.UUID, string) (bool, error) {
	return false, nil
}
func (s *stubStore) SetScript(context.Context, uuid.UUID, string) (bool, error) {
	return false, nil
}
func (s *stubStore) SetFinalAudio(context.Context, uuid.UUID, string, float64) error { return nil }
func (s *stubStore) CreateNotification(context.Context, *models.Notification) error  { return nil }
func (s *stubStore) ListNotificationsByJob(context.Context, uuid.UUID) ([]*models.Notification, error) {
	return nil, nil
}

// --- stub cache ---

type stubCache struct {
	pingErr error
}

func (c *stubCache) Ping(context.Context) error { return c.pingErr }
func (c *stubCache) SetJobStatus(context.Context, uuid.UUID, string, time.Duration) error {
	return nil
}
func (c *stubCache) GetJobStatus(context.Context, uuid.UUID) (string, bool, error) {
	return "", false, nil
}
func (c *stubCache) SetJobProgress(context.Context, uuid.UUID, string, time.Duration) error {
	return nil
}
func (c *stubCache) GetJobProgress(context.Context, uuid.UUID) (string, bool, error) {
	return "", false, nil
}
func (c *stubCache) EnqueueEmail(context.Context, models.EmailEvent) error { return nil }

// --- stub object store ---

type stubObjects struct {
	pingErr error
}

func (o *stubObjects) Ping(context.Context) error { return o.pingErr }
func (o *stubObjects) Upload(context.Context, string, string, []byte, string) (string, error) {
	return "", nil
}
func (o *stubObjects) Download(context.Context, string) ([]byte, error) { return nil, nil }
func (o *stubObjects) Delete(context.Context, string) error             { return nil }
func (o *stubObjects) Exists(context.Context, string, string) (bool, error) {
	return false, nil
}

// --- tests ---

func TestHealthHandler_AllOK(t *testing.T) {
	h := healthHandler(&stubStore{}, &stubCache{}, &stubObjects{})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	data := body["data"].(map[string]any)
	assert.Equal(t, "ok", data["status"])
}

func TestHealthHandler_Degraded(t *testing.T) {
	tests := []struct {
		name   string
		store  *stubStore
		cache  *stubCache
		object *stubObjects
		broken string
	}{
		{"database down", &stubStore{pingErr: errors.New("down")}, &stubCache{}, &stubObjects{}, "database"},
		{"cache down", &stubStore{}, &stubCache{pingErr: errors.New("down")}, &stubObjects{}, "cache"},
		{"storage down", &stubStore{}, &stubCache{}, &stubObjects{pingErr: errors.New("down")}, "storage"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := healthHandler(tt.store, tt.cache, tt.object)
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))

			assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

			var body map[string]any
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			errObj := body["error"].(map[string]any)
			assert.Equal(t, "DEGRADED", errObj["code"])
			details := errObj["details"].(map[string]any)
			assert.Equal(t, "degraded", details[tt.broken])
		})
	}
}
