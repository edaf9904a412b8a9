package pipeline

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/castpress/castpress/internal/audio"
	"github.com/castpress/castpress/internal/config"
	"github.com/castpress/castpress/internal/notify"
	"github.com/castpress/castpress/internal/script"
	"github.com/castpress/castpress/internal/storage"
	"github.com/castpress/castpress/internal/store"
	"github.com/castpress/castpress/internal/text"
	textmock "github.com/castpress/castpress/internal/text/mock"
	"github.com/castpress/castpress/internal/tts"
	ttsmock "github.com/castpress/castpress/internal/tts/mock"
	"github.com/castpress/castpress/pkg/models"
)

// --- in-memory store ---

type memStore struct {
	mu            sync.Mutex
	jobs          map[uuid.UUID]*models.Job
	notifications []*models.Notification
}

func newMemStore() *memStore {
	return &memStore{jobs: make(map[uuid.UUID]*models.Job)}
}

func (s *memStore) Ping(_ context.Context) error { return nil }

func (s *memStore) CreateJob(_ context.Context, job *models.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *job
	s.jobs[job.ID] = &cp
	return nil
}

func (s *memStore) GetJob(_ context.Context, id uuid.UUID) (*models.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *job
	return &cp, nil
}

var memTransitions = map[string][]string{
	models.JobStatusPending:    {models.JobStatusProcessing, models.JobStatusFailed},
	models.JobStatusProcessing: {models.JobStatusCompleted, models.JobStatusFailed},
}

func (s *memStore) UpdateJobStatus(_ context.Context, id uuid.UUID, status string, opts ...store.JobUpdateOption) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok {
		return store.ErrNotFound
	}
	allowed := false
	for _, next := range memTransitions[job.Status] {
		if next == status {
			allowed = true
		}
	}
	if !allowed {
		return store.ErrInvalidTransition
	}
	job.Status = status
	now := time.Now().UTC()
	if status == models.JobStatusProcessing {
		job.StartedAt = &now
	}
	if status == models.JobStatusCompleted || status == models.JobStatusFailed {
		job.CompletedAt = &now
	}
	update := store.ResolveJobUpdate(opts...)
	if update.ErrorMessage != nil {
		job.ErrorMessage = update.ErrorMessage
	}
	if update.Progress != nil {
		job.ProgressMessage = update.Progress
	}
	if update.ClearProgress {
		job.ProgressMessage = nil
	}
	job.UpdatedAt = now
	return nil
}

func (s *memStore) SetProgress(_ context.Context, id uuid.UUID, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok {
		return store.ErrNotFound
	}
	job.ProgressMessage = &message
	return nil
}

func (s *memStore) SetSummary(_ context.Context, id uuid.UUID, summary string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok {
		return false, store.ErrNotFound
	}
	if job.Summary != nil {
		return false, nil
	}
	job.Summary = &summary
	return true, nil
}

func (s *memStore) SetScript(_ context.Context, id uuid.UUID, scriptText string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok {
		return false, store.ErrNotFound
	}
	if job.Script != nil {
		return false, nil
	}
	job.Script = &scriptText
	return true, nil
}

func (s *memStore) SetFinalAudio(_ context.Context, id uuid.UUID, ref string, durationSeconds float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok {
		return store.ErrNotFound
	}
	job.FinalAudioRef = &ref
	job.DurationSeconds = &durationSeconds
	return nil
}

func (s *memStore) CreateNotification(_ context.Context, n *models.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *n
	s.notifications = append(s.notifications, &cp)
	return nil
}

func (s *memStore) ListNotificationsByJob(_ context.Context, jobID uuid.UUID) ([]*models.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.Notification
	for _, n := range s.notifications {
		if n.JobID == jobID {
			cp := *n
			out = append(out, &cp)
		}
	}
	return out, nil
}

var _ store.Store = (*memStore)(nil)

// --- in-memory cache ---

type memCache struct {
	mu       sync.Mutex
	statuses map[uuid.UUID]string
	progress map[uuid.UUID]string
	emails   []models.EmailEvent
}

func newMemCache() *memCache {
	return &memCache{
		statuses: make(map[uuid.UUID]string),
		progress: make(map[uuid.UUID]string),
	}
}

func (c *memCache) Ping(_ context.Context) error { return nil }

func (c *memCache) SetJobStatus(_ context.Context, jobID uuid.UUID, status string, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.statuses[jobID] = status
	return nil
}

func (c *memCache) GetJobStatus(_ context.Context, jobID uuid.UUID) (string, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	status, ok := c.statuses[jobID]
	return status, ok, nil
}

func (c *memCache) SetJobProgress(_ context.Context, jobID uuid.UUID, message string, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.progress[jobID] = message
	return nil
}

func (c *memCache) GetJobProgress(_ context.Context, jobID uuid.UUID) (string, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	message, ok := c.progress[jobID]
	return message, ok, nil
}

func (c *memCache) EnqueueEmail(_ context.Context, event models.EmailEvent) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.emails = append(c.emails, event)
	return nil
}

func (c *memCache) Emails() []models.EmailEvent {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]models.EmailEvent(nil), c.emails...)
}

// --- fixture ---

const (
	testSampleRate = 24000
	testChunkWords = 220
)

type fixture struct {
	store   *memStore
	cache   *memCache
	objects *storage.MemoryStore
	buckets config.StorageConfig
}

func newFixture() *fixture {
	return &fixture{
		store:   newMemStore(),
		cache:   newMemCache(),
		objects: storage.NewMemoryStore(),
		buckets: config.StorageConfig{ChunkBucket: "chunks-test", EpisodeBucket: "episodes-test"},
	}
}

func (f *fixture) runner(summaryGen, scriptGen TextGenerator, speech SpeechSynthesizer) *Runner {
	cfg := config.PipelineConfig{
		ChunkWordLimit: testChunkWords,
		SampleRate:     testSampleRate,
		Channels:       1,
		Tiers: map[string]models.TierSpec{
			models.TierShort:  {MinWords: 150, MaxWords: 280, CreditWeight: 1},
			models.TierMedium: {MinWords: 420, MaxWords: 560, CreditWeight: 1},
			models.TierLong:   {MinWords: 700, MaxWords: 980, CreditWeight: 2},
		},
	}
	notifier := notify.New(f.store, f.cache)
	return NewRunner(cfg, f.buckets, f.store, f.cache, f.objects, summaryGen, scriptGen, speech, notifier)
}

func (f *fixture) seedJob(t *testing.T, job *models.Job) uuid.UUID {
	t.Helper()
	if job.ID == uuid.Nil {
		job.ID = uuid.New()
	}
	if job.Status == "" {
		job.Status = models.JobStatusPending
	}
	if job.LengthTier == "" {
		job.LengthTier = models.TierMedium
	}
	if job.Mode == "" {
		job.Mode = models.ModeSingle
	}
	if job.VoiceA == "" {
		job.VoiceA = "voice-a"
	}
	job.CreatedAt = time.Now().UTC()
	job.UpdatedAt = job.CreatedAt
	require.NoError(t, f.store.CreateJob(context.Background(), job))
	return job.ID
}

func wordsOf(n int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = "word"
	}
	return strings.Join(parts, " ")
}

// sentences returns n nine-word sentences so truncation has boundaries to
// back up to.
func sentences(n int) string {
	var b strings.Builder
	for i := 0; i < n; i++ {
		b.WriteString("The quick brown fox jumps over the lazy dog. ")
	}
	return strings.TrimSpace(b.String())
}

func toneChain(t *testing.T) *tts.Chain {
	t.Helper()
	tone := ttsmock.NewTone("tone", testSampleRate, 1)
	return tts.NewChain(time.Second, tone, tone, nil)
}

func staticChain(answer string) *text.Chain {
	return text.NewChain(time.Second, textmock.NewStatic("static", answer))
}

// --- tests ---

func TestRun_SingleSpeakerCompletes(t *testing.T) {
	f := newFixture()
	// 80 sentences of 9 words: well past the medium ceiling of 560.
	r := f.runner(
		staticChain("A tidy synopsis of the discussion."),
		staticChain(sentences(80)),
		toneChain(t),
	)
	jobID := f.seedJob(t, &models.Job{Transcript: wordsOf(2000), LengthTier: models.TierMedium})

	require.NoError(t, r.Run(context.Background(), jobID))

	job, err := f.store.GetJob(context.Background(), jobID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusCompleted, job.Status)
	assert.Nil(t, job.ProgressMessage)
	assert.Nil(t, job.ErrorMessage)

	require.NotNil(t, job.Script)
	assert.LessOrEqual(t, script.WordCount(*job.Script), 560)
	assert.True(t, strings.HasSuffix(*job.Script, "."), "truncated script should end on a sentence boundary")

	require.NotNil(t, job.FinalAudioRef)
	require.NotNil(t, job.DurationSeconds)
	assert.Greater(t, *job.DurationSeconds, 0.0)

	data, err := f.objects.Download(context.Background(), *job.FinalAudioRef)
	require.NoError(t, err)
	wave, err := audio.Decode(data)
	require.NoError(t, err)
	assert.Equal(t, testSampleRate, wave.SampleRate)
	assert.InDelta(t, *job.DurationSeconds, wave.Duration(), 1e-9)

	// Temp chunks are deleted after assembly; only the episode remains.
	assert.Equal(t, 1, f.objects.Len())

	notes, err := f.store.ListNotificationsByJob(context.Background(), jobID)
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.Equal(t, models.NotificationEpisodeReady, notes[0].Kind)
	require.Len(t, f.cache.Emails(), 1)
	assert.Equal(t, models.NotificationEpisodeReady, f.cache.Emails()[0].TemplateKind)
}

const dialogueScript = `[
 {"speaker": "A", "text": "Welcome to the show."},
 {"speaker": "B", "text": "Thanks for having me."},
 {"speaker": "A", "text": "Let us get started."}
]`

func TestRun_MultiSpeakerFallsBackPerLine(t *testing.T) {
	f := newFixture()

	// The primary fails on exactly one line; the backup must take over
	// with the mapped voice and the episode must still assemble in order.
	primary := &ttsmock.Synthesizer{Name_: "primary"}
	primary.SynthesizeFunc = func(_ context.Context, line, _ string) ([]byte, error) {
		if line == "Thanks for having me." {
			return nil, errors.New("upstream 500")
		}
		data := make([]byte, len(line)*2)
		return audio.Encode(audio.Wave{SampleRate: testSampleRate, Channels: 1, Data: data}), nil
	}
	backup := ttsmock.NewTone("backup", testSampleRate, 1)
	chain := tts.NewChain(time.Second, primary, backup, map[string]string{"voice-b": "backup-b"})

	r := f.runner(staticChain("synopsis"), staticChain(dialogueScript), chain)
	jobID := f.seedJob(t, &models.Job{
		Transcript: wordsOf(500),
		Mode:       models.ModeMulti,
		VoiceA:     "voice-a",
		VoiceB:     "voice-b",
	})

	require.NoError(t, r.Run(context.Background(), jobID))

	job, err := f.store.GetJob(context.Background(), jobID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusCompleted, job.Status)

	require.Len(t, primary.Calls, 3)
	assert.Equal(t, "voice-a", primary.Calls[0].VoiceID)
	assert.Equal(t, "voice-b", primary.Calls[1].VoiceID)
	require.Len(t, backup.Calls, 1)
	assert.Equal(t, "Thanks for having me.", backup.Calls[0].Text)
	assert.Equal(t, "backup-b", backup.Calls[0].VoiceID)

	// Frame count of the episode equals the sum of all three lines.
	require.NotNil(t, job.FinalAudioRef)
	data, err := f.objects.Download(context.Background(), *job.FinalAudioRef)
	require.NoError(t, err)
	wave, err := audio.Decode(data)
	require.NoError(t, err)
	total := len("Welcome to the show.") + len("Thanks for having me.") + len("Let us get started.")
	assert.Equal(t, total*2, len(wave.Data))
}

func TestRun_SynthesisExhaustionFailsJob(t *testing.T) {
	f := newFixture()
	failing := ttsmock.NewFailing("down", errors.New("quota exceeded"))
	chain := tts.NewChain(50*time.Millisecond, failing, failing, nil)

	r := f.runner(staticChain("synopsis"), staticChain(sentences(50)), chain)
	jobID := f.seedJob(t, &models.Job{Transcript: wordsOf(500)})

	err := r.Run(context.Background(), jobID)
	require.ErrorIs(t, err, tts.ErrSynthesisFailure)

	job, getErr := f.store.GetJob(context.Background(), jobID)
	require.NoError(t, getErr)
	assert.Equal(t, models.JobStatusFailed, job.Status)
	assert.Nil(t, job.FinalAudioRef)
	assert.Nil(t, job.DurationSeconds)
	require.NotNil(t, job.ErrorMessage)
	assert.Equal(t, "We could not generate audio for this episode. Please try again.", *job.ErrorMessage)
	// Last progress survives failure for diagnostics.
	require.NotNil(t, job.ProgressMessage)
	assert.Contains(t, *job.ProgressMessage, "Generating audio")

	notes, err := f.store.ListNotificationsByJob(context.Background(), jobID)
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.Equal(t, models.NotificationEpisodeFailed, notes[0].Kind)
}

func TestRun_SummaryExhaustionFailsBeforeScript(t *testing.T) {
	f := newFixture()
	failingSummary := text.NewChain(50*time.Millisecond,
		textmock.NewFailing("p1", errors.New("overloaded")),
		textmock.NewFailing("p2", errors.New("overloaded")),
	)
	scriptGen := textmock.NewStatic("script", sentences(50))
	speech := ttsmock.NewTone("tone", testSampleRate, 1)

	r := f.runner(failingSummary, text.NewChain(time.Second, scriptGen), tts.NewChain(time.Second, speech, speech, nil))
	jobID := f.seedJob(t, &models.Job{Transcript: wordsOf(500)})

	err := r.Run(context.Background(), jobID)
	require.ErrorIs(t, err, text.ErrProviderFailure)

	job, getErr := f.store.GetJob(context.Background(), jobID)
	require.NoError(t, getErr)
	assert.Equal(t, models.JobStatusFailed, job.Status)
	assert.Nil(t, job.Summary)
	assert.Nil(t, job.Script)
	require.NotNil(t, job.ErrorMessage)
	assert.Equal(t, "We could not write your episode script. Please try again.", *job.ErrorMessage)

	assert.Empty(t, scriptGen.Calls, "script stage must not run after summary failure")
	assert.Empty(t, speech.Calls)
	assert.Equal(t, 0, f.objects.Len())
}

func TestRun_MalformedDialogueFailsJob(t *testing.T) {
	f := newFixture()
	r := f.runner(staticChain("synopsis"), staticChain("not a dialogue at all"), toneChain(t))
	jobID := f.seedJob(t, &models.Job{
		Transcript: wordsOf(500),
		Mode:       models.ModeMulti,
		VoiceA:     "voice-a",
		VoiceB:     "voice-b",
	})

	err := r.Run(context.Background(), jobID)
	require.ErrorIs(t, err, script.ErrScriptParse)

	job, getErr := f.store.GetJob(context.Background(), jobID)
	require.NoError(t, getErr)
	assert.Equal(t, models.JobStatusFailed, job.Status)
	require.NotNil(t, job.ErrorMessage)
	assert.Equal(t, "We could not prepare your episode script. Please try again.", *job.ErrorMessage)
}

func TestRun_EmptyTranscriptFailsWithoutProviderCalls(t *testing.T) {
	f := newFixture()
	summaryGen := textmock.NewStatic("summary", "synopsis")
	r := f.runner(text.NewChain(time.Second, summaryGen), staticChain(sentences(50)), toneChain(t))
	jobID := f.seedJob(t, &models.Job{Transcript: "   \n\t "})

	err := r.Run(context.Background(), jobID)
	require.ErrorIs(t, err, ErrTranscriptMissing)

	job, getErr := f.store.GetJob(context.Background(), jobID)
	require.NoError(t, getErr)
	assert.Equal(t, models.JobStatusFailed, job.Status)
	require.NotNil(t, job.ErrorMessage)
	assert.Equal(t, "This episode has no transcript to narrate.", *job.ErrorMessage)
	assert.Empty(t, summaryGen.Calls)
}

func TestRun_TerminalJobIsUntouched(t *testing.T) {
	f := newFixture()
	summaryGen := textmock.NewStatic("summary", "synopsis")
	r := f.runner(text.NewChain(time.Second, summaryGen), staticChain(sentences(50)), toneChain(t))
	jobID := f.seedJob(t, &models.Job{Transcript: wordsOf(500), Status: models.JobStatusCompleted})

	require.NoError(t, r.Run(context.Background(), jobID))

	assert.Empty(t, summaryGen.Calls)
	notes, err := f.store.ListNotificationsByJob(context.Background(), jobID)
	require.NoError(t, err)
	assert.Empty(t, notes)
}

func TestRun_ResumeSkipsFinishedStages(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	summaryGen := textmock.NewStatic("summary", "should not be called")
	scriptGen := textmock.NewStatic("script", "should not be called")
	speech := ttsmock.NewTone("tone", testSampleRate, 1)

	r := f.runner(text.NewChain(time.Second, summaryGen), text.NewChain(time.Second, scriptGen),
		tts.NewChain(time.Second, speech, speech, nil))

	// A previous run got through summary, script and the first of two
	// chunks before dying: 300 words splits into 220 + 80 at the limit.
	jobID := f.seedJob(t, &models.Job{Transcript: wordsOf(500)})
	require.NoError(t, f.store.UpdateJobStatus(ctx, jobID, models.JobStatusProcessing))
	_, err := f.store.SetSummary(ctx, jobID, "persisted synopsis")
	require.NoError(t, err)
	priorScript := wordsOf(300)
	_, err = f.store.SetScript(ctx, jobID, priorScript)
	require.NoError(t, err)

	chunk0 := audio.Encode(audio.Wave{SampleRate: testSampleRate, Channels: 1, Data: make([]byte, 480)})
	_, err = f.objects.Upload(ctx, f.buckets.ChunkBucket, chunkKey(jobID, 0), chunk0, "audio/wav")
	require.NoError(t, err)

	require.NoError(t, r.Run(ctx, jobID))

	job, err := f.store.GetJob(ctx, jobID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusCompleted, job.Status)

	assert.Empty(t, summaryGen.Calls, "persisted summary must be reused")
	assert.Empty(t, scriptGen.Calls, "persisted script must be reused")
	require.Len(t, speech.Calls, 1, "only the missing chunk is synthesized")
	assert.Equal(t, 80, script.WordCount(speech.Calls[0].Text))
}

func TestRun_FailedChunkCleanupDoesNotFailJob(t *testing.T) {
	f := newFixture()
	f.objects.FailDelete = true

	r := f.runner(staticChain("synopsis"), staticChain(sentences(50)), toneChain(t))
	jobID := f.seedJob(t, &models.Job{Transcript: wordsOf(500)})

	require.NoError(t, r.Run(context.Background(), jobID))

	job, err := f.store.GetJob(context.Background(), jobID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusCompleted, job.Status)

	// Every orphaned chunk and the episode are still in storage.
	require.NotNil(t, job.Script)
	leaked := len(script.Chunk(*job.Script, testChunkWords))
	assert.Equal(t, leaked+1, f.objects.Len())
}
