package aggregator

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/png"
	"log/slog"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starscape/rapidupload/internal/blob"
	"github.com/starscape/rapidupload/internal/broadcast"
	"github.com/starscape/rapidupload/internal/domain"
	"github.com/starscape/rapidupload/internal/outbox"
	"github.com/starscape/rapidupload/internal/processing"
)

func testLoggerDiscard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func encodeTestPNG(t *testing.T, width, height int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, width, height))))
	return buf.Bytes()
}

// pipelineStore is an in-memory store shared by the processor and the
// aggregator, so a scenario can run the real pipeline end to end without a
// database.
type pipelineStore struct {
	mu     sync.Mutex
	photos map[string]*domain.Photo
	jobs   map[string]*domain.UploadJob
	events []outbox.Event
}

func newPipelineStore() *pipelineStore {
	return &pipelineStore{
		photos: make(map[string]*domain.Photo),
		jobs:   make(map[string]*domain.UploadJob),
	}
}

func (s *pipelineStore) GetPhoto(_ context.Context, photoID string) (*domain.Photo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.photos[photoID]
	if !ok {
		return nil, domain.ErrPhotoNotFound
	}
	return p, nil
}

func (s *pipelineStore) UpdatePhoto(_ context.Context, photo *domain.Photo) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.photos[photo.PhotoID] = photo
	return nil
}

func (s *pipelineStore) SavePhotoWithEvent(_ context.Context, photo *domain.Photo, event domain.DomainEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.photos[photo.PhotoID] = photo

	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	s.events = append(s.events, outbox.Event{
		EventID:   domain.NewEventID(),
		EventType: event.EventType(),
		Payload:   payload,
		CreatedAt: time.Now().UTC(),
	})
	return nil
}

func (s *pipelineStore) ClaimUnprocessedEvents(_ context.Context, _ string, limit int, _ time.Duration) ([]outbox.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var claimed []outbox.Event
	for _, e := range s.events {
		if e.ProcessedAt != nil {
			continue
		}
		claimed = append(claimed, e)
		if len(claimed) >= limit {
			break
		}
	}
	return claimed, nil
}

func (s *pipelineStore) MarkEventProcessed(_ context.Context, eventID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.events {
		if s.events[i].EventID == eventID {
			now := time.Now().UTC()
			s.events[i].ProcessedAt = &now
		}
	}
	return nil
}

func (s *pipelineStore) RecomputeJobProgress(_ context.Context, jobID string) (string, *domain.UploadJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[jobID]
	if !ok {
		return "", nil, domain.ErrJobNotFound
	}
	previous := job.Status

	job.Photos = nil
	for _, p := range s.photos {
		if p.JobID == jobID {
			job.Photos = append(job.Photos, p)
		}
	}
	sort.Slice(job.Photos, func(i, j int) bool {
		return job.Photos[i].PhotoID < job.Photos[j].PhotoID
	})

	job.RecomputeProgress()
	return previous, job, nil
}

// Two uploads land in the bucket: a decodable PNG and a corrupt file. The
// processor settles both photos, the aggregator folds the events into the job,
// and exactly one completion push goes out.
func TestPipeline_TwoPhotoJob(t *testing.T) {
	ctx := context.Background()
	logger := testLoggerDiscard()

	store := newPipelineStore()
	blobs := blob.NewMemoryStore()
	hub := broadcast.NewMemoryHub()

	job, err := domain.NewUploadJob("job_1", "user_1", 2)
	require.NoError(t, err)
	job.ClearEvents()
	store.jobs["job_1"] = job

	goodKey := "dev/user_1/job_1/ph_good.png"
	badKey := "dev/user_1/job_1/ph_bad.png"

	for _, photoID := range []string{"ph_good", "ph_bad"} {
		p, err := domain.NewPhoto(photoID, "job_1", "user_1", photoID+".png", "image/png", 100)
		require.NoError(t, err)
		p.ClearEvents()
		store.photos[photoID] = p
	}

	goodData := encodeTestPNG(t, 800, 600)
	require.NoError(t, blobs.Upload(ctx, goodKey, "image/png", goodData))
	require.NoError(t, blobs.Upload(ctx, badKey, "image/png", []byte("corrupt bytes")))

	processor := processing.NewProcessor(store, blobs, "photos", []int{256}, logger)
	require.NoError(t, processor.ProcessPhoto(ctx, goodKey, "etag-good", int64(len(goodData))))
	require.NoError(t, processor.ProcessPhoto(ctx, badKey, "etag-bad", 13))

	assert.Equal(t, domain.PhotoStatusCompleted, store.photos["ph_good"].Status)
	assert.Equal(t, 800, store.photos["ph_good"].Width)
	assert.Equal(t, domain.PhotoStatusFailed, store.photos["ph_bad"].Status)

	agg := NewAggregator(store, hub, "aggregator-e2e", time.Second, 100, 30*time.Second, logger)
	agg.Poll(ctx)
	agg.Poll(ctx)

	assert.Equal(t, domain.JobStatusCompletedWithErrors, job.Status)
	assert.Equal(t, 1, job.CompletedCount)
	assert.Equal(t, 1, job.FailedCount)

	completions := hub.Completions()
	require.Len(t, completions, 1)
	assert.Equal(t, "job_1", completions[0].JobID)
	assert.Equal(t, broadcast.CompletionStatus, completions[0].Status)
	assert.Equal(t, 2, completions[0].TotalCount)
	assert.Equal(t, 1, completions[0].CompletedCount)
	assert.Equal(t, 1, completions[0].FailedCount)
}
