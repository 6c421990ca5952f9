package broadcast

import (
	"context"
	"sync"
	"time"
)

// MemoryHub is an in-process Broadcaster that records every update, for tests
// and local runs without a broker.
type MemoryHub struct {
	mu          sync.Mutex
	photos      []ProgressUpdate
	jobs        []JobStatusUpdate
	completions []JobCompletionUpdate
}

// NewMemoryHub creates a new MemoryHub instance
func NewMemoryHub() *MemoryHub {
	return &MemoryHub{}
}

func (h *MemoryHub) PhotoProgress(_ context.Context, update ProgressUpdate) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	update.Type = TypePhotoStatus
	update.Timestamp = time.Now().UTC()
	h.photos = append(h.photos, update)
	return nil
}

func (h *MemoryHub) JobStatus(_ context.Context, update JobStatusUpdate) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	update.Type = TypeJobStatus
	update.Timestamp = time.Now().UTC()
	h.jobs = append(h.jobs, update)
	return nil
}

func (h *MemoryHub) JobCompletion(_ context.Context, update JobCompletionUpdate) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	update.Type = TypeJobCompletion
	update.Timestamp = time.Now().UTC()
	h.completions = append(h.completions, update)
	return nil
}

// PhotoUpdates returns a copy of the photo-level updates received so far.
func (h *MemoryHub) PhotoUpdates() []ProgressUpdate {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]ProgressUpdate, len(h.photos))
	copy(out, h.photos)
	return out
}

// JobUpdates returns a copy of the job-level updates received so far.
func (h *MemoryHub) JobUpdates() []JobStatusUpdate {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]JobStatusUpdate, len(h.jobs))
	copy(out, h.jobs)
	return out
}

// Completions returns a copy of the completion pushes received so far.
func (h *MemoryHub) Completions() []JobCompletionUpdate {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]JobCompletionUpdate, len(h.completions))
	copy(out, h.completions)
	return out
}

var _ Broadcaster = (*MemoryHub)(nil)
