package domain

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewUploadJob(t *testing.T) {
	tests := []struct {
		name       string
		jobID      string
		userID     string
		totalCount int
		wantErr    error
	}{
		{name: "valid job", jobID: "job_1", userID: "user_1", totalCount: 3},
		{name: "blank job id", jobID: "", userID: "user_1", totalCount: 3, wantErr: ErrBlankJobID},
		{name: "blank user id", jobID: "job_1", userID: "", totalCount: 3, wantErr: ErrBlankUserID},
		{name: "empty batch", jobID: "job_1", userID: "user_1", totalCount: 0, wantErr: ErrEmptyJob},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			j, err := NewUploadJob(tt.jobID, tt.userID, tt.totalCount)

			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, j)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, JobStatusQueued, j.Status)

			events := j.Events()
			require.Len(t, events, 1)
			created, ok := events[0].(UploadJobCreated)
			require.True(t, ok)
			assert.Equal(t, tt.jobID, created.JobID)
			assert.Equal(t, tt.totalCount, created.TotalCount)
		})
	}
}

func TestUploadJob_AddPhoto(t *testing.T) {
	j, err := NewUploadJob("job_1", "user_1", 2)
	require.NoError(t, err)

	p, err := NewPhoto("ph_1", "", "user_1", "a.jpg", "image/jpeg", 10)
	require.NoError(t, err)

	j.AddPhoto(p)

	assert.Equal(t, "job_1", p.JobID)
	require.Len(t, j.Photos, 1)
}

func TestClassifyJobStatus(t *testing.T) {
	tests := []struct {
		name      string
		current   string
		total     int
		completed int
		failed    int
		cancelled int
		want      string
	}{
		{name: "untouched job stays queued", current: JobStatusQueued, total: 3, want: JobStatusQueued},
		{name: "first terminal photo starts progress", current: JobStatusQueued, total: 3, completed: 1, want: JobStatusInProgress},
		{name: "failure also starts progress", current: JobStatusQueued, total: 3, failed: 1, want: JobStatusInProgress},
		{name: "in progress sticks while unsettled", current: JobStatusInProgress, total: 3, completed: 2, want: JobStatusInProgress},
		{name: "all completed", current: JobStatusInProgress, total: 3, completed: 3, want: JobStatusCompleted},
		{name: "mixed outcome", current: JobStatusInProgress, total: 3, completed: 2, failed: 1, want: JobStatusCompletedWithErrors},
		{name: "completed and cancelled", current: JobStatusInProgress, total: 3, completed: 2, cancelled: 1, want: JobStatusCompletedWithErrors},
		{name: "all failed", current: JobStatusInProgress, total: 2, failed: 2, want: JobStatusFailed},
		{name: "all cancelled", current: JobStatusInProgress, total: 2, cancelled: 2, want: JobStatusFailed},
		{name: "failed and cancelled only", current: JobStatusInProgress, total: 2, failed: 1, cancelled: 1, want: JobStatusFailed},
		{name: "single photo completed", current: JobStatusQueued, total: 1, completed: 1, want: JobStatusCompleted},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ClassifyJobStatus(tt.current, tt.total, tt.completed, tt.failed, tt.cancelled)
			assert.Equal(t, tt.want, got)
		})
	}
}

// Every reachable counter combination maps to exactly one status, and settled
// jobs never read as in progress.
func TestClassifyJobStatus_Total(t *testing.T) {
	const total = 4

	for completed := 0; completed <= total; completed++ {
		for failed := 0; failed+completed <= total; failed++ {
			for cancelled := 0; cancelled+failed+completed <= total; cancelled++ {
				name := fmt.Sprintf("c%d_f%d_x%d", completed, failed, cancelled)
				t.Run(name, func(t *testing.T) {
					got := ClassifyJobStatus(JobStatusInProgress, total, completed, failed, cancelled)

					settled := completed + failed + cancelled
					switch {
					case settled < total:
						assert.Equal(t, JobStatusInProgress, got)
					case failed == 0 && cancelled == 0:
						assert.Equal(t, JobStatusCompleted, got)
					case completed > 0:
						assert.Equal(t, JobStatusCompletedWithErrors, got)
					default:
						assert.Equal(t, JobStatusFailed, got)
					}
				})
			}
		}
	}
}

func TestUploadJob_RecomputeProgress(t *testing.T) {
	newJobWithPhotos := func(t *testing.T, statuses ...string) *UploadJob {
		t.Helper()
		j, err := NewUploadJob("job_1", "user_1", len(statuses))
		require.NoError(t, err)
		for i, status := range statuses {
			p, err := NewPhoto(fmt.Sprintf("ph_%d", i), "", "user_1", "a.jpg", "image/jpeg", 10)
			require.NoError(t, err)
			p.Status = status
			j.AddPhoto(p)
		}
		return j
	}

	t.Run("counters derive from photo state", func(t *testing.T) {
		j := newJobWithPhotos(t, PhotoStatusCompleted, PhotoStatusFailed, PhotoStatusProcessing)
		j.RecomputeProgress()

		assert.Equal(t, 1, j.CompletedCount)
		assert.Equal(t, 1, j.FailedCount)
		assert.Equal(t, 0, j.CancelledCount)
		assert.Equal(t, JobStatusInProgress, j.Status)
	})

	t.Run("recompute is idempotent", func(t *testing.T) {
		j := newJobWithPhotos(t, PhotoStatusCompleted, PhotoStatusCompleted)
		j.RecomputeProgress()
		first := *j
		j.RecomputeProgress()

		assert.Equal(t, first.CompletedCount, j.CompletedCount)
		assert.Equal(t, first.Status, j.Status)
	})

	t.Run("fully settled mixed batch", func(t *testing.T) {
		j := newJobWithPhotos(t, PhotoStatusCompleted, PhotoStatusFailed, PhotoStatusCancelled)
		j.RecomputeProgress()

		assert.Equal(t, JobStatusCompletedWithErrors, j.Status)
		assert.True(t, j.IsTerminal())
	})
}
