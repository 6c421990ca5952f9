package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPhoto(t *testing.T) *Photo {
	t.Helper()
	p, err := NewPhoto("ph_1", "job_1", "user_1", "cat.jpg", "image/jpeg", 1024)
	require.NoError(t, err)
	return p
}

func TestNewPhoto(t *testing.T) {
	tests := []struct {
		name     string
		photoID  string
		userID   string
		filename string
		mimeType string
		bytes    int64
		wantErr  error
	}{
		{
			name:     "valid photo",
			photoID:  "ph_1",
			userID:   "user_1",
			filename: "cat.jpg",
			mimeType: "image/jpeg",
			bytes:    1024,
		},
		{
			name:     "blank photo id",
			photoID:  "  ",
			userID:   "user_1",
			filename: "cat.jpg",
			mimeType: "image/jpeg",
			bytes:    1024,
			wantErr:  ErrBlankPhotoID,
		},
		{
			name:     "blank user id",
			photoID:  "ph_1",
			userID:   "",
			filename: "cat.jpg",
			mimeType: "image/jpeg",
			bytes:    1024,
			wantErr:  ErrBlankUserID,
		},
		{
			name:     "blank filename",
			photoID:  "ph_1",
			userID:   "user_1",
			filename: "",
			mimeType: "image/jpeg",
			bytes:    1024,
			wantErr:  ErrBlankFilename,
		},
		{
			name:     "blank mime type",
			photoID:  "ph_1",
			userID:   "user_1",
			filename: "cat.jpg",
			mimeType: " ",
			bytes:    1024,
			wantErr:  ErrBlankMimeType,
		},
		{
			name:     "zero bytes",
			photoID:  "ph_1",
			userID:   "user_1",
			filename: "cat.jpg",
			mimeType: "image/jpeg",
			bytes:    0,
			wantErr:  ErrNonPositiveBytes,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := NewPhoto(tt.photoID, "job_1", tt.userID, tt.filename, tt.mimeType, tt.bytes)

			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, p)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, PhotoStatusQueued, p.Status)

			events := p.Events()
			require.Len(t, events, 1)
			queued, ok := events[0].(PhotoQueued)
			require.True(t, ok)
			assert.Equal(t, tt.photoID, queued.PhotoID)
			assert.Equal(t, tt.userID, queued.UserID)
		})
	}
}

func TestPhoto_Transitions(t *testing.T) {
	t.Run("queued to uploading", func(t *testing.T) {
		p := newTestPhoto(t)
		assert.True(t, p.MarkUploading())
		assert.Equal(t, PhotoStatusUploading, p.Status)
	})

	t.Run("uploading is not re-enterable", func(t *testing.T) {
		p := newTestPhoto(t)
		require.True(t, p.MarkUploading())
		assert.False(t, p.MarkUploading())
		assert.Equal(t, PhotoStatusUploading, p.Status)
	})

	t.Run("processing directly from queued", func(t *testing.T) {
		p := newTestPhoto(t)
		assert.True(t, p.MarkProcessing("dev/u/j/ph_1.jpg", "bucket", "etag-1"))
		assert.Equal(t, PhotoStatusProcessing, p.Status)
		assert.Equal(t, "dev/u/j/ph_1.jpg", p.S3Key)
	})

	t.Run("processing from uploading", func(t *testing.T) {
		p := newTestPhoto(t)
		require.True(t, p.MarkUploading())
		assert.True(t, p.MarkProcessing("dev/u/j/ph_1.jpg", "bucket", "etag-1"))
	})

	t.Run("completed requires processing", func(t *testing.T) {
		p := newTestPhoto(t)
		assert.False(t, p.MarkCompleted(800, 600, nil, "abc"))
		assert.Equal(t, PhotoStatusQueued, p.Status)
	})

	t.Run("completed requires dimensions and checksum", func(t *testing.T) {
		p := newTestPhoto(t)
		require.True(t, p.MarkProcessing("k", "b", "e"))
		assert.False(t, p.MarkCompleted(0, 600, nil, "abc"))
		assert.False(t, p.MarkCompleted(800, 0, nil, "abc"))
		assert.False(t, p.MarkCompleted(800, 600, nil, ""))
		assert.True(t, p.MarkCompleted(800, 600, []byte(`{}`), "abc"))
		assert.Equal(t, PhotoStatusCompleted, p.Status)
		require.NotNil(t, p.CompletedAt)
	})

	t.Run("completed photo refuses further transitions", func(t *testing.T) {
		p := newTestPhoto(t)
		require.True(t, p.MarkProcessing("k", "b", "e"))
		require.True(t, p.MarkCompleted(800, 600, nil, "abc"))
		assert.False(t, p.MarkUploading())
		assert.False(t, p.MarkProcessing("k2", "b", "e2"))
		assert.False(t, p.Cancel())
	})

	t.Run("failed from any state keeps error verbatim", func(t *testing.T) {
		for _, setup := range []func(p *Photo){
			func(p *Photo) {},
			func(p *Photo) { p.MarkUploading() },
			func(p *Photo) { p.MarkProcessing("k", "b", "e") },
		} {
			p := newTestPhoto(t)
			setup(p)
			p.MarkFailed("boom: decode error")
			assert.Equal(t, PhotoStatusFailed, p.Status)
			assert.Equal(t, "boom: decode error", p.ErrorMessage)
		}
	})

	t.Run("cancel from non-terminal states", func(t *testing.T) {
		p := newTestPhoto(t)
		assert.True(t, p.Cancel())
		assert.Equal(t, PhotoStatusCancelled, p.Status)
		assert.True(t, p.IsTerminal())
	})

	t.Run("cancel is idempotent", func(t *testing.T) {
		p := newTestPhoto(t)
		require.True(t, p.Cancel())
		assert.False(t, p.Cancel())
		assert.Equal(t, PhotoStatusCancelled, p.Status)
	})
}

func TestPhoto_IsTerminal(t *testing.T) {
	tests := []struct {
		status   string
		terminal bool
	}{
		{PhotoStatusQueued, false},
		{PhotoStatusUploading, false},
		{PhotoStatusProcessing, false},
		{PhotoStatusCompleted, true},
		{PhotoStatusFailed, true},
		{PhotoStatusCancelled, true},
	}

	for _, tt := range tests {
		t.Run(tt.status, func(t *testing.T) {
			p := newTestPhoto(t)
			p.Status = tt.status
			assert.Equal(t, tt.terminal, p.IsTerminal())
		})
	}
}

func TestPhoto_ClearEvents(t *testing.T) {
	p := newTestPhoto(t)
	require.Len(t, p.Events(), 1)
	p.ClearEvents()
	assert.Empty(t, p.Events())
}
