package processing

import (
	"bytes"
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResizeToFit(t *testing.T) {
	tests := []struct {
		name       string
		width      int
		height     int
		max        int
		wantWidth  int
		wantHeight int
	}{
		{name: "landscape scales by width", width: 800, height: 600, max: 256, wantWidth: 256, wantHeight: 192},
		{name: "portrait scales by height", width: 600, height: 800, max: 256, wantWidth: 192, wantHeight: 256},
		{name: "square", width: 500, height: 500, max: 100, wantWidth: 100, wantHeight: 100},
		{name: "no upscaling", width: 100, height: 80, max: 256, wantWidth: 100, wantHeight: 80},
		{name: "exact fit untouched", width: 256, height: 100, max: 256, wantWidth: 256, wantHeight: 100},
		{name: "extreme aspect ratio never collapses", width: 4000, height: 2, max: 100, wantWidth: 100, wantHeight: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := image.NewRGBA(image.Rect(0, 0, tt.width, tt.height))
			got := resizeToFit(src, tt.max)

			assert.Equal(t, tt.wantWidth, got.Bounds().Dx())
			assert.Equal(t, tt.wantHeight, got.Bounds().Dy())
		})
	}
}

func TestEncodeImage(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 10, 10))

	tests := []struct {
		format          string
		wantContentType string
		wantFormat      string
	}{
		{format: "jpeg", wantContentType: "image/jpeg", wantFormat: "jpeg"},
		{format: "png", wantContentType: "image/png", wantFormat: "png"},
		{format: "gif", wantContentType: "image/gif", wantFormat: "gif"},
		{format: "webp", wantContentType: "image/jpeg", wantFormat: "jpeg"},
	}

	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			data, contentType, err := encodeImage(src, tt.format)
			require.NoError(t, err)
			assert.Equal(t, tt.wantContentType, contentType)

			_, format, err := image.Decode(bytes.NewReader(data))
			require.NoError(t, err)
			assert.Equal(t, tt.wantFormat, format)
		})
	}
}
