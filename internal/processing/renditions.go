package processing

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"

	"golang.org/x/image/draw"

	"github.com/starscape/rapidupload/internal/blob"
)

const jpegQuality = 85

func decodeImage(data []byte) (image.Image, string, error) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", err
	}
	return img, format, nil
}

// generateRendition resizes the original to fit within size x size, preserving
// aspect ratio, and uploads it under the rendition key. Originals already
// within bounds are not upscaled; they are stored as-is under the rendition
// key so every configured size exists.
func (p *Processor) generateRendition(ctx context.Context, originalKey string, img image.Image, format string, size int) error {
	resized := resizeToFit(img, size)

	encoded, contentType, err := encodeImage(resized, format)
	if err != nil {
		return fmt.Errorf("failed to encode rendition: %w", err)
	}

	key := blob.RenditionKey(originalKey, size)
	if err := p.blobs.Upload(ctx, key, contentType, encoded); err != nil {
		return fmt.Errorf("failed to upload rendition: %w", err)
	}

	return nil
}

// resizeToFit scales img so its longest edge equals max, keeping aspect ratio.
// Images already within bounds are returned unchanged.
func resizeToFit(img image.Image, max int) image.Image {
	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()

	longest := width
	if height > longest {
		longest = height
	}
	if longest <= max {
		return img
	}

	var newWidth, newHeight int
	if width >= height {
		newWidth = max
		newHeight = height * max / width
	} else {
		newHeight = max
		newWidth = width * max / height
	}
	if newWidth < 1 {
		newWidth = 1
	}
	if newHeight < 1 {
		newHeight = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, newWidth, newHeight))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
	return dst
}

// encodeImage serializes the image in the original's format so a rendition
// keeps its source extension honest. Unknown formats fall back to JPEG.
func encodeImage(img image.Image, format string) ([]byte, string, error) {
	var buf bytes.Buffer

	switch format {
	case "png":
		if err := png.Encode(&buf, img); err != nil {
			return nil, "", err
		}
		return buf.Bytes(), "image/png", nil
	case "gif":
		if err := gif.Encode(&buf, img, nil); err != nil {
			return nil, "", err
		}
		return buf.Bytes(), "image/gif", nil
	default:
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
			return nil, "", err
		}
		return buf.Bytes(), "image/jpeg", nil
	}
}
