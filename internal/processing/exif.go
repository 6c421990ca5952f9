package processing

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/rwcarlsen/goexif/exif"
	"github.com/rwcarlsen/goexif/tiff"
)

// exifCollector accumulates tag name/value pairs during the EXIF walk.
type exifCollector struct {
	fields map[string]string
}

func (c *exifCollector) Walk(name exif.FieldName, tag *tiff.Tag) error {
	c.fields[string(name)] = sanitizeExifValue(tag.String())
	return nil
}

// ExtractExif returns the photo's EXIF tags as a JSON object. Extraction never
// fails the photo: images without EXIF, or with EXIF we cannot parse, yield a
// JSON error marker instead.
func ExtractExif(data []byte) []byte {
	x, err := exif.Decode(bytes.NewReader(data))
	if err != nil {
		return exifErrorMarker(err)
	}

	collector := &exifCollector{fields: make(map[string]string)}
	if err := x.Walk(collector); err != nil {
		return exifErrorMarker(err)
	}

	encoded, err := json.Marshal(collector.fields)
	if err != nil {
		return exifErrorMarker(err)
	}

	return encoded
}

func exifErrorMarker(err error) []byte {
	marker := map[string]string{"error": sanitizeExifValue(err.Error())}
	encoded, marshalErr := json.Marshal(marker)
	if marshalErr != nil {
		return []byte(`{"error":"exif extraction failed"}`)
	}
	return encoded
}

// sanitizeExifValue strips null bytes, which Postgres rejects inside JSONB
// strings. Camera firmware routinely pads maker notes with them.
func sanitizeExifValue(s string) string {
	s = strings.ReplaceAll(s, "\x00", "")
	return strings.ReplaceAll(s, `\u0000`, "")
}
