package blob

import (
	"fmt"
	"path"
	"strings"
)

// renditionDir is the sub-prefix derived copies are stored under. Object
// notifications whose key contains it are ignored by the processor, which is
// what keeps rendition writes from re-triggering processing.
const renditionDir = "renditions"

// ObjectKey builds the canonical key for an original upload:
// {env}/{userId}/{jobId}/{photoId}{ext}
func ObjectKey(env, userID, jobID, photoID, filename string) string {
	return fmt.Sprintf("%s/%s/%s/%s%s", env, userID, jobID, photoID, Extension(filename))
}

// RenditionKey derives the key for a resized copy of originalKey:
// {basePath}/renditions/{name}_{size}{ext}
func RenditionKey(originalKey string, size int) string {
	dir := path.Dir(originalKey)
	filename := path.Base(originalKey)

	ext := path.Ext(filename)
	name := strings.TrimSuffix(filename, ext)

	return fmt.Sprintf("%s/%s/%s_%d%s", dir, renditionDir, name, size, ext)
}

// IsRenditionKey reports whether key points at a derived rendition.
func IsRenditionKey(key string) bool {
	return strings.Contains(key, "/"+renditionDir+"/")
}

// PhotoIDFromKey extracts the photo id from an object key, or "" when the key
// does not look like an original upload.
func PhotoIDFromKey(key string) string {
	if key == "" || strings.HasSuffix(key, "/") {
		return ""
	}
	filename := path.Base(key)
	if filename == "." || filename == "/" {
		return ""
	}
	if ext := path.Ext(filename); ext != "" {
		return strings.TrimSuffix(filename, ext)
	}
	return filename
}

// Extension returns the filename's extension including the dot, or "".
func Extension(filename string) string {
	return path.Ext(filename)
}
