package domain

import (
	"strings"

	"github.com/google/uuid"
)

// ID prefixes match the wire format the frontend already expects.
func NewJobID() string {
	return "job_" + compactUUID()
}

func NewPhotoID() string {
	return "ph_" + compactUUID()
}

func NewEventID() string {
	return "evt_" + compactUUID()
}

func compactUUID() string {
	return strings.ReplaceAll(uuid.New().String(), "-", "")
}
