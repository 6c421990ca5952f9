package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// Aggregate type tags stamped on outbox rows.
const (
	AggregatePhoto     = "Photo"
	AggregateUploadJob = "UploadJob"
)

// Event type tags.
const (
	EventTypePhotoQueued              = "PhotoQueued"
	EventTypePhotoProcessingCompleted = "PhotoProcessingCompleted"
	EventTypePhotoFailed              = "PhotoFailed"
	EventTypeUploadJobCreated         = "UploadJobCreated"
)

// DomainEvent is raised by an aggregate mutation and written to the outbox in
// the same transaction. Payloads carry every field a consumer needs; consumers
// never re-fetch the aggregate at raise time.
type DomainEvent interface {
	EventType() string
	AggregateID() string
	OccurredAt() time.Time
}

// PhotoQueued is raised when a photo is created. It intentionally carries no
// job id; the photo-level listener resolves it by loading the photo.
type PhotoQueued struct {
	PhotoID    string    `json:"photoId"`
	UserID     string    `json:"userId"`
	Filename   string    `json:"filename"`
	Bytes      int64     `json:"bytes"`
	OccurredOn time.Time `json:"occurredOn"`
}

func (e PhotoQueued) EventType() string     { return EventTypePhotoQueued }
func (e PhotoQueued) AggregateID() string   { return e.PhotoID }
func (e PhotoQueued) OccurredAt() time.Time { return e.OccurredOn }

// PhotoProcessingCompleted is raised when derivation finishes successfully.
type PhotoProcessingCompleted struct {
	PhotoID    string    `json:"photoId"`
	UserID     string    `json:"userId"`
	JobID      string    `json:"jobId"`
	Width      int       `json:"width"`
	Height     int       `json:"height"`
	Checksum   string    `json:"checksum"`
	OccurredOn time.Time `json:"occurredOn"`
}

func (e PhotoProcessingCompleted) EventType() string     { return EventTypePhotoProcessingCompleted }
func (e PhotoProcessingCompleted) AggregateID() string   { return e.PhotoID }
func (e PhotoProcessingCompleted) OccurredAt() time.Time { return e.OccurredOn }

// PhotoFailed is raised when processing hits a fatal error.
type PhotoFailed struct {
	PhotoID      string    `json:"photoId"`
	UserID       string    `json:"userId"`
	JobID        string    `json:"jobId"`
	ErrorMessage string    `json:"errorMessage"`
	OccurredOn   time.Time `json:"occurredOn"`
}

func (e PhotoFailed) EventType() string     { return EventTypePhotoFailed }
func (e PhotoFailed) AggregateID() string   { return e.PhotoID }
func (e PhotoFailed) OccurredAt() time.Time { return e.OccurredOn }

// UploadJobCreated is raised when a job is created.
type UploadJobCreated struct {
	JobID      string    `json:"jobId"`
	UserID     string    `json:"userId"`
	TotalCount int       `json:"totalCount"`
	OccurredOn time.Time `json:"occurredOn"`
}

func (e UploadJobCreated) EventType() string     { return EventTypeUploadJobCreated }
func (e UploadJobCreated) AggregateID() string   { return e.JobID }
func (e UploadJobCreated) OccurredAt() time.Time { return e.OccurredOn }

// DecodeEvent unmarshals an outbox payload into its concrete event type.
// Unrecognized event types return ErrUnknownEventType so consumers can treat
// them as a safe no-op and stay forward-compatible.
func DecodeEvent(eventType string, payload []byte) (DomainEvent, error) {
	switch eventType {
	case EventTypePhotoQueued:
		var e PhotoQueued
		if err := json.Unmarshal(payload, &e); err != nil {
			return nil, fmt.Errorf("failed to decode %s payload: %w", eventType, err)
		}
		return e, nil
	case EventTypePhotoProcessingCompleted:
		var e PhotoProcessingCompleted
		if err := json.Unmarshal(payload, &e); err != nil {
			return nil, fmt.Errorf("failed to decode %s payload: %w", eventType, err)
		}
		return e, nil
	case EventTypePhotoFailed:
		var e PhotoFailed
		if err := json.Unmarshal(payload, &e); err != nil {
			return nil, fmt.Errorf("failed to decode %s payload: %w", eventType, err)
		}
		return e, nil
	case EventTypeUploadJobCreated:
		var e UploadJobCreated
		if err := json.Unmarshal(payload, &e); err != nil {
			return nil, fmt.Errorf("failed to decode %s payload: %w", eventType, err)
		}
		return e, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownEventType, eventType)
	}
}
