// Package outbox implements the transactional-outbox pattern: domain events
// are appended to a durable log inside the same database transaction as the
// aggregate mutation that raised them, then drained by polling consumers.
package outbox

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/starscape/rapidupload/internal/domain"
)

// Event is one row of the outbox log. Rows are append-only; the only
// permitted update is the aggregator stamping processed_at (and the claim
// lease that serializes that stamping across concurrent runs).
type Event struct {
	EventID       string     `db:"event_id"`
	AggregateType string     `db:"aggregate_type"`
	AggregateID   string     `db:"aggregate_id"`
	EventType     string     `db:"event_type"`
	Payload       []byte     `db:"payload"`
	CreatedAt     time.Time  `db:"created_at"`
	ProcessedAt   *time.Time `db:"processed_at"`
	ClaimedBy     *string    `db:"claimed_by"`
	ClaimedAt     *time.Time `db:"claimed_at"`
}

// Processed reports whether the primary consumer has handled this event.
func (e *Event) Processed() bool {
	return e.ProcessedAt != nil
}

// Decode unmarshals the payload into its concrete domain event type.
func (e *Event) Decode() (domain.DomainEvent, error) {
	return domain.DecodeEvent(e.EventType, e.Payload)
}

// Writer appends domain events to the outbox table. Publish must be called
// with the transaction that carries the aggregate mutation so the state
// change and its event commit or roll back together.
type Writer struct{}

func NewWriter() *Writer {
	return &Writer{}
}

// Publish serializes the event and appends it, unprocessed, inside tx.
// A serialization failure fails the caller's whole unit of work.
func (w *Writer) Publish(ctx context.Context, tx *sqlx.Tx, event domain.DomainEvent, aggregateType string) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to serialize event %s: %w", event.EventType(), err)
	}

	query := `
		INSERT INTO outbox_events (
			event_id, aggregate_type, aggregate_id, event_type, payload, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6
		)
	`

	_, err = tx.ExecContext(
		ctx,
		query,
		domain.NewEventID(),
		aggregateType,
		event.AggregateID(),
		event.EventType(),
		payload,
		time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to append outbox event: %w", err)
	}

	return nil
}
