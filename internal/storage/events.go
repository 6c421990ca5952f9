package storage

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/starscape/rapidupload/internal/outbox"
)

// FetchUnprocessedEvents returns up to limit unprocessed outbox events in
// insertion order without claiming them. Broadcast listeners use this: they
// observe the stream but never consume it.
func (s *Storage) FetchUnprocessedEvents(ctx context.Context, limit int) ([]outbox.Event, error) {
	query := `
		SELECT event_id, aggregate_type, aggregate_id, event_type, payload,
		       created_at, processed_at, claimed_by, claimed_at
		FROM outbox_events
		WHERE processed_at IS NULL
		ORDER BY created_at, event_id
		LIMIT $1
	`

	var events []outbox.Event
	if err := s.db.SelectContext(ctx, &events, query, limit); err != nil {
		return nil, fmt.Errorf("failed to fetch unprocessed events: %w", err)
	}

	return events, nil
}

// ClaimUnprocessedEvents atomically claims up to limit unprocessed events for
// the named consumer and returns them in insertion order. Events already held
// under a live claim are skipped; claims older than lease are treated as
// expired and re-claimable, so a crashed consumer's batch is picked up again.
func (s *Storage) ClaimUnprocessedEvents(ctx context.Context, claimedBy string, limit int, lease time.Duration) ([]outbox.Event, error) {
	query := `
		UPDATE outbox_events
		SET claimed_by = $1, claimed_at = NOW()
		WHERE event_id IN (
			SELECT event_id
			FROM outbox_events
			WHERE processed_at IS NULL
			  AND (claimed_at IS NULL OR claimed_at < NOW() - $2::interval)
			ORDER BY created_at, event_id
			LIMIT $3
			FOR UPDATE SKIP LOCKED
		)
		RETURNING event_id, aggregate_type, aggregate_id, event_type, payload,
		          created_at, processed_at, claimed_by, claimed_at
	`

	leaseInterval := fmt.Sprintf("%d seconds", int(lease.Seconds()))

	var events []outbox.Event
	if err := s.db.SelectContext(ctx, &events, query, claimedBy, leaseInterval, limit); err != nil {
		return nil, fmt.Errorf("failed to claim unprocessed events: %w", err)
	}

	if len(events) > 0 {
		s.logger.Debug("Claimed outbox events",
			slog.String("claimed_by", claimedBy),
			slog.Int("count", len(events)),
		)
	}

	return events, nil
}

// MarkEventProcessed stamps the event so it never reappears in a claim batch.
func (s *Storage) MarkEventProcessed(ctx context.Context, eventID string) error {
	query := `
		UPDATE outbox_events
		SET processed_at = NOW()
		WHERE event_id = $1 AND processed_at IS NULL
	`

	if _, err := s.db.ExecContext(ctx, query, eventID); err != nil {
		return fmt.Errorf("failed to mark event processed: %w", err)
	}

	return nil
}
