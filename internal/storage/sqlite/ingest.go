package sqlite

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/skylane/sentinel/internal/event"
	"github.com/skylane/sentinel/internal/storage"
)

// Ingestion helpers. Events, requests, and quotes are owned by upstream
// producers; these writers exist so producers (and tests) can seed the
// same store the engine reads from.

// InsertEvent appends one domain event to the queue.
func (s *Store) InsertEvent(ctx context.Context, ev event.Event) error {
	if ev.ID == "" {
		return fmt.Errorf("event id is required")
	}
	if ev.Type == "" {
		return fmt.Errorf("event type is required")
	}
	if ev.Status == "" {
		ev.Status = event.StatusPending
	}
	payload, err := json.Marshal(ev.Payload)
	if err != nil {
		return fmt.Errorf("encode event payload: %w", err)
	}
	if _, err := s.sqlDB.ExecContext(ctx,
		`INSERT INTO events (id, type, actor_user_id, payload, occurred_at, status)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		ev.ID, ev.Type, nullable(ev.ActorUserID), string(payload), toMillis(ev.OccurredAt), ev.Status,
	); err != nil {
		return fmt.Errorf("insert event %s: %w", ev.ID, err)
	}
	return nil
}

// InsertRequest records a charter request.
func (s *Store) InsertRequest(ctx context.Context, req storage.Request) error {
	if req.ID == "" {
		return fmt.Errorf("request id is required")
	}
	if req.Status == "" {
		req.Status = "open"
	}
	if _, err := s.sqlDB.ExecContext(ctx,
		`INSERT INTO requests (id, aircraft_class, origin_lat, origin_lon, departs_at, created_at, status)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		req.ID, req.AircraftClass, req.OriginLat, req.OriginLon,
		toMillis(req.DepartsAt), toMillis(req.CreatedAt), req.Status,
	); err != nil {
		return fmt.Errorf("insert request %s: %w", req.ID, err)
	}
	return nil
}

// InsertQuote records a submitted quote for the price baseline.
func (s *Store) InsertQuote(ctx context.Context, q storage.Quote) error {
	if q.ID == "" {
		return fmt.Errorf("quote id is required")
	}
	if _, err := s.sqlDB.ExecContext(ctx,
		`INSERT INTO quotes (id, request_id, aircraft_class, route, price, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		q.ID, q.RequestID, q.AircraftClass, q.Route, q.Price, toMillis(q.CreatedAt),
	); err != nil {
		return fmt.Errorf("insert quote %s: %w", q.ID, err)
	}
	return nil
}

// EventStatus reports the current status of an event.
func (s *Store) EventStatus(ctx context.Context, id string) (event.Status, error) {
	var status event.Status
	err := s.sqlDB.QueryRowContext(ctx, `SELECT status FROM events WHERE id = ?`, id).Scan(&status)
	if err != nil {
		return "", fmt.Errorf("query event status %s: %w", id, err)
	}
	return status, nil
}
