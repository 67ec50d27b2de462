// Package sqlite provides the SQLite-backed implementation of the
// storage contracts.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/skylane/sentinel/internal/event"
	"github.com/skylane/sentinel/internal/finding"
	"github.com/skylane/sentinel/internal/storage"
	"github.com/skylane/sentinel/internal/storage/sqlite/migrations"
)

// Store persists events, findings, tasks, and the action log in SQLite.
type Store struct {
	sqlDB *sql.DB
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Open opens a SQLite store at path and applies embedded migrations.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	cleanPath := filepath.Clean(path)
	dsn := cleanPath + "?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=5000&_synchronous=NORMAL"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := applyMigrations(sqlDB, migrations.FS); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{sqlDB: sqlDB}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// FetchPendingEvents returns up to limit pending events in occurred_at order.
func (s *Store) FetchPendingEvents(ctx context.Context, limit int) ([]event.Event, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be positive")
	}
	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT id, type, actor_user_id, payload, occurred_at, status
		   FROM events
		  WHERE status = ?
		  ORDER BY occurred_at ASC
		  LIMIT ?`,
		event.StatusPending, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query pending events: %w", err)
	}
	defer rows.Close()

	var events []event.Event
	for rows.Next() {
		var (
			ev         event.Event
			actor      sql.NullString
			payloadRaw string
			occurredAt int64
		)
		if err := rows.Scan(&ev.ID, &ev.Type, &actor, &payloadRaw, &occurredAt, &ev.Status); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		ev.ActorUserID = actor.String
		ev.OccurredAt = fromMillis(occurredAt)
		if err := json.Unmarshal([]byte(payloadRaw), &ev.Payload); err != nil {
			return nil, fmt.Errorf("decode payload for event %s: %w", ev.ID, err)
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pending events: %w", err)
	}
	return events, nil
}

// ClaimEvent conditionally transitions an event from pending to in_progress.
// Returns false when the event was already claimed or processed.
func (s *Store) ClaimEvent(ctx context.Context, id string) (bool, error) {
	res, err := s.sqlDB.ExecContext(ctx,
		`UPDATE events SET status = ? WHERE id = ? AND status = ?`,
		event.StatusInProgress, id, event.StatusPending,
	)
	if err != nil {
		return false, fmt.Errorf("claim event %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("claim event %s: rows affected: %w", id, err)
	}
	return n == 1, nil
}

// MarkProcessed finalizes a claimed event.
func (s *Store) MarkProcessed(ctx context.Context, id string, processedAt time.Time) error {
	res, err := s.sqlDB.ExecContext(ctx,
		`UPDATE events SET status = ?, processed_at = ? WHERE id = ? AND status = ?`,
		event.StatusProcessed, toMillis(processedAt), id, event.StatusInProgress,
	)
	if err != nil {
		return fmt.Errorf("mark processed %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark processed %s: rows affected: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("mark processed %s: %w", id, storage.ErrNotFound)
	}
	return nil
}

// ReleaseEvent reverts a claimed event to pending so a later run retries it.
func (s *Store) ReleaseEvent(ctx context.Context, id string) error {
	_, err := s.sqlDB.ExecContext(ctx,
		`UPDATE events SET status = ? WHERE id = ? AND status = ?`,
		event.StatusPending, id, event.StatusInProgress,
	)
	if err != nil {
		return fmt.Errorf("release event %s: %w", id, err)
	}
	return nil
}

// HistoricalPrices returns quote prices for the class/route pair created at
// or after since, newest first, capped at limit.
func (s *Store) HistoricalPrices(ctx context.Context, aircraftClass, route string, since time.Time, limit int) ([]float64, error) {
	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT price
		   FROM quotes
		  WHERE aircraft_class = ? AND route = ? AND created_at >= ?
		  ORDER BY created_at DESC
		  LIMIT ?`,
		aircraftClass, route, toMillis(since), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query historical prices: %w", err)
	}
	defer rows.Close()

	var prices []float64
	for rows.Next() {
		var p float64
		if err := rows.Scan(&p); err != nil {
			return nil, fmt.Errorf("scan price: %w", err)
		}
		prices = append(prices, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate prices: %w", err)
	}
	return prices, nil
}

// RequestCreatedAt returns the creation time of a request.
func (s *Store) RequestCreatedAt(ctx context.Context, requestID string) (time.Time, error) {
	var createdAt int64
	err := s.sqlDB.QueryRowContext(ctx,
		`SELECT created_at FROM requests WHERE id = ?`, requestID,
	).Scan(&createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, storage.ErrNotFound
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("query request %s: %w", requestID, err)
	}
	return fromMillis(createdAt), nil
}

// OpenRequests returns open requests in the class departing within the
// given window.
func (s *Store) OpenRequests(ctx context.Context, aircraftClass string, windowStart, windowEnd time.Time) ([]storage.Request, error) {
	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT id, aircraft_class, origin_lat, origin_lon, departs_at, created_at, status
		   FROM requests
		  WHERE aircraft_class = ? AND status = 'open' AND departs_at >= ? AND departs_at <= ?
		  ORDER BY departs_at ASC`,
		aircraftClass, toMillis(windowStart), toMillis(windowEnd),
	)
	if err != nil {
		return nil, fmt.Errorf("query open requests: %w", err)
	}
	defer rows.Close()

	var requests []storage.Request
	for rows.Next() {
		var (
			req       storage.Request
			departsAt int64
			createdAt int64
		)
		if err := rows.Scan(&req.ID, &req.AircraftClass, &req.OriginLat, &req.OriginLon, &departsAt, &createdAt, &req.Status); err != nil {
			return nil, fmt.Errorf("scan request: %w", err)
		}
		req.DepartsAt = fromMillis(departsAt)
		req.CreatedAt = fromMillis(createdAt)
		requests = append(requests, req)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate requests: %w", err)
	}
	return requests, nil
}

// InsertFindings writes a batch of findings in one transaction.
func (s *Store) InsertFindings(ctx context.Context, findings []finding.Finding) error {
	if len(findings) == 0 {
		return nil
	}
	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin insert findings: %w", err)
	}
	for _, f := range findings {
		details, err := json.Marshal(f.Details)
		if err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("encode finding details: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO findings (id, event_id, severity, label, details, linked_object_type, linked_object_id, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			f.ID, f.EventID, f.Severity, f.Label, string(details),
			nullable(f.LinkedObjectType), nullable(f.LinkedObjectID), toMillis(f.CreatedAt),
		); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("insert finding %s: %w", f.ID, err)
		}
	}
	return tx.Commit()
}

// InsertTasks writes a batch of tasks in one transaction.
func (s *Store) InsertTasks(ctx context.Context, tasks []finding.Task) error {
	if len(tasks) == 0 {
		return nil
	}
	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin insert tasks: %w", err)
	}
	for _, t := range tasks {
		action, err := json.Marshal(t.SuggestedAction)
		if err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("encode suggested action: %w", err)
		}
		var dueAt any
		if t.DueAt != nil {
			dueAt = toMillis(*t.DueAt)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO tasks (id, event_id, kind, summary, suggested_action, due_at, assignee, status, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			t.ID, t.EventID, t.Kind, t.Summary, string(action),
			dueAt, nullable(t.Assignee), t.Status, toMillis(t.CreatedAt),
		); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("insert task %s: %w", t.ID, err)
		}
	}
	return tx.Commit()
}

// AppendActionLog records one engine action against a target object.
func (s *Store) AppendActionLog(ctx context.Context, action, targetType, targetID string, details map[string]any) error {
	encoded, err := json.Marshal(details)
	if err != nil {
		return fmt.Errorf("encode action log details: %w", err)
	}
	if _, err := s.sqlDB.ExecContext(ctx,
		`INSERT INTO action_log (action, target_type, target_id, details, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		action, targetType, targetID, string(encoded), toMillis(time.Now()),
	); err != nil {
		return fmt.Errorf("append action log: %w", err)
	}
	return nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
