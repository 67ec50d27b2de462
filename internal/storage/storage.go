// Package storage defines the persistence contracts the engine consumes.
// Events, findings, tasks, and the action log are owned by the backing
// store; the engine holds no state between runs.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/skylane/sentinel/internal/event"
	"github.com/skylane/sentinel/internal/finding"
)

// ErrNotFound is returned when a referenced row does not exist.
var ErrNotFound = errors.New("storage: not found")

// Request is an open charter request, as needed by the empty-leg and
// SLA detectors. Requests are owned by upstream booking producers.
type Request struct {
	ID            string
	AircraftClass string
	OriginLat     float64
	OriginLon     float64
	DepartsAt     time.Time
	CreatedAt     time.Time
	Status        string
}

// Quote is a submitted price for a request, the unit of the historical
// price baseline.
type Quote struct {
	ID            string
	RequestID     string
	AircraftClass string
	Route         string
	Price         float64
	CreatedAt     time.Time
}

// EventQueue is the claim-queue view of the event log. ClaimEvent performs
// a conditional pending → in_progress transition and reports whether this
// run won the claim; losing a claim is not an error.
type EventQueue interface {
	FetchPendingEvents(ctx context.Context, limit int) ([]event.Event, error)
	ClaimEvent(ctx context.Context, id string) (bool, error)
	MarkProcessed(ctx context.Context, id string, processedAt time.Time) error
	ReleaseEvent(ctx context.Context, id string) error
}

// History provides the read-only lookups detectors use for baselines and
// cross-event context.
type History interface {
	// HistoricalPrices returns quote prices for the class/route pair created
	// at or after since, newest first, capped at limit.
	HistoricalPrices(ctx context.Context, aircraftClass, route string, since time.Time, limit int) ([]float64, error)
	// RequestCreatedAt returns when the given request was created.
	// Returns ErrNotFound for unknown requests.
	RequestCreatedAt(ctx context.Context, requestID string) (time.Time, error)
	// OpenRequests returns open requests in the class departing within
	// [windowStart, windowEnd]. Requests whose departure already passed
	// are never returned, even if still marked open.
	OpenRequests(ctx context.Context, aircraftClass string, windowStart, windowEnd time.Time) ([]Request, error)
}

// Sink receives the engine's durable output.
type Sink interface {
	InsertFindings(ctx context.Context, findings []finding.Finding) error
	InsertTasks(ctx context.Context, tasks []finding.Task) error
	AppendActionLog(ctx context.Context, action, targetType, targetID string, details map[string]any) error
}

// Store is the full persistence surface the dispatcher wires together.
type Store interface {
	EventQueue
	History
	Sink
}
