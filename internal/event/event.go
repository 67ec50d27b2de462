package event

import "time"

// Type tags for the closed set of domain events the engine evaluates.
const (
	TypeMessageSent         = "message.sent"
	TypeQuoteSubmitted      = "quote.submitted"
	TypeSanctionsMatch      = "sanctions.match"
	TypeAvailabilityUpdated = "aircraft.availability.updated"
)

// Status is the processing state of an event. Transitions are one-way:
// pending → in_progress → processed, with in_progress reverting to pending
// only when a run fails to persist its results.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusProcessed  Status = "processed"
)

// Event is an immutable fact recorded by upstream producers. The engine
// only reads events and advances their status.
type Event struct {
	ID          string         `json:"id"`
	Type        string         `json:"type"`
	ActorUserID string         `json:"actor_user_id,omitempty"`
	Payload     map[string]any `json:"payload"`
	OccurredAt  time.Time      `json:"occurred_at"`
	Status      Status         `json:"status"`
}

// String reads a string payload field, reporting whether it was present
// and of the right type.
func (e *Event) String(key string) (string, bool) {
	v, ok := e.Payload[key].(string)
	return v, ok
}

// Float reads a numeric payload field. JSON decoding yields float64 for
// all numbers, but ints show up when events are constructed in-process.
func (e *Event) Float(key string) (float64, bool) {
	switch n := e.Payload[key].(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}
