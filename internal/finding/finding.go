package finding

import "time"

// Severity is an ordered risk level: info < warn < high < critical.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarn     Severity = "warn"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

var severityRank = map[Severity]int{
	SeverityInfo:     0,
	SeverityWarn:     1,
	SeverityHigh:     2,
	SeverityCritical: 3,
}

// Rank returns the position of s in the severity order, -1 for unknown values.
func (s Severity) Rank() int {
	r, ok := severityRank[s]
	if !ok {
		return -1
	}
	return r
}

// AtLeast reports whether s is min or more severe.
func (s Severity) AtLeast(min Severity) bool {
	return s.Rank() >= 0 && s.Rank() >= min.Rank()
}

// Valid reports whether s is one of the four known levels.
func (s Severity) Valid() bool { return s.Rank() >= 0 }

// Finding is a detector's verdict about a single event. Findings are
// created once and never mutated; the engine is their only writer.
type Finding struct {
	ID               string         `json:"id"`
	EventID          string         `json:"event_id"`
	Severity         Severity       `json:"severity"`
	Label            string         `json:"label"`
	Details          map[string]any `json:"details"`
	LinkedObjectType string         `json:"linked_object_type,omitempty"`
	LinkedObjectID   string         `json:"linked_object_id,omitempty"`
	CreatedAt        time.Time      `json:"created_at"`
}
