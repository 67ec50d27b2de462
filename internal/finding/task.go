package finding

import "time"

// TaskKind classifies what a follow-up task asks a downstream actor to do.
type TaskKind string

const (
	TaskAlert          TaskKind = "alert"
	TaskReview         TaskKind = "review"
	TaskEnrich         TaskKind = "enrich"
	TaskGenerateReport TaskKind = "generate_report"
	TaskRoute          TaskKind = "route"
)

// TaskStatus tracks a task through its downstream lifecycle. The engine
// only ever creates tasks as open; the other states belong to consumers.
type TaskStatus string

const (
	TaskOpen      TaskStatus = "open"
	TaskInReview  TaskStatus = "in_review"
	TaskResolved  TaskStatus = "resolved"
	TaskDismissed TaskStatus = "dismissed"
)

// Task is an actionable follow-up derived from detection. SuggestedAction
// is a machine-actionable payload, e.g.
// {"action": "suspend_user", "user_id": "...", "reason": "..."}.
type Task struct {
	ID              string         `json:"id"`
	EventID         string         `json:"event_id"`
	Kind            TaskKind       `json:"kind"`
	Summary         string         `json:"summary"`
	SuggestedAction map[string]any `json:"suggested_action"`
	DueAt           *time.Time     `json:"due_at,omitempty"`
	Assignee        string         `json:"assignee,omitempty"`
	Status          TaskStatus     `json:"status"`
	CreatedAt       time.Time      `json:"created_at"`
}
