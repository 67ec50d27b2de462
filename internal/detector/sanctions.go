package detector

import (
	"context"
	"fmt"
	"time"

	"github.com/skylane/sentinel/internal/event"
	"github.com/skylane/sentinel/internal/finding"
)

// SanctionsMatch re-emits high and critical screening hits as findings and
// opens a deadline-bearing alert task requesting account suspension.
// Sanctions exposure is the platform's highest-risk event class, so this
// is the only detector whose task carries a hard due date.
type SanctionsMatch struct {
	DueWithin time.Duration
	now       func() time.Time
}

func NewSanctionsMatch(dueWithin time.Duration) *SanctionsMatch {
	if dueWithin <= 0 {
		dueWithin = 24 * time.Hour
	}
	return &SanctionsMatch{DueWithin: dueWithin, now: time.Now}
}

func (s *SanctionsMatch) Name() string { return "sanctions_match" }

func (s *SanctionsMatch) Matches(ev *event.Event) bool {
	return ev.Type == event.TypeSanctionsMatch
}

func (s *SanctionsMatch) Evaluate(ctx context.Context, ev *event.Event) (Result, error) {
	raw, ok := ev.String("severity")
	if !ok {
		return Result{}, fmt.Errorf("sanctions_match: payload missing severity")
	}
	severity := finding.Severity(raw)
	if !severity.Valid() {
		return Result{}, fmt.Errorf("sanctions_match: unknown severity %q", raw)
	}
	if !severity.AtLeast(finding.SeverityHigh) {
		return Result{}, nil
	}

	userID, _ := ev.String("user_id")
	if userID == "" {
		userID = ev.ActorUserID
	}
	listName, _ := ev.String("list_name")
	matchedName, _ := ev.String("matched_name")

	f := finding.Finding{
		Severity: severity,
		Label:    "sanctions_screening_match",
		Details: map[string]any{
			"list_name":    listName,
			"matched_name": matchedName,
		},
		LinkedObjectType: "user",
		LinkedObjectID:   userID,
	}

	due := s.now().Add(s.DueWithin)
	t := finding.Task{
		Kind:    finding.TaskAlert,
		Summary: fmt.Sprintf("Sanctions screening match (%s) — suspend account pending review", severity),
		SuggestedAction: map[string]any{
			"action":  "suspend_user",
			"user_id": userID,
			"reason":  "sanctions screening match",
		},
		DueAt: &due,
	}
	return Result{Findings: []finding.Finding{f}, Tasks: []finding.Task{t}}, nil
}
