package detector

import (
	"context"
	"errors"
	"fmt"

	"github.com/skylane/sentinel/internal/event"
	"github.com/skylane/sentinel/internal/finding"
	"github.com/skylane/sentinel/internal/storage"
)

// SlowResponse flags quotes submitted past the response SLA. It produces
// a finding only; breaches feed operator scorecards, they do not page
// anyone.
type SlowResponse struct {
	SLAHours float64
	history  storage.History
}

func NewSlowResponse(slaHours float64, history storage.History) *SlowResponse {
	if slaHours <= 0 {
		slaHours = 24
	}
	return &SlowResponse{SLAHours: slaHours, history: history}
}

func (s *SlowResponse) Name() string { return "slow_response" }

func (s *SlowResponse) Matches(ev *event.Event) bool {
	if ev.Type != event.TypeQuoteSubmitted {
		return false
	}
	_, ok := ev.String("request_id")
	return ok
}

func (s *SlowResponse) Evaluate(ctx context.Context, ev *event.Event) (Result, error) {
	requestID, _ := ev.String("request_id")
	createdAt, err := s.history.RequestCreatedAt(ctx, requestID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return Result{}, fmt.Errorf("slow_response: request %s not found", requestID)
		}
		return Result{}, fmt.Errorf("slow_response: request created_at: %w", err)
	}

	elapsed := ev.OccurredAt.Sub(createdAt).Hours()
	if elapsed <= s.SLAHours {
		return Result{}, nil
	}

	quoteID, _ := ev.String("quote_id")
	return Result{Findings: []finding.Finding{{
		Severity: finding.SeverityWarn,
		Label:    "slow_quote_response",
		Details: map[string]any{
			"request_id":    requestID,
			"elapsed_hours": elapsed,
			"sla_hours":     s.SLAHours,
		},
		LinkedObjectType: "quote",
		LinkedObjectID:   quoteID,
	}}}, nil
}
