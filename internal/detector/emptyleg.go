package detector

import (
	"context"
	"fmt"
	"time"

	"github.com/skylane/sentinel/internal/event"
	"github.com/skylane/sentinel/internal/finding"
	"github.com/skylane/sentinel/internal/storage"
)

// EmptyLegConfig bounds the opportunity search.
type EmptyLegConfig struct {
	WindowHours int     // how far ahead to look for departing requests
	MaxRadiusNm float64 // maximum repositioning distance worth surfacing
}

// DefaultEmptyLegConfig matches the platform's matching heuristics.
func DefaultEmptyLegConfig() EmptyLegConfig {
	return EmptyLegConfig{WindowHours: 72, MaxRadiusNm: 300}
}

// EmptyLeg surfaces revenue opportunities: when an aircraft becomes
// available near an open request in the same class, it emits an info
// finding and a route task asking that operators be notified. Low
// severity on purpose; this is opportunity, not risk.
type EmptyLeg struct {
	cfg     EmptyLegConfig
	history storage.History
	now     func() time.Time
}

func NewEmptyLeg(cfg EmptyLegConfig, history storage.History) *EmptyLeg {
	if cfg.WindowHours <= 0 || cfg.MaxRadiusNm <= 0 {
		cfg = DefaultEmptyLegConfig()
	}
	return &EmptyLeg{cfg: cfg, history: history, now: time.Now}
}

func (e *EmptyLeg) Name() string { return "empty_leg" }

func (e *EmptyLeg) Matches(ev *event.Event) bool {
	return ev.Type == event.TypeAvailabilityUpdated
}

func (e *EmptyLeg) Evaluate(ctx context.Context, ev *event.Event) (Result, error) {
	class, ok := ev.String("aircraft_class")
	if !ok {
		return Result{}, fmt.Errorf("empty_leg: payload missing aircraft_class")
	}
	lat, latOK := ev.Float("lat")
	lon, lonOK := ev.Float("lon")
	if !latOK || !lonOK {
		return Result{}, fmt.Errorf("empty_leg: payload missing aircraft position")
	}

	now := e.now()
	windowEnd := now.Add(time.Duration(e.cfg.WindowHours) * time.Hour)
	requests, err := e.history.OpenRequests(ctx, class, now, windowEnd)
	if err != nil {
		return Result{}, fmt.Errorf("empty_leg: open requests: %w", err)
	}
	if len(requests) == 0 {
		return Result{}, nil
	}

	best := -1
	bestDist := e.cfg.MaxRadiusNm
	for i, req := range requests {
		d := distanceNm(lat, lon, req.OriginLat, req.OriginLon)
		if d <= bestDist {
			best = i
			bestDist = d
		}
	}
	if best < 0 {
		return Result{}, nil
	}
	match := requests[best]

	aircraftID, _ := ev.String("aircraft_id")
	f := finding.Finding{
		Severity: finding.SeverityInfo,
		Label:    "empty_leg_opportunity",
		Details: map[string]any{
			"request_id":     match.ID,
			"aircraft_class": class,
			"distance_nm":    bestDist,
			"departs_at":     match.DepartsAt,
		},
		LinkedObjectType: "aircraft",
		LinkedObjectID:   aircraftID,
	}
	t := finding.Task{
		Kind:    finding.TaskRoute,
		Summary: fmt.Sprintf("Empty-leg match: aircraft %s is %.0f nm from request %s", aircraftID, bestDist, match.ID),
		SuggestedAction: map[string]any{
			"action":      "notify_operators",
			"aircraft_id": aircraftID,
			"request_id":  match.ID,
		},
	}
	return Result{Findings: []finding.Finding{f}, Tasks: []finding.Task{t}}, nil
}
