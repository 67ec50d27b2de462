package detector

import (
	"context"
	"testing"
	"time"

	"github.com/skylane/sentinel/internal/event"
	"github.com/skylane/sentinel/internal/finding"
	"github.com/skylane/sentinel/internal/storage"
)

func availabilityEvent(lat, lon float64) *event.Event {
	return &event.Event{
		ID:   "ev-a1",
		Type: event.TypeAvailabilityUpdated,
		Payload: map[string]any{
			"aircraft_id":    "N123AB",
			"aircraft_class": "light",
			"lat":            lat,
			"lon":            lon,
		},
	}
}

func TestEmptyLegMatchesNearbyRequest(t *testing.T) {
	departs := time.Now().Add(24 * time.Hour)
	d := NewEmptyLeg(DefaultEmptyLegConfig(), &historyStub{requests: []storage.Request{
		// Teterboro-ish aircraft; ~60 nm away.
		{ID: "r-near", AircraftClass: "light", OriginLat: 41.0, OriginLon: -74.0, DepartsAt: departs},
	}})

	res, err := d.Evaluate(context.Background(), availabilityEvent(40.0, -74.0))
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if len(res.Findings) != 1 || res.Findings[0].Severity != finding.SeverityInfo {
		t.Fatalf("expected one info finding, got %+v", res.Findings)
	}
	if res.Findings[0].Details["request_id"] != "r-near" {
		t.Errorf("matched request = %v, want r-near", res.Findings[0].Details["request_id"])
	}
	if len(res.Tasks) != 1 || res.Tasks[0].Kind != finding.TaskRoute {
		t.Fatalf("expected one route task, got %+v", res.Tasks)
	}
	if res.Tasks[0].SuggestedAction["action"] != "notify_operators" {
		t.Errorf("suggested action = %v, want notify_operators", res.Tasks[0].SuggestedAction["action"])
	}
}

func TestEmptyLegPicksNearestRequest(t *testing.T) {
	departs := time.Now().Add(24 * time.Hour)
	d := NewEmptyLeg(DefaultEmptyLegConfig(), &historyStub{requests: []storage.Request{
		{ID: "r-far", AircraftClass: "light", OriginLat: 43.5, OriginLon: -74.0, DepartsAt: departs},
		{ID: "r-near", AircraftClass: "light", OriginLat: 40.5, OriginLon: -74.0, DepartsAt: departs},
	}})

	res, err := d.Evaluate(context.Background(), availabilityEvent(40.0, -74.0))
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if res.Findings[0].Details["request_id"] != "r-near" {
		t.Errorf("matched request = %v, want the nearer r-near", res.Findings[0].Details["request_id"])
	}
}

func TestEmptyLegIgnoresDistantRequests(t *testing.T) {
	departs := time.Now().Add(24 * time.Hour)
	d := NewEmptyLeg(DefaultEmptyLegConfig(), &historyStub{requests: []storage.Request{
		// ~600 nm away, beyond the 300 nm radius.
		{ID: "r-far", AircraftClass: "light", OriginLat: 50.0, OriginLon: -74.0, DepartsAt: departs},
	}})

	res, err := d.Evaluate(context.Background(), availabilityEvent(40.0, -74.0))
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if !res.Empty() {
		t.Fatalf("expected no output for distant requests, got %+v", res)
	}
}

func TestEmptyLegIgnoresDepartedRequests(t *testing.T) {
	// Still marked open, but its departure already passed; co-located with
	// the aircraft so only the time window can exclude it.
	d := NewEmptyLeg(DefaultEmptyLegConfig(), &historyStub{requests: []storage.Request{
		{ID: "r-past", AircraftClass: "light", OriginLat: 40.0, OriginLon: -74.0, DepartsAt: time.Now().Add(-48 * time.Hour)},
	}})

	res, err := d.Evaluate(context.Background(), availabilityEvent(40.0, -74.0))
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if !res.Empty() {
		t.Fatalf("matched a request that already departed: %+v", res.Findings)
	}
}

func TestEmptyLegNoOpenRequests(t *testing.T) {
	d := NewEmptyLeg(DefaultEmptyLegConfig(), &historyStub{})
	res, err := d.Evaluate(context.Background(), availabilityEvent(40.0, -74.0))
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if !res.Empty() {
		t.Fatalf("expected no output, got %+v", res)
	}
}

func TestDistanceNm(t *testing.T) {
	// One degree of latitude is 60 nm.
	d := distanceNm(40.0, -74.0, 41.0, -74.0)
	if d < 59 || d > 61 {
		t.Errorf("distance = %.2f nm, want ~60", d)
	}
	if distanceNm(40.0, -74.0, 40.0, -74.0) != 0 {
		t.Errorf("zero distance expected for identical points")
	}
}
