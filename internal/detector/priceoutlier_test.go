package detector

import (
	"context"
	"testing"
	"time"

	"github.com/skylane/sentinel/internal/event"
	"github.com/skylane/sentinel/internal/finding"
)

// baseline10 has median 5000 and population stddev exactly 150.
func baseline10() []float64 {
	return []float64{4850, 5150, 4850, 5150, 4850, 5150, 4850, 5150, 4850, 5150}
}

func quoteEvent(price float64) *event.Event {
	return &event.Event{
		ID:   "ev-q1",
		Type: event.TypeQuoteSubmitted,
		Payload: map[string]any{
			"quote_id":       "q-1",
			"request_id":     "r-1",
			"price":          price,
			"aircraft_class": "midsize",
			"route":          "KTEB-KPBI",
		},
		OccurredAt: time.Now(),
	}
}

func TestPriceOutlierThresholds(t *testing.T) {
	cases := []struct {
		name         string
		price        float64
		wantFinding  bool
		wantSeverity finding.Severity
		wantTask     bool
	}{
		{"far above baseline", 10000, true, finding.SeverityCritical, true},
		{"at threshold not flagged", 5300, false, "", false}, // deviation == 2.0, rule is strictly > 2
		{"four deviations", 5600, true, finding.SeverityCritical, true},
		{"moderate outlier", 5450, true, finding.SeverityWarn, false}, // deviation 3.0 is not > 3
		{"normal price", 5100, false, "", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d := NewPriceOutlier(DefaultPriceOutlierConfig(), &historyStub{prices: baseline10()})
			res, err := d.Evaluate(context.Background(), quoteEvent(tc.price))
			if err != nil {
				t.Fatalf("evaluate: %v", err)
			}
			if !tc.wantFinding {
				if len(res.Findings) != 0 {
					t.Fatalf("expected no finding, got %+v", res.Findings)
				}
				return
			}
			if len(res.Findings) != 1 {
				t.Fatalf("expected 1 finding, got %d", len(res.Findings))
			}
			f := res.Findings[0]
			if f.Severity != tc.wantSeverity {
				t.Errorf("severity = %s, want %s", f.Severity, tc.wantSeverity)
			}
			if f.Details["median"] != 5000.0 {
				t.Errorf("details.median = %v, want 5000", f.Details["median"])
			}
			if tc.wantTask != (len(res.Tasks) == 1) {
				t.Errorf("task presence = %d, want %v", len(res.Tasks), tc.wantTask)
			}
		})
	}
}

func TestPriceOutlierSkipsThinBaseline(t *testing.T) {
	d := NewPriceOutlier(DefaultPriceOutlierConfig(), &historyStub{
		prices: []float64{5000, 5100, 4900}, // below min_samples
	})
	res, err := d.Evaluate(context.Background(), quoteEvent(100000))
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if !res.Empty() {
		t.Fatalf("expected skip with thin baseline, got %+v", res)
	}
}

func TestPriceOutlierZeroStdDev(t *testing.T) {
	identical := make([]float64, 20)
	for i := range identical {
		identical[i] = 5000
	}

	d := NewPriceOutlier(DefaultPriceOutlierConfig(), &historyStub{prices: identical})

	res, err := d.Evaluate(context.Background(), quoteEvent(5000))
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if !res.Empty() {
		t.Fatalf("price equal to degenerate median should not flag, got %+v", res)
	}

	res, err = d.Evaluate(context.Background(), quoteEvent(5001))
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if len(res.Findings) != 1 || res.Findings[0].Severity != finding.SeverityCritical {
		t.Fatalf("any departure from a zero-stddev baseline should be critical, got %+v", res.Findings)
	}
	if res.Findings[0].Details["deviation"] != "inf" {
		t.Errorf("deviation detail = %v, want \"inf\"", res.Findings[0].Details["deviation"])
	}
}

func TestPriceOutlierEvaluateIsDeterministic(t *testing.T) {
	d := NewPriceOutlier(DefaultPriceOutlierConfig(), &historyStub{prices: baseline10()})
	first, err := d.Evaluate(context.Background(), quoteEvent(5600))
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	second, err := d.Evaluate(context.Background(), quoteEvent(5600))
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if len(first.Findings) != len(second.Findings) || len(first.Tasks) != len(second.Tasks) {
		t.Fatalf("repeated evaluation diverged: %+v vs %+v", first, second)
	}
	if first.Findings[0].Severity != second.Findings[0].Severity {
		t.Errorf("severity diverged across runs")
	}
}
