package detector

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/skylane/sentinel/internal/event"
	"github.com/skylane/sentinel/internal/finding"
	"github.com/skylane/sentinel/internal/storage"
)

// PriceOutlierConfig holds the statistical thresholds for quote screening.
type PriceOutlierConfig struct {
	WindowDays        int     // trailing baseline window
	MinSamples        int     // below this the detector skips entirely
	MaxSamples        int     // cap on baseline size
	FlagDeviation     float64 // deviation above this produces a finding
	CriticalDeviation float64 // deviation above this escalates to critical
}

// DefaultPriceOutlierConfig matches the platform's screening thresholds.
func DefaultPriceOutlierConfig() PriceOutlierConfig {
	return PriceOutlierConfig{
		WindowDays:        30,
		MinSamples:        10,
		MaxSamples:        100,
		FlagDeviation:     2,
		CriticalDeviation: 3,
	}
}

// PriceOutlier flags quotes whose price deviates from the historical
// median for the same aircraft class and route. Deviation is measured in
// population standard deviations from the median; warn findings are
// visibility-only, critical findings additionally open a review task.
type PriceOutlier struct {
	cfg     PriceOutlierConfig
	history storage.History
	now     func() time.Time
}

func NewPriceOutlier(cfg PriceOutlierConfig, history storage.History) *PriceOutlier {
	if cfg.WindowDays <= 0 || cfg.MinSamples <= 0 || cfg.MaxSamples <= 0 {
		cfg = DefaultPriceOutlierConfig()
	}
	return &PriceOutlier{cfg: cfg, history: history, now: time.Now}
}

func (p *PriceOutlier) Name() string { return "price_outlier" }

func (p *PriceOutlier) Matches(ev *event.Event) bool {
	if ev.Type != event.TypeQuoteSubmitted {
		return false
	}
	_, ok := ev.Float("price")
	return ok
}

func (p *PriceOutlier) Evaluate(ctx context.Context, ev *event.Event) (Result, error) {
	price, ok := ev.Float("price")
	if !ok {
		return Result{}, fmt.Errorf("price_outlier: quote.submitted payload missing numeric price")
	}
	class, _ := ev.String("aircraft_class")
	route, _ := ev.String("route")

	since := p.now().AddDate(0, 0, -p.cfg.WindowDays)
	prices, err := p.history.HistoricalPrices(ctx, class, route, since, p.cfg.MaxSamples)
	if err != nil {
		return Result{}, fmt.Errorf("price_outlier: historical prices: %w", err)
	}
	if len(prices) < p.cfg.MinSamples {
		// Insufficient baseline; no verdict either way.
		return Result{}, nil
	}

	med := median(prices)
	stddev := popStdDev(prices)

	var severity finding.Severity
	var deviation float64
	if stddev == 0 {
		// All historical prices identical: deviation is undefined, so any
		// departure from the median is treated as critical.
		if price == med {
			return Result{}, nil
		}
		severity = finding.SeverityCritical
		deviation = math.Inf(1)
	} else {
		deviation = math.Abs(price-med) / stddev
		switch {
		case deviation > p.cfg.CriticalDeviation:
			severity = finding.SeverityCritical
		case deviation > p.cfg.FlagDeviation:
			severity = finding.SeverityWarn
		default:
			return Result{}, nil
		}
	}

	quoteID, _ := ev.String("quote_id")
	details := map[string]any{
		"price":     price,
		"median":    med,
		"stddev":    stddev,
		"samples":   len(prices),
		"deviation": deviation,
	}
	if math.IsInf(deviation, 1) {
		details["deviation"] = "inf"
	}
	res := Result{Findings: []finding.Finding{{
		Severity:         severity,
		Label:            "price_outlier",
		Details:          details,
		LinkedObjectType: "quote",
		LinkedObjectID:   quoteID,
	}}}

	if severity == finding.SeverityCritical {
		res.Tasks = []finding.Task{{
			Kind:    finding.TaskReview,
			Summary: fmt.Sprintf("Review outlier quote price %.2f (median %.2f)", price, med),
			SuggestedAction: map[string]any{
				"action":   "review_quote",
				"quote_id": quoteID,
			},
		}}
	}
	return res, nil
}
