// Package engine orchestrates detector dispatch for single events. Its
// contract is that one detector's bad data never blocks its siblings and
// never disappears silently: failures degrade to a visible warn finding.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/skylane/sentinel/internal/detector"
	"github.com/skylane/sentinel/internal/event"
	"github.com/skylane/sentinel/internal/finding"
	"github.com/skylane/sentinel/internal/metrics"
)

// Engine evaluates events against the registered detector set.
type Engine struct {
	registry atomic.Pointer[detector.Registry]
	now      func() time.Time
}

// New creates an Engine over the given registry.
func New(reg *detector.Registry) *Engine {
	e := &Engine{now: time.Now}
	e.registry.Store(reg)
	return e
}

// SwapRegistry atomically replaces the detector set (used on hot-reload).
func (e *Engine) SwapRegistry(reg *detector.Registry) {
	e.registry.Store(reg)
}

// Evaluate runs every applicable detector against ev, sequentially in
// registration order. A detector error or panic is converted into a single
// warn-severity processing_error finding and evaluation continues with the
// remaining detectors. Returned findings and tasks are fully stamped
// (IDs, event back-references, timestamps) and ready for persistence.
func (e *Engine) Evaluate(ctx context.Context, ev *event.Event) ([]finding.Finding, []finding.Task) {
	var findings []finding.Finding
	var tasks []finding.Task

	reg := e.registry.Load()
	for _, d := range reg.Applicable(ev) {
		res, err := e.runDetector(ctx, d, ev)
		if err != nil {
			metrics.DetectorErrors.WithLabelValues(d.Name()).Inc()
			slog.Warn("detector failed", "detector", d.Name(), "event_id", ev.ID, "err", err)
			findings = append(findings, finding.Finding{
				Severity: finding.SeverityWarn,
				Label:    "processing_error",
				Details: map[string]any{
					"detector":   d.Name(),
					"error":      err.Error(),
					"event_type": ev.Type,
				},
			})
			continue
		}
		findings = append(findings, res.Findings...)
		tasks = append(tasks, res.Tasks...)
	}

	now := e.now().UTC()
	for i := range findings {
		findings[i].ID = uuid.New().String()
		findings[i].EventID = ev.ID
		findings[i].CreatedAt = now
	}
	for i := range tasks {
		tasks[i].ID = uuid.New().String()
		tasks[i].EventID = ev.ID
		tasks[i].Status = finding.TaskOpen
		tasks[i].CreatedAt = now
	}
	return findings, tasks
}

// runDetector isolates a single detector call, turning panics into errors.
func (e *Engine) runDetector(ctx context.Context, d detector.Detector, ev *event.Event) (res detector.Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			res = detector.Result{}
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return d.Evaluate(ctx, ev)
}
