// Package dispatch drives one bounded batch of pending events through the
// rules engine and persists the results. A run is a single logical
// invocation triggered by a schedule or an operator; events are processed
// strictly sequentially in occurred_at order so detectors that rely on
// relative ordering (request-before-quote) see a causal stream.
package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/skylane/sentinel/internal/engine"
	"github.com/skylane/sentinel/internal/event"
	"github.com/skylane/sentinel/internal/metrics"
	"github.com/skylane/sentinel/internal/storage"
)

// Summary is the aggregate result of one run.
type Summary struct {
	Processed       int `json:"processed"`
	Skipped         int `json:"skipped"`
	Failed          int `json:"failed"`
	FindingsCreated int `json:"findings_created"`
	TasksCreated    int `json:"tasks_created"`
}

// Dispatcher fetches pending events and runs the engine over each.
type Dispatcher struct {
	store     storage.Store
	eng       *engine.Engine
	batchSize int
	now       func() time.Time
}

// New creates a Dispatcher with the given batch cap.
func New(store storage.Store, eng *engine.Engine, batchSize int) *Dispatcher {
	if batchSize <= 0 {
		batchSize = 50
	}
	return &Dispatcher{store: store, eng: eng, batchSize: batchSize, now: time.Now}
}

// SetBatchSize adjusts the per-run event cap (used on config hot-reload).
func (d *Dispatcher) SetBatchSize(n int) {
	if n > 0 {
		d.batchSize = n
	}
}

// Run executes one invocation. A fetch failure is fatal and returns an
// error with an empty summary. Per-event persistence failures release the
// event back to pending for a later run and do not abort the batch.
//
// Re-processing a released event can duplicate findings that persisted
// before the failing write; the engine does not guarantee exactly-once
// output, only that no pending event is ever silently dropped.
func (d *Dispatcher) Run(ctx context.Context) (Summary, error) {
	metrics.RunsStarted.Inc()
	start := d.now()
	var sum Summary

	events, err := d.store.FetchPendingEvents(ctx, d.batchSize)
	if err != nil {
		metrics.RunsFailed.Inc()
		return Summary{}, fmt.Errorf("fetch pending events: %w", err)
	}

	for i := range events {
		ev := &events[i]

		claimed, err := d.store.ClaimEvent(ctx, ev.ID)
		if err != nil {
			slog.Error("claim failed", "event_id", ev.ID, "err", err)
			sum.Failed++
			metrics.EventsFailed.Inc()
			continue
		}
		if !claimed {
			// Another run owns this event.
			sum.Skipped++
			metrics.EventsSkipped.Inc()
			continue
		}

		if err := d.processOne(ctx, ev, &sum); err != nil {
			slog.Error("event processing failed, released back to pending",
				"event_id", ev.ID, "event_type", ev.Type, "err", err)
			sum.Failed++
			metrics.EventsFailed.Inc()
			if relErr := d.store.ReleaseEvent(ctx, ev.ID); relErr != nil {
				slog.Error("release failed, event stuck in_progress", "event_id", ev.ID, "err", relErr)
			}
			continue
		}
		sum.Processed++
		metrics.EventsProcessed.Inc()
	}

	metrics.RunDuration.Observe(float64(d.now().Sub(start).Milliseconds()))
	slog.Info("run complete",
		"processed", sum.Processed,
		"skipped", sum.Skipped,
		"failed", sum.Failed,
		"findings", sum.FindingsCreated,
		"tasks", sum.TasksCreated,
	)
	return sum, nil
}

func (d *Dispatcher) processOne(ctx context.Context, ev *event.Event, sum *Summary) error {
	findings, tasks := d.eng.Evaluate(ctx, ev)

	if len(findings) > 0 {
		if err := d.store.InsertFindings(ctx, findings); err != nil {
			return fmt.Errorf("insert findings: %w", err)
		}
	}
	if len(tasks) > 0 {
		if err := d.store.InsertTasks(ctx, tasks); err != nil {
			return fmt.Errorf("insert tasks: %w", err)
		}
	}

	processedAt := d.now().UTC()
	if err := d.store.MarkProcessed(ctx, ev.ID, processedAt); err != nil {
		return fmt.Errorf("mark processed: %w", err)
	}

	if err := d.store.AppendActionLog(ctx, "event_processed", "event", ev.ID, map[string]any{
		"event_type": ev.Type,
		"findings":   len(findings),
		"tasks":      len(tasks),
	}); err != nil {
		// Event is already processed; losing one log line is preferable to
		// re-running detectors, so log and move on.
		slog.Warn("action log append failed", "event_id", ev.ID, "err", err)
	}

	sum.FindingsCreated += len(findings)
	sum.TasksCreated += len(tasks)
	for _, f := range findings {
		metrics.FindingsCreated.WithLabelValues(string(f.Severity)).Inc()
	}
	for _, t := range tasks {
		metrics.TasksCreated.WithLabelValues(string(t.Kind)).Inc()
	}
	return nil
}
