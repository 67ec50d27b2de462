package dispatch

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/skylane/sentinel/internal/detector"
	"github.com/skylane/sentinel/internal/engine"
	"github.com/skylane/sentinel/internal/event"
	"github.com/skylane/sentinel/internal/finding"
	"github.com/skylane/sentinel/internal/storage"
)

// fakeStore implements storage.Store in memory with injectable failures.
type fakeStore struct {
	events   []event.Event
	statuses map[string]event.Status

	fetchErr       error
	findingsErr    error
	tasksErr       error
	tasksErrBudget int // fail InsertTasks this many times, then succeed

	findings  []finding.Finding
	tasks     []finding.Task
	logLines  int
	claimSeen []string
}

func newFakeStore(events ...event.Event) *fakeStore {
	s := &fakeStore{events: events, statuses: make(map[string]event.Status)}
	for _, ev := range events {
		s.statuses[ev.ID] = event.StatusPending
	}
	return s
}

func (s *fakeStore) FetchPendingEvents(ctx context.Context, limit int) ([]event.Event, error) {
	if s.fetchErr != nil {
		return nil, s.fetchErr
	}
	var out []event.Event
	for _, ev := range s.events {
		if s.statuses[ev.ID] == event.StatusPending {
			out = append(out, ev)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *fakeStore) ClaimEvent(ctx context.Context, id string) (bool, error) {
	s.claimSeen = append(s.claimSeen, id)
	if s.statuses[id] != event.StatusPending {
		return false, nil
	}
	s.statuses[id] = event.StatusInProgress
	return true, nil
}

func (s *fakeStore) MarkProcessed(ctx context.Context, id string, processedAt time.Time) error {
	if s.statuses[id] != event.StatusInProgress {
		return storage.ErrNotFound
	}
	s.statuses[id] = event.StatusProcessed
	return nil
}

func (s *fakeStore) ReleaseEvent(ctx context.Context, id string) error {
	if s.statuses[id] == event.StatusInProgress {
		s.statuses[id] = event.StatusPending
	}
	return nil
}

func (s *fakeStore) HistoricalPrices(ctx context.Context, aircraftClass, route string, since time.Time, limit int) ([]float64, error) {
	return nil, nil
}

func (s *fakeStore) RequestCreatedAt(ctx context.Context, requestID string) (time.Time, error) {
	return time.Time{}, storage.ErrNotFound
}

func (s *fakeStore) OpenRequests(ctx context.Context, aircraftClass string, windowStart, windowEnd time.Time) ([]storage.Request, error) {
	return nil, nil
}

func (s *fakeStore) InsertFindings(ctx context.Context, findings []finding.Finding) error {
	if s.findingsErr != nil {
		return s.findingsErr
	}
	s.findings = append(s.findings, findings...)
	return nil
}

func (s *fakeStore) InsertTasks(ctx context.Context, tasks []finding.Task) error {
	if s.tasksErrBudget > 0 {
		s.tasksErrBudget--
		return errors.New("tasks write failed")
	}
	if s.tasksErr != nil {
		return s.tasksErr
	}
	s.tasks = append(s.tasks, tasks...)
	return nil
}

func (s *fakeStore) AppendActionLog(ctx context.Context, action, targetType, targetID string, details map[string]any) error {
	s.logLines++
	return nil
}

// emitDetector always produces one finding and one task.
type emitDetector struct{ name string }

func (d *emitDetector) Name() string { return d.name }

func (d *emitDetector) Matches(*event.Event) bool { return true }
func (d *emitDetector) Evaluate(ctx context.Context, ev *event.Event) (detector.Result, error) {
	return detector.Result{
		Findings: []finding.Finding{{Severity: finding.SeverityHigh, Label: "hit"}},
		Tasks:    []finding.Task{{Kind: finding.TaskReview, Summary: "check"}},
	}, nil
}

func testEngine() *engine.Engine {
	reg := detector.NewRegistry()
	reg.Register(&emitDetector{name: "emitter"})
	return engine.New(reg)
}

func pendingEvent(id string, occurred time.Time) event.Event {
	return event.Event{
		ID:         id,
		Type:       event.TypeMessageSent,
		Payload:    map[string]any{"content": "hello"},
		OccurredAt: occurred,
		Status:     event.StatusPending,
	}
}

func TestRunProcessesBatch(t *testing.T) {
	now := time.Now()
	store := newFakeStore(
		pendingEvent("ev-1", now.Add(-3*time.Minute)),
		pendingEvent("ev-2", now.Add(-2*time.Minute)),
		pendingEvent("ev-3", now.Add(-1*time.Minute)),
	)
	d := New(store, testEngine(), 50)

	sum, err := d.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if sum.Processed != 3 || sum.FindingsCreated != 3 || sum.TasksCreated != 3 {
		t.Fatalf("summary = %+v", sum)
	}
	for _, id := range []string{"ev-1", "ev-2", "ev-3"} {
		if store.statuses[id] != event.StatusProcessed {
			t.Errorf("event %s status = %s, want processed", id, store.statuses[id])
		}
	}
	if store.logLines != 3 {
		t.Errorf("action log lines = %d, want 3", store.logLines)
	}
}

func TestRunFetchFailureIsFatal(t *testing.T) {
	store := newFakeStore(pendingEvent("ev-1", time.Now()))
	store.fetchErr = errors.New("db unreachable")
	d := New(store, testEngine(), 50)

	sum, err := d.Run(context.Background())
	if err == nil {
		t.Fatal("expected error when fetch fails")
	}
	if sum.Processed != 0 {
		t.Errorf("no events should be processed, got %d", sum.Processed)
	}
}

// A concurrent run can claim an event between this run's fetch and its
// claim attempt; the loser must skip the event, not double-process it.
func TestRunSkipsLostClaims(t *testing.T) {
	store := newFakeStore(pendingEvent("ev-1", time.Now()))
	stolen := false
	d := New(&claimStealingStore{fakeStore: store, steal: &stolen}, testEngine(), 50)

	sum, err := d.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if sum.Skipped != 1 || sum.Processed != 0 {
		t.Fatalf("summary = %+v, want 1 skipped", sum)
	}
	if len(store.findings) != 0 {
		t.Errorf("lost claim must not produce findings")
	}
}

// claimStealingStore marks the event claimed by someone else just before
// this run's claim attempt.
type claimStealingStore struct {
	*fakeStore
	steal *bool
}

func (s *claimStealingStore) ClaimEvent(ctx context.Context, id string) (bool, error) {
	if !*s.steal {
		*s.steal = true
		s.statuses[id] = event.StatusInProgress
	}
	return s.fakeStore.ClaimEvent(ctx, id)
}

func TestRunReleasesEventOnPersistFailure(t *testing.T) {
	store := newFakeStore(pendingEvent("ev-1", time.Now()), pendingEvent("ev-2", time.Now().Add(time.Second)))
	store.tasksErrBudget = 1 // first task write fails

	d := New(store, testEngine(), 50)
	sum, err := d.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if sum.Failed != 1 || sum.Processed != 1 {
		t.Fatalf("summary = %+v, want 1 failed + 1 processed", sum)
	}
	if store.statuses["ev-1"] != event.StatusPending {
		t.Errorf("failed event status = %s, want pending for retry", store.statuses["ev-1"])
	}
	if store.statuses["ev-2"] != event.StatusProcessed {
		t.Errorf("batch did not continue past the failure")
	}
}

// Re-processing after a partial persistence failure duplicates the findings
// that succeeded before the failing write. This is a known, bounded risk of
// the retry design, asserted here so a future change to exactly-once
// semantics shows up as a deliberate test update.
func TestRerunAfterPartialFailureDuplicatesFindings(t *testing.T) {
	store := newFakeStore(pendingEvent("ev-1", time.Now()))
	store.tasksErrBudget = 1

	d := New(store, testEngine(), 50)
	if _, err := d.Run(context.Background()); err != nil {
		t.Fatalf("first run: %v", err)
	}
	if got := len(store.findings); got != 1 {
		t.Fatalf("findings after failed run = %d, want 1 (insert preceded the failing write)", got)
	}

	sum, err := d.Run(context.Background())
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if sum.Processed != 1 {
		t.Fatalf("retry did not process the released event: %+v", sum)
	}
	if got := len(store.findings); got != 2 {
		t.Fatalf("findings after retry = %d; duplicate-on-retry is the documented behavior", got)
	}
	if got := len(store.tasks); got != 1 {
		t.Fatalf("tasks after retry = %d, want 1", got)
	}
}
