// Package detector holds the fixed set of compliance and anomaly rules.
// Each detector maps one event (plus optional historical context) to zero
// or more findings and tasks; orchestration and failure isolation live in
// the engine.
package detector

import (
	"context"
	"fmt"
	"sync"

	"github.com/skylane/sentinel/internal/event"
	"github.com/skylane/sentinel/internal/finding"
)

// Result is the output of one detector for one event. Findings and tasks
// carry severity, label, details, and linked objects; identifiers and
// timestamps are stamped by the engine before persistence.
type Result struct {
	Findings []finding.Finding
	Tasks    []finding.Task
}

// Empty reports whether the detector produced no output.
func (r Result) Empty() bool { return len(r.Findings) == 0 && len(r.Tasks) == 0 }

// Detector is the interface all rules implement.
type Detector interface {
	// Name returns the string key this detector is registered under.
	Name() string
	// Matches reports whether this detector applies to the event.
	Matches(ev *event.Event) bool
	// Evaluate runs the rule. An error (or panic) is converted by the
	// engine into a warn-severity processing_error finding.
	Evaluate(ctx context.Context, ev *event.Event) (Result, error)
}

// Registry maps detector names to their implementations.
// It is safe for concurrent reads; Register should only be called at startup.
type Registry struct {
	mu        sync.RWMutex
	order     []string
	detectors map[string]Detector
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{detectors: make(map[string]Detector)}
}

// Register adds a detector. Panics on duplicate name to surface
// misconfiguration early.
func (r *Registry) Register(d Detector) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.detectors[d.Name()]; exists {
		panic(fmt.Sprintf("detector registry: duplicate name %q", d.Name()))
	}
	r.detectors[d.Name()] = d
	r.order = append(r.order, d.Name())
}

// Applicable returns the detectors that match ev, in registration order.
// Registration order is stable so repeated evaluation of the same event
// produces findings in the same sequence.
func (r *Registry) Applicable(ev *event.Event) []Detector {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Detector
	for _, name := range r.order {
		if d := r.detectors[name]; d.Matches(ev) {
			out = append(out, d)
		}
	}
	return out
}

// Names returns all registered detector names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}
