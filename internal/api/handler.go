package api

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/skylane/sentinel/internal/config"
	"github.com/skylane/sentinel/internal/dispatch"
)

// Runner triggers one dispatcher invocation.
type Runner interface {
	Run(ctx context.Context) (dispatch.Summary, error)
}

// RunResponse is the summary returned by a triggered run.
type RunResponse struct {
	Message         string `json:"message"`
	Processed       int    `json:"processed"`
	FindingsCreated int    `json:"findings_created"`
	TasksCreated    int    `json:"tasks_created"`
	Timestamp       string `json:"timestamp"`
}

// Handler holds all HTTP handler dependencies.
type Handler struct {
	runner Runner
	loader *config.Loader
	mux    *http.ServeMux
}

// New creates an HTTP handler and registers all routes.
func New(runner Runner, loader *config.Loader) http.Handler {
	h := &Handler{runner: runner, loader: loader, mux: http.NewServeMux()}

	h.mux.HandleFunc("POST /v1/runs", h.triggerRun)
	h.mux.HandleFunc("GET /v1/detectors", h.listDetectorConfig)
	h.mux.HandleFunc("GET /healthz", h.healthz)
	h.mux.Handle("GET /metrics", promhttp.Handler())

	return corsMiddleware(loggingMiddleware(h.mux))
}

// POST /v1/runs — run one bounded batch of pending events through the
// detector set. No request body required; the schedule and operator
// tooling call the same endpoint.
func (h *Handler) triggerRun(w http.ResponseWriter, r *http.Request) {
	sum, err := h.runner.Run(r.Context())
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, RunResponse{
		Message:         "run complete",
		Processed:       sum.Processed,
		FindingsCreated: sum.FindingsCreated,
		TasksCreated:    sum.TasksCreated,
		Timestamp:       time.Now().UTC().Format(time.RFC3339),
	})
}

// GET /v1/detectors — current detector configuration.
func (h *Handler) listDetectorConfig(w http.ResponseWriter, r *http.Request) {
	cfg := h.loader.Config()
	writeJSON(w, http.StatusOK, map[string]any{
		"version":   cfg.Version,
		"detectors": cfg.Detectors,
	})
}

// GET /healthz — always 200 (liveness probe).
func (h *Handler) healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
