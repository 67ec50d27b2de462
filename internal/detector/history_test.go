package detector

import (
	"context"
	"time"

	"github.com/skylane/sentinel/internal/storage"
)

// historyStub implements storage.History for detector tests.
type historyStub struct {
	prices     []float64
	pricesErr  error
	createdAt  map[string]time.Time
	requests   []storage.Request
	requestErr error
}

func (h *historyStub) HistoricalPrices(ctx context.Context, aircraftClass, route string, since time.Time, limit int) ([]float64, error) {
	if h.pricesErr != nil {
		return nil, h.pricesErr
	}
	if len(h.prices) > limit {
		return h.prices[:limit], nil
	}
	return h.prices, nil
}

func (h *historyStub) RequestCreatedAt(ctx context.Context, requestID string) (time.Time, error) {
	if t, ok := h.createdAt[requestID]; ok {
		return t, nil
	}
	return time.Time{}, storage.ErrNotFound
}

func (h *historyStub) OpenRequests(ctx context.Context, aircraftClass string, windowStart, windowEnd time.Time) ([]storage.Request, error) {
	if h.requestErr != nil {
		return nil, h.requestErr
	}
	var out []storage.Request
	for _, req := range h.requests {
		if !req.DepartsAt.Before(windowStart) && !req.DepartsAt.After(windowEnd) {
			out = append(out, req)
		}
	}
	return out, nil
}
