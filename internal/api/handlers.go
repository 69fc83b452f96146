package api

import (
	"context"
	"net/http"

	"vitalog.app/health-tracker/internal/core"
	"vitalog.app/health-tracker/internal/store"
)

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Services groups everything the handlers call into.
type Services struct {
	Users    *core.UserService
	Moods    *core.MoodService
	Symptoms *core.SymptomService
	Triage   *core.TriageService
	Chat     *core.ChatService
	Workouts *core.RecordService[store.Workout, *store.Workout]
	Meals    *core.RecordService[store.Meal, *store.Meal]
	Metrics  *core.RecordService[store.MetricReading, *store.MetricReading]
	Routines *core.RecordService[store.Routine, *store.Routine]

	Store    Pinger
	Observer *core.LogObserver
	Provider string
}

type APIHandler struct {
	services Services
}

func NewAPIHandler(services Services) *APIHandler {
	return &APIHandler{services: services}
}

// handlerFunc is a handler that reports failures by returning them. The
// error is rendered by writeError.
type handlerFunc func(w http.ResponseWriter, r *http.Request) error

func (h *APIHandler) handle(fn handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := fn(w, r); err != nil {
			writeError(w, r, err)
		}
	}
}

type healthResponse struct {
	Status    string           `json:"status"`
	Database  string           `json:"database"`
	Provider  string           `json:"provider"`
	Fallbacks map[string]int64 `json:"fallbacks"`
}

func (h *APIHandler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{
		Status:    "ok",
		Database:  "up",
		Provider:  h.services.Provider,
		Fallbacks: map[string]int64{},
	}
	if h.services.Observer != nil {
		resp.Fallbacks = h.services.Observer.Snapshot()
	}

	status := http.StatusOK
	if h.services.Store != nil {
		if err := h.services.Store.Ping(r.Context()); err != nil {
			resp.Status = "degraded"
			resp.Database = "down"
			status = http.StatusServiceUnavailable
		}
	}
	writeJSON(w, status, resp)
}
