package handler

import (
	"context"
	"net/http"
	"time"
)

// Pinger checks a backing service.
type Pinger interface {
	Ping(ctx context.Context) error
}

type healthView struct {
	Status      string `json:"status"`
	Initialized bool   `json:"initialized"`
	Database    string `json:"database"`
}

// Health reports readiness: the synchronizer is initialized and the database answers.
type Health struct {
	states StateService
	db     Pinger
}

func NewHealth(states StateService, db Pinger) *Health {
	return &Health{states: states, db: db}
}

func (h *Health) Check(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	view := healthView{
		Status:      "ok",
		Initialized: h.states.Snapshot().Initialized,
		Database:    "ok",
	}
	if err := h.db.Ping(ctx); err != nil {
		view.Database = "unavailable"
	}

	status := http.StatusOK
	if !view.Initialized || view.Database != "ok" {
		view.Status = "unavailable"
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, view)
}
