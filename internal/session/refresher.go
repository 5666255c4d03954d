package session

import (
	"context"
	"time"

	"github.com/dtroode/healping/internal/logger"
)

// DueRefresher rotates a session when it is about to expire.
type DueRefresher interface {
	RefreshIfDue(ctx context.Context) (bool, error)
}

// Refresher keeps the local session fresh in the background.
type Refresher struct {
	source DueRefresher
	logger *logger.Logger
}

// NewRefresher creates a Refresher for source.
func NewRefresher(source DueRefresher, logger *logger.Logger) *Refresher {
	return &Refresher{source: source, logger: logger}
}

// Start checks the session every interval until ctx is cancelled.
func (r *Refresher) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	r.logger.Info("Refresher: started",
		"interval", interval.String())

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("Refresher: stopped")
			return
		case <-ticker.C:
			r.RunOnce(ctx)
		}
	}
}

// RunOnce performs a single check.
func (r *Refresher) RunOnce(ctx context.Context) {
	refreshed, err := r.source.RefreshIfDue(ctx)
	if err != nil {
		r.logger.Error("Refresher: failed to refresh session",
			"error", err.Error())
		return
	}
	if refreshed {
		r.logger.Debug("Refresher: session refreshed")
	}
}
