package handler

import (
	"context"

	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/dtroode/healping/internal/logger"
	"github.com/dtroode/healping/internal/model"
)

// SynchronizerService is the health service name tracking synchronizer initialization.
const SynchronizerService = "healping.Synchronizer"

// StateWatcher streams synchronizer states.
type StateWatcher interface {
	Watch(ctx context.Context) <-chan model.State
}

// Health publishes serving status through the standard grpc.health.v1 service.
// The process reports NOT_SERVING until the synchronizer is initialized.
type Health struct {
	server *health.Server
	states StateWatcher
	logger *logger.Logger
}

func NewHealth(states StateWatcher, logger *logger.Logger) *Health {
	h := &Health{
		server: health.NewServer(),
		states: states,
		logger: logger,
	}
	h.set(healthpb.HealthCheckResponse_NOT_SERVING)
	return h
}

// Server returns the health service implementation to register.
func (h *Health) Server() healthpb.HealthServer {
	return h.server
}

// Run follows the synchronizer until ctx is done or the synchronizer closes,
// then reports NOT_SERVING for good.
func (h *Health) Run(ctx context.Context) {
	defer func() {
		h.server.Shutdown()
		h.logger.Debug("Health handler: stopped")
	}()

	current := healthpb.HealthCheckResponse_NOT_SERVING
	for state := range h.states.Watch(ctx) {
		next := healthpb.HealthCheckResponse_NOT_SERVING
		if state.Initialized {
			next = healthpb.HealthCheckResponse_SERVING
		}
		if next == current {
			continue
		}
		current = next
		h.set(next)
		h.logger.Info("Health handler: serving status changed",
			"status", next.String())
	}
}

func (h *Health) set(status healthpb.HealthCheckResponse_ServingStatus) {
	h.server.SetServingStatus("", status)
	h.server.SetServingStatus(SynchronizerService, status)
}
