package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/dtroode/healping/internal/guard"
	"github.com/dtroode/healping/internal/logger"
	"github.com/dtroode/healping/internal/model"
)

// StateWatcher streams synchronizer states.
type StateWatcher interface {
	Watch(ctx context.Context) <-chan model.State
}

const (
	liveWriteTimeout = 10 * time.Second
	livePingInterval = 30 * time.Second
	livePongTimeout  = 2 * livePingInterval
	defaultLiveGuard = "dashboard"
)

// liveMessage carries a state and, when the guard outcome changed, the decision to apply.
type liveMessage struct {
	State    stateView       `json:"state"`
	Decision *guard.Decision `json:"decision,omitempty"`
}

// Live pushes state changes over a websocket. The guard query parameter names the
// policy the client renders under; navigation is sent once per outcome change.
type Live struct {
	states   StateWatcher
	policies map[string]*guard.Policy
	upgrader websocket.Upgrader
	logger   *logger.Logger
}

func NewLive(states StateWatcher, policies map[string]*guard.Policy, logger *logger.Logger) *Live {
	return &Live{
		states:   states,
		policies: policies,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		logger: logger,
	}
}

func (h *Live) Serve(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("guard")
	if name == "" {
		name = defaultLiveGuard
	}
	policy, ok := h.policies[name]
	if !ok {
		handleError(w, &ValidationError{Field: "guard", Message: "unknown guard"})
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Debug("Live handler: upgrade failed",
			"error", err.Error())
		return
	}
	defer conn.Close()

	id := uuid.NewString()
	h.logger.Info("Live handler: connection opened",
		"connection_id", id,
		"guard", name)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	go h.readLoop(ctx, cancel, conn)

	gate := guard.NewGate(policy)
	states := h.states.Watch(ctx)
	ticker := time.NewTicker(livePingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			h.logger.Debug("Live handler: connection closed",
				"connection_id", id)
			return
		case state, ok := <-states:
			if !ok {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"),
					time.Now().Add(liveWriteTimeout))
				return
			}
			msg := liveMessage{State: newStateView(state)}
			if d, changed := gate.Observe(state); changed {
				msg.Decision = &d
			}
			_ = conn.SetWriteDeadline(time.Now().Add(liveWriteTimeout))
			if err := conn.WriteJSON(msg); err != nil {
				h.logger.Debug("Live handler: write failed",
					"connection_id", id,
					"error", err.Error())
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(liveWriteTimeout)); err != nil {
				return
			}
		}
	}
}

// readLoop drains client frames so that control messages are processed, and cancels ctx
// once the client goes away.
func (h *Live) readLoop(ctx context.Context, cancel context.CancelFunc, conn *websocket.Conn) {
	defer cancel()

	_ = conn.SetReadDeadline(time.Now().Add(livePongTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(livePongTimeout))
	})
	for ctx.Err() == nil {
		if _, _, err := conn.NextReader(); err != nil {
			return
		}
	}
}
