package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dtroode/healping/internal/logger"
	"github.com/dtroode/healping/internal/metrics"
	"github.com/dtroode/healping/internal/model"
)

const defaultProfileFetchTimeout = 8 * time.Second

// profileCall is one in-flight profile fetch. Its result is applied only while it is
// still the synchronizer's current call and its generation is current.
type profileCall struct {
	userID string
	gen    uint64
	done   chan struct{}
}

// Synchronizer keeps the process-wide session and profile state consistent with the
// session source and the profile store.
type Synchronizer struct {
	source       model.SessionSource
	profiles     model.ProfileStore
	logger       *logger.Logger
	metrics      *metrics.Metrics
	fetchTimeout time.Duration

	mu          sync.Mutex
	state       model.State
	started     bool
	closed      bool
	generation  uint64
	eventSeq    uint64
	inflight    *profileCall
	sub         model.Subscription
	watchers    map[uint64]chan model.State
	nextWatcher uint64
	baseCtx     context.Context
	cancel      context.CancelFunc
	done        chan struct{}
}

// NewSynchronizer creates a Synchronizer. It does nothing until Start is called.
func NewSynchronizer(
	source model.SessionSource,
	profiles model.ProfileStore,
	logger *logger.Logger,
	m *metrics.Metrics,
	fetchTimeout time.Duration,
) *Synchronizer {
	if fetchTimeout <= 0 {
		fetchTimeout = defaultProfileFetchTimeout
	}
	baseCtx, cancel := context.WithCancel(context.Background())
	return &Synchronizer{
		source:       source,
		profiles:     profiles,
		logger:       logger,
		metrics:      m,
		fetchTimeout: fetchTimeout,
		state:        initialState(),
		watchers:     make(map[uint64]chan model.State),
		baseCtx:      baseCtx,
		cancel:       cancel,
		done:         make(chan struct{}),
	}
}

// Start subscribes to session changes, resolves the initial session and its profile,
// and returns once the state is initialized. Calling Start again is a no-op.
func (s *Synchronizer) Start(ctx context.Context) {
	s.mu.Lock()
	if s.started || s.closed {
		s.mu.Unlock()
		return
	}
	s.started = true
	s.mu.Unlock()

	sub := s.source.OnSessionChange(s.handleEvent)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		sub.Unsubscribe()
		return
	}
	s.sub = sub
	seq := s.eventSeq
	s.mu.Unlock()

	s.logger.Debug("Synchronizer: resolving initial session")

	session, err := s.source.GetCurrentSession(ctx)
	if err != nil {
		s.logger.Error("Synchronizer: failed to get current session",
			"error", err.Error())

		s.mu.Lock()
		if s.alive() {
			if s.eventSeq == seq {
				s.dispatchLocked(action{kind: actionSessionFailed, message: fmt.Sprintf("failed to get session: %s", err.Error())})
			}
			s.dispatchLocked(action{kind: actionInitialized, loading: s.inflight != nil})
		}
		s.mu.Unlock()
		return
	}

	var call *profileCall
	s.mu.Lock()
	if !s.alive() {
		s.mu.Unlock()
		return
	}
	switch {
	case s.eventSeq != seq:
		// a session event already settled a newer identity
		call = s.inflight
	case session == nil:
		s.generation++
		s.inflight = nil
		s.dispatchLocked(action{kind: actionSignedOut})
	default:
		call = s.beginFetchLocked(session)
	}
	s.mu.Unlock()

	if call != nil {
		select {
		case <-call.done:
		case <-ctx.Done():
		case <-s.done:
		}
	}

	s.mu.Lock()
	if s.alive() {
		s.dispatchLocked(action{kind: actionInitialized, loading: s.inflight != nil})
		s.logger.Info("Synchronizer: initialized",
			"authenticated", s.state.Authenticated())
	}
	s.mu.Unlock()
}

// Close stops handling events and discards every pending result. Calling Close again is a no-op.
func (s *Synchronizer) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.generation++
	s.inflight = nil
	sub := s.sub
	s.sub = nil
	for id, ch := range s.watchers {
		close(ch)
		delete(s.watchers, id)
	}
	close(s.done)
	s.cancel()
	s.mu.Unlock()

	if sub != nil {
		sub.Unsubscribe()
	}
	s.logger.Debug("Synchronizer: closed")
}

// Snapshot returns the current state.
func (s *Synchronizer) Snapshot() model.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Watch returns a channel that receives the current state and then every change.
// Slow receivers only observe the latest state. The channel is closed when ctx is done
// or the synchronizer is closed.
func (s *Synchronizer) Watch(ctx context.Context) <-chan model.State {
	ch := make(chan model.State, 1)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		close(ch)
		return ch
	}
	id := s.nextWatcher
	s.nextWatcher++
	s.watchers[id] = ch
	ch <- s.state
	s.mu.Unlock()

	go func() {
		select {
		case <-ctx.Done():
		case <-s.done:
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		if w, ok := s.watchers[id]; ok {
			close(w)
			delete(s.watchers, id)
		}
	}()

	return ch
}

// SignOut ends the session at the source. Local session and profile are cleared even
// when the source fails; the failure is returned and recorded in the state.
func (s *Synchronizer) SignOut(ctx context.Context) error {
	s.mu.Lock()
	live := s.alive()
	if live {
		s.generation++
		s.inflight = nil
		s.dispatchLocked(action{kind: actionSignOutStarted})
	}
	s.mu.Unlock()

	err := s.source.SignOut(ctx)
	if err != nil {
		s.logger.Error("Synchronizer: failed to sign out",
			"error", err.Error())
	}

	if live {
		s.mu.Lock()
		if s.alive() {
			s.generation++
			s.inflight = nil
			s.dispatchLocked(action{kind: actionSignedOut})
			if err != nil {
				s.dispatchLocked(action{kind: actionSignOutFailed, message: fmt.Sprintf("failed to sign out: %s", err.Error())})
			}
		}
		s.mu.Unlock()
	}

	if err != nil {
		return fmt.Errorf("failed to sign out: %w", err)
	}
	return nil
}

// RefreshProfile fetches the profile of the current session again and waits until the
// fetch settles or ctx is done. A fetch already running for the same identity is joined
// instead of starting another. Without a session it does nothing.
func (s *Synchronizer) RefreshProfile(ctx context.Context) {
	s.mu.Lock()
	if !s.alive() || s.state.Session == nil {
		s.mu.Unlock()
		return
	}
	call := s.inflight
	if call != nil && call.userID == s.state.Session.UserID && call.gen == s.generation {
		s.metrics.ObserveProfileFetch("coalesced")
	} else {
		call = s.newCallLocked(s.state.Session.UserID)
	}
	s.mu.Unlock()

	select {
	case <-call.done:
	case <-ctx.Done():
	case <-s.done:
	}
}

func (s *Synchronizer) handleEvent(event model.SessionEvent, session *model.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.alive() {
		s.metrics.ObserveSessionEvent(string(event), "ignored")
		return
	}
	s.eventSeq++

	switch event {
	case model.EventSignedOut:
		s.signOutLocked(event)
	case model.EventTokenRefreshed:
		if session == nil {
			s.signOutLocked(event)
			return
		}
		if s.state.Session != nil && s.state.Session.UserID == session.UserID {
			s.dispatchLocked(action{kind: actionTokenRefreshed, session: session})
			s.metrics.ObserveSessionEvent(string(event), "credentials")
			s.logger.Debug("Synchronizer: credentials refreshed",
				"user_id", session.UserID)
			return
		}
		s.signInLocked(event, session)
	case model.EventSignedIn:
		if session == nil {
			s.signOutLocked(event)
			return
		}
		s.signInLocked(event, session)
	default:
		s.metrics.ObserveSessionEvent(string(event), "unknown")
		s.logger.Warn("Synchronizer: unknown session event",
			"event", string(event))
	}
}

func (s *Synchronizer) signOutLocked(event model.SessionEvent) {
	s.generation++
	s.inflight = nil
	s.dispatchLocked(action{kind: actionSignedOut})
	s.metrics.ObserveSessionEvent(string(event), "cleared")
	s.logger.Info("Synchronizer: session cleared",
		"event", string(event))
}

func (s *Synchronizer) signInLocked(event model.SessionEvent, session *model.Session) {
	before := s.inflight
	call := s.beginFetchLocked(session)
	outcome := "fetch"
	if call == before {
		outcome = "coalesced"
	}
	s.metrics.ObserveSessionEvent(string(event), outcome)
	s.logger.Info("Synchronizer: session established",
		"event", string(event),
		"user_id", session.UserID)
}

// beginFetchLocked installs session and makes sure a profile fetch for its user is running.
func (s *Synchronizer) beginFetchLocked(session *model.Session) *profileCall {
	if s.state.Session == nil || s.state.Session.UserID != session.UserID {
		s.generation++
		s.inflight = nil
	}
	s.dispatchLocked(action{kind: actionSignedIn, session: session})

	if call := s.inflight; call != nil && call.userID == session.UserID && call.gen == s.generation {
		return call
	}
	return s.newCallLocked(session.UserID)
}

func (s *Synchronizer) newCallLocked(userID string) *profileCall {
	call := &profileCall{
		userID: userID,
		gen:    s.generation,
		done:   make(chan struct{}),
	}
	s.inflight = call
	s.dispatchLocked(action{kind: actionProfileFetchStarted})

	go s.fetchProfile(call)
	return call
}

func (s *Synchronizer) fetchProfile(call *profileCall) {
	defer close(call.done)

	ctx, cancel := context.WithTimeout(s.baseCtx, s.fetchTimeout)
	defer cancel()

	profile, err := s.profiles.GetProfileByID(ctx, call.userID)

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.alive() || s.inflight != call || s.generation != call.gen {
		s.metrics.ObserveProfileFetch("discarded")
		s.logger.Debug("Synchronizer: discarding stale profile result",
			"user_id", call.userID)
		return
	}
	s.inflight = nil

	switch {
	case err == nil:
		s.metrics.ObserveProfileFetch("found")
		s.dispatchLocked(action{kind: actionProfileResolved, profile: &profile})
	case errors.Is(err, model.ErrNotFound):
		s.metrics.ObserveProfileFetch("not_found")
		s.logger.Info("Synchronizer: profile not found",
			"user_id", call.userID)
		s.dispatchLocked(action{kind: actionProfileResolved})
	default:
		s.metrics.ObserveProfileFetch("error")
		s.logger.Error("Synchronizer: failed to get profile",
			"user_id", call.userID,
			"error", err.Error())
		s.dispatchLocked(action{kind: actionProfileFailed, message: fmt.Sprintf("failed to load profile: %s", err.Error())})
	}
}

// dispatchLocked is the single writer of s.state.
func (s *Synchronizer) dispatchLocked(a action) {
	next := reduce(s.state, a)
	if next == s.state {
		return
	}
	s.state = next
	for _, ch := range s.watchers {
		select {
		case <-ch:
		default:
		}
		ch <- next
	}
}

func (s *Synchronizer) alive() bool {
	return s.started && !s.closed
}
