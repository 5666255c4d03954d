// Package session implements the session source backed by the hosted auth provider.
package session

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/dtroode/healping/internal/logger"
	"github.com/dtroode/healping/internal/metrics"
	"github.com/dtroode/healping/internal/model"
)

// Provider is the remote part of the auth provider used by Source.
type Provider interface {
	Refresh(ctx context.Context, refreshToken string) (model.TokenPair, error)
	Logout(ctx context.Context, accessToken string) error
}

// Source issues the local session and notifies listeners about its changes.
//
// Handlers run synchronously on the goroutine that caused the change and must not
// call back into the Source.
type Source struct {
	provider Provider
	store    Store
	tokens   model.TokenManager
	margin   time.Duration
	logger   *logger.Logger
	metrics  *metrics.Metrics
	now      func() time.Time

	// op serializes operations that change the stored session, so events are emitted in order.
	op sync.Mutex

	mu       sync.Mutex
	handlers map[uint64]model.SessionHandler
	nextID   uint64
}

var _ model.SessionSource = (*Source)(nil)

// NewSource creates a Source. Sessions expiring within margin are refreshed before use.
func NewSource(
	provider Provider,
	store Store,
	tokens model.TokenManager,
	margin time.Duration,
	logger *logger.Logger,
	m *metrics.Metrics,
) *Source {
	return &Source{
		provider: provider,
		store:    store,
		tokens:   tokens,
		margin:   margin,
		logger:   logger,
		metrics:  m,
		now:      time.Now,
		handlers: make(map[uint64]model.SessionHandler),
	}
}

type subscription struct {
	once   sync.Once
	source *Source
	id     uint64
}

func (s *subscription) Unsubscribe() {
	s.once.Do(func() {
		s.source.mu.Lock()
		defer s.source.mu.Unlock()
		delete(s.source.handlers, s.id)
	})
}

// OnSessionChange registers handler. Handlers are called in registration order.
func (s *Source) OnSessionChange(handler model.SessionHandler) model.Subscription {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++
	s.handlers[id] = handler

	return &subscription{source: s, id: id}
}

// GetCurrentSession returns the stored session, refreshing it first when it is about to expire.
// It returns nil without error when there is no usable session. No event is emitted.
func (s *Source) GetCurrentSession(ctx context.Context) (*model.Session, error) {
	s.op.Lock()
	defer s.op.Unlock()

	pair, err := s.store.Load(ctx)
	if errors.Is(err, model.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	session, err := s.sessionFromPair(pair)
	if err != nil {
		s.logger.Warn("Session source: dropping unreadable session",
			"error", err.Error())
		s.forget(ctx)
		return nil, nil
	}

	if !session.Expired(s.now(), s.margin) {
		return session, nil
	}

	refreshed, err := s.refreshLocked(ctx, pair)
	switch {
	case errors.Is(err, model.ErrRefreshRejected):
		s.logger.Info("Session source: stored session was rejected",
			"user_id", session.UserID)
		s.forget(ctx)
		return nil, nil
	case err != nil && !session.Expired(s.now(), 0):
		// still valid for a while, try again on the next refresh
		s.logger.Warn("Session source: failed to refresh session early",
			"user_id", session.UserID,
			"error", err.Error())
		return session, nil
	case err != nil:
		return nil, err
	}

	return refreshed, nil
}

// SignIn stores pair as the local session and emits EventSignedIn.
func (s *Source) SignIn(ctx context.Context, pair model.TokenPair) (*model.Session, error) {
	s.op.Lock()
	defer s.op.Unlock()

	session, err := s.sessionFromPair(pair)
	if err != nil {
		return nil, fmt.Errorf("failed to read access token: %w", err)
	}
	if err := s.store.Save(ctx, pair); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}

	s.logger.Info("Session source: signed in",
		"user_id", session.UserID)
	s.emit(model.EventSignedIn, session)

	return session, nil
}

// SignOut revokes the session at the provider, then always drops the local session and
// emits EventSignedOut. The provider error, if any, is returned.
func (s *Source) SignOut(ctx context.Context) error {
	s.op.Lock()
	defer s.op.Unlock()

	var remoteErr error
	pair, err := s.store.Load(ctx)
	switch {
	case err == nil:
		remoteErr = s.provider.Logout(ctx, pair.AccessToken)
		s.observe("logout", remoteErr)
	case !errors.Is(err, model.ErrNotFound):
		remoteErr = fmt.Errorf("failed to load session: %w", err)
	}

	s.forget(ctx)
	s.emit(model.EventSignedOut, nil)

	if remoteErr != nil {
		return fmt.Errorf("failed to sign out: %w", remoteErr)
	}
	return nil
}

// RefreshNow rotates the stored session and emits EventTokenRefreshed.
// When the provider rejects the refresh token the session is dropped and EventSignedOut is emitted.
func (s *Source) RefreshNow(ctx context.Context) error {
	s.op.Lock()
	defer s.op.Unlock()

	pair, err := s.store.Load(ctx)
	if errors.Is(err, model.ErrNotFound) {
		return model.ErrNoSession
	}
	if err != nil {
		return fmt.Errorf("failed to load session: %w", err)
	}

	return s.rotateLocked(ctx, pair)
}

// RefreshIfDue rotates the stored session when it expires within the margin.
// It reports whether a refresh was attempted.
func (s *Source) RefreshIfDue(ctx context.Context) (bool, error) {
	s.op.Lock()
	defer s.op.Unlock()

	pair, err := s.store.Load(ctx)
	if errors.Is(err, model.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to load session: %w", err)
	}

	session, err := s.sessionFromPair(pair)
	if err != nil {
		s.forget(ctx)
		s.emit(model.EventSignedOut, nil)
		return false, fmt.Errorf("failed to read access token: %w", err)
	}
	if !session.Expired(s.now(), s.margin) {
		return false, nil
	}

	return true, s.rotateLocked(ctx, pair)
}

func (s *Source) rotateLocked(ctx context.Context, pair model.TokenPair) error {
	session, err := s.refreshLocked(ctx, pair)
	if errors.Is(err, model.ErrRefreshRejected) {
		s.logger.Info("Session source: refresh rejected, signing out")
		s.forget(ctx)
		s.emit(model.EventSignedOut, nil)
		return err
	}
	if err != nil {
		return err
	}

	s.emit(model.EventTokenRefreshed, session)
	return nil
}

func (s *Source) refreshLocked(ctx context.Context, pair model.TokenPair) (*model.Session, error) {
	next, err := s.provider.Refresh(ctx, pair.RefreshToken)
	s.observe("refresh", err)
	if err != nil {
		return nil, fmt.Errorf("failed to refresh session: %w", err)
	}

	session, err := s.sessionFromPair(next)
	if err != nil {
		return nil, fmt.Errorf("failed to read refreshed access token: %w", err)
	}
	if err := s.store.Save(ctx, next); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}

	s.logger.Debug("Session source: session refreshed",
		"user_id", session.UserID,
		"expires_at", session.ExpiresAt.Format(time.RFC3339))

	return session, nil
}

func (s *Source) sessionFromPair(pair model.TokenPair) (*model.Session, error) {
	session, err := s.tokens.ParseAccessToken(pair.AccessToken)
	if err != nil {
		return nil, err
	}
	session.RefreshToken = pair.RefreshToken
	if !pair.ExpiresAt.IsZero() {
		session.ExpiresAt = pair.ExpiresAt
	}
	return &session, nil
}

func (s *Source) forget(ctx context.Context) {
	if err := s.store.Delete(ctx); err != nil {
		s.logger.Error("Session source: failed to delete session",
			"error", err.Error())
	}
}

func (s *Source) emit(event model.SessionEvent, session *model.Session) {
	s.mu.Lock()
	ids := make([]uint64, 0, len(s.handlers))
	for id := range s.handlers {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	handlers := make([]model.SessionHandler, 0, len(ids))
	for _, id := range ids {
		handlers = append(handlers, s.handlers[id])
	}
	s.mu.Unlock()

	for _, h := range handlers {
		var arg *model.Session
		if session != nil {
			c := *session
			arg = &c
		}
		h(event, arg)
	}
}

func (s *Source) observe(kind string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	s.metrics.ObserveRemoteCall("auth_"+kind, result)
}
