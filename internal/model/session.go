package model

import (
	"context"
	"time"
)

// SessionEvent is the kind of change emitted by a SessionSource.
type SessionEvent string

const (
	// EventSignedIn is emitted when a new session is established.
	EventSignedIn SessionEvent = "SIGNED_IN"
	// EventSignedOut is emitted when the session is destroyed.
	EventSignedOut SessionEvent = "SIGNED_OUT"
	// EventTokenRefreshed is emitted when credentials rotate for the same identity.
	EventTokenRefreshed SessionEvent = "TOKEN_REFRESHED"
)

// Session is an authenticated identity issued by the hosted auth provider.
type Session struct {
	UserID       string
	Email        string
	FullName     string
	AvatarURL    string
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

// Expired reports whether the access token is expired at now, allowing margin of slack.
func (s *Session) Expired(now time.Time, margin time.Duration) bool {
	if s == nil {
		return true
	}
	return !now.Add(margin).Before(s.ExpiresAt)
}

// SessionHandler receives session change events. The session is nil for EventSignedOut.
type SessionHandler func(event SessionEvent, session *Session)

// Subscription is a handle to a registered listener.
type Subscription interface {
	Unsubscribe()
}

// SessionSource issues sessions and notifies about their changes.
type SessionSource interface {
	// GetCurrentSession returns the active session, or nil when signed out.
	GetCurrentSession(ctx context.Context) (*Session, error)
	OnSessionChange(handler SessionHandler) Subscription
	SignOut(ctx context.Context) error
}
