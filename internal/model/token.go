package model

import "time"

// TokenPair is the credential material issued by the hosted auth provider.
type TokenPair struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// TokenManager reads the identity carried by access tokens.
type TokenManager interface {
	// ParseAccessToken returns the session described by token. Expiry is not checked.
	ParseAccessToken(token string) (Session, error)
}
