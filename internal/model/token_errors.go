package model

import "errors"

var (
	// ErrTokenInvalid is returned for access tokens that fail signature or claim checks.
	ErrTokenInvalid = errors.New("access token invalid")
	// ErrRefreshRejected is returned when the auth provider refuses a refresh token.
	ErrRefreshRejected = errors.New("refresh token rejected")
)
