package model

import "errors"

var (
	// ErrNotFound is returned by stores when no row matches the key.
	ErrNotFound = errors.New("not found")
	// ErrNoSession is returned by operations that need an authenticated session.
	ErrNoSession = errors.New("no active session")
	// ErrInvalidRole is returned when a role string is not a known Role.
	ErrInvalidRole = errors.New("invalid role")
	// ErrGuardMisconfigured is returned when a guard configuration can never be satisfied.
	ErrGuardMisconfigured = errors.New("guard misconfigured")
	// ErrProfileExists is returned when onboarding runs for a user that already has a profile.
	ErrProfileExists = errors.New("profile already exists")
	// ErrInvalidArgument is returned for missing or malformed input on mutating calls.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrNoClinic is returned for clinic-scoped operations of a profile without a clinic.
	ErrNoClinic = errors.New("no clinic associated with your account")
	// ErrForbidden is returned when the profile role may not perform an operation.
	ErrForbidden = errors.New("forbidden")
)
