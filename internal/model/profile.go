package model

import (
	"context"
	"encoding/json"
	"strings"
	"time"
)

// ProfileStore reads application profiles keyed by user id.
type ProfileStore interface {
	// GetProfileByID returns ErrNotFound when the user has no profile yet.
	GetProfileByID(ctx context.Context, id string) (Profile, error)
}

// ProfileWriter creates and updates profiles during onboarding.
type ProfileWriter interface {
	CreateProfile(ctx context.Context, profile Profile) (Profile, error)
}

// Profile is the application-level identity record of a user.
type Profile struct {
	ID          string
	Role        Role
	Email       string
	FullName    string
	FirstName   string
	LastName    string
	Phone       string
	AvatarURL   string
	ClinicID    *string
	Preferences json.RawMessage
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// HasClinic reports whether the profile is attached to a clinic.
func (p *Profile) HasClinic() bool {
	return p != nil && p.ClinicID != nil && *p.ClinicID != ""
}

// DisplayName returns the best available name for the profile.
func (p *Profile) DisplayName() string {
	if p.FullName != "" {
		return p.FullName
	}
	return strings.TrimSpace(p.FirstName + " " + p.LastName)
}
