package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dtroode/healping/internal/logger"
	"github.com/dtroode/healping/internal/model"
)

// ProfileRefresher exposes the synchronizer operations used during onboarding.
type ProfileRefresher interface {
	Snapshot() model.State
	RefreshProfile(ctx context.Context)
}

// OnboardingParams is the role selection submitted by a new user.
type OnboardingParams struct {
	Role     model.Role
	FullName string
	Phone    string
}

// Onboarding creates the profile of a signed-in user that has none yet.
type Onboarding struct {
	profiles model.ProfileWriter
	states   ProfileRefresher
	logger   *logger.Logger
}

func NewOnboarding(profiles model.ProfileWriter, states ProfileRefresher, logger *logger.Logger) *Onboarding {
	return &Onboarding{
		profiles: profiles,
		states:   states,
		logger:   logger,
	}
}

// Complete creates the profile for the current session and waits until the
// synchronizer has observed it. Only doctors and patients may onboard themselves.
func (s *Onboarding) Complete(ctx context.Context, params OnboardingParams) (model.Profile, error) {
	if params.Role != model.RoleDoctor && params.Role != model.RolePatient {
		return model.Profile{}, fmt.Errorf("%w: %q", model.ErrInvalidRole, params.Role)
	}

	state := s.states.Snapshot()
	if state.Session == nil {
		return model.Profile{}, model.ErrNoSession
	}
	if state.Profile != nil {
		return model.Profile{}, model.ErrProfileExists
	}
	session := state.Session

	fullName := strings.TrimSpace(params.FullName)
	if fullName == "" {
		fullName = session.FullName
	}
	first, last, _ := strings.Cut(fullName, " ")

	profile, err := s.profiles.CreateProfile(ctx, model.Profile{
		ID:        session.UserID,
		Role:      params.Role,
		Email:     session.Email,
		FullName:  fullName,
		FirstName: first,
		LastName:  strings.TrimSpace(last),
		Phone:     strings.TrimSpace(params.Phone),
		AvatarURL: session.AvatarURL,
	})
	if err != nil {
		if errors.Is(err, model.ErrProfileExists) {
			s.states.RefreshProfile(ctx)
			return model.Profile{}, err
		}
		return model.Profile{}, fmt.Errorf("failed to create profile: %w", err)
	}

	s.logger.Info("Onboarding service: profile created",
		"user_id", profile.ID,
		"role", profile.Role.String())

	s.states.RefreshProfile(ctx)

	return profile, nil
}
