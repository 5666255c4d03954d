package handler

import (
	"context"
	"net/http"

	"github.com/dtroode/healping/internal/guard"
	"github.com/dtroode/healping/internal/logger"
	"github.com/dtroode/healping/internal/model"
	"github.com/dtroode/healping/internal/service"
)

// OnboardingService creates the profile of a new user.
type OnboardingService interface {
	Complete(ctx context.Context, params service.OnboardingParams) (model.Profile, error)
}

type onboardingRequest struct {
	Role     string `json:"role" validate:"required,oneof=doctor patient"`
	FullName string `json:"full_name" validate:"max=200"`
	Phone    string `json:"phone" validate:"omitempty,max=32"`
}

type onboardingView struct {
	Roles    []string `json:"roles"`
	FullName string   `json:"full_name"`
	Email    string   `json:"email"`
}

type onboardingResult struct {
	Profile  profileView `json:"profile"`
	Location string      `json:"location"`
}

// Onboarding serves role selection for signed-in users without a profile.
type Onboarding struct {
	onboarding OnboardingService
	validator  *Validator
	paths      guard.Paths
	logger     *logger.Logger
}

func NewOnboarding(onboarding OnboardingService, validator *Validator, paths guard.Paths, logger *logger.Logger) *Onboarding {
	return &Onboarding{
		onboarding: onboarding,
		validator:  validator,
		paths:      paths,
		logger:     logger,
	}
}

// Form returns the choices of the onboarding form, prefilled from the session.
func (h *Onboarding) Form(w http.ResponseWriter, r *http.Request) {
	state, _ := guard.StateFromContext(r.Context())
	if state.Session == nil {
		http.Redirect(w, r, h.paths.Login, http.StatusSeeOther)
		return
	}
	if state.Profile != nil {
		http.Redirect(w, r, h.paths.Home(state.Profile.Role), http.StatusSeeOther)
		return
	}

	writeJSON(w, http.StatusOK, onboardingView{
		Roles:    []string{model.RoleDoctor.String(), model.RolePatient.String()},
		FullName: state.Session.FullName,
		Email:    state.Session.Email,
	})
}

// Submit creates the profile with the selected role.
func (h *Onboarding) Submit(w http.ResponseWriter, r *http.Request) {
	var req onboardingRequest
	if isJSON(r) {
		if err := decodeJSON(w, r, h.validator, &req); err != nil {
			handleError(w, err)
			return
		}
	} else {
		req = onboardingRequest{
			Role:     r.FormValue("role"),
			FullName: r.FormValue("full_name"),
			Phone:    r.FormValue("phone"),
		}
		if err := h.validator.Validate(&req); err != nil {
			handleError(w, err)
			return
		}
	}

	profile, err := h.onboarding.Complete(r.Context(), service.OnboardingParams{
		Role:     model.Role(req.Role),
		FullName: req.FullName,
		Phone:    req.Phone,
	})
	if err != nil {
		h.logger.Error("Onboarding handler: failed to complete onboarding",
			"role", req.Role,
			"error", err.Error())
		handleError(w, err)
		return
	}

	location := h.paths.Home(profile.Role)
	w.Header().Set("Location", location)
	writeJSON(w, http.StatusCreated, onboardingResult{
		Profile:  newProfileView(profile),
		Location: location,
	})
}
