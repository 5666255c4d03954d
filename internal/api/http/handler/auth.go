package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/dtroode/healping/internal/guard"
	"github.com/dtroode/healping/internal/logger"
	"github.com/dtroode/healping/internal/model"
)

// StateService is the synchronizer surface used by HTTP handlers.
type StateService interface {
	Snapshot() model.State
	SignOut(ctx context.Context) error
	RefreshProfile(ctx context.Context)
}

// SessionSigner stores and rotates credentials issued by the hosted auth provider.
type SessionSigner interface {
	SignIn(ctx context.Context, pair model.TokenPair) (*model.Session, error)
	RefreshNow(ctx context.Context) error
}

type callbackRequest struct {
	AccessToken  string `json:"access_token" validate:"required"`
	RefreshToken string `json:"refresh_token" validate:"required"`
	ExpiresAt    int64  `json:"expires_at" validate:"gte=0"`
}

type loginView struct {
	AuthURL     string `json:"auth_url"`
	CallbackURL string `json:"callback_url"`
}

// Auth serves sign-in, sign-out and session state endpoints.
type Auth struct {
	states    StateService
	signer    SessionSigner
	validator *Validator
	paths     guard.Paths
	authURL   string
	logger    *logger.Logger
}

func NewAuth(states StateService, signer SessionSigner, validator *Validator, paths guard.Paths, authURL string, logger *logger.Logger) *Auth {
	return &Auth{
		states:    states,
		signer:    signer,
		validator: validator,
		paths:     paths,
		authURL:   authURL,
		logger:    logger,
	}
}

// Login describes where to authenticate. Signed-in users are sent to their home.
func (h *Auth) Login(w http.ResponseWriter, r *http.Request) {
	state, _ := guard.StateFromContext(r.Context())
	if state.Session != nil {
		http.Redirect(w, r, h.home(state), http.StatusSeeOther)
		return
	}

	writeJSON(w, http.StatusOK, loginView{
		AuthURL:     h.authURL,
		CallbackURL: h.paths.Login + "/callback",
	})
}

// Callback accepts the token pair issued by the hosted provider as a POST form or JSON body.
// Tokens in the URL are ignored.
func (h *Auth) Callback(w http.ResponseWriter, r *http.Request) {
	var req callbackRequest
	if isJSON(r) {
		if err := decodeJSON(w, r, h.validator, &req); err != nil {
			h.logger.Debug("Auth handler: invalid callback payload",
				"error", err.Error())
			handleError(w, err)
			return
		}
	} else {
		req = callbackRequest{
			AccessToken:  r.PostFormValue("access_token"),
			RefreshToken: r.PostFormValue("refresh_token"),
		}
		if err := h.validator.Validate(&req); err != nil {
			handleError(w, err)
			return
		}
	}

	pair := model.TokenPair{
		AccessToken:  req.AccessToken,
		RefreshToken: req.RefreshToken,
	}
	if req.ExpiresAt > 0 {
		pair.ExpiresAt = time.Unix(req.ExpiresAt, 0)
	}

	session, err := h.signer.SignIn(r.Context(), pair)
	if err != nil {
		h.logger.Error("Auth handler: sign in failed",
			"error", err.Error())
		handleError(w, err)
		return
	}

	h.logger.Info("Auth handler: signed in",
		"user_id", session.UserID)
	http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
}

// State returns the current synchronizer state.
func (h *Auth) State(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, newStateView(h.states.Snapshot()))
}

// SignOut ends the session. Local state is cleared even when the provider call fails.
func (h *Auth) SignOut(w http.ResponseWriter, r *http.Request) {
	if err := h.states.SignOut(r.Context()); err != nil {
		h.logger.Error("Auth handler: sign out failed",
			"error", err.Error())
		writeJSON(w, http.StatusBadGateway, errorResponse{Error: "signed out locally, provider sign out failed"})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RefreshSession rotates the session tokens now and returns the resulting state.
// A rejected refresh token signs the caller out.
func (h *Auth) RefreshSession(w http.ResponseWriter, r *http.Request) {
	err := h.signer.RefreshNow(r.Context())
	switch {
	case err == nil:
	case errors.Is(err, model.ErrNoSession), errors.Is(err, model.ErrRefreshRejected):
		h.logger.Info("Auth handler: session refresh refused",
			"error", err.Error())
		handleError(w, err)
		return
	default:
		h.logger.Error("Auth handler: session refresh failed",
			"error", err.Error())
		writeJSON(w, http.StatusBadGateway, errorResponse{Error: "session refresh failed"})
		return
	}
	writeJSON(w, http.StatusOK, newStateView(h.states.Snapshot()))
}

// RefreshProfile re-reads the profile and returns the resulting state.
func (h *Auth) RefreshProfile(w http.ResponseWriter, r *http.Request) {
	if h.states.Snapshot().Session == nil {
		handleError(w, model.ErrNoSession)
		return
	}
	h.states.RefreshProfile(r.Context())
	writeJSON(w, http.StatusOK, newStateView(h.states.Snapshot()))
}

// Root dispatches to the page matching the caller: login, onboarding or the role home.
func (h *Auth) Root(w http.ResponseWriter, r *http.Request) {
	state, _ := guard.StateFromContext(r.Context())
	http.Redirect(w, r, h.home(state), http.StatusSeeOther)
}

// Dashboard sends an authenticated caller to the home of its role.
func (h *Auth) Dashboard(w http.ResponseWriter, r *http.Request) {
	h.Root(w, r)
}

func (h *Auth) home(state model.State) string {
	switch {
	case state.Session == nil:
		return h.paths.Login
	case state.Profile == nil:
		return h.paths.Onboarding
	default:
		return h.paths.Home(state.Role())
	}
}
