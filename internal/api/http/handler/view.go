package handler

import (
	"time"

	"github.com/dtroode/healping/internal/model"
)

type userView struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	ExpiresAt time.Time `json:"expires_at"`
}

type profileView struct {
	ID        string  `json:"id"`
	Role      string  `json:"role"`
	Email     string  `json:"email"`
	FullName  string  `json:"full_name"`
	Phone     string  `json:"phone,omitempty"`
	AvatarURL string  `json:"avatar_url,omitempty"`
	ClinicID  *string `json:"clinic_id,omitempty"`
}

// stateView is the public rendition of the synchronizer state. Credentials never leave the process.
type stateView struct {
	User        *userView    `json:"user"`
	Profile     *profileView `json:"profile"`
	Loading     bool         `json:"loading"`
	Initialized bool         `json:"initialized"`
	Error       string       `json:"error,omitempty"`
}

func newStateView(s model.State) stateView {
	v := stateView{
		Loading:     s.Loading,
		Initialized: s.Initialized,
		Error:       s.Error,
	}
	if s.Session != nil {
		v.User = &userView{
			ID:        s.Session.UserID,
			Email:     s.Session.Email,
			ExpiresAt: s.Session.ExpiresAt,
		}
	}
	if s.Profile != nil {
		p := newProfileView(*s.Profile)
		v.Profile = &p
	}
	return v
}

func newProfileView(p model.Profile) profileView {
	return profileView{
		ID:        p.ID,
		Role:      p.Role.String(),
		Email:     p.Email,
		FullName:  p.DisplayName(),
		Phone:     p.Phone,
		AvatarURL: p.AvatarURL,
		ClinicID:  p.ClinicID,
	}
}
