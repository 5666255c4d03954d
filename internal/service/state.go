package service

import "github.com/dtroode/healping/internal/model"

type actionKind int

const (
	actionSessionFailed actionKind = iota
	actionSignedIn
	actionTokenRefreshed
	actionSignedOut
	actionProfileFetchStarted
	actionProfileResolved
	actionProfileFailed
	actionSignOutStarted
	actionSignOutFailed
	actionInitialized
)

// action is the only way synchronizer state changes.
type action struct {
	kind    actionKind
	session *model.Session
	profile *model.Profile
	message string
	loading bool
}

// initialState is the state before the first session resolution.
func initialState() model.State {
	return model.State{Loading: true}
}

// reduce returns the state that results from applying a to s.
func reduce(s model.State, a action) model.State {
	switch a.kind {
	case actionSessionFailed:
		s.Session = nil
		s.Profile = nil
		s.Loading = false
		s.Error = a.message
	case actionSignedIn:
		if s.Session == nil || s.Session.UserID != a.session.UserID {
			s.Profile = nil
		}
		s.Session = copySession(a.session)
	case actionTokenRefreshed:
		if s.Session != nil {
			next := *s.Session
			next.AccessToken = a.session.AccessToken
			next.RefreshToken = a.session.RefreshToken
			next.ExpiresAt = a.session.ExpiresAt
			s.Session = &next
		}
	case actionSignedOut:
		s.Session = nil
		s.Profile = nil
		s.Error = ""
		s.Loading = false
	case actionProfileFetchStarted:
		s.Loading = true
		s.Error = ""
	case actionProfileResolved:
		s.Profile = copyProfile(a.profile)
		s.Loading = false
	case actionProfileFailed:
		s.Profile = nil
		s.Loading = false
		s.Error = a.message
	case actionSignOutStarted:
		s.Loading = true
	case actionSignOutFailed:
		s.Error = a.message
	case actionInitialized:
		s.Initialized = true
		s.Loading = a.loading
	}

	if s.Session == nil {
		s.Profile = nil
	}

	return s
}

func copySession(s *model.Session) *model.Session {
	if s == nil {
		return nil
	}
	c := *s
	return &c
}

func copyProfile(p *model.Profile) *model.Profile {
	if p == nil {
		return nil
	}
	c := *p
	if p.ClinicID != nil {
		id := *p.ClinicID
		c.ClinicID = &id
	}
	if p.Preferences != nil {
		c.Preferences = append([]byte(nil), p.Preferences...)
	}
	return &c
}
