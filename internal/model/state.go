package model

// State is the snapshot published by the session synchronizer.
//
// Session == nil implies Profile == nil. Initialized never reverts to false.
type State struct {
	Session     *Session
	Profile     *Profile
	Loading     bool
	Initialized bool
	Error       string
}

// Authenticated reports whether a session is present.
func (s State) Authenticated() bool {
	return s.Session != nil
}

// Role returns the profile role, or an empty Role when no profile is loaded.
func (s State) Role() Role {
	if s.Profile == nil {
		return ""
	}
	return s.Profile.Role
}
