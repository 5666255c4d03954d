package model

import (
	"fmt"
	"slices"
)

// Role is the application role stored on a profile.
type Role string

const (
	// RoleDoctor is a practitioner attached to a clinic.
	RoleDoctor Role = "doctor"
	// RolePatient is a patient of a clinic.
	RolePatient Role = "patient"
	// RoleAdmin is a practice administrator.
	RoleAdmin Role = "admin"
)

// Roles lists every known role.
var Roles = []Role{RoleDoctor, RolePatient, RoleAdmin}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return slices.Contains(Roles, r)
}

// ParseRole converts a stored role string into a Role.
func ParseRole(s string) (Role, error) {
	r := Role(s)
	if !r.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidRole, s)
	}
	return r, nil
}

func (r Role) String() string {
	return string(r)
}
