// Package guard decides whether a page renders, waits or redirects for a given
// session and profile state.
package guard

import (
	"fmt"
	"slices"

	"github.com/dtroode/healping/internal/model"
)

// Outcome is the result kind of a guard decision.
type Outcome int

const (
	// OutcomeLoading means the state is not settled yet and a placeholder is shown.
	OutcomeLoading Outcome = iota
	// OutcomeRender means the guarded content is shown.
	OutcomeRender
	// OutcomeRedirect means the caller is sent to Decision.Location.
	OutcomeRedirect
)

func (o Outcome) String() string {
	switch o {
	case OutcomeLoading:
		return "loading"
	case OutcomeRender:
		return "render"
	case OutcomeRedirect:
		return "redirect"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// MarshalText encodes the outcome by name.
func (o Outcome) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

// Decision is the result of evaluating a guard against a state.
type Decision struct {
	Outcome  Outcome `json:"outcome"`
	Location string  `json:"location,omitempty"`
}

// Paths holds the navigation targets used by guards.
type Paths struct {
	Login       string
	Onboarding  string
	DoctorHome  string
	PatientHome string
	AdminHome   string
}

// Home returns the landing page of role.
func (p Paths) Home(role model.Role) string {
	switch role {
	case model.RoleDoctor:
		return p.DoctorHome
	case model.RolePatient:
		return p.PatientHome
	case model.RoleAdmin:
		return p.AdminHome
	default:
		return p.Onboarding
	}
}

// Config describes who may see a guarded page.
type Config struct {
	// RequireAuth denies access without a session. Public pages leave it false.
	RequireAuth bool
	// RequiredRole, when set, is the only role that may see the page.
	RequiredRole model.Role
	// AllowedRoles, when non-empty, lists the roles that may see the page.
	AllowedRoles []model.Role
	// RedirectTo overrides the login path for unauthenticated callers.
	RedirectTo string
}

// Validate rejects configurations that no profile could satisfy.
func (c Config) Validate() error {
	if c.RequiredRole != "" && !c.RequiredRole.Valid() {
		return fmt.Errorf("%w: required role: %w", model.ErrGuardMisconfigured, model.ErrInvalidRole)
	}
	for _, r := range c.AllowedRoles {
		if !r.Valid() {
			return fmt.Errorf("%w: allowed role %q: %w", model.ErrGuardMisconfigured, r, model.ErrInvalidRole)
		}
	}
	if c.RequiredRole != "" && len(c.AllowedRoles) > 0 && !slices.Contains(c.AllowedRoles, c.RequiredRole) {
		return fmt.Errorf("%w: required role %q is not among allowed roles", model.ErrGuardMisconfigured, c.RequiredRole)
	}
	return nil
}

// Policy is a validated guard configuration bound to navigation paths.
type Policy struct {
	cfg   Config
	paths Paths
}

// NewPolicy validates cfg and returns a Policy.
func NewPolicy(cfg Config, paths Paths) (*Policy, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.AllowedRoles = slices.Clone(cfg.AllowedRoles)
	return &Policy{cfg: cfg, paths: paths}, nil
}

// MustPolicy is like NewPolicy but panics on an invalid configuration.
func MustPolicy(cfg Config, paths Paths) *Policy {
	p, err := NewPolicy(cfg, paths)
	if err != nil {
		panic(err)
	}
	return p
}

// Decide evaluates the policy against s. Presence checks run before role checks.
func (p *Policy) Decide(s model.State) Decision {
	if !s.Initialized || s.Loading {
		return Decision{Outcome: OutcomeLoading}
	}
	if !p.cfg.RequireAuth {
		return Decision{Outcome: OutcomeRender}
	}
	if s.Session == nil {
		return redirect(p.loginPath())
	}
	if s.Profile == nil {
		return redirect(p.paths.Onboarding)
	}

	role := s.Role()
	if p.cfg.RequiredRole != "" && role != p.cfg.RequiredRole {
		return redirect(p.paths.Home(role))
	}
	if len(p.cfg.AllowedRoles) > 0 && !slices.Contains(p.cfg.AllowedRoles, role) {
		return redirect(p.paths.Home(role))
	}

	return Decision{Outcome: OutcomeRender}
}

func (p *Policy) loginPath() string {
	if p.cfg.RedirectTo != "" {
		return p.cfg.RedirectTo
	}
	return p.paths.Login
}

func redirect(location string) Decision {
	return Decision{Outcome: OutcomeRedirect, Location: location}
}
