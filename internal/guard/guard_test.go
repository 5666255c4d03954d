package guard

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dtroode/healping/internal/model"
	"github.com/dtroode/healping/internal/testutil"
)

var testPaths = Paths{
	Login:       "/auth",
	Onboarding:  "/onboarding",
	DoctorHome:  "/doctor/dashboard",
	PatientHome: "/patient/dashboard",
	AdminHome:   "/admin/dashboard",
}

func settled(role model.Role) model.State {
	s := model.State{
		Session:     &model.Session{UserID: "u1"},
		Initialized: true,
	}
	if role != "" {
		s.Profile = &model.Profile{ID: "u1", Role: role}
	}
	return s
}

func TestPolicy_Decide(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		cfg   Config
		state model.State
		want  Decision
	}{
		{
			name:  "not initialized shows loading even for public pages",
			cfg:   Config{},
			state: model.State{Loading: true},
			want:  Decision{Outcome: OutcomeLoading},
		},
		{
			name:  "loading after init shows loading",
			cfg:   Config{RequireAuth: true},
			state: model.State{Session: &model.Session{UserID: "u1"}, Loading: true, Initialized: true},
			want:  Decision{Outcome: OutcomeLoading},
		},
		{
			name:  "public page waits while a profile fetch is in flight",
			cfg:   Config{},
			state: model.State{Session: &model.Session{UserID: "u1"}, Loading: true, Initialized: true},
			want:  Decision{Outcome: OutcomeLoading},
		},
		{
			name:  "public page renders without session",
			cfg:   Config{},
			state: model.State{Initialized: true},
			want:  Decision{Outcome: OutcomeRender},
		},
		{
			name:  "no session redirects to login",
			cfg:   Config{RequireAuth: true, RequiredRole: model.RoleDoctor},
			state: model.State{Initialized: true},
			want:  Decision{Outcome: OutcomeRedirect, Location: "/auth"},
		},
		{
			name:  "redirectTo overrides login",
			cfg:   Config{RequireAuth: true, RedirectTo: "/signin?next=/doctor"},
			state: model.State{Initialized: true},
			want:  Decision{Outcome: OutcomeRedirect, Location: "/signin?next=/doctor"},
		},
		{
			name:  "no profile redirects to onboarding before role check",
			cfg:   Config{RequireAuth: true, RequiredRole: model.RoleDoctor},
			state: settled(""),
			want:  Decision{Outcome: OutcomeRedirect, Location: "/onboarding"},
		},
		{
			name:  "no profile with profile error still onboards",
			cfg:   Config{RequireAuth: true},
			state: func() model.State { s := settled(""); s.Error = "failed"; return s }(),
			want:  Decision{Outcome: OutcomeRedirect, Location: "/onboarding"},
		},
		{
			name:  "patient on doctor page goes to patient home",
			cfg:   Config{RequireAuth: true, RequiredRole: model.RoleDoctor},
			state: settled(model.RolePatient),
			want:  Decision{Outcome: OutcomeRedirect, Location: "/patient/dashboard"},
		},
		{
			name:  "doctor on patient page goes to doctor home",
			cfg:   Config{RequireAuth: true, RequiredRole: model.RolePatient},
			state: settled(model.RoleDoctor),
			want:  Decision{Outcome: OutcomeRedirect, Location: "/doctor/dashboard"},
		},
		{
			name:  "role outside allowed roles goes home",
			cfg:   Config{RequireAuth: true, AllowedRoles: []model.Role{model.RoleAdmin}},
			state: settled(model.RoleDoctor),
			want:  Decision{Outcome: OutcomeRedirect, Location: "/doctor/dashboard"},
		},
		{
			name:  "admin on admin page renders",
			cfg:   Config{RequireAuth: true, AllowedRoles: []model.Role{model.RoleAdmin}},
			state: settled(model.RoleAdmin),
			want:  Decision{Outcome: OutcomeRender},
		},
		{
			name:  "required and allowed both hold",
			cfg:   Config{RequireAuth: true, RequiredRole: model.RoleDoctor, AllowedRoles: []model.Role{model.RoleDoctor, model.RoleAdmin}},
			state: settled(model.RoleDoctor),
			want:  Decision{Outcome: OutcomeRender},
		},
		{
			name:  "authenticated without role constraints renders",
			cfg:   Config{RequireAuth: true},
			state: settled(model.RolePatient),
			want:  Decision{Outcome: OutcomeRender},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			p, err := NewPolicy(tt.cfg, testPaths)
			require.NoError(t, err)
			assert.Equal(t, tt.want, p.Decide(tt.state))
		})
	}
}

func TestConfig_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		cfg     Config
		wantErr error
	}{
		{name: "empty", cfg: Config{}},
		{name: "required only", cfg: Config{RequireAuth: true, RequiredRole: model.RoleDoctor}},
		{
			name:    "required not allowed",
			cfg:     Config{RequireAuth: true, RequiredRole: model.RoleDoctor, AllowedRoles: []model.Role{model.RolePatient}},
			wantErr: model.ErrGuardMisconfigured,
		},
		{
			name:    "unknown required role",
			cfg:     Config{RequireAuth: true, RequiredRole: "nurse"},
			wantErr: model.ErrInvalidRole,
		},
		{
			name:    "unknown allowed role",
			cfg:     Config{RequireAuth: true, AllowedRoles: []model.Role{"nurse"}},
			wantErr: model.ErrGuardMisconfigured,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := tt.cfg.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestMustPolicy_Panics(t *testing.T) {
	t.Parallel()

	assert.Panics(t, func() {
		MustPolicy(Config{RequireAuth: true, RequiredRole: model.RoleAdmin, AllowedRoles: []model.Role{model.RoleDoctor}}, testPaths)
	})
}

func TestPaths_Home(t *testing.T) {
	t.Parallel()

	for _, role := range model.Roles {
		assert.NotEmpty(t, testPaths.Home(role), role)
	}
	assert.Equal(t, "/onboarding", testPaths.Home("nurse"))
}

func TestGate_Observe(t *testing.T) {
	t.Parallel()

	g := NewGate(MustPolicy(Config{RequireAuth: true, RequiredRole: model.RoleDoctor}, testPaths))

	d, changed := g.Observe(model.State{Loading: true})
	assert.True(t, changed)
	assert.Equal(t, OutcomeLoading, d.Outcome)

	_, changed = g.Observe(model.State{Loading: true})
	assert.False(t, changed)

	d, changed = g.Observe(settled(model.RolePatient))
	assert.True(t, changed)
	assert.Equal(t, "/patient/dashboard", d.Location)

	// token refresh produces an equal state shape and must not navigate again
	refreshed := settled(model.RolePatient)
	refreshed.Session.AccessToken = "rotated"
	_, changed = g.Observe(refreshed)
	assert.False(t, changed)

	d, changed = g.Observe(model.State{Initialized: true})
	assert.True(t, changed)
	assert.Equal(t, "/auth", d.Location)
}

type staticState model.State

func (s staticState) Snapshot() model.State { return model.State(s) }

func TestMiddleware(t *testing.T) {
	t.Parallel()

	policy := MustPolicy(Config{RequireAuth: true, RequiredRole: model.RoleDoctor}, testPaths)
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		st, ok := StateFromContext(r.Context())
		require.True(t, ok)
		_, _ = w.Write([]byte(st.Profile.ID))
	})

	tests := []struct {
		name           string
		method         string
		state          model.State
		wantStatus     int
		wantLocation   string
		wantBody       string
		wantRetryAfter bool
	}{
		{name: "loading", method: http.MethodGet, state: model.State{Loading: true}, wantStatus: http.StatusOK, wantRetryAfter: true},
		{name: "loading head", method: http.MethodHead, state: model.State{Loading: true}, wantStatus: http.StatusOK, wantRetryAfter: true},
		{
			name:           "loading mutation",
			method:         http.MethodPost,
			state:          model.State{Initialized: true, Loading: true},
			wantStatus:     http.StatusServiceUnavailable,
			wantBody:       `{"error":"session is loading, retry shortly"}` + "\n",
			wantRetryAfter: true,
		},
		{name: "redirect", method: http.MethodGet, state: model.State{Initialized: true}, wantStatus: http.StatusSeeOther, wantLocation: "/auth"},
		{name: "render", method: http.MethodGet, state: settled(model.RoleDoctor), wantStatus: http.StatusOK, wantBody: "u1"},
		{name: "render mutation", method: http.MethodPost, state: settled(model.RoleDoctor), wantStatus: http.StatusOK, wantBody: "u1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			h := Middleware(policy, staticState(tt.state), nil, testutil.MakeNoopLogger())(next)

			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(tt.method, "/doctor/dashboard", nil))

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantLocation, rec.Header().Get("Location"))
			if tt.wantRetryAfter {
				assert.Equal(t, "1", rec.Header().Get("Retry-After"))
			}
			if tt.wantBody != "" {
				assert.Equal(t, tt.wantBody, rec.Body.String())
			}
		})
	}
}
