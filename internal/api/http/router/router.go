package router

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dtroode/healping/internal/api/http/handler"
	"github.com/dtroode/healping/internal/api/http/middleware"
	"github.com/dtroode/healping/internal/guard"
	"github.com/dtroode/healping/internal/logger"
	"github.com/dtroode/healping/internal/metrics"
	"github.com/dtroode/healping/internal/model"
)

// States is the synchronizer surface the HTTP layer depends on.
type States interface {
	Snapshot() model.State
	Watch(ctx context.Context) <-chan model.State
	SignOut(ctx context.Context) error
	RefreshProfile(ctx context.Context)
}

// Deps collects the collaborators of the HTTP surface.
type Deps struct {
	States     States
	Signer     handler.SessionSigner
	Onboarding handler.OnboardingService
	Clinic     handler.ClinicService
	Records    handler.RecordService
	Dashboard  handler.DashboardViewer
	DB         handler.Pinger
	Gatherer   prometheus.Gatherer
	Metrics    *metrics.Metrics
	Paths      guard.Paths
	AuthURL    string
	Logger     *logger.Logger
}

// Policies returns the guard policy of every route group, keyed by group name.
func Policies(paths guard.Paths) map[string]*guard.Policy {
	return map[string]*guard.Policy{
		"public":    guard.MustPolicy(guard.Config{}, paths),
		"dashboard": guard.MustPolicy(guard.Config{RequireAuth: true}, paths),
		"doctor":    guard.MustPolicy(guard.Config{RequireAuth: true, RequiredRole: model.RoleDoctor}, paths),
		"patient":   guard.MustPolicy(guard.Config{RequireAuth: true, RequiredRole: model.RolePatient}, paths),
		"admin":     guard.MustPolicy(guard.Config{RequireAuth: true, AllowedRoles: []model.Role{model.RoleAdmin}}, paths),
	}
}

// Router builds the HTTP routes.
type Router struct {
	deps     Deps
	policies map[string]*guard.Policy
}

func New(deps Deps) *Router {
	return &Router{
		deps:     deps,
		policies: Policies(deps.Paths),
	}
}

// Register returns the handler serving every route.
func (rt *Router) Register() http.Handler {
	d := rt.deps
	validator := handler.NewValidator()

	authHandler := handler.NewAuth(d.States, d.Signer, validator, d.Paths, d.AuthURL, d.Logger)
	onboardingHandler := handler.NewOnboarding(d.Onboarding, validator, d.Paths, d.Logger)
	clinicHandler := handler.NewClinic(d.Clinic, d.Dashboard, validator, d.Logger)
	recordHandler := handler.NewRecord(d.Records, d.Clinic, validator, d.Logger)
	liveHandler := handler.NewLive(d.States, rt.policies, d.Logger)
	healthHandler := handler.NewHealth(d.States, d.DB)

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(middleware.NewLogging(d.Logger).HandleHTTP)

	r.Get("/healthz", healthHandler.Check)
	r.Handle("/metrics", promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{}))

	r.Route("/api/auth", func(r chi.Router) {
		r.Get("/state", authHandler.State)
		r.Post("/signout", authHandler.SignOut)
		r.Post("/refresh", authHandler.RefreshSession)
		r.Post("/profile/refresh", authHandler.RefreshProfile)
		r.Get("/ws", liveHandler.Serve)
	})

	r.Post(d.Paths.Login+"/callback", authHandler.Callback)

	r.Group(func(r chi.Router) {
		r.Use(rt.guard("public"))
		r.Get("/", authHandler.Root)
		r.Get(d.Paths.Login, authHandler.Login)
		r.Get(d.Paths.Onboarding, onboardingHandler.Form)
		r.Post(d.Paths.Onboarding, onboardingHandler.Submit)
	})

	r.With(rt.guard("dashboard")).Get("/dashboard", authHandler.Dashboard)

	r.Route("/doctor", func(r chi.Router) {
		r.Use(rt.guard("doctor"))
		r.Get("/dashboard", clinicHandler.DoctorDashboard)
		r.Get("/patients", clinicHandler.Patients)
		r.Post("/patients", clinicHandler.CreatePatient)
		r.Get("/appointments", clinicHandler.Appointments)
		r.Post("/appointments", clinicHandler.ScheduleAppointment)
		r.Get("/reminders", clinicHandler.Reminders)
		r.Post("/reminders", clinicHandler.CreateReminders)
		r.Post("/records", recordHandler.Create)
		r.Post("/records/{recordID}/document", recordHandler.Upload)
		r.Get("/records/{recordID}/document", recordHandler.Download)
	})

	r.Route("/patient", func(r chi.Router) {
		r.Use(rt.guard("patient"))
		r.Get("/dashboard", recordHandler.PatientDashboard)
		r.Get("/appointments", clinicHandler.PatientAppointments)
		r.Get("/records", recordHandler.List)
		r.Get("/records/{recordID}/document", recordHandler.Download)
	})

	r.Route("/admin", func(r chi.Router) {
		r.Use(rt.guard("admin"))
		r.Get("/dashboard", clinicHandler.AdminDashboard)
	})

	return r
}

func (rt *Router) guard(name string) func(http.Handler) http.Handler {
	return guard.Middleware(rt.policies[name], rt.deps.States, rt.deps.Metrics, rt.deps.Logger)
}
