// Package dashboard serves clinic data to practitioners and patients.
package dashboard

import (
	"context"

	"github.com/dtroode/healping/internal/fetch"
	"github.com/dtroode/healping/internal/model"
)

// Messages shown in place of dashboard data.
const (
	MsgNoClinic   = "No clinic associated with your account. Please contact support."
	MsgLoadFailed = "Failed to load dashboard data"
)

// Service reads and mutates clinic data scoped to the signed-in profile.
type Service struct {
	clinics model.ClinicStore
	runner  *fetch.Runner
}

// NewService creates a Service.
func NewService(clinics model.ClinicStore, runner *fetch.Runner) *Service {
	return &Service{
		clinics: clinics,
		runner:  runner,
	}
}

// Stats returns the counters of the profile's clinic.
func (s *Service) Stats(ctx context.Context, profile *model.Profile) fetch.Result[model.DashboardStats] {
	if !profile.HasClinic() {
		return fetch.Result[model.DashboardStats]{Error: MsgNoClinic}
	}
	return fetch.Query(ctx, s.runner, "dashboard_stats", func(ctx context.Context) (model.DashboardStats, error) {
		return s.clinics.DashboardStats(ctx, *profile.ClinicID)
	}, model.DashboardStats{})
}

func (s *Service) Patients(ctx context.Context, profile *model.Profile) fetch.Result[[]model.Patient] {
	if !profile.HasClinic() {
		return fetch.Result[[]model.Patient]{Data: []model.Patient{}, Error: MsgNoClinic}
	}
	return fetch.Query(ctx, s.runner, "patients", func(ctx context.Context) ([]model.Patient, error) {
		return s.clinics.ListPatients(ctx, *profile.ClinicID)
	}, []model.Patient{})
}

// CreatePatient registers a patient in the profile's clinic.
func (s *Service) CreatePatient(ctx context.Context, profile *model.Profile, params model.CreatePatientParams) (string, error) {
	if !profile.HasClinic() {
		return "", model.ErrNoClinic
	}
	params.ClinicID = *profile.ClinicID
	return fetch.Mutate(ctx, s.runner, "create_patient", func(ctx context.Context) (string, error) {
		return s.clinics.CreatePatient(ctx, params)
	})
}

func (s *Service) Appointments(ctx context.Context, profile *model.Profile) fetch.Result[[]model.Appointment] {
	if !profile.HasClinic() {
		return fetch.Result[[]model.Appointment]{Data: []model.Appointment{}, Error: MsgNoClinic}
	}
	return fetch.Query(ctx, s.runner, "appointments", func(ctx context.Context) ([]model.Appointment, error) {
		return s.clinics.ListAppointments(ctx, *profile.ClinicID)
	}, []model.Appointment{})
}

// PatientAppointments returns the appointments of the patient linked to profile.
func (s *Service) PatientAppointments(ctx context.Context, profile *model.Profile) fetch.Result[[]model.Appointment] {
	return fetch.Query(ctx, s.runner, "patient_appointments", func(ctx context.Context) ([]model.Appointment, error) {
		return s.clinics.ListPatientAppointments(ctx, profile.ID)
	}, []model.Appointment{})
}

// ScheduleAppointment books a visit with the profile as the doctor.
func (s *Service) ScheduleAppointment(ctx context.Context, profile *model.Profile, params model.ScheduleAppointmentParams) (string, error) {
	if !profile.HasClinic() {
		return "", model.ErrNoClinic
	}
	params.DoctorID = profile.ID
	params.ClinicID = *profile.ClinicID
	return fetch.Mutate(ctx, s.runner, "schedule_appointment", func(ctx context.Context) (string, error) {
		return s.clinics.ScheduleAppointment(ctx, params)
	})
}

func (s *Service) Reminders(ctx context.Context, profile *model.Profile) fetch.Result[[]model.Reminder] {
	if !profile.HasClinic() {
		return fetch.Result[[]model.Reminder]{Data: []model.Reminder{}, Error: MsgNoClinic}
	}
	return fetch.Query(ctx, s.runner, "reminders", func(ctx context.Context) ([]model.Reminder, error) {
		return s.clinics.ListReminders(ctx, *profile.ClinicID)
	}, []model.Reminder{})
}

// CreateReminders schedules reminders for an appointment. No channels means the default ones.
func (s *Service) CreateReminders(ctx context.Context, appointmentID string, channels []model.ReminderChannel) ([]string, error) {
	return fetch.Mutate(ctx, s.runner, "create_reminders", func(ctx context.Context) ([]string, error) {
		return s.clinics.CreateReminders(ctx, appointmentID, channels)
	})
}
