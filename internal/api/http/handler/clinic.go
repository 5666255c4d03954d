package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/dtroode/healping/internal/dashboard"
	"github.com/dtroode/healping/internal/fetch"
	"github.com/dtroode/healping/internal/guard"
	"github.com/dtroode/healping/internal/logger"
	"github.com/dtroode/healping/internal/model"
)

// ClinicService reads and mutates data of the caller's clinic.
type ClinicService interface {
	Stats(ctx context.Context, profile *model.Profile) fetch.Result[model.DashboardStats]
	Patients(ctx context.Context, profile *model.Profile) fetch.Result[[]model.Patient]
	CreatePatient(ctx context.Context, profile *model.Profile, params model.CreatePatientParams) (string, error)
	Appointments(ctx context.Context, profile *model.Profile) fetch.Result[[]model.Appointment]
	PatientAppointments(ctx context.Context, profile *model.Profile) fetch.Result[[]model.Appointment]
	ScheduleAppointment(ctx context.Context, profile *model.Profile, params model.ScheduleAppointmentParams) (string, error)
	Reminders(ctx context.Context, profile *model.Profile) fetch.Result[[]model.Reminder]
	CreateReminders(ctx context.Context, appointmentID string, channels []model.ReminderChannel) ([]string, error)
}

// DashboardViewer returns the live dashboard maintained in the background.
type DashboardViewer interface {
	View() dashboard.View
}

const dateLayout = "2006-01-02"

type createPatientRequest struct {
	FullName    string `json:"full_name" validate:"required,max=200"`
	Phone       string `json:"phone" validate:"required,max=32"`
	Email       string `json:"email" validate:"omitempty,email"`
	DateOfBirth string `json:"date_of_birth" validate:"omitempty,datetime=2006-01-02"`
	Gender      string `json:"gender" validate:"omitempty,max=32"`
	Address     string `json:"address" validate:"omitempty,max=500"`
}

type scheduleAppointmentRequest struct {
	PatientID       string `json:"patient_id" validate:"required"`
	AppointmentDate string `json:"appointment_date" validate:"required,datetime=2006-01-02T15:04:05Z07:00"`
	DurationMinutes int    `json:"duration_minutes" validate:"omitempty,min=5,max=480"`
	TreatmentType   string `json:"treatment_type" validate:"omitempty,max=200"`
	Notes           string `json:"notes" validate:"omitempty,max=2000"`
}

type createRemindersRequest struct {
	AppointmentID string   `json:"appointment_id" validate:"required"`
	Channels      []string `json:"channels" validate:"omitempty,dive,oneof=sms email"`
}

type createdResponse struct {
	ID string `json:"id"`
}

type createdManyResponse struct {
	IDs []string `json:"ids"`
}

// Clinic serves the clinic dashboards and their data.
type Clinic struct {
	clinic    ClinicService
	monitor   DashboardViewer
	validator *Validator
	logger    *logger.Logger
}

func NewClinic(clinic ClinicService, monitor DashboardViewer, validator *Validator, logger *logger.Logger) *Clinic {
	return &Clinic{
		clinic:    clinic,
		monitor:   monitor,
		validator: validator,
		logger:    logger,
	}
}

// DoctorDashboard returns the live clinic counters. When the background view does not
// belong to the caller's clinic yet, the counters are read directly.
func (h *Clinic) DoctorDashboard(w http.ResponseWriter, r *http.Request) {
	profile := profileFrom(r)

	view := h.monitor.View()
	if !profile.HasClinic() || view.ClinicID != *profile.ClinicID {
		stats := h.clinic.Stats(r.Context(), profile)
		view = dashboard.View{Stats: stats.Data, Error: stats.Error}
		if profile.HasClinic() {
			view.ClinicID = *profile.ClinicID
		}
	}

	writeJSON(w, http.StatusOK, view)
}

func (h *Clinic) Patients(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.clinic.Patients(r.Context(), profileFrom(r)))
}

func (h *Clinic) CreatePatient(w http.ResponseWriter, r *http.Request) {
	var req createPatientRequest
	if err := decodeJSON(w, r, h.validator, &req); err != nil {
		handleError(w, err)
		return
	}

	params := model.CreatePatientParams{
		FullName: strings.TrimSpace(req.FullName),
		Phone:    strings.TrimSpace(req.Phone),
		Email:    optional(req.Email),
		Gender:   optional(req.Gender),
		Address:  optional(req.Address),
	}
	if req.DateOfBirth != "" {
		dob, err := time.Parse(dateLayout, req.DateOfBirth)
		if err != nil {
			handleError(w, &ValidationError{Field: "date_of_birth", Message: "invalid date"})
			return
		}
		params.DateOfBirth = &dob
	}

	id, err := h.clinic.CreatePatient(r.Context(), profileFrom(r), params)
	if err != nil {
		h.logger.Error("Clinic handler: failed to create patient",
			"error", err.Error())
		handleError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, createdResponse{ID: id})
}

func (h *Clinic) Appointments(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.clinic.Appointments(r.Context(), profileFrom(r)))
}

func (h *Clinic) ScheduleAppointment(w http.ResponseWriter, r *http.Request) {
	var req scheduleAppointmentRequest
	if err := decodeJSON(w, r, h.validator, &req); err != nil {
		handleError(w, err)
		return
	}

	at, err := time.Parse(time.RFC3339, req.AppointmentDate)
	if err != nil {
		handleError(w, &ValidationError{Field: "appointment_date", Message: "invalid timestamp"})
		return
	}

	id, err := h.clinic.ScheduleAppointment(r.Context(), profileFrom(r), model.ScheduleAppointmentParams{
		PatientID:       req.PatientID,
		AppointmentDate: at,
		DurationMinutes: req.DurationMinutes,
		TreatmentType:   optional(req.TreatmentType),
		Notes:           optional(req.Notes),
	})
	if err != nil {
		h.logger.Error("Clinic handler: failed to schedule appointment",
			"patient_id", req.PatientID,
			"error", err.Error())
		handleError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, createdResponse{ID: id})
}

func (h *Clinic) Reminders(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.clinic.Reminders(r.Context(), profileFrom(r)))
}

func (h *Clinic) CreateReminders(w http.ResponseWriter, r *http.Request) {
	var req createRemindersRequest
	if err := decodeJSON(w, r, h.validator, &req); err != nil {
		handleError(w, err)
		return
	}

	var channels []model.ReminderChannel
	for _, c := range req.Channels {
		channels = append(channels, model.ReminderChannel(c))
	}

	ids, err := h.clinic.CreateReminders(r.Context(), req.AppointmentID, channels)
	if err != nil {
		h.logger.Error("Clinic handler: failed to create reminders",
			"appointment_id", req.AppointmentID,
			"error", err.Error())
		handleError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, createdManyResponse{IDs: ids})
}

// PatientAppointments lists the caller's own appointments.
func (h *Clinic) PatientAppointments(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.clinic.PatientAppointments(r.Context(), profileFrom(r)))
}

type adminDashboardView struct {
	Profile profileView                        `json:"profile"`
	Stats   fetch.Result[model.DashboardStats] `json:"stats"`
}

func (h *Clinic) AdminDashboard(w http.ResponseWriter, r *http.Request) {
	profile := profileFrom(r)
	writeJSON(w, http.StatusOK, adminDashboardView{
		Profile: newProfileView(*profile),
		Stats:   h.clinic.Stats(r.Context(), profile),
	})
}

// profileFrom returns the profile the guard rendered the request for.
func profileFrom(r *http.Request) *model.Profile {
	state, _ := guard.StateFromContext(r.Context())
	if state.Profile == nil {
		return &model.Profile{}
	}
	return state.Profile
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
