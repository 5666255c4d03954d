package model

import (
	"context"
	"time"
)

// ClinicStore reads and mutates clinic-scoped data in the hosted row store.
type ClinicStore interface {
	DashboardStats(ctx context.Context, clinicID string) (DashboardStats, error)
	ListPatients(ctx context.Context, clinicID string) ([]Patient, error)
	CreatePatient(ctx context.Context, params CreatePatientParams) (string, error)
	ListAppointments(ctx context.Context, clinicID string) ([]Appointment, error)
	ListPatientAppointments(ctx context.Context, profileID string) ([]Appointment, error)
	ScheduleAppointment(ctx context.Context, params ScheduleAppointmentParams) (string, error)
	ListReminders(ctx context.Context, clinicID string) ([]Reminder, error)
	CreateReminders(ctx context.Context, appointmentID string, channels []ReminderChannel) ([]string, error)
}

// DashboardStats aggregates clinic counters shown on the doctor dashboard.
type DashboardStats struct {
	TotalPatients     int `json:"total_patients"`
	TodayAppointments int `json:"today_appointments"`
	PendingReminders  int `json:"pending_reminders"`
	UpcomingFollowups int `json:"upcoming_followups"`
	OverdueFollowups  int `json:"overdue_followups"`
}

// Patient is a clinic patient record.
type Patient struct {
	ID          string     `json:"id"`
	ClinicID    string     `json:"clinic_id"`
	ProfileID   *string    `json:"profile_id,omitempty"`
	FullName    string     `json:"full_name"`
	Phone       string     `json:"phone"`
	Email       *string    `json:"email,omitempty"`
	DateOfBirth *time.Time `json:"date_of_birth,omitempty"`
	Gender      *string    `json:"gender,omitempty"`
	Address     *string    `json:"address,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// CreatePatientParams holds the input of the create_patient procedure.
type CreatePatientParams struct {
	ClinicID    string     `json:"clinic_id"`
	FullName    string     `json:"full_name"`
	Phone       string     `json:"phone"`
	Email       *string    `json:"email,omitempty"`
	DateOfBirth *time.Time `json:"date_of_birth,omitempty"`
	Gender      *string    `json:"gender,omitempty"`
	Address     *string    `json:"address,omitempty"`
}

// AppointmentStatus is the lifecycle status of an appointment.
type AppointmentStatus string

const (
	AppointmentScheduled AppointmentStatus = "scheduled"
	AppointmentCompleted AppointmentStatus = "completed"
	AppointmentCancelled AppointmentStatus = "cancelled"
)

// Appointment is a scheduled visit, joined with a short patient summary.
type Appointment struct {
	ID              string            `json:"id"`
	ClinicID        string            `json:"clinic_id"`
	PatientID       string            `json:"patient_id"`
	DoctorID        string            `json:"doctor_id"`
	AppointmentDate time.Time         `json:"appointment_date"`
	DurationMinutes int               `json:"duration_minutes"`
	TreatmentType   *string           `json:"treatment_type,omitempty"`
	Notes           *string           `json:"notes,omitempty"`
	Status          AppointmentStatus `json:"status"`
	PatientName     string            `json:"patient_name"`
	PatientPhone    string            `json:"patient_phone"`
}

// ScheduleAppointmentParams holds the input of the schedule_appointment procedure.
type ScheduleAppointmentParams struct {
	PatientID       string    `json:"patient_id"`
	DoctorID        string    `json:"doctor_id"`
	ClinicID        string    `json:"clinic_id"`
	AppointmentDate time.Time `json:"appointment_date"`
	DurationMinutes int       `json:"duration_minutes,omitempty"`
	TreatmentType   *string   `json:"treatment_type,omitempty"`
	Notes           *string   `json:"notes,omitempty"`
}

// ReminderChannel is the delivery channel of a reminder.
type ReminderChannel string

const (
	ReminderSMS   ReminderChannel = "sms"
	ReminderEmail ReminderChannel = "email"
)

// DefaultReminderChannels are used when a caller does not choose channels.
var DefaultReminderChannels = []ReminderChannel{ReminderSMS, ReminderEmail}

// Reminder is a follow-up notification attached to an appointment.
type Reminder struct {
	ID              string          `json:"id"`
	AppointmentID   string          `json:"appointment_id"`
	Channel         ReminderChannel `json:"reminder_type"`
	ScheduledFor    time.Time       `json:"scheduled_for"`
	Status          string          `json:"status"`
	AppointmentDate time.Time       `json:"appointment_date"`
	TreatmentType   *string         `json:"treatment_type,omitempty"`
	PatientName     string          `json:"patient_name"`
	PatientPhone    string          `json:"patient_phone"`
}
