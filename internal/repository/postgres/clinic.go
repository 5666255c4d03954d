package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/dtroode/healping/internal/model"
)

var _ model.ClinicStore = (*ClinicRepository)(nil)

type ClinicRepository struct {
	db DB
}

func NewClinicRepository(db DB) *ClinicRepository {
	return &ClinicRepository{
		db: db,
	}
}

func (r *ClinicRepository) DashboardStats(ctx context.Context, clinicID string) (model.DashboardStats, error) {
	var raw []byte
	if err := r.db.QueryRow(ctx, `SELECT get_dashboard_stats($1)`, clinicID).Scan(&raw); err != nil {
		return model.DashboardStats{}, fmt.Errorf("failed to get dashboard stats: %w", err)
	}

	var stats model.DashboardStats
	if err := json.Unmarshal(raw, &stats); err != nil {
		return model.DashboardStats{}, fmt.Errorf("failed to unmarshal dashboard stats: %w", err)
	}

	return stats, nil
}

func (r *ClinicRepository) ListPatients(ctx context.Context, clinicID string) ([]model.Patient, error) {
	query := `
		SELECT id, clinic_id, profile_id, full_name, phone, email, date_of_birth, gender, address, created_at
		FROM patients
		WHERE clinic_id = $1
		ORDER BY created_at DESC`

	rows, err := r.db.Query(ctx, query, clinicID)
	if err != nil {
		return nil, fmt.Errorf("failed to list patients: %w", err)
	}
	defer rows.Close()

	patients := []model.Patient{}
	for rows.Next() {
		var p model.Patient
		if err := rows.Scan(
			&p.ID, &p.ClinicID, &p.ProfileID, &p.FullName, &p.Phone,
			&p.Email, &p.DateOfBirth, &p.Gender, &p.Address, &p.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan patient: %w", err)
		}
		patients = append(patients, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate patients: %w", err)
	}

	return patients, nil
}

func (r *ClinicRepository) CreatePatient(ctx context.Context, params model.CreatePatientParams) (string, error) {
	if params.ClinicID == "" || params.FullName == "" || params.Phone == "" {
		return "", fmt.Errorf("%w: clinic, name and phone are required", model.ErrInvalidArgument)
	}

	var id string
	err := r.db.QueryRow(ctx, `SELECT create_patient($1, $2, $3, $4, $5, $6, $7)`,
		params.ClinicID, params.FullName, params.Phone, params.Email,
		params.DateOfBirth, params.Gender, params.Address,
	).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("failed to create patient: %w", err)
	}

	return id, nil
}

const appointmentColumns = `
		a.id, a.clinic_id, a.patient_id, a.doctor_id, a.appointment_date, a.duration_minutes,
		a.treatment_type, a.notes, a.status, p.full_name, p.phone`

func (r *ClinicRepository) ListAppointments(ctx context.Context, clinicID string) ([]model.Appointment, error) {
	query := `SELECT ` + appointmentColumns + `
		FROM appointments a
		JOIN patients p ON p.id = a.patient_id
		WHERE a.clinic_id = $1
		ORDER BY a.appointment_date ASC`

	return r.queryAppointments(ctx, query, clinicID)
}

func (r *ClinicRepository) ListPatientAppointments(ctx context.Context, profileID string) ([]model.Appointment, error) {
	query := `SELECT ` + appointmentColumns + `
		FROM appointments a
		JOIN patients p ON p.id = a.patient_id
		WHERE p.profile_id = $1
		ORDER BY a.appointment_date ASC`

	return r.queryAppointments(ctx, query, profileID)
}

func (r *ClinicRepository) queryAppointments(ctx context.Context, query string, arg string) ([]model.Appointment, error) {
	rows, err := r.db.Query(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("failed to list appointments: %w", err)
	}
	defer rows.Close()

	appointments := []model.Appointment{}
	for rows.Next() {
		var (
			a      model.Appointment
			status string
		)
		if err := rows.Scan(
			&a.ID, &a.ClinicID, &a.PatientID, &a.DoctorID, &a.AppointmentDate, &a.DurationMinutes,
			&a.TreatmentType, &a.Notes, &status, &a.PatientName, &a.PatientPhone,
		); err != nil {
			return nil, fmt.Errorf("failed to scan appointment: %w", err)
		}
		a.Status = model.AppointmentStatus(status)
		appointments = append(appointments, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate appointments: %w", err)
	}

	return appointments, nil
}

func (r *ClinicRepository) ScheduleAppointment(ctx context.Context, params model.ScheduleAppointmentParams) (string, error) {
	if params.PatientID == "" || params.DoctorID == "" || params.ClinicID == "" || params.AppointmentDate.IsZero() {
		return "", fmt.Errorf("%w: patient, doctor, clinic and date are required", model.ErrInvalidArgument)
	}

	var duration *int
	if params.DurationMinutes > 0 {
		duration = &params.DurationMinutes
	}

	var id string
	err := r.db.QueryRow(ctx, `SELECT schedule_appointment($1, $2, $3, $4, $5, $6, $7)`,
		params.PatientID, params.DoctorID, params.ClinicID, params.AppointmentDate,
		duration, params.TreatmentType, params.Notes,
	).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("failed to schedule appointment: %w", err)
	}

	return id, nil
}

func (r *ClinicRepository) ListReminders(ctx context.Context, clinicID string) ([]model.Reminder, error) {
	query := `
		SELECT r.id, r.appointment_id, r.reminder_type, r.scheduled_for, r.status,
		       a.appointment_date, a.treatment_type, p.full_name, p.phone
		FROM reminders r
		JOIN appointments a ON a.id = r.appointment_id
		JOIN patients p ON p.id = a.patient_id
		WHERE a.clinic_id = $1
		ORDER BY r.scheduled_for ASC`

	rows, err := r.db.Query(ctx, query, clinicID)
	if err != nil {
		return nil, fmt.Errorf("failed to list reminders: %w", err)
	}
	defer rows.Close()

	reminders := []model.Reminder{}
	for rows.Next() {
		var (
			rem     model.Reminder
			channel string
		)
		if err := rows.Scan(
			&rem.ID, &rem.AppointmentID, &channel, &rem.ScheduledFor, &rem.Status,
			&rem.AppointmentDate, &rem.TreatmentType, &rem.PatientName, &rem.PatientPhone,
		); err != nil {
			return nil, fmt.Errorf("failed to scan reminder: %w", err)
		}
		rem.Channel = model.ReminderChannel(channel)
		reminders = append(reminders, rem)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate reminders: %w", err)
	}

	return reminders, nil
}

func (r *ClinicRepository) CreateReminders(ctx context.Context, appointmentID string, channels []model.ReminderChannel) ([]string, error) {
	if appointmentID == "" {
		return nil, fmt.Errorf("%w: appointment is required", model.ErrInvalidArgument)
	}
	if len(channels) == 0 {
		channels = model.DefaultReminderChannels
	}
	kinds := make([]string, 0, len(channels))
	for _, c := range channels {
		kinds = append(kinds, string(c))
	}

	rows, err := r.db.Query(ctx, `SELECT create_appointment_reminders($1, $2)`, appointmentID, kinds)
	if err != nil {
		return nil, fmt.Errorf("failed to create reminders: %w", err)
	}

	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("failed to create reminders: %w", err)
	}

	return ids, nil
}
