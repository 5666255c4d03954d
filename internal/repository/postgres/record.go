package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/dtroode/healping/internal/model"
)

var _ model.RecordStore = (*RecordRepository)(nil)

type RecordRepository struct {
	db DB
}

func NewRecordRepository(db DB) *RecordRepository {
	return &RecordRepository{
		db: db,
	}
}

const recordColumns = `
		mr.id, mr.patient_id, COALESCE(p.profile_id::text, ''), mr.clinic_id, mr.doctor_id,
		mr.title, mr.diagnosis, mr.visit_date, mr.document_key, mr.created_at`

func (r *RecordRepository) Create(ctx context.Context, params model.CreateRecordParams) (model.MedicalRecord, error) {
	if params.PatientID == "" || params.ClinicID == "" || params.DoctorID == "" || params.Title == "" {
		return model.MedicalRecord{}, fmt.Errorf("%w: patient, clinic, doctor and title are required", model.ErrInvalidArgument)
	}

	query := `
		WITH mr AS (
			INSERT INTO medical_records (patient_id, clinic_id, doctor_id, title, diagnosis, visit_date)
			VALUES ($1, $2, $3, $4, $5, COALESCE($6::date, CURRENT_DATE))
			RETURNING *
		)
		SELECT ` + recordColumns + `
		FROM mr
		JOIN patients p ON p.id = mr.patient_id`

	var visitDate *string
	if !params.VisitDate.IsZero() {
		d := params.VisitDate.Format("2006-01-02")
		visitDate = &d
	}

	record, err := scanRecord(r.db.QueryRow(ctx, query,
		params.PatientID, params.ClinicID, params.DoctorID, params.Title, params.Diagnosis, visitDate,
	))
	if err != nil {
		return model.MedicalRecord{}, fmt.Errorf("failed to create medical record: %w", err)
	}

	return record, nil
}

func (r *RecordRepository) ListByPatientProfile(ctx context.Context, profileID string) ([]model.MedicalRecord, error) {
	query := `SELECT ` + recordColumns + `
		FROM medical_records mr
		JOIN patients p ON p.id = mr.patient_id
		WHERE p.profile_id = $1
		ORDER BY mr.visit_date DESC, mr.created_at DESC`

	rows, err := r.db.Query(ctx, query, profileID)
	if err != nil {
		return nil, fmt.Errorf("failed to list medical records: %w", err)
	}
	defer rows.Close()

	records := []model.MedicalRecord{}
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan medical record: %w", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate medical records: %w", err)
	}

	return records, nil
}

func (r *RecordRepository) GetByID(ctx context.Context, id string) (model.MedicalRecord, error) {
	query := `SELECT ` + recordColumns + `
		FROM medical_records mr
		JOIN patients p ON p.id = mr.patient_id
		WHERE mr.id = $1`

	record, err := scanRecord(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.MedicalRecord{}, model.ErrNotFound
		}
		return model.MedicalRecord{}, fmt.Errorf("failed to get medical record: %w", err)
	}

	return record, nil
}

func (r *RecordRepository) AttachDocument(ctx context.Context, id, documentKey string) error {
	const query = `UPDATE medical_records SET document_key = $2 WHERE id = $1`
	cmd, err := r.db.Exec(ctx, query, id, documentKey)
	if err != nil {
		return fmt.Errorf("failed to attach document: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return model.ErrNotFound
	}
	return nil
}

func scanRecord(row pgx.Row) (model.MedicalRecord, error) {
	var record model.MedicalRecord
	err := row.Scan(
		&record.ID, &record.PatientID, &record.ProfileID, &record.ClinicID, &record.DoctorID,
		&record.Title, &record.Diagnosis, &record.VisitDate, &record.DocumentKey, &record.CreatedAt,
	)
	return record, err
}
