package model

import (
	"context"
	"io"
	"time"
)

// RecordStore persists medical record metadata.
type RecordStore interface {
	Create(ctx context.Context, params CreateRecordParams) (MedicalRecord, error)
	ListByPatientProfile(ctx context.Context, profileID string) ([]MedicalRecord, error)
	GetByID(ctx context.Context, id string) (MedicalRecord, error)
	AttachDocument(ctx context.Context, id, documentKey string) error
}

// MedicalRecord is a visit or treatment entry of a patient.
type MedicalRecord struct {
	ID          string    `json:"id"`
	PatientID   string    `json:"patient_id"`
	ProfileID   string    `json:"profile_id"`
	ClinicID    string    `json:"clinic_id"`
	DoctorID    string    `json:"doctor_id"`
	Title       string    `json:"title"`
	Diagnosis   *string   `json:"diagnosis,omitempty"`
	VisitDate   time.Time `json:"visit_date"`
	DocumentKey *string   `json:"-"`
	CreatedAt   time.Time `json:"created_at"`
}

// CreateRecordParams holds the input of a new medical record.
type CreateRecordParams struct {
	PatientID string    `json:"patient_id"`
	ClinicID  string    `json:"clinic_id"`
	DoctorID  string    `json:"doctor_id"`
	Title     string    `json:"title"`
	Diagnosis *string   `json:"diagnosis,omitempty"`
	VisitDate time.Time `json:"visit_date"`
}

// HasDocument reports whether a document was uploaded for the record.
func (r MedicalRecord) HasDocument() bool {
	return r.DocumentKey != nil && *r.DocumentKey != ""
}

// Storage stores record documents.
type Storage interface {
	Upload(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error
	PresignDownload(ctx context.Context, key string, expiry time.Duration) (string, error)
	Exists(ctx context.Context, key string) (bool, error)
	Delete(ctx context.Context, key string) error
}

// Document is an uploaded file attached to a medical record.
type Document struct {
	Name        string
	ContentType string
	Size        int64
	Body        io.Reader
}
