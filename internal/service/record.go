package service

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dtroode/healping/internal/logger"
	"github.com/dtroode/healping/internal/model"
)

const defaultPresignExpiry = 15 * time.Minute

// Record manages medical records and their documents.
type Record struct {
	recordStore   model.RecordStore
	storage       model.Storage
	presignExpiry time.Duration
	logger        *logger.Logger
}

func NewRecord(
	recordStore model.RecordStore,
	storage model.Storage,
	presignExpiry time.Duration,
	logger *logger.Logger,
) *Record {
	if presignExpiry <= 0 {
		presignExpiry = defaultPresignExpiry
	}
	return &Record{
		recordStore:   recordStore,
		storage:       storage,
		presignExpiry: presignExpiry,
		logger:        logger,
	}
}

// CreateRecord adds a record written by a doctor of the patient's clinic.
func (s *Record) CreateRecord(ctx context.Context, profile *model.Profile, params model.CreateRecordParams) (model.MedicalRecord, error) {
	if err := requireDoctor(profile); err != nil {
		return model.MedicalRecord{}, err
	}

	params.DoctorID = profile.ID
	params.ClinicID = *profile.ClinicID
	if strings.TrimSpace(params.Title) == "" {
		return model.MedicalRecord{}, fmt.Errorf("%w: title is required", model.ErrInvalidArgument)
	}

	record, err := s.recordStore.Create(ctx, params)
	if err != nil {
		return model.MedicalRecord{}, fmt.Errorf("failed to create record: %w", err)
	}

	return record, nil
}

// UploadDocument stores doc and attaches it to the record, replacing any previous document.
func (s *Record) UploadDocument(ctx context.Context, profile *model.Profile, recordID string, doc model.Document) (model.MedicalRecord, error) {
	if err := requireDoctor(profile); err != nil {
		return model.MedicalRecord{}, err
	}
	if doc.Body == nil {
		return model.MedicalRecord{}, fmt.Errorf("%w: document body is empty", model.ErrInvalidArgument)
	}

	record, err := s.recordStore.GetByID(ctx, recordID)
	if err != nil {
		return model.MedicalRecord{}, fmt.Errorf("failed to get record by id: %w", err)
	}
	if record.ClinicID != *profile.ClinicID {
		return model.MedicalRecord{}, model.ErrNotFound
	}

	key := documentKey(record.ID, doc.Name)
	contentType := doc.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	size := doc.Size
	if size <= 0 {
		size = -1
	}

	if err := s.storage.Upload(ctx, key, doc.Body, size, contentType); err != nil {
		return model.MedicalRecord{}, fmt.Errorf("failed to upload to storage: %w", err)
	}

	if err := s.recordStore.AttachDocument(ctx, record.ID, key); err != nil {
		if err := s.storage.Delete(ctx, key); err != nil {
			s.logger.Error("Record service: failed to delete orphaned document", "key", key, "error", err)
		}
		return model.MedicalRecord{}, fmt.Errorf("failed to attach document: %w", err)
	}

	if record.HasDocument() {
		if err := s.storage.Delete(ctx, *record.DocumentKey); err != nil {
			s.logger.Warn("Record service: failed to delete replaced document", "key", *record.DocumentKey, "error", err)
		}
	}

	record.DocumentKey = &key
	s.logger.Info("Record service: document uploaded", "record_id", record.ID, "key", key)

	return record, nil
}

// PatientRecords returns the records of the patient linked to profile.
func (s *Record) PatientRecords(ctx context.Context, profile *model.Profile) ([]model.MedicalRecord, error) {
	if profile == nil || profile.Role != model.RolePatient {
		return nil, model.ErrForbidden
	}

	records, err := s.recordStore.ListByPatientProfile(ctx, profile.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to get records by profile id: %w", err)
	}

	return records, nil
}

// DocumentURL returns a time-limited download link for the record's document.
// Patients see only their own records, doctors only those of their clinic.
func (s *Record) DocumentURL(ctx context.Context, profile *model.Profile, recordID string) (string, error) {
	if profile == nil {
		return "", model.ErrForbidden
	}

	record, err := s.recordStore.GetByID(ctx, recordID)
	if err != nil {
		return "", fmt.Errorf("failed to get record by id: %w", err)
	}

	switch profile.Role {
	case model.RolePatient:
		if record.ProfileID != profile.ID {
			return "", model.ErrNotFound
		}
	case model.RoleDoctor:
		if !profile.HasClinic() || record.ClinicID != *profile.ClinicID {
			return "", model.ErrNotFound
		}
	case model.RoleAdmin:
		return "", model.ErrForbidden
	default:
		return "", model.ErrForbidden
	}

	if !record.HasDocument() {
		return "", fmt.Errorf("record %s has no document: %w", record.ID, model.ErrNotFound)
	}

	link, err := s.storage.PresignDownload(ctx, *record.DocumentKey, s.presignExpiry)
	if err != nil {
		return "", fmt.Errorf("failed to presign document: %w", err)
	}

	return link, nil
}

func requireDoctor(profile *model.Profile) error {
	if profile == nil || profile.Role != model.RoleDoctor {
		return model.ErrForbidden
	}
	if !profile.HasClinic() {
		return model.ErrNoClinic
	}
	return nil
}

func documentKey(recordID, name string) string {
	ext := strings.ToLower(path.Ext(path.Base(name)))
	return fmt.Sprintf("records/%s/%s%s", recordID, uuid.NewString(), ext)
}
