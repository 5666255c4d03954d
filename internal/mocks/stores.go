// Package mocks provides testify mocks of the model interfaces.
package mocks

import (
	"context"
	"io"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/dtroode/healping/internal/model"
)

// ClinicStore mocks model.ClinicStore.
type ClinicStore struct {
	mock.Mock
}

func (m *ClinicStore) DashboardStats(ctx context.Context, clinicID string) (model.DashboardStats, error) {
	args := m.Called(ctx, clinicID)
	return args.Get(0).(model.DashboardStats), args.Error(1)
}

func (m *ClinicStore) ListPatients(ctx context.Context, clinicID string) ([]model.Patient, error) {
	args := m.Called(ctx, clinicID)
	return args.Get(0).([]model.Patient), args.Error(1)
}

func (m *ClinicStore) CreatePatient(ctx context.Context, params model.CreatePatientParams) (string, error) {
	args := m.Called(ctx, params)
	return args.String(0), args.Error(1)
}

func (m *ClinicStore) ListAppointments(ctx context.Context, clinicID string) ([]model.Appointment, error) {
	args := m.Called(ctx, clinicID)
	return args.Get(0).([]model.Appointment), args.Error(1)
}

func (m *ClinicStore) ListPatientAppointments(ctx context.Context, profileID string) ([]model.Appointment, error) {
	args := m.Called(ctx, profileID)
	return args.Get(0).([]model.Appointment), args.Error(1)
}

func (m *ClinicStore) ScheduleAppointment(ctx context.Context, params model.ScheduleAppointmentParams) (string, error) {
	args := m.Called(ctx, params)
	return args.String(0), args.Error(1)
}

func (m *ClinicStore) ListReminders(ctx context.Context, clinicID string) ([]model.Reminder, error) {
	args := m.Called(ctx, clinicID)
	return args.Get(0).([]model.Reminder), args.Error(1)
}

func (m *ClinicStore) CreateReminders(ctx context.Context, appointmentID string, channels []model.ReminderChannel) ([]string, error) {
	args := m.Called(ctx, appointmentID, channels)
	return args.Get(0).([]string), args.Error(1)
}

// RecordStore mocks model.RecordStore.
type RecordStore struct {
	mock.Mock
}

func (m *RecordStore) Create(ctx context.Context, params model.CreateRecordParams) (model.MedicalRecord, error) {
	args := m.Called(ctx, params)
	return args.Get(0).(model.MedicalRecord), args.Error(1)
}

func (m *RecordStore) ListByPatientProfile(ctx context.Context, profileID string) ([]model.MedicalRecord, error) {
	args := m.Called(ctx, profileID)
	return args.Get(0).([]model.MedicalRecord), args.Error(1)
}

func (m *RecordStore) GetByID(ctx context.Context, id string) (model.MedicalRecord, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(model.MedicalRecord), args.Error(1)
}

func (m *RecordStore) AttachDocument(ctx context.Context, id, documentKey string) error {
	args := m.Called(ctx, id, documentKey)
	return args.Error(0)
}

// Storage mocks model.Storage.
type Storage struct {
	mock.Mock
}

func (m *Storage) Upload(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error {
	args := m.Called(ctx, key, reader, size, contentType)
	return args.Error(0)
}

func (m *Storage) PresignDownload(ctx context.Context, key string, expiry time.Duration) (string, error) {
	args := m.Called(ctx, key, expiry)
	return args.String(0), args.Error(1)
}

func (m *Storage) Delete(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

func (m *Storage) Exists(ctx context.Context, key string) (bool, error) {
	args := m.Called(ctx, key)
	return args.Bool(0), args.Error(1)
}

// ProfileWriter mocks model.ProfileWriter.
type ProfileWriter struct {
	mock.Mock
}

func (m *ProfileWriter) CreateProfile(ctx context.Context, profile model.Profile) (model.Profile, error) {
	args := m.Called(ctx, profile)
	return args.Get(0).(model.Profile), args.Error(1)
}

var (
	_ model.ClinicStore   = (*ClinicStore)(nil)
	_ model.RecordStore   = (*RecordStore)(nil)
	_ model.Storage       = (*Storage)(nil)
	_ model.ProfileWriter = (*ProfileWriter)(nil)
)
