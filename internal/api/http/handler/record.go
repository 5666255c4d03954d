package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/dtroode/healping/internal/fetch"
	"github.com/dtroode/healping/internal/logger"
	"github.com/dtroode/healping/internal/model"
)

// RecordService manages medical records and their documents.
type RecordService interface {
	CreateRecord(ctx context.Context, profile *model.Profile, params model.CreateRecordParams) (model.MedicalRecord, error)
	UploadDocument(ctx context.Context, profile *model.Profile, recordID string, doc model.Document) (model.MedicalRecord, error)
	PatientRecords(ctx context.Context, profile *model.Profile) ([]model.MedicalRecord, error)
	DocumentURL(ctx context.Context, profile *model.Profile, recordID string) (string, error)
}

const (
	maxUploadBytes  = 32 << 20
	maxMemoryBytes  = 8 << 20
	documentFormKey = "file"
)

type createRecordRequest struct {
	PatientID string `json:"patient_id" validate:"required"`
	Title     string `json:"title" validate:"required,max=200"`
	Diagnosis string `json:"diagnosis" validate:"omitempty,max=2000"`
	VisitDate string `json:"visit_date" validate:"omitempty,datetime=2006-01-02"`
}

type recordView struct {
	model.MedicalRecord
	HasDocument bool `json:"has_document"`
}

type patientDashboardView struct {
	Appointments fetch.Result[[]model.Appointment] `json:"appointments"`
	Records      []recordView                      `json:"records"`
	RecordsError string                            `json:"records_error,omitempty"`
}

// Record serves medical records of doctors and patients.
type Record struct {
	records   RecordService
	clinic    ClinicService
	validator *Validator
	logger    *logger.Logger
}

func NewRecord(records RecordService, clinic ClinicService, validator *Validator, logger *logger.Logger) *Record {
	return &Record{
		records:   records,
		clinic:    clinic,
		validator: validator,
		logger:    logger,
	}
}

// Create adds a record for a patient of the doctor's clinic.
func (h *Record) Create(w http.ResponseWriter, r *http.Request) {
	var req createRecordRequest
	if err := decodeJSON(w, r, h.validator, &req); err != nil {
		handleError(w, err)
		return
	}

	params := model.CreateRecordParams{
		PatientID: req.PatientID,
		Title:     strings.TrimSpace(req.Title),
		Diagnosis: optional(req.Diagnosis),
	}
	if req.VisitDate != "" {
		visit, err := time.Parse(dateLayout, req.VisitDate)
		if err != nil {
			handleError(w, &ValidationError{Field: "visit_date", Message: "invalid date"})
			return
		}
		params.VisitDate = visit
	}

	record, err := h.records.CreateRecord(r.Context(), profileFrom(r), params)
	if err != nil {
		h.logger.Error("Record handler: failed to create record",
			"patient_id", req.PatientID,
			"error", err.Error())
		handleError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, newRecordView(record))
}

// Upload attaches the multipart file field to the record.
func (h *Record) Upload(w http.ResponseWriter, r *http.Request) {
	recordID := chi.URLParam(r, "recordID")

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxMemoryBytes); err != nil {
		handleError(w, &ValidationError{Field: documentFormKey, Message: "invalid multipart form"})
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	file, header, err := r.FormFile(documentFormKey)
	if err != nil {
		handleError(w, &ValidationError{Field: documentFormKey, Message: "file is required"})
		return
	}
	defer file.Close()

	record, err := h.records.UploadDocument(r.Context(), profileFrom(r), recordID, model.Document{
		Name:        header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Body:        file,
	})
	if err != nil {
		h.logger.Error("Record handler: failed to upload document",
			"record_id", recordID,
			"error", err.Error())
		handleError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, newRecordView(record))
}

// List returns the caller's own records.
func (h *Record) List(w http.ResponseWriter, r *http.Request) {
	records, err := h.records.PatientRecords(r.Context(), profileFrom(r))
	if err != nil {
		h.logger.Error("Record handler: failed to list records",
			"error", err.Error())
		handleError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, newRecordViews(records))
}

// Download redirects to a time-limited link of the record's document.
func (h *Record) Download(w http.ResponseWriter, r *http.Request) {
	recordID := chi.URLParam(r, "recordID")

	link, err := h.records.DocumentURL(r.Context(), profileFrom(r), recordID)
	if err != nil {
		h.logger.Debug("Record handler: document unavailable",
			"record_id", recordID,
			"error", err.Error())
		handleError(w, err)
		return
	}

	w.Header().Set("Cache-Control", "no-store")
	http.Redirect(w, r, link, http.StatusSeeOther)
}

// PatientDashboard combines the patient's appointments and records.
func (h *Record) PatientDashboard(w http.ResponseWriter, r *http.Request) {
	profile := profileFrom(r)

	view := patientDashboardView{
		Appointments: h.clinic.PatientAppointments(r.Context(), profile),
		Records:      []recordView{},
	}
	records, err := h.records.PatientRecords(r.Context(), profile)
	if err != nil {
		h.logger.Error("Record handler: failed to list records",
			"error", err.Error())
		view.RecordsError = "Failed to load medical records"
	} else {
		view.Records = newRecordViews(records)
	}

	writeJSON(w, http.StatusOK, view)
}

func newRecordView(record model.MedicalRecord) recordView {
	return recordView{MedicalRecord: record, HasDocument: record.HasDocument()}
}

func newRecordViews(records []model.MedicalRecord) []recordView {
	views := make([]recordView, 0, len(records))
	for _, record := range records {
		views = append(views, newRecordView(record))
	}
	return views
}
