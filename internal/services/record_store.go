package services

import (
	"context"
	"encoding/json"
	"log"
	"strings"
	"sync"
	"time"

	"golang.org/x/text/cases"

	"patient-records-service/internal/adapters"
	"patient-records-service/internal/domain"
	"patient-records-service/internal/domain/dtos"
	"patient-records-service/internal/domain/entities"
)

// StorageKey is the single persistence slot the whole collection is
// serialized into. It matches the key the original browser front end used.
const StorageKey = "patients"

// snapshotVersion tags the persisted envelope so future schema changes can be
// detected instead of misread.
const snapshotVersion = 1

// snapshot is the persisted blob layout: a version tag and the full record
// array.
type snapshot struct {
	Version  int                `json:"version"`
	Patients []entities.Patient `json:"patients"`
}

// RecordStore implements RecordStoreContract. It keeps the authoritative
// collection in memory and snapshots it through the storage adapter on every
// mutation, before the mutation becomes observable. A single mutex guards the
// full validate-mutate-persist sequence, so the store is safe to expose to
// concurrent HTTP callers.
type RecordStore struct {
	storage adapters.StorageAdapter
	ids     IDGenerator
	logger  *log.Logger
	now     func() time.Time

	mu       sync.Mutex
	patients []entities.Patient
}

// IDGenerator is the minimal surface the store needs from the identifier
// generator.
type IDGenerator interface {
	Next() string
}

// NewRecordStore creates a store over the given adapter. Call Load before
// serving reads so the in-memory collection reflects the persisted snapshot.
func NewRecordStore(storage adapters.StorageAdapter, ids IDGenerator, logger *log.Logger) *RecordStore {
	return &RecordStore{
		storage: storage,
		ids:     ids,
		logger:  logger,
		now:     time.Now,
	}
}

// Load reads and decodes the persisted snapshot. The envelope form
// {"version":1,"patients":[...]} is canonical; a bare top-level array is
// accepted for blobs written by the original front end.
func (s *RecordStore) Load(ctx context.Context) ([]entities.Patient, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, ok, err := s.storage.Read(ctx, StorageKey)
	if err != nil {
		return nil, &domain.PersistenceError{Err: err}
	}
	if !ok {
		s.patients = nil
		s.logger.Printf("no persisted snapshot under %q, starting empty", StorageKey)
		return nil, nil
	}

	var snap snapshot
	if err := json.Unmarshal([]byte(raw), &snap); err != nil {
		var legacy []entities.Patient
		if legacyErr := json.Unmarshal([]byte(raw), &legacy); legacyErr != nil {
			return nil, &domain.DeserializationError{Err: err}
		}
		snap.Patients = legacy
	}

	s.patients = snap.Patients
	s.logger.Printf("loaded %d patient record(s)", len(s.patients))
	return clonePatients(s.patients), nil
}

// ListAll returns the collection in insertion order.
func (s *RecordStore) ListAll(_ context.Context) []entities.Patient {
	s.mu.Lock()
	defer s.mu.Unlock()
	return clonePatients(s.patients)
}

// Search filters the collection. Name and email matching uses Unicode case
// folding; phone matching is a verbatim substring check. Insertion order is
// preserved; an empty term returns everything.
func (s *RecordStore) Search(_ context.Context, term string) []entities.Patient {
	s.mu.Lock()
	defer s.mu.Unlock()

	if term == "" {
		return clonePatients(s.patients)
	}

	fold := cases.Fold()
	folded := fold.String(term)

	var matches []entities.Patient
	for i := range s.patients {
		p := &s.patients[i]
		if strings.Contains(fold.String(p.FullName()), folded) ||
			strings.Contains(fold.String(p.Email), folded) ||
			strings.Contains(p.Phone, term) {
			matches = append(matches, p.Clone())
		}
	}
	return matches
}

// GetByID returns one patient or domain.ErrNotFound.
func (s *RecordStore) GetByID(_ context.Context, id string) (entities.Patient, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOf(id)
	if idx < 0 {
		return entities.Patient{}, domain.ErrNotFound
	}
	return s.patients[idx].Clone(), nil
}

// Create appends a new patient with a fresh identifier, empty sub-record
// collections, and CreatedAt == UpdatedAt.
func (s *RecordStore) Create(ctx context.Context, input dtos.PatientInput) (entities.Patient, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	dob, err := validatePatientInput(input)
	if err != nil {
		return entities.Patient{}, err
	}

	now := s.now()
	patient := entities.Patient{
		ID:             s.ids.Next(),
		DateOfBirth:    dob,
		MedicalHistory: []entities.MedicalHistoryEntry{},
		LabResults:     []entities.LabResult{},
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	applyPatientInput(&patient, input)

	next := append(clonePatients(s.patients), patient)
	if err := s.persistLocked(ctx, next); err != nil {
		return entities.Patient{}, err
	}
	return patient.Clone(), nil
}

// Update replaces the editable fields of an existing record. Identifier,
// CreatedAt, and sub-record collections are preserved; UpdatedAt advances.
func (s *RecordStore) Update(ctx context.Context, id string, input dtos.PatientInput) (entities.Patient, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOf(id)
	if idx < 0 {
		return entities.Patient{}, domain.ErrNotFound
	}
	dob, err := validatePatientInput(input)
	if err != nil {
		return entities.Patient{}, err
	}

	next := clonePatients(s.patients)
	updated := &next[idx]
	updated.DateOfBirth = dob
	applyPatientInput(updated, input)
	updated.UpdatedAt = s.now()

	if err := s.persistLocked(ctx, next); err != nil {
		return entities.Patient{}, err
	}
	return updated.Clone(), nil
}

// Delete removes the patient and, with it, every sub-record it owns. The
// removed record is returned so the caller can compose its notification.
func (s *RecordStore) Delete(ctx context.Context, id string) (entities.Patient, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOf(id)
	if idx < 0 {
		return entities.Patient{}, domain.ErrNotFound
	}

	removed := s.patients[idx].Clone()
	next := clonePatients(s.patients)
	next = append(next[:idx], next[idx+1:]...)

	if err := s.persistLocked(ctx, next); err != nil {
		return entities.Patient{}, err
	}
	return removed, nil
}

// AppendHistory adds an immutable history entry and bumps the parent's
// UpdatedAt.
func (s *RecordStore) AppendHistory(ctx context.Context, patientID string, input dtos.HistoryInput) (entities.Patient, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOf(patientID)
	if idx < 0 {
		return entities.Patient{}, domain.ErrNotFound
	}

	date, err := validateDate("date", input.Date)
	if err != nil {
		return entities.Patient{}, err
	}
	if strings.TrimSpace(input.Diagnosis) == "" {
		return entities.Patient{}, &domain.ValidationError{Field: "diagnosis"}
	}

	entry := entities.MedicalHistoryEntry{
		ID:        s.ids.Next(),
		Date:      date,
		Diagnosis: input.Diagnosis,
		Treatment: input.Treatment,
		Doctor:    input.Doctor,
		Notes:     input.Notes,
		CreatedAt: s.now(),
	}

	next := clonePatients(s.patients)
	parent := &next[idx]
	parent.MedicalHistory = append(parent.MedicalHistory, entry)
	parent.UpdatedAt = s.now()

	if err := s.persistLocked(ctx, next); err != nil {
		return entities.Patient{}, err
	}
	return parent.Clone(), nil
}

// AppendLab adds an immutable lab result and bumps the parent's UpdatedAt.
func (s *RecordStore) AppendLab(ctx context.Context, patientID string, input dtos.LabInput) (entities.Patient, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOf(patientID)
	if idx < 0 {
		return entities.Patient{}, domain.ErrNotFound
	}

	date, err := validateDate("date", input.Date)
	if err != nil {
		return entities.Patient{}, err
	}
	if strings.TrimSpace(input.TestName) == "" {
		return entities.Patient{}, &domain.ValidationError{Field: "testName"}
	}
	status := entities.LabStatus(input.Status)
	if status == "" {
		status = entities.LabStatusNormal
	}
	if !status.Valid() {
		return entities.Patient{}, &domain.ValidationError{Field: "status", Reason: "must be Normal, Abnormal, or Critical"}
	}

	result := entities.LabResult{
		ID:          s.ids.Next(),
		Date:        date,
		TestName:    input.TestName,
		Result:      input.Result,
		NormalRange: input.NormalRange,
		Status:      status,
		FileName:    input.FileName,
		FileURL:     input.FileURL,
		Doctor:      input.Doctor,
		Notes:       input.Notes,
		CreatedAt:   s.now(),
	}

	next := clonePatients(s.patients)
	parent := &next[idx]
	parent.LabResults = append(parent.LabResults, result)
	parent.UpdatedAt = s.now()

	if err := s.persistLocked(ctx, next); err != nil {
		return entities.Patient{}, err
	}
	return parent.Clone(), nil
}

// persistLocked serializes next, writes it through the adapter, and only then
// installs it as the in-memory collection. Callers must hold s.mu.
func (s *RecordStore) persistLocked(ctx context.Context, next []entities.Patient) error {
	blob, err := json.Marshal(snapshot{Version: snapshotVersion, Patients: next})
	if err != nil {
		return &domain.PersistenceError{Err: err}
	}
	if err := s.storage.Write(ctx, StorageKey, string(blob)); err != nil {
		return &domain.PersistenceError{Err: err}
	}
	s.patients = next
	return nil
}

// indexOf returns the position of id in the collection, or -1. Callers must
// hold s.mu.
func (s *RecordStore) indexOf(id string) int {
	for i := range s.patients {
		if s.patients[i].ID == id {
			return i
		}
	}
	return -1
}

func clonePatients(patients []entities.Patient) []entities.Patient {
	out := make([]entities.Patient, len(patients))
	for i := range patients {
		out[i] = patients[i].Clone()
	}
	return out
}

// applyPatientInput copies the editable fields onto the record. DateOfBirth
// is set by the caller from the already-validated parse.
func applyPatientInput(p *entities.Patient, input dtos.PatientInput) {
	p.FirstName = strings.TrimSpace(input.FirstName)
	p.LastName = strings.TrimSpace(input.LastName)
	p.Gender = input.Gender
	p.Phone = input.Phone
	p.Email = input.Email
	p.Address = input.Address
	p.EmergencyContact = input.EmergencyContact
	p.EmergencyPhone = input.EmergencyPhone
	p.BloodType = entities.BloodType(input.BloodType)
}

// validatePatientInput enforces the mandatory-field rule shared by create and
// update, returning the parsed date of birth.
func validatePatientInput(input dtos.PatientInput) (entities.Date, error) {
	if strings.TrimSpace(input.FirstName) == "" {
		return entities.Date{}, &domain.ValidationError{Field: "firstName"}
	}
	if strings.TrimSpace(input.LastName) == "" {
		return entities.Date{}, &domain.ValidationError{Field: "lastName"}
	}
	dob, err := validateDate("dateOfBirth", input.DateOfBirth)
	if err != nil {
		return entities.Date{}, err
	}
	if !entities.BloodType(input.BloodType).Valid() {
		return entities.Date{}, &domain.ValidationError{Field: "bloodType", Reason: "must be one of A+, A-, B+, B-, AB+, AB-, O+, O-"}
	}
	return dob, nil
}

func validateDate(field, value string) (entities.Date, error) {
	if strings.TrimSpace(value) == "" {
		return entities.Date{}, &domain.ValidationError{Field: field}
	}
	date, err := entities.ParseDate(value)
	if err != nil {
		return entities.Date{}, &domain.ValidationError{Field: field, Reason: "must be a valid YYYY-MM-DD date"}
	}
	return date, nil
}

var _ RecordStoreContract = (*RecordStore)(nil)
