package services

import (
	"context"

	"patient-records-service/internal/domain/dtos"
	"patient-records-service/internal/domain/entities"
)

// RecordStoreContract defines the operations the presentation layer may
// invoke against the patient collection. The implementation is the sole
// owner of the collection and of all reads and writes to persistence.
//
// Every mutating operation is all-or-nothing: on any error no change is
// observable in memory or in the persisted snapshot.
type RecordStoreContract interface {
	// Load reads the persisted snapshot into memory and returns it. A missing
	// snapshot yields an empty collection; a malformed one fails with a
	// *domain.DeserializationError.
	Load(ctx context.Context) ([]entities.Patient, error)
	// ListAll returns the current collection in insertion order.
	ListAll(ctx context.Context) []entities.Patient
	// Search returns the patients whose full name or email contains term
	// (case-folded), or whose phone contains term verbatim. An empty term
	// returns the full collection. Order is preserved.
	Search(ctx context.Context, term string) []entities.Patient
	// GetByID returns one patient or domain.ErrNotFound.
	GetByID(ctx context.Context, id string) (entities.Patient, error)
	// Create validates input, assigns an identifier and timestamps, appends
	// the record, persists, and returns it.
	Create(ctx context.Context, input dtos.PatientInput) (entities.Patient, error)
	// Update replaces the editable fields of an existing record, bumps
	// UpdatedAt, persists, and returns the updated record. Identifier,
	// CreatedAt, and both sub-record collections are never touched.
	Update(ctx context.Context, id string, input dtos.PatientInput) (entities.Patient, error)
	// Delete removes the patient and all of its sub-records atomically and
	// returns the removed record for caller notification purposes.
	Delete(ctx context.Context, id string) (entities.Patient, error)
	// AppendHistory adds an immutable history entry to the patient and bumps
	// its UpdatedAt.
	AppendHistory(ctx context.Context, patientID string, input dtos.HistoryInput) (entities.Patient, error)
	// AppendLab adds an immutable lab result to the patient and bumps its
	// UpdatedAt. Status defaults to Normal when unspecified.
	AppendLab(ctx context.Context, patientID string, input dtos.LabInput) (entities.Patient, error)
}
