package entities

import (
	"sort"
	"time"
)

// BloodType enumerates the ABO/Rh blood groups a patient record may carry.
// The empty string means unspecified.
type BloodType string

const (
	BloodTypeAPositive  BloodType = "A+"
	BloodTypeANegative  BloodType = "A-"
	BloodTypeBPositive  BloodType = "B+"
	BloodTypeBNegative  BloodType = "B-"
	BloodTypeABPositive BloodType = "AB+"
	BloodTypeABNegative BloodType = "AB-"
	BloodTypeOPositive  BloodType = "O+"
	BloodTypeONegative  BloodType = "O-"
)

// Valid reports whether the blood type is one of the eight ABO/Rh groups or
// unspecified.
func (b BloodType) Valid() bool {
	switch b {
	case "", BloodTypeAPositive, BloodTypeANegative, BloodTypeBPositive, BloodTypeBNegative,
		BloodTypeABPositive, BloodTypeABNegative, BloodTypeOPositive, BloodTypeONegative:
		return true
	}
	return false
}

// LabStatus classifies a lab result relative to its normal range.
type LabStatus string

const (
	LabStatusNormal   LabStatus = "Normal"
	LabStatusAbnormal LabStatus = "Abnormal"
	LabStatusCritical LabStatus = "Critical"
)

// Valid reports whether the status is one of the three known classifications.
func (s LabStatus) Valid() bool {
	switch s {
	case LabStatusNormal, LabStatusAbnormal, LabStatusCritical:
		return true
	}
	return false
}

// Patient is the root record of the system. Sub-record collections are owned
// exclusively by their parent patient; JSON field names match the persisted
// blob layout.
type Patient struct {
	ID               string                `json:"id"`
	FirstName        string                `json:"firstName"`
	LastName         string                `json:"lastName"`
	DateOfBirth      Date                  `json:"dateOfBirth"`
	Gender           string                `json:"gender"`
	Phone            string                `json:"phone"`
	Email            string                `json:"email"`
	Address          string                `json:"address"`
	EmergencyContact string                `json:"emergencyContact"`
	EmergencyPhone   string                `json:"emergencyPhone"`
	BloodType        BloodType             `json:"bloodType"`
	MedicalHistory   []MedicalHistoryEntry `json:"medicalHistory"`
	LabResults       []LabResult           `json:"labResults"`
	CreatedAt        time.Time             `json:"createdAt"`
	UpdatedAt        time.Time             `json:"updatedAt"`
}

// MedicalHistoryEntry is a single encounter note. Entries are immutable after
// creation; there is no update operation, only append and cascade delete with
// the parent.
type MedicalHistoryEntry struct {
	ID        string    `json:"id"`
	Date      Date      `json:"date"`
	Diagnosis string    `json:"diagnosis"`
	Treatment string    `json:"treatment"`
	Doctor    string    `json:"doctor"`
	Notes     string    `json:"notes"`
	CreatedAt time.Time `json:"createdAt"`
}

// LabResult is a single test outcome. FileURL is a session-scoped handle to
// an uploaded report and is never persisted; only the display name survives a
// reload.
type LabResult struct {
	ID          string    `json:"id"`
	Date        Date      `json:"date"`
	TestName    string    `json:"testName"`
	Result      string    `json:"result"`
	NormalRange string    `json:"normalRange"`
	Status      LabStatus `json:"status"`
	FileName    string    `json:"fileName,omitempty"`
	FileURL     string    `json:"-"`
	Doctor      string    `json:"doctor"`
	Notes       string    `json:"notes"`
	CreatedAt   time.Time `json:"createdAt"`
}

// FullName returns "First Last", the form the search operation matches
// against.
func (p *Patient) FullName() string {
	return p.FirstName + " " + p.LastName
}

// AgeInYears derives the whole-years age at the reference instant. The count
// is decremented when the birthday has not yet occurred in the reference
// year; a birth date at or after the reference yields a non-positive value
// rather than an error.
func AgeInYears(birth Date, reference time.Time) int {
	years := reference.Year() - birth.Year()
	if reference.Month() < birth.Month() ||
		(reference.Month() == birth.Month() && reference.Day() < birth.Day()) {
		years--
	}
	return years
}

// HistoryByDateDesc returns the history entries sorted most recent first.
// Storage order is insertion order; this view is computed per call and never
// reorders the underlying collection.
func (p *Patient) HistoryByDateDesc() []MedicalHistoryEntry {
	sorted := make([]MedicalHistoryEntry, len(p.MedicalHistory))
	copy(sorted, p.MedicalHistory)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[j].Date.Before(sorted[i].Date)
	})
	return sorted
}

// LabsByDateDesc returns the lab results sorted most recent first.
func (p *Patient) LabsByDateDesc() []LabResult {
	sorted := make([]LabResult, len(p.LabResults))
	copy(sorted, p.LabResults)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[j].Date.Before(sorted[i].Date)
	})
	return sorted
}

// Clone returns a deep copy. The record store hands clones to callers so the
// authoritative collection can never be mutated from outside.
func (p *Patient) Clone() Patient {
	out := *p
	if p.MedicalHistory != nil {
		out.MedicalHistory = make([]MedicalHistoryEntry, len(p.MedicalHistory))
		copy(out.MedicalHistory, p.MedicalHistory)
	}
	if p.LabResults != nil {
		out.LabResults = make([]LabResult, len(p.LabResults))
		copy(out.LabResults, p.LabResults)
	}
	return out
}
