// Package export renders a patient record as a simplified FHIR bundle so a
// record can be handed to another system or downloaded as a document.
package export

import (
	"encoding/json"
	"fmt"

	"patient-records-service/internal/domain/entities"
)

// FHIRHumanName represents a FHIR HumanName data type.
type FHIRHumanName struct {
	Use    string   `json:"use,omitempty"` // usual | official | temp | nickname
	Family string   `json:"family,omitempty"`
	Given  []string `json:"given,omitempty"`
}

// FHIRGender is the administrative gender of a patient.
// FHIR values: male | female | other | unknown
type FHIRGender string

const (
	GenderMale    FHIRGender = "male"
	GenderFemale  FHIRGender = "female"
	GenderOther   FHIRGender = "other"
	GenderUnknown FHIRGender = "unknown"
)

// FHIRContactPoint is a phone or email contact detail.
type FHIRContactPoint struct {
	System string `json:"system,omitempty"` // phone | email
	Value  string `json:"value,omitempty"`
	Use    string `json:"use,omitempty"`
}

// FHIRPatientResource is a simplified FHIR Patient resource covering the core
// demographics this system records.
type FHIRPatientResource struct {
	ResourceType string             `json:"resourceType"` // "Patient"
	ID           string             `json:"id,omitempty"`
	Name         []FHIRHumanName    `json:"name,omitempty"`
	BirthDate    string             `json:"birthDate,omitempty"` // YYYY-MM-DD
	Gender       FHIRGender         `json:"gender,omitempty"`
	Telecom      []FHIRContactPoint `json:"telecom,omitempty"`
	Address      []FHIRAddress      `json:"address,omitempty"`
}

// FHIRAddress carries the free-text postal address.
type FHIRAddress struct {
	Text string `json:"text,omitempty"`
}

// FHIRCodeableConcept is the minimal text-only form of a coded value.
type FHIRCodeableConcept struct {
	Text string `json:"text,omitempty"`
}

// FHIRAnnotation is a free-text note attached to a resource.
type FHIRAnnotation struct {
	Text string `json:"text,omitempty"`
}

// FHIRConditionResource maps one medical-history entry.
type FHIRConditionResource struct {
	ResourceType  string              `json:"resourceType"` // "Condition"
	ID            string              `json:"id,omitempty"`
	Code          FHIRCodeableConcept `json:"code"`
	OnsetDateTime string              `json:"onsetDateTime,omitempty"`
	RecordedDate  string              `json:"recordedDate,omitempty"`
	Note          []FHIRAnnotation    `json:"note,omitempty"`
}

// FHIRReferenceRange carries the textual normal range of an observation.
type FHIRReferenceRange struct {
	Text string `json:"text,omitempty"`
}

// FHIRObservationResource maps one lab result.
type FHIRObservationResource struct {
	ResourceType      string                `json:"resourceType"` // "Observation"
	ID                string                `json:"id,omitempty"`
	Status            string                `json:"status"` // always "final": results are immutable here
	Code              FHIRCodeableConcept   `json:"code"`
	EffectiveDateTime string                `json:"effectiveDateTime,omitempty"`
	ValueString       string                `json:"valueString,omitempty"`
	Interpretation    []FHIRCodeableConcept `json:"interpretation,omitempty"`
	ReferenceRange    []FHIRReferenceRange  `json:"referenceRange,omitempty"`
	Note              []FHIRAnnotation      `json:"note,omitempty"`
}

// FHIRBundleEntry wraps one resource inside a bundle.
type FHIRBundleEntry struct {
	Resource json.RawMessage `json:"resource"`
}

// FHIRBundle is a collection bundle: the Patient resource first, then its
// history entries and lab results, each most recent first.
type FHIRBundle struct {
	ResourceType string            `json:"resourceType"` // "Bundle"
	Type         string            `json:"type"`         // "collection"
	Entry        []FHIRBundleEntry `json:"entry"`
}

// MapPatientToBundle converts a patient record and everything it owns into a
// FHIR collection bundle.
func MapPatientToBundle(patient entities.Patient) (json.RawMessage, error) {
	if patient.ID == "" {
		return nil, fmt.Errorf("patient identifier is required for FHIR mapping")
	}

	resources := make([]any, 0, 1+len(patient.MedicalHistory)+len(patient.LabResults))
	resources = append(resources, mapDemographics(patient))
	for _, entry := range patient.HistoryByDateDesc() {
		resources = append(resources, mapHistoryEntry(entry))
	}
	for _, lab := range patient.LabsByDateDesc() {
		resources = append(resources, mapLabResult(lab))
	}

	bundle := FHIRBundle{
		ResourceType: "Bundle",
		Type:         "collection",
		Entry:        make([]FHIRBundleEntry, 0, len(resources)),
	}
	for _, resource := range resources {
		raw, err := json.Marshal(resource)
		if err != nil {
			return nil, fmt.Errorf("marshalling bundle resource: %w", err)
		}
		bundle.Entry = append(bundle.Entry, FHIRBundleEntry{Resource: raw})
	}

	rawBundle, err := json.MarshalIndent(bundle, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling FHIR bundle: %w", err)
	}
	return rawBundle, nil
}

func mapDemographics(patient entities.Patient) FHIRPatientResource {
	resource := FHIRPatientResource{
		ResourceType: "Patient",
		ID:           patient.ID,
		Name: []FHIRHumanName{{
			Use:    "official",
			Family: patient.LastName,
			Given:  []string{patient.FirstName},
		}},
		Gender: mapGender(patient.Gender),
	}
	if !patient.DateOfBirth.IsZero() {
		resource.BirthDate = patient.DateOfBirth.Format(entities.DateLayout)
	}
	if patient.Phone != "" {
		resource.Telecom = append(resource.Telecom, FHIRContactPoint{System: "phone", Value: patient.Phone})
	}
	if patient.Email != "" {
		resource.Telecom = append(resource.Telecom, FHIRContactPoint{System: "email", Value: patient.Email})
	}
	if patient.EmergencyPhone != "" {
		resource.Telecom = append(resource.Telecom, FHIRContactPoint{System: "phone", Value: patient.EmergencyPhone, Use: "emergency"})
	}
	if patient.Address != "" {
		resource.Address = []FHIRAddress{{Text: patient.Address}}
	}
	return resource
}

func mapGender(gender string) FHIRGender {
	switch gender {
	case "Male", "male":
		return GenderMale
	case "Female", "female":
		return GenderFemale
	case "Other", "other":
		return GenderOther
	case "":
		return ""
	default:
		return GenderUnknown
	}
}

func mapHistoryEntry(entry entities.MedicalHistoryEntry) FHIRConditionResource {
	resource := FHIRConditionResource{
		ResourceType:  "Condition",
		ID:            entry.ID,
		Code:          FHIRCodeableConcept{Text: entry.Diagnosis},
		OnsetDateTime: entry.Date.Format(entities.DateLayout),
	}
	if !entry.CreatedAt.IsZero() {
		resource.RecordedDate = entry.CreatedAt.Format("2006-01-02T15:04:05Z07:00")
	}
	for _, text := range []string{entry.Treatment, entry.Doctor, entry.Notes} {
		if text != "" {
			resource.Note = append(resource.Note, FHIRAnnotation{Text: text})
		}
	}
	return resource
}

func mapLabResult(lab entities.LabResult) FHIRObservationResource {
	resource := FHIRObservationResource{
		ResourceType:      "Observation",
		ID:                lab.ID,
		Status:            "final",
		Code:              FHIRCodeableConcept{Text: lab.TestName},
		EffectiveDateTime: lab.Date.Format(entities.DateLayout),
		ValueString:       lab.Result,
	}
	if lab.Status != "" {
		resource.Interpretation = []FHIRCodeableConcept{{Text: string(lab.Status)}}
	}
	if lab.NormalRange != "" {
		resource.ReferenceRange = []FHIRReferenceRange{{Text: lab.NormalRange}}
	}
	for _, text := range []string{lab.Doctor, lab.Notes} {
		if text != "" {
			resource.Note = append(resource.Note, FHIRAnnotation{Text: text})
		}
	}
	return resource
}
