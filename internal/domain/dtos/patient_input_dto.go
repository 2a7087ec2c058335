package dtos

// PatientInput carries the editable fields of a patient record for both
// create and whole-record update. The field list is deliberately explicit:
// identifier, timestamps, and the two sub-record collections can never be
// smuggled in through a partial object.
type PatientInput struct {
	FirstName        string `json:"firstName" validate:"required"`
	LastName         string `json:"lastName" validate:"required"`
	DateOfBirth      string `json:"dateOfBirth" validate:"required,datetime=2006-01-02"`
	Gender           string `json:"gender"`
	Phone            string `json:"phone"`
	Email            string `json:"email" validate:"omitempty,email"`
	Address          string `json:"address"`
	EmergencyContact string `json:"emergencyContact"`
	EmergencyPhone   string `json:"emergencyPhone"`
	BloodType        string `json:"bloodType"`
}
