package dtos

// HistoryInput carries a new medical-history entry. Date and Diagnosis are
// mandatory; the remaining fields are free text.
type HistoryInput struct {
	Date      string `json:"date" validate:"required,datetime=2006-01-02"`
	Diagnosis string `json:"diagnosis" validate:"required"`
	Treatment string `json:"treatment"`
	Doctor    string `json:"doctor"`
	Notes     string `json:"notes"`
}

// LabInput carries a new lab result. Date and TestName are mandatory; Status
// defaults to Normal when unspecified. FileURL is a session-scoped handle to
// an uploaded report, kept in memory only — the persisted record retains just
// the display name.
type LabInput struct {
	Date        string `json:"date" validate:"required,datetime=2006-01-02"`
	TestName    string `json:"testName" validate:"required"`
	Result      string `json:"result"`
	NormalRange string `json:"normalRange"`
	Status      string `json:"status" validate:"omitempty,oneof=Normal Abnormal Critical"`
	FileName    string `json:"fileName"`
	FileURL     string `json:"fileUrl"`
	Doctor      string `json:"doctor"`
	Notes       string `json:"notes"`
}
