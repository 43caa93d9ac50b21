package referral

const (
	UnknownPatient = "Unknown"
	ExternalDoctor = "External Doctor"
)

type CreateRequest struct {
	PatientID  string `json:"patient_id"`
	ToDoctorID string `json:"to_doc_id"`
	Notes      string `json:"notes"`
}

// Incoming is a referral addressed to the calling doctor, with names
// resolved for display.
type Incoming struct {
	Date         string `json:"date"`
	PatientID    string `json:"patient_id"`
	PatientName  string `json:"patient_name"`
	FromDoctorID string `json:"from_doc_id"`
	ReferredBy   string `json:"referred_by"`
	Notes        string `json:"notes"`
}
