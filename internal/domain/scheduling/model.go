package scheduling

import "github.com/clinic/frontdesk/internal/domain/clinic"

const (
	SlotAvailable = "Available"
	SlotBooked    = "Booked"

	UnknownPatient = "Unknown"
	NoDoctor       = "N/A"
)

// BookingRequest is a patient's request for an appointment. Name, age and
// gender are only used when the patient has no record yet.
type BookingRequest struct {
	Date    string `json:"date"`
	Time    string `json:"time"`
	Problem string `json:"problem"`
	Name    string `json:"name,omitempty"`
	Age     *int   `json:"age,omitempty"`
	Gender  string `json:"gender,omitempty"`
}

type Booking struct {
	AppointmentID string `json:"appointment_id"`
	Date          string `json:"date"`
	Time          string `json:"time"`
	DoctorID      string `json:"doctor_id"`
	DoctorName    string `json:"doctor_name"`
	Specialty     string `json:"specialty"`
}

type EmergencyRequest struct {
	Problem string `json:"problem"`
	Name    string `json:"name,omitempty"`
	Age     *int   `json:"age,omitempty"`
	Gender  string `json:"gender,omitempty"`
}

type EmergencyResult struct {
	AppointmentID string `json:"appointment_id"`
	Date          string `json:"date"`
	Time          string `json:"time"`
	Status        string `json:"status"`
}

// ScheduleSlot is one cell of a doctor's day grid.
type ScheduleSlot struct {
	Time          string `json:"time"`
	Status        string `json:"status"`
	PatientName   string `json:"patient_name,omitempty"`
	Problem       string `json:"problem,omitempty"`
	AppointmentID string `json:"appointment_id,omitempty"`
}

type EmergencyCase struct {
	AppointmentID    string  `json:"appointment_id"`
	PatientID        string  `json:"patient_id"`
	PatientName      string  `json:"patient_name"`
	Age              *int    `json:"age"`
	Problem          string  `json:"problem"`
	Date             string  `json:"date"`
	Time             string  `json:"time"`
	AssignedDoctorID *string `json:"assigned_doctor_id"`
}

type Checkup struct {
	AppointmentID string `json:"appointment_id"`
	Date          string `json:"date"`
	Time          string `json:"time"`
	DoctorID      string `json:"doctor_id"`
	DoctorName    string `json:"doctor_name"`
	Problem       string `json:"problem"`
}

type HistoryEntry struct {
	AppointmentID string `json:"appointment_id"`
	Date          string `json:"date"`
	Time          string `json:"time"`
	DoctorName    string `json:"doctor_name"`
	Problem       string `json:"problem"`
	Status        string `json:"status"`
}

// AppointmentDetails is what a doctor sees when opening an appointment.
type AppointmentDetails struct {
	Appointment clinic.Appointment `json:"appointment"`
	Patient     clinic.Patient     `json:"patient"`
	Reports     []clinic.Report    `json:"reports"`
}
