// Package clinic holds the clinic document: the typed aggregate every front
// desk operation loads, mutates and saves as a whole, the stores that persist
// it, and the error taxonomy shared by the domain packages.
package clinic

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"
)

type Role string

const (
	RoleAdmin   Role = "Admin"
	RoleDoctor  Role = "Doctor"
	RolePatient Role = "Patient"
)

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleDoctor, RolePatient:
		return true
	}
	return false
}

const (
	StatusApproved  = "Approved"
	StatusEmergency = "Emergency"
)

// User is a login account keyed by username in Document.Users. Password holds
// a bcrypt hash.
type User struct {
	Password string `json:"password"`
	Role     Role   `json:"role"`
	ID       string `json:"id,omitempty"`
}

type Patient struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Age    int    `json:"age"`
	Gender string `json:"gender"`
}

type Doctor struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Specialty string `json:"specialty"`
}

// Appointment is either an Approved booking with an assigned doctor or an
// Emergency with no doctor.
type Appointment struct {
	ID        string  `json:"id"`
	PatientID string  `json:"patient_id"`
	DoctorID  *string `json:"doctor_id"`
	Date      string  `json:"date"`
	Time      string  `json:"time"`
	Problem   string  `json:"problem"`
	Status    string  `json:"status"`
}

// AssignedTo reports whether the appointment is assigned to doctorID.
func (a Appointment) AssignedTo(doctorID string) bool {
	return a.DoctorID != nil && *a.DoctorID == doctorID
}

// Start parses the appointment date and time in loc.
func (a Appointment) Start(loc *time.Location) (time.Time, error) {
	return time.ParseInLocation(DateLayout+" "+TimeLayout, a.Date+" "+a.Time, loc)
}

type Referral struct {
	PatientID    string `json:"patient_id"`
	FromDoctorID string `json:"from_doc_id"`
	ToDoctorID   string `json:"to_doc_id"`
	Date         string `json:"date"`
	Notes        string `json:"notes"`
}

// Report is one entry of a patient's report list. File is the generated blob
// name, never the uploaded one.
type Report struct {
	ReportID   string `json:"report_id"`
	Date       string `json:"date"`
	DoctorID   string `json:"doctor_id,omitempty"`
	DoctorName string `json:"doctor_name,omitempty"`
	Details    string `json:"details,omitempty"`
	File       string `json:"file,omitempty"`
}

// Document is the whole clinic state.
type Document struct {
	Users        Table[User]     `json:"users"`
	Patients     Table[Patient]  `json:"patients"`
	Doctors      Table[Doctor]   `json:"doctors"`
	Appointments []Appointment   `json:"appointments"`
	Reports      Table[[]Report] `json:"reports"`
	Referrals    []Referral      `json:"referrals"`
}

// NewDocument returns an empty document.
func NewDocument() *Document {
	return &Document{
		Appointments: []Appointment{},
		Referrals:    []Referral{},
	}
}

// NormalizeUsername trims and lower-cases a username. Every lookup and insert
// goes through it.
func NormalizeUsername(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// NewID returns 8 hex characters that are not yet used by any patient,
// doctor, appointment or report.
func (d *Document) NewID() string {
	for {
		id := uuid.New().String()[:8]
		if !d.idInUse(id) {
			return id
		}
	}
}

func (d *Document) idInUse(id string) bool {
	if d.Patients.Has(id) || d.Doctors.Has(id) {
		return true
	}
	for _, a := range d.Appointments {
		if a.ID == id {
			return true
		}
	}
	for _, list := range d.Reports.Values() {
		for _, r := range list {
			if r.ReportID == id {
				return true
			}
		}
	}
	return false
}

// DoctorName resolves a doctor id to a display name, or fallback.
func (d *Document) DoctorName(id, fallback string) string {
	if doc, ok := d.Doctors.Get(id); ok {
		return doc.Name
	}
	return fallback
}

// EnsurePatient returns the patient with id, creating it from seed when it
// does not exist yet.
func (d *Document) EnsurePatient(id string, seed Patient) Patient {
	if p, ok := d.Patients.Get(id); ok {
		return p
	}
	seed.ID = id
	d.Patients.Set(id, seed)
	return seed
}

// AddReport appends r to the patient's report list.
func (d *Document) AddReport(patientID string, r Report) {
	list, _ := d.Reports.Get(patientID)
	d.Reports.Set(patientID, append(list, r))
}

// Validate checks the cross-record invariants a stored document must hold.
func (d *Document) Validate() error {
	for _, name := range d.Users.Keys() {
		u, _ := d.Users.Get(name)
		if name == "" || name != NormalizeUsername(name) {
			return fmt.Errorf("user %q: username is not normalised", name)
		}
		if !u.Role.Valid() {
			return fmt.Errorf("user %q: unknown role %q", name, u.Role)
		}
		if u.Password == "" {
			return fmt.Errorf("user %q: empty password", name)
		}
		switch u.Role {
		case RolePatient:
			if !d.Patients.Has(u.ID) {
				return fmt.Errorf("user %q: patient %q does not exist", name, u.ID)
			}
		case RoleDoctor:
			if !d.Doctors.Has(u.ID) {
				return fmt.Errorf("user %q: doctor %q does not exist", name, u.ID)
			}
		}
	}

	for _, id := range d.Patients.Keys() {
		p, _ := d.Patients.Get(id)
		if p.ID != id {
			return fmt.Errorf("patient %q: id field is %q", id, p.ID)
		}
		if p.Age < 0 {
			return fmt.Errorf("patient %q: negative age", id)
		}
	}

	for _, id := range d.Doctors.Keys() {
		doc, _ := d.Doctors.Get(id)
		if doc.ID != id {
			return fmt.Errorf("doctor %q: id field is %q", id, doc.ID)
		}
		if doc.Name == "" || doc.Specialty == "" {
			return fmt.Errorf("doctor %q: name and specialty are required", id)
		}
	}

	seen := make(map[string]bool, len(d.Appointments))
	for _, a := range d.Appointments {
		if a.ID == "" || seen[a.ID] {
			return fmt.Errorf("appointment %q: missing or duplicate id", a.ID)
		}
		seen[a.ID] = true
		if a.PatientID == "" {
			return fmt.Errorf("appointment %q: patient_id is required", a.ID)
		}
		switch a.Status {
		case StatusApproved:
			if a.DoctorID == nil {
				return fmt.Errorf("appointment %q: approved appointment without doctor", a.ID)
			}
		case StatusEmergency:
		default:
			return fmt.Errorf("appointment %q: unknown status %q", a.ID, a.Status)
		}
	}

	for _, pid := range d.Reports.Keys() {
		list, _ := d.Reports.Get(pid)
		for _, r := range list {
			if r.ReportID == "" {
				return fmt.Errorf("report for patient %q: report_id is required", pid)
			}
			if r.Details == "" && r.File == "" {
				return fmt.Errorf("report %q: details or file is required", r.ReportID)
			}
		}
	}

	for i, r := range d.Referrals {
		if r.PatientID == "" || r.ToDoctorID == "" {
			return fmt.Errorf("referral %d: patient_id and to_doc_id are required", i)
		}
	}
	return nil
}

// UnknownDoctor names the author of a report whose doctor no longer resolves.
const UnknownDoctor = "Unknown Doctor"

// ReportsFor returns the patient's reports in upload order with DoctorName
// filled in from the doctor table unless the record carries one already.
func (d *Document) ReportsFor(patientID string) []Report {
	list, _ := d.Reports.Get(patientID)
	out := make([]Report, 0, len(list))
	for _, r := range list {
		if r.DoctorName == "" {
			r.DoctorName = d.DoctorName(r.DoctorID, UnknownDoctor)
		}
		out = append(out, r)
	}
	return out
}
