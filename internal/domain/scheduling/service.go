// Package scheduling is the appointment allocator: it validates slots, routes
// a problem to a specialty, assigns the least busy doctor and serves the
// schedule views built on appointments.
package scheduling

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/clinic/frontdesk/internal/domain/clinic"
	"github.com/clinic/frontdesk/internal/platform/auth"
	"github.com/clinic/frontdesk/internal/platform/websocket"
)

type Service struct {
	store  clinic.Store
	grid   *SlotGrid
	loc    *time.Location
	now    func() time.Time
	logger zerolog.Logger
	events websocket.EventPublisher
}

func NewService(store clinic.Store, grid *SlotGrid, loc *time.Location, logger zerolog.Logger) *Service {
	if grid == nil {
		grid = DefaultGrid()
	}
	if loc == nil {
		loc = time.Local
	}
	return &Service{store: store, grid: grid, loc: loc, now: time.Now, logger: logger}
}

// SetClock replaces the wall clock used for "today" and "now".
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// SetPublisher enables live notifications for bookings and emergencies.
func (s *Service) SetPublisher(p websocket.EventPublisher) {
	s.events = p
}

func (s *Service) Grid() *SlotGrid { return s.grid }

func (s *Service) clock() time.Time {
	return s.now().In(s.loc)
}

func requireRole(sess auth.Session, role clinic.Role) error {
	if !sess.Is(role) {
		return clinic.ErrForbidden
	}
	return nil
}

// ensurePatient returns the caller's patient id, creating a minimal record
// (and linking the user to it) when none exists.
func ensurePatient(doc *clinic.Document, sess auth.Session, name string, age *int, gender string) string {
	pid := sess.EntityID
	if pid == "" {
		pid = doc.NewID()
		if u, ok := doc.Users.Get(sess.Username); ok {
			u.ID = pid
			doc.Users.Set(sess.Username, u)
		}
	}
	seed := clinic.Patient{Name: strings.TrimSpace(name), Gender: strings.TrimSpace(gender)}
	if seed.Name == "" {
		seed.Name = sess.Username
	}
	if age != nil && *age >= 0 {
		seed.Age = *age
	}
	doc.EnsurePatient(pid, seed)
	return pid
}

func validDate(date string) bool {
	_, err := time.Parse(clinic.DateLayout, date)
	return err == nil
}

// BookAppointment validates the request, picks a doctor and records an
// Approved appointment. Candidates practise the problem's specialty and are
// ranked by how many appointments they have that day; ties go to the doctor
// added first. A doctor already booked at the requested time is skipped.
func (s *Service) BookAppointment(ctx context.Context, sess auth.Session, req BookingRequest) (*Booking, error) {
	if err := requireRole(sess, clinic.RolePatient); err != nil {
		return nil, err
	}
	problem := strings.TrimSpace(req.Problem)
	date := strings.TrimSpace(req.Date)
	slot := strings.TrimSpace(req.Time)
	switch {
	case problem == "":
		return nil, clinic.Invalid("problem", "is required")
	case !validDate(date):
		return nil, clinic.Invalid("date", "must be YYYY-MM-DD")
	case !s.grid.Allowed(slot):
		return nil, fmt.Errorf("%w: %q", clinic.ErrInvalidSlot, slot)
	}
	if req.Age != nil && *req.Age < 0 {
		return nil, clinic.Invalid("age", "must not be negative")
	}

	specialty := ResolveSpecialty(problem)
	var booking *Booking
	err := clinic.Update(ctx, s.store, func(doc *clinic.Document) error {
		doctor, err := pickDoctor(doc, specialty, date, slot)
		if err != nil {
			return err
		}
		pid := ensurePatient(doc, sess, req.Name, req.Age, req.Gender)

		appt := clinic.Appointment{
			ID:        doc.NewID(),
			PatientID: pid,
			DoctorID:  &doctor.ID,
			Date:      date,
			Time:      slot,
			Problem:   problem,
			Status:    clinic.StatusApproved,
		}
		doc.Appointments = append(doc.Appointments, appt)
		booking = &Booking{
			AppointmentID: appt.ID,
			Date:          date,
			Time:          slot,
			DoctorID:      doctor.ID,
			DoctorName:    doctor.Name,
			Specialty:     doctor.Specialty,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("appointment_id", booking.AppointmentID).
		Str("doctor_id", booking.DoctorID).
		Str("specialty", specialty).
		Str("date", date).
		Str("time", slot).
		Msg("appointment booked")
	websocket.Notify(ctx, s.events, s.logger, websocket.NewEvent(
		websocket.EventAppointmentBooked, websocket.DoctorTopic(booking.DoctorID), booking.AppointmentID, booking))
	return booking, nil
}

func pickDoctor(doc *clinic.Document, specialty, date, slot string) (clinic.Doctor, error) {
	var candidates []clinic.Doctor
	for _, d := range doc.Doctors.Values() {
		if d.Specialty == specialty {
			candidates = append(candidates, d)
		}
	}
	if len(candidates) == 0 {
		return clinic.Doctor{}, &clinic.NoDoctorAvailableError{Specialty: specialty}
	}

	load := make(map[string]int, len(candidates))
	taken := make(map[string]bool)
	for _, a := range doc.Appointments {
		if a.DoctorID == nil || a.Date != date {
			continue
		}
		load[*a.DoctorID]++
		if a.Status == clinic.StatusApproved && a.Time == slot {
			taken[*a.DoctorID] = true
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return load[candidates[i].ID] < load[candidates[j].ID]
	})
	for _, d := range candidates {
		if !taken[d.ID] {
			return d, nil
		}
	}
	return clinic.Doctor{}, fmt.Errorf("%w: every %s is booked at %s %s", clinic.ErrSlotTaken, specialty, date, slot)
}

// LogEmergency records an unassigned Emergency stamped with the current time.
// Every doctor sees it until the record says otherwise.
func (s *Service) LogEmergency(ctx context.Context, sess auth.Session, req EmergencyRequest) (*EmergencyResult, error) {
	if err := requireRole(sess, clinic.RolePatient); err != nil {
		return nil, err
	}
	problem := strings.TrimSpace(req.Problem)
	if problem == "" {
		return nil, clinic.Invalid("problem", "is required")
	}
	if req.Age != nil && *req.Age < 0 {
		return nil, clinic.Invalid("age", "must not be negative")
	}

	now := s.clock()
	var result *EmergencyResult
	err := clinic.Update(ctx, s.store, func(doc *clinic.Document) error {
		pid := ensurePatient(doc, sess, req.Name, req.Age, req.Gender)
		appt := clinic.Appointment{
			ID:        doc.NewID(),
			PatientID: pid,
			Date:      now.Format(clinic.DateLayout),
			Time:      now.Format(clinic.TimeLayout),
			Problem:   problem,
			Status:    clinic.StatusEmergency,
		}
		doc.Appointments = append(doc.Appointments, appt)
		result = &EmergencyResult{AppointmentID: appt.ID, Date: appt.Date, Time: appt.Time, Status: appt.Status}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Warn().Str("appointment_id", result.AppointmentID).Str("problem", problem).Msg("emergency logged")
	websocket.Notify(ctx, s.events, s.logger, websocket.NewEvent(
		websocket.EventEmergencyLogged, websocket.TopicEmergencies, result.AppointmentID,
		map[string]string{"problem": problem, "date": result.Date, "time": result.Time}))
	return result, nil
}

// Today is the current date in the clinic's time zone.
func (s *Service) Today() string {
	return s.clock().Format(clinic.DateLayout)
}
