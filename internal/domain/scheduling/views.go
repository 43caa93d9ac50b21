package scheduling

import (
	"context"
	"fmt"
	"time"

	"github.com/clinic/frontdesk/internal/domain/clinic"
	"github.com/clinic/frontdesk/internal/platform/auth"
)

func (s *Service) load(ctx context.Context) (*clinic.Document, error) {
	doc, err := s.store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load document: %w", err)
	}
	return doc, nil
}

func patientName(doc *clinic.Document, id string) string {
	if p, ok := doc.Patients.Get(id); ok {
		return p.Name
	}
	return UnknownPatient
}

// TodaySchedule returns the calling doctor's grid for today: every slot,
// with today's Approved appointments filled in.
func (s *Service) TodaySchedule(ctx context.Context, sess auth.Session) ([]ScheduleSlot, error) {
	if err := requireRole(sess, clinic.RoleDoctor); err != nil {
		return nil, err
	}
	doc, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	today := s.clock().Format(clinic.DateLayout)

	times := s.grid.Times()
	grid := make([]ScheduleSlot, len(times))
	index := make(map[string]int, len(times))
	for i, t := range times {
		grid[i] = ScheduleSlot{Time: t, Status: SlotAvailable}
		index[t] = i
	}

	for _, a := range doc.Appointments {
		if a.Status != clinic.StatusApproved || a.Date != today || !a.AssignedTo(sess.EntityID) {
			continue
		}
		i, ok := index[a.Time]
		if !ok || grid[i].Status == SlotBooked {
			continue
		}
		grid[i].Status = SlotBooked
		grid[i].PatientName = patientName(doc, a.PatientID)
		grid[i].Problem = a.Problem
		grid[i].AppointmentID = a.ID
	}
	return grid, nil
}

// EmergencyCases lists emergencies assigned to the calling doctor or to
// nobody, oldest first.
func (s *Service) EmergencyCases(ctx context.Context, sess auth.Session) ([]EmergencyCase, error) {
	if err := requireRole(sess, clinic.RoleDoctor); err != nil {
		return nil, err
	}
	doc, err := s.load(ctx)
	if err != nil {
		return nil, err
	}

	cases := []EmergencyCase{}
	for _, a := range doc.Appointments {
		if a.Status != clinic.StatusEmergency {
			continue
		}
		if a.DoctorID != nil && *a.DoctorID != sess.EntityID {
			continue
		}
		ec := EmergencyCase{
			AppointmentID:    a.ID,
			PatientID:        a.PatientID,
			PatientName:      UnknownPatient,
			Problem:          a.Problem,
			Date:             a.Date,
			Time:             a.Time,
			AssignedDoctorID: a.DoctorID,
		}
		if p, ok := doc.Patients.Get(a.PatientID); ok {
			age := p.Age
			ec.PatientName = p.Name
			ec.Age = &age
		}
		cases = append(cases, ec)
	}
	return cases, nil
}

// UpcomingCheckup returns the calling patient's earliest Approved appointment
// strictly after now, or nil. Records whose date or time do not parse are
// ignored.
func (s *Service) UpcomingCheckup(ctx context.Context, sess auth.Session) (*Checkup, error) {
	if err := requireRole(sess, clinic.RolePatient); err != nil {
		return nil, err
	}
	doc, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	now := s.clock()

	var best *clinic.Appointment
	var bestAt time.Time
	for i := range doc.Appointments {
		a := &doc.Appointments[i]
		if a.PatientID != sess.EntityID || a.Status != clinic.StatusApproved {
			continue
		}
		at, err := a.Start(s.loc)
		if err != nil || !at.After(now) {
			continue
		}
		if best == nil || at.Before(bestAt) {
			best, bestAt = a, at
		}
	}
	if best == nil {
		return nil, nil
	}

	c := &Checkup{
		AppointmentID: best.ID,
		Date:          best.Date,
		Time:          best.Time,
		Problem:       best.Problem,
		DoctorName:    NoDoctor,
	}
	if best.DoctorID != nil {
		c.DoctorID = *best.DoctorID
		c.DoctorName = doc.DoctorName(*best.DoctorID, NoDoctor)
	}
	return c, nil
}

// PatientHistory lists the calling patient's non-emergency appointments in
// booking order.
func (s *Service) PatientHistory(ctx context.Context, sess auth.Session) ([]HistoryEntry, error) {
	if err := requireRole(sess, clinic.RolePatient); err != nil {
		return nil, err
	}
	doc, err := s.load(ctx)
	if err != nil {
		return nil, err
	}

	history := []HistoryEntry{}
	for _, a := range doc.Appointments {
		if a.PatientID != sess.EntityID || a.Status == clinic.StatusEmergency {
			continue
		}
		entry := HistoryEntry{
			AppointmentID: a.ID,
			Date:          a.Date,
			Time:          a.Time,
			DoctorName:    NoDoctor,
			Problem:       a.Problem,
			Status:        a.Status,
		}
		if a.DoctorID != nil {
			entry.DoctorName = doc.DoctorName(*a.DoctorID, NoDoctor)
		}
		history = append(history, entry)
	}
	return history, nil
}

// AppointmentDetails opens one appointment for a doctor. Only appointments
// the doctor can already see (their own, or unassigned emergencies) resolve.
func (s *Service) AppointmentDetails(ctx context.Context, sess auth.Session, appointmentID string) (*AppointmentDetails, error) {
	if err := requireRole(sess, clinic.RoleDoctor); err != nil {
		return nil, err
	}
	doc, err := s.load(ctx)
	if err != nil {
		return nil, err
	}

	for _, a := range doc.Appointments {
		if a.ID != appointmentID {
			continue
		}
		visible := a.AssignedTo(sess.EntityID) || (a.Status == clinic.StatusEmergency && a.DoctorID == nil)
		if !visible {
			break
		}
		patient, ok := doc.Patients.Get(a.PatientID)
		if !ok {
			patient = clinic.Patient{ID: a.PatientID, Name: UnknownPatient}
		}
		return &AppointmentDetails{
			Appointment: a,
			Patient:     patient,
			Reports:     doc.ReportsFor(a.PatientID),
		}, nil
	}
	return nil, clinic.NotFound("appointment", appointmentID)
}
