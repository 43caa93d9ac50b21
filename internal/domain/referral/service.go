// Package referral lets a doctor hand a patient over to another doctor and
// shows each doctor the referrals addressed to them.
package referral

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/clinic/frontdesk/internal/domain/clinic"
	"github.com/clinic/frontdesk/internal/platform/auth"
	"github.com/clinic/frontdesk/internal/platform/websocket"
)

type Service struct {
	store  clinic.Store
	loc    *time.Location
	now    func() time.Time
	logger zerolog.Logger
	events websocket.EventPublisher
}

func NewService(store clinic.Store, loc *time.Location, logger zerolog.Logger) *Service {
	if loc == nil {
		loc = time.Local
	}
	return &Service{store: store, loc: loc, now: time.Now, logger: logger}
}

func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// SetPublisher notifies the receiving doctor of new referrals.
func (s *Service) SetPublisher(p websocket.EventPublisher) {
	s.events = p
}

// CreateReferral records a referral from the calling doctor dated today.
// Referring a patient to oneself is allowed.
func (s *Service) CreateReferral(ctx context.Context, sess auth.Session, req CreateRequest) (*clinic.Referral, error) {
	if !sess.Is(clinic.RoleDoctor) {
		return nil, clinic.ErrForbidden
	}
	patientID := strings.TrimSpace(req.PatientID)
	toDoctorID := strings.TrimSpace(req.ToDoctorID)
	if patientID == "" {
		return nil, clinic.Invalid("patient_id", "is required")
	}
	if toDoctorID == "" {
		return nil, clinic.Invalid("to_doc_id", "is required")
	}

	ref := clinic.Referral{
		PatientID:    patientID,
		FromDoctorID: sess.EntityID,
		ToDoctorID:   toDoctorID,
		Date:         s.now().In(s.loc).Format(clinic.DateLayout),
		Notes:        strings.TrimSpace(req.Notes),
	}
	err := clinic.Update(ctx, s.store, func(doc *clinic.Document) error {
		if !doc.Patients.Has(patientID) {
			return clinic.NotFound("patient", patientID)
		}
		if !doc.Doctors.Has(toDoctorID) {
			return clinic.NotFound("doctor", toDoctorID)
		}
		doc.Referrals = append(doc.Referrals, ref)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("patient_id", patientID).
		Str("from_doc_id", ref.FromDoctorID).
		Str("to_doc_id", toDoctorID).
		Msg("referral created")
	websocket.Notify(ctx, s.events, s.logger, websocket.NewEvent(
		websocket.EventReferralReceived, websocket.DoctorTopic(toDoctorID), "", ref))
	return &ref, nil
}

// IncomingReferrals lists referrals to the calling doctor in creation order.
func (s *Service) IncomingReferrals(ctx context.Context, sess auth.Session) ([]Incoming, error) {
	if !sess.Is(clinic.RoleDoctor) {
		return nil, clinic.ErrForbidden
	}
	doc, err := s.store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load document: %w", err)
	}

	out := []Incoming{}
	for _, r := range doc.Referrals {
		if r.ToDoctorID != sess.EntityID {
			continue
		}
		in := Incoming{
			Date:         r.Date,
			PatientID:    r.PatientID,
			PatientName:  UnknownPatient,
			FromDoctorID: r.FromDoctorID,
			ReferredBy:   doc.DoctorName(r.FromDoctorID, ExternalDoctor),
			Notes:        r.Notes,
		}
		if p, ok := doc.Patients.Get(r.PatientID); ok {
			in.PatientName = p.Name
		}
		out = append(out, in)
	}
	return out, nil
}
